package transcoder

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"asciier/internal/apperr"
)

// hasPair reports whether args contains flag immediately followed by value.
func hasPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func running(t *Transcoder) int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}

func TestNew_Defaults(t *testing.T) {
	trans := New("", "  ")
	if trans.ffmpeg != "ffmpeg" || trans.ffprobe != "ffprobe" {
		t.Errorf("binaries = %q, %q", trans.ffmpeg, trans.ffprobe)
	}
	if n := running(trans); n != 0 {
		t.Errorf("running processes = %d, want 0", n)
	}
}

func TestAudioArgs(t *testing.T) {
	args := audioArgs("/in/clip.mov", "/work/audio.mp3", 128)

	for _, pair := range [][2]string{
		{"-i", "/in/clip.mov"},
		{"-c:a", "libmp3lame"},
		{"-b:a", "128k"},
	} {
		if !hasPair(args, pair[0], pair[1]) {
			t.Errorf("missing %s %s in %v", pair[0], pair[1], args)
		}
	}
	if !slices.Contains(args, "-vn") {
		t.Error("audio extraction should drop video")
	}
	if args[len(args)-1] != "/work/audio.mp3" {
		t.Errorf("output should be last, got %q", args[len(args)-1])
	}
}

func TestFramesArgs(t *testing.T) {
	args := framesArgs("/in/clip.mp4", "/work/frames/frame_%04d.png", 10)

	if !hasPair(args, "-vf", "fps=10") {
		t.Errorf("expected fps=10 filter in %v", args)
	}
	if !hasPair(args, "-start_number", "1") {
		t.Error("frames should be numbered from 1")
	}
	if !slices.Contains(args, "-an") {
		t.Error("frame extraction should drop audio")
	}
	if args[len(args)-1] != "/work/frames/frame_%04d.png" {
		t.Errorf("pattern should be last, got %q", args[len(args)-1])
	}
}

func TestMuxArgs(t *testing.T) {
	tests := []struct {
		name      string
		audio     string
		wantAudio bool
	}{
		{"with audio", "/work/audio.mp3", true},
		{"without audio", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := muxArgs("/work/ascii/frame_%04d.png", 10, tt.audio, "/out/x.mp4")

			for _, pair := range [][2]string{
				{"-framerate", "10"},
				{"-c:v", "libx264"},
				{"-pix_fmt", "yuv420p"},
				{"-preset", "fast"},
				{"-crf", "23"},
				{"-movflags", "+faststart"},
			} {
				if !hasPair(args, pair[0], pair[1]) {
					t.Errorf("missing %s %s", pair[0], pair[1])
				}
			}

			if !hasPair(args, "-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2") {
				t.Error("expected even-dimension scale filter")
			}

			if got := hasPair(args, "-c:a", "aac"); got != tt.wantAudio {
				t.Errorf("aac audio = %v, want %v", got, tt.wantAudio)
			}
			if got := hasPair(args, "-i", tt.audio); tt.wantAudio && !got {
				t.Error("audio input missing")
			}
			if got := slices.Contains(args, "-shortest"); got != tt.wantAudio {
				t.Errorf("-shortest = %v, want %v", got, tt.wantAudio)
			}
			if args[len(args)-1] != "/out/x.mp4" {
				t.Errorf("output should be last, got %q", args[len(args)-1])
			}
		})
	}
}

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name      string
		json      string
		wantAudio bool
		wantW     int
		wantErr   bool
	}{
		{
			name: "video and audio",
			json: `{"streams":[{"codec_name":"h264","codec_type":"video","width":640,"height":360},
				{"codec_name":"aac","codec_type":"audio"}],"format":{"duration":"3.200000"}}`,
			wantAudio: true,
			wantW:     640,
		},
		{
			name:  "video only",
			json:  `{"streams":[{"codec_name":"vp9","codec_type":"video","width":320,"height":240}],"format":{}}`,
			wantW: 320,
		},
		{
			name:    "garbage",
			json:    `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseProbe([]byte(tt.json))
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrTranscodeFailure) {
					t.Errorf("error = %v, want ErrTranscodeFailure", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseProbe() error: %v", err)
			}
			if info.HasAudio != tt.wantAudio {
				t.Errorf("HasAudio = %v, want %v", info.HasAudio, tt.wantAudio)
			}
			if !info.HasVideo || info.Width != tt.wantW {
				t.Errorf("video = %v width %d, want width %d", info.HasVideo, info.Width, tt.wantW)
			}
		})
	}
}

func TestRun_MissingBinary(t *testing.T) {
	trans := New("/nonexistent/ffmpeg", "/nonexistent/ffprobe")

	err := trans.ExtractFrames(context.Background(), "in.mp4", "out_%04d.png", 10)
	if !errors.Is(err, apperr.ErrTranscodeFailure) {
		t.Errorf("error = %v, want ErrTranscodeFailure", err)
	}
	if trans.Available() == nil {
		t.Error("Available() should fail for missing binaries")
	}
	if _, err := trans.Probe(context.Background(), "in.mp4"); !errors.Is(err, apperr.ErrTranscodeFailure) {
		t.Errorf("Probe() error = %v, want ErrTranscodeFailure", err)
	}
}

func TestCleanup_NoProcesses(t *testing.T) {
	New("", "").Cleanup()
}

// =============================================================================
// Integration Tests (Real FFmpeg/FFProbe)
// =============================================================================

func checkFFmpegAvailable(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found, skipping integration test")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found, skipping integration test")
	}
}

// createTestVideo generates a short test pattern clip, optionally with a
// sine-wave soundtrack.
func createTestVideo(t *testing.T, dir string, withAudio bool) string {
	t.Helper()

	path := filepath.Join(dir, "source.mp4")
	args := []string{"-y", "-f", "lavfi", "-i", "testsrc=duration=1:size=160x120:rate=25"}
	if withAudio {
		args = append(args, "-f", "lavfi", "-i", "sine=frequency=440:duration=1", "-c:a", "aac")
	}
	args = append(args, "-c:v", "libx264", "-pix_fmt", "yuv420p", "-shortest", path)

	cmd := exec.CommandContext(context.Background(), "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to create test video: %v\nOutput: %s", err, out)
	}
	return path
}

func TestIntegration_ExtractAndMux(t *testing.T) {
	checkFFmpegAvailable(t)

	dir := t.TempDir()
	src := createTestVideo(t, dir, true)
	trans := New("", "")
	ctx := context.Background()

	info, err := trans.Probe(ctx, src)
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if !info.HasAudio || info.Width != 160 {
		t.Errorf("probe = %+v", info)
	}

	framesDir := filepath.Join(dir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	pattern := filepath.Join(framesDir, "frame_%04d.png")
	if err := trans.ExtractFrames(ctx, src, pattern, 10); err != nil {
		t.Fatalf("ExtractFrames() error: %v", err)
	}
	entries, _ := os.ReadDir(framesDir)
	if len(entries) == 0 {
		t.Fatal("no frames extracted")
	}
	if !strings.HasPrefix(entries[0].Name(), "frame_0001") {
		t.Errorf("first frame = %s", entries[0].Name())
	}

	audio := filepath.Join(dir, "audio.mp3")
	if err := trans.ExtractAudio(ctx, src, audio, 128); err != nil {
		t.Fatalf("ExtractAudio() error: %v", err)
	}

	out := filepath.Join(dir, "out.mp4")
	if err := trans.MuxFramesAndAudio(ctx, pattern, 10, audio, out); err != nil {
		t.Fatalf("MuxFramesAndAudio() error: %v", err)
	}
	muxed, err := trans.Probe(ctx, out)
	if err != nil {
		t.Fatalf("Probe(output) error: %v", err)
	}
	if muxed.VideoCodec != "h264" || !muxed.HasAudio {
		t.Errorf("output = %+v, want h264 with audio", muxed)
	}
	if n := running(trans); n != 0 {
		t.Errorf("running processes = %d after completion", n)
	}
}

func TestIntegration_ExtractAudio_NoAudioFails(t *testing.T) {
	checkFFmpegAvailable(t)

	dir := t.TempDir()
	src := createTestVideo(t, dir, false)

	err := New("", "").ExtractAudio(context.Background(), src, filepath.Join(dir, "a.mp3"), 128)
	if !errors.Is(err, apperr.ErrTranscodeFailure) {
		t.Errorf("error = %v, want ErrTranscodeFailure", err)
	}
}
