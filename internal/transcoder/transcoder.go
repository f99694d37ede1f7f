package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"asciier/internal/apperr"
	"asciier/internal/logging"
)

// Transcoder runs ffprobe/ffmpeg for the video pipeline.
type Transcoder struct {
	ffmpeg    string
	ffprobe   string
	processes map[string]*exec.Cmd
	processMu sync.Mutex
}

// StreamInfo contains what the pipeline needs to know about an input.
type StreamInfo struct {
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	VideoCodec string  `json:"videoCodec"`
	AudioCodec string  `json:"audioCodec,omitempty"`
	HasVideo   bool    `json:"hasVideo"`
	HasAudio   bool    `json:"hasAudio"`
}

type probeOutput struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// New creates a Transcoder. Empty binary names default to the ones on PATH.
func New(ffmpegPath, ffprobePath string) *Transcoder {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	if strings.TrimSpace(ffprobePath) == "" {
		ffprobePath = "ffprobe"
	}
	return &Transcoder{
		ffmpeg:    ffmpegPath,
		ffprobe:   ffprobePath,
		processes: make(map[string]*exec.Cmd),
	}
}

// Probe returns stream information for the file at path.
func (t *Transcoder) Probe(ctx context.Context, path string) (*StreamInfo, error) {
	cmd := exec.CommandContext(ctx, t.ffprobe,
		"-v", "error",
		"-hide_banner",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"--", path,
	) //nolint:gosec

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffprobe %s: %v - %s", apperr.ErrTranscodeFailure, path, err, strings.TrimSpace(stderr.String()))
	}

	return parseProbe(stdout.Bytes())
}

func parseProbe(data []byte) (*StreamInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe output: %v", apperr.ErrTranscodeFailure, err)
	}

	info := &StreamInfo{}
	info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)

	for _, s := range out.Streams {
		switch strings.ToLower(s.CodecType) {
		case "video":
			if !info.HasVideo {
				info.HasVideo = true
				info.VideoCodec = s.CodecName
				info.Width = s.Width
				info.Height = s.Height
			}
		case "audio":
			if !info.HasAudio {
				info.HasAudio = true
				info.AudioCodec = s.CodecName
			}
		}
	}
	return info, nil
}

// ExtractAudio writes the first audio stream of input to output as MP3 at
// the given bitrate in kbps.
func (t *Transcoder) ExtractAudio(ctx context.Context, input, output string, bitrateKbps int) error {
	return t.run(ctx, output, audioArgs(input, output, bitrateKbps))
}

// ExtractFrames samples input at fps frames per second into the printf-style
// outputPattern (e.g. ".../frame_%04d.png").
func (t *Transcoder) ExtractFrames(ctx context.Context, input, outputPattern string, fps int) error {
	return t.run(ctx, outputPattern, framesArgs(input, outputPattern, fps))
}

// MuxFramesAndAudio encodes the frames matching framePattern at fps into a
// web-playable MP4 at output, adding audioPath as the soundtrack when it is
// not empty.
func (t *Transcoder) MuxFramesAndAudio(ctx context.Context, framePattern string, fps int, audioPath, output string) error {
	return t.run(ctx, output, muxArgs(framePattern, fps, audioPath, output))
}

func audioArgs(input, output string, bitrateKbps int) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vn",
		"-sn",
		"-dn",
		"-c:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
		"-f", "mp3",
		output,
	}
}

func framesArgs(input, outputPattern string, fps int) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-an",
		"-sn",
		"-vf", fmt.Sprintf("fps=%d", fps),
		"-start_number", "1",
		outputPattern,
	}
}

func muxArgs(framePattern string, fps int, audioPath, output string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-framerate", strconv.Itoa(fps),
		"-start_number", "1",
		"-i", framePattern,
	}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}

	args = append(args,
		"-map", "0:v:0",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		// libx264 with yuv420p needs even dimensions
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-r", strconv.Itoa(fps),
	)
	if audioPath != "" {
		args = append(args,
			"-map", "1:a:0",
			"-c:a", "aac",
			"-b:a", "128k",
			"-shortest",
		)
	}

	return append(args,
		"-movflags", "+faststart",
		"-f", "mp4",
		output,
	)
}

// run executes ffmpeg with args, tracking the process under key so Cleanup
// can kill it.
func (t *Transcoder) run(ctx context.Context, key string, args []string) error {
	cmd := exec.CommandContext(ctx, t.ffmpeg, args...) //nolint:gosec

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: failed to start ffmpeg: %v", apperr.ErrTranscodeFailure, err)
	}

	t.processMu.Lock()
	t.processes[key] = cmd
	t.processMu.Unlock()

	defer func() {
		t.processMu.Lock()
		delete(t.processes, key)
		t.processMu.Unlock()
	}()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", apperr.ErrTranscodeFailure, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		logging.Debug("FFmpeg stderr: %s", msg)
		return fmt.Errorf("%w: ffmpeg: %v - %s", apperr.ErrTranscodeFailure, err, msg)
	}
	return nil
}

// Cleanup kills all running ffmpeg processes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for key, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing ffmpeg process for: %s", key)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill ffmpeg process for %s: %v", key, err)
			}
		}
	}
}

// Available reports whether the configured ffmpeg and ffprobe binaries can
// be found.
func (t *Transcoder) Available() error {
	for _, bin := range []string{t.ffmpeg, t.ffprobe} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found in PATH", bin)
		}
	}
	return nil
}
