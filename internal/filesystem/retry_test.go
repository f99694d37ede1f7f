package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE error", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "remove", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT error", syscall.ENOENT, false},
		{"generic error", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"uploads": "/data/uploads",
		"outputs": "/data/outputs",
		"work":    "/data/work",
	})

	tests := []struct {
		path string
		want string
	}{
		{"/data/uploads/a.png", "uploads"},
		{"/data/outputs/b.mp4", "outputs"},
		{"/data/work/job/frames/frame_0001.png", "work"},
		{"/data/work", "work"},
		{"/data/workshop/x", "unknown"},
		{"/tmp/other", "unknown"},
	}

	for _, tt := range tests {
		if got := vr.Resolve(tt.path); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestVolumeResolver_LongestPrefixWins(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"data": "/data",
		"work": "/data/work",
	})

	if got := vr.Resolve("/data/work/x"); got != "work" {
		t.Errorf("Resolve() = %q, want work", got)
	}
	if got := vr.Resolve("/data/uploads/x"); got != "data" {
		t.Errorf("Resolve() = %q, want data", got)
	}
}

func TestVolumeResolver_NilResolver(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/anything"); got != "unknown" {
		t.Errorf("nil resolver Resolve() = %q, want unknown", got)
	}
}

func TestStatWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Size() = %d, want 5", info.Size())
	}

	if _, err := StatWithRetry(filepath.Join(dir, "missing"), DefaultRetryConfig()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("StatWithRetry(missing) error = %v, want ErrNotExist", err)
	}
}

func TestRemoveWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RemoveWithRetry(path, DefaultRetryConfig()); err != nil {
		t.Fatalf("RemoveWithRetry() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should be gone")
	}

	if err := RemoveWithRetry(path, DefaultRetryConfig()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("second RemoveWithRetry() error = %v, want ErrNotExist", err)
	}
}

func TestRemoveAllWithRetry(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "job")
	if err := os.MkdirAll(filepath.Join(dir, "frames"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "frames", "frame_0001.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RemoveAllWithRetry(dir, DefaultRetryConfig()); err != nil {
		t.Fatalf("RemoveAllWithRetry() error: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("directory should be gone")
	}
	if err := RemoveAllWithRetry(dir, DefaultRetryConfig()); err != nil {
		t.Errorf("RemoveAllWithRetry on missing dir error: %v", err)
	}
}

func TestReadDirWithRetry(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame_0002.png", "frame_0001.png", "frame_0010.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := ReadDirWithRetry(dir, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("ReadDirWithRetry() error: %v", err)
	}
	want := []string{"frame_0001.png", "frame_0002.png", "frame_0010.png"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Errorf("entry %d = %q, want %q", i, e.Name(), want[i])
		}
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	ops      []string
	attempts int
	stale    int
	failures int
}

func (r *recordingObserver) ObserveOperation(volume, operation string, _ float64, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, volume+":"+operation)
}

func (r *recordingObserver) ObserveRetryAttempt(_, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
}

func (r *recordingObserver) ObserveRetrySuccess(_, _ string) {}

func (r *recordingObserver) ObserveRetryFailure(_, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func (r *recordingObserver) ObserveRetryDuration(_, _ string, _ float64) {}

func (r *recordingObserver) ObserveStaleError(_, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale++
}

func TestWithRetry_StaleErrorsAreRetried(t *testing.T) {
	obs := &recordingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	config := RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		VolumeResolver: NewVolumeResolver(map[string]string{"work": "/data/work"}),
	}

	calls := 0
	err := withRetry("remove", "/data/work/x", config, func() error {
		calls++
		return syscall.ESTALE
	})

	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("withRetry() error = %v, want ESTALE", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
	if obs.attempts != 2 || obs.stale != 3 || obs.failures != 1 {
		t.Errorf("observer attempts=%d stale=%d failures=%d, want 2/3/1", obs.attempts, obs.stale, obs.failures)
	}
	if len(obs.ops) != 1 || obs.ops[0] != "work:remove" {
		t.Errorf("observed ops = %v, want [work:remove]", obs.ops)
	}
}

func TestWithRetry_RecoversAfterStale(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	calls := 0
	err := withRetry("stat", "/x", config, func() error {
		calls++
		if calls < 2 {
			return syscall.ESTALE
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry() error: %v", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}

func TestWithRetry_OtherErrorsFailFast(t *testing.T) {
	calls := 0
	err := withRetry("stat", "/x", DefaultRetryConfig(), func() error {
		calls++
		return syscall.EACCES
	})
	if !errors.Is(err, syscall.EACCES) {
		t.Errorf("withRetry() error = %v, want EACCES", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}
