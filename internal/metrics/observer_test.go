package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestVolumeLabel(t *testing.T) {
	tests := map[string]string{
		"uploads":       "uploads",
		"outputs":       "outputs",
		"work":          "work",
		"unknown":       "unknown",
		"/data/outputs": "unknown",
		"":              "unknown",
	}
	for in, want := range tests {
		if got := volumeLabel(in); got != want {
			t.Errorf("volumeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilesystemObserver(t *testing.T) {
	o := NewFilesystemObserver()

	tests := []struct {
		name    string
		observe func()
		counter prometheus.Counter
	}{
		{
			name:    "operation error",
			observe: func() { o.ObserveOperation("outputs", "remove", 0.01, errors.New("busy")) },
			counter: FilesystemOperationErrors.WithLabelValues("outputs", "remove"),
		},
		{
			name:    "unresolved volume folds into unknown",
			observe: func() { o.ObserveRetryAttempt("stat", "/tmp/elsewhere") },
			counter: FilesystemRetryAttempts.WithLabelValues("stat", "unknown"),
		},
		{
			name:    "retry failure",
			observe: func() { o.ObserveRetryFailure("remove", "work") },
			counter: FilesystemRetryFailures.WithLabelValues("remove", "work"),
		},
		{
			name:    "stale handle",
			observe: func() { o.ObserveStaleError("readdir", "work") },
			counter: FilesystemStaleErrors.WithLabelValues("readdir", "work"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := counterValue(t, tt.counter)
			tt.observe()
			if got := counterValue(t, tt.counter); got != before+1 {
				t.Errorf("counter = %v, want %v", got, before+1)
			}
		})
	}

	// Successful operations record timing only
	before := counterValue(t, FilesystemOperationErrors.WithLabelValues("uploads", "stat"))
	o.ObserveOperation("uploads", "stat", 0.001, nil)
	if got := counterValue(t, FilesystemOperationErrors.WithLabelValues("uploads", "stat")); got != before {
		t.Errorf("error counter moved on success: %v -> %v", before, got)
	}
}
