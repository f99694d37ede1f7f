package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// newTestMonitor returns a stopped monitor with a 1000 byte limit whose heap
// reading is controlled by the returned pointer.
func newTestMonitor(t *testing.T) (*Monitor, *atomic.Uint64) {
	t.Helper()
	m := NewMonitor(Config{
		Limit:             1000,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Hour,
	})
	var heap atomic.Uint64
	m.read = heap.Load
	return m, &heap
}

func TestMonitor_Hysteresis(t *testing.T) {
	m, heap := newTestMonitor(t)

	steps := []struct {
		heap       uint64
		wantPaused bool
	}{
		{500, false},
		{800, false}, // between the marks, not yet paused
		{850, true},
		{750, true}, // between the marks, stays paused
		{699, false},
		{800, false},
	}

	for i, step := range steps {
		heap.Store(step.heap)
		m.check()
		s := m.Stats()
		if s.Paused != step.wantPaused {
			t.Errorf("step %d (heap %d): Paused = %v, want %v", i, step.heap, s.Paused, step.wantPaused)
		}
		if s.HeapBytes != step.heap {
			t.Errorf("step %d: HeapBytes = %d, want %d", i, s.HeapBytes, step.heap)
		}
	}
}

func TestMonitor_WaitIfPausedNotPaused(t *testing.T) {
	m, _ := newTestMonitor(t)
	if err := m.WaitIfPaused(context.Background()); err != nil {
		t.Fatalf("WaitIfPaused() = %v, want nil", err)
	}
}

func TestMonitor_WaitIfPausedBlocksUntilResume(t *testing.T) {
	m, heap := newTestMonitor(t)
	heap.Store(900)
	m.check()

	done := make(chan error, 1)
	go func() {
		done <- m.WaitIfPaused(context.Background())
	}()

	select {
	case err := <-done:
		t.Fatalf("WaitIfPaused returned %v while paused", err)
	case <-time.After(50 * time.Millisecond):
	}

	heap.Store(100)
	m.check()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitIfPaused() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitIfPaused did not return after memory recovered")
	}
}

func TestMonitor_WaitIfPausedHonoursContext(t *testing.T) {
	m, heap := newTestMonitor(t)
	heap.Store(900)
	m.check()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := m.WaitIfPaused(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitIfPaused() = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestMonitor_StopReleasesWaiters(t *testing.T) {
	m, heap := newTestMonitor(t)
	heap.Store(900)
	m.check()

	done := make(chan error, 1)
	go func() {
		done <- m.WaitIfPaused(context.Background())
	}()

	m.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitIfPaused() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not release WaitIfPaused")
	}
}

func TestMonitor_StartStop(t *testing.T) {
	m, heap := newTestMonitor(t)
	m.cfg.CheckInterval = 5 * time.Millisecond
	heap.Store(900)

	m.Start()
	deadline := time.Now().Add(2 * time.Second)
	for !m.Stats().Paused {
		if time.Now().After(deadline) {
			t.Fatal("monitor never sampled the heap")
		}
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()
	m.Stop()
}

func TestMonitor_NoLimitNeverPauses(t *testing.T) {
	m := NewMonitor(Config{Limit: -1})
	m.read = func() uint64 { return 1 << 40 }
	m.check()

	s := m.Stats()
	if s.Paused {
		t.Error("monitor without a limit paused")
	}
	if s.Usage != 0 {
		t.Errorf("Usage = %v, want 0", s.Usage)
	}

	// Start is a no-op without a limit and Stop must not block
	m.Start()
	m.Stop()
}

func TestNewMonitor_InvalidThresholds(t *testing.T) {
	m := NewMonitor(Config{Limit: 1000, HighWaterMark: 0.9, CriticalWaterMark: 0.8})
	if m.cfg.HighWaterMark >= m.cfg.CriticalWaterMark {
		t.Errorf("HighWaterMark %v not below CriticalWaterMark %v", m.cfg.HighWaterMark, m.cfg.CriticalWaterMark)
	}
	if m.cfg.CheckInterval != DefaultConfig().CheckInterval {
		t.Errorf("CheckInterval = %v, want default", m.cfg.CheckInterval)
	}
}
