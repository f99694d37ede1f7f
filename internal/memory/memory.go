package memory

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"asciier/internal/logging"
	"asciier/internal/metrics"

	"github.com/dustin/go-humanize"
)

// Config configures a Monitor.
type Config struct {
	// Limit is the heap budget in bytes. Zero uses GOMEMLIMIT; with neither
	// set the monitor never pauses.
	Limit int64

	// HighWaterMark is the usage ratio below which paused work resumes.
	HighWaterMark float64

	// CriticalWaterMark is the usage ratio at which frame work pauses.
	CriticalWaterMark float64

	CheckInterval time.Duration
}

// DefaultConfig returns the thresholds used by the server.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     2 * time.Second,
	}
}

// Stats is a point-in-time view of the monitor.
type Stats struct {
	HeapBytes uint64
	Limit     int64
	Usage     float64
	Paused    bool
}

// Monitor samples heap usage and holds back frame conversions while it is
// above the critical mark, until it falls below the high mark again.
type Monitor struct {
	cfg   Config
	limit int64
	read  func() uint64

	mu      sync.Mutex
	current uint64
	paused  bool
	resume  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewMonitor creates a Monitor. Invalid thresholds fall back to DefaultConfig.
func NewMonitor(cfg Config) *Monitor {
	def := DefaultConfig()
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	if cfg.CriticalWaterMark <= 0 || cfg.CriticalWaterMark > 1 {
		cfg.CriticalWaterMark = def.CriticalWaterMark
	}
	if cfg.HighWaterMark <= 0 || cfg.HighWaterMark >= cfg.CriticalWaterMark {
		cfg.HighWaterMark = cfg.CriticalWaterMark * def.HighWaterMark / def.CriticalWaterMark
	}

	limit := cfg.Limit
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < math.MaxInt64 {
			limit = l
		}
	}
	if limit < 0 {
		limit = 0
	}

	return &Monitor{
		cfg:      cfg,
		limit:    limit,
		read:     heapAlloc,
		resume:   make(chan struct{}),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Limit returns the heap budget, or zero when backpressure is disabled.
func (m *Monitor) Limit() int64 {
	return m.limit
}

// Start begins sampling. Without a limit there is nothing to watch.
func (m *Monitor) Start() {
	if m.limit == 0 {
		logging.Warn("Memory monitor: no memory limit configured, frame backpressure disabled")
		return
	}
	m.startOnce.Do(func() {
		m.mu.Lock()
		m.started = true
		m.mu.Unlock()
		logging.Info("Memory monitor started: limit %s, pause at %.0f%%, resume below %.0f%%",
			humanize.IBytes(uint64(m.limit)), m.cfg.CriticalWaterMark*100, m.cfg.HighWaterMark*100)
		go m.loop()
	})
}

// Stop ends sampling and releases any waiters. It is safe to call without
// Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if started {
		<-m.done
	}
}

func (m *Monitor) loop() {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stopChan:
			return
		}
	}
}

// check samples the heap once and updates the paused state.
func (m *Monitor) check() {
	alloc := m.read()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = alloc
	if m.limit <= 0 {
		return
	}
	usage := float64(alloc) / float64(m.limit)

	switch {
	case !m.paused && usage >= m.cfg.CriticalWaterMark:
		m.paused = true
		metrics.MemoryPauses.Inc()
		logging.Warn("Memory critical (%.1f%% of limit), pausing frame conversion", usage*100)
		go runtime.GC()
	case m.paused && usage < m.cfg.HighWaterMark:
		m.paused = false
		close(m.resume)
		m.resume = make(chan struct{})
		logging.Info("Memory recovered (%.1f%% of limit), resuming frame conversion", usage*100)
	}
}

// WaitIfPaused blocks while the monitor is paused. It returns ctx.Err() if
// the context ends first and nil once work may continue or the monitor
// stops.
func (m *Monitor) WaitIfPaused(ctx context.Context) error {
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return nil
	}
	resume := m.resume
	m.mu.Unlock()

	select {
	case <-resume:
		return nil
	case <-m.stopChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the last sample.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{HeapBytes: m.current, Limit: m.limit, Paused: m.paused}
	if m.limit > 0 {
		s.Usage = float64(m.current) / float64(m.limit)
	}
	return s
}
