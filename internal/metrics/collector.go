package metrics

import (
	"sync"
	"time"

	"asciier/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current registry sizes
type Stats struct {
	JobsProcessing int
	JobsCompleted  int
	JobsFailed     int
	TrackedFiles   int
	ActiveSessions int

	// Memory monitor snapshot
	HeapBytes    uint64
	MemoryUsage  float64
	MemoryPaused bool
}

// StatsFunc adapts a plain function to StatsProvider.
type StatsFunc func() Stats

// GetStats implements StatsProvider.
func (f StatsFunc) GetStats() Stats {
	return f()
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	done          chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit.
// It must only be called after Start.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	<-c.done
}

func (c *Collector) collectLoop() {
	defer close(c.done)

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	JobsTracked.WithLabelValues("processing").Set(float64(stats.JobsProcessing))
	JobsTracked.WithLabelValues("completed").Set(float64(stats.JobsCompleted))
	JobsTracked.WithLabelValues("error").Set(float64(stats.JobsFailed))
	TrackedFiles.Set(float64(stats.TrackedFiles))
	ActiveSessions.Set(float64(stats.ActiveSessions))

	MemoryHeapBytes.Set(float64(stats.HeapBytes))
	MemoryUsageRatio.Set(stats.MemoryUsage)
	if stats.MemoryPaused {
		MemoryPaused.Set(1)
	} else {
		MemoryPaused.Set(0)
	}

	logging.Debug("Metrics collected: jobs=%d/%d/%d, files=%d, sessions=%d, heap=%.1f%%",
		stats.JobsProcessing, stats.JobsCompleted, stats.JobsFailed, stats.TrackedFiles, stats.ActiveSessions,
		stats.MemoryUsage*100)
}
