package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"asciier/internal/filesystem"
	"asciier/internal/logging"
	"asciier/internal/metrics"
)

const (
	// DefaultTTL is how long a tracked file lives when no TTL is given.
	DefaultTTL = 30 * time.Minute

	// DefaultSweepInterval is how often expired files are reaped.
	DefaultSweepInterval = time.Minute
)

// Deletion reasons, used as metric labels.
const (
	reasonExpired  = "expired"
	reasonSession  = "session"
	reasonShutdown = "shutdown"
)

// Config configures a Manager.
type Config struct {
	DefaultTTL    time.Duration
	SweepInterval time.Duration
	Retry         filesystem.RetryConfig
}

// FileInfo describes a tracked file.
type FileInfo struct {
	File      string    `json:"file"`
	Path      string    `json:"-"`
	Session   string    `json:"-"` // owner, never serialised
	Mine      bool      `json:"mine"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	ExpiresIn string    `json:"expiresIn"`
	Exists    bool      `json:"exists"`
}

type entry struct {
	path      string
	sessionID string
	createdAt time.Time
	expiresAt time.Time
	ttl       time.Duration
}

// Manager owns the tracked-file table.
type Manager struct {
	mu    sync.Mutex
	files map[string]*entry

	defaultTTL time.Duration
	interval   time.Duration
	retry      filesystem.RetryConfig
	now        func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewManager creates a Manager. Zero durations fall back to the defaults.
func NewManager(cfg Config) *Manager {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialBackoff == 0 {
		cfg.Retry = filesystem.DefaultRetryConfig()
	}
	return &Manager{
		files:      make(map[string]*entry),
		defaultTTL: cfg.DefaultTTL,
		interval:   cfg.SweepInterval,
		retry:      cfg.Retry,
		now:        time.Now,
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Track registers path for deletion after ttl. A ttl of zero or less uses
// the default. Tracking a path again replaces its entry. It returns the
// expiry time.
func (m *Manager) Track(path, sessionID string, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	now := m.now()
	e := &entry{
		path:      path,
		sessionID: sessionID,
		createdAt: now,
		expiresAt: now.Add(ttl),
		ttl:       ttl,
	}

	m.mu.Lock()
	m.files[path] = e
	n := len(m.files)
	m.mu.Unlock()

	metrics.TrackedFiles.Set(float64(n))
	logging.Debug("Tracking file: %s (expires in %s)", filepath.Base(path), ttl)
	return e.expiresAt
}

// Sweep deletes every tracked file whose expiry has passed and returns the
// number of files removed from disk.
func (m *Manager) Sweep() int {
	now := m.now()
	claimed := m.claim(func(e *entry) bool {
		return !now.Before(e.expiresAt)
	})
	metrics.SweepsTotal.Inc()

	n := m.removeAll(claimed, reasonExpired)
	if n > 0 {
		logging.Info("Cleaned up %d expired file(s)", n)
	}
	return n
}

// CleanupSession deletes every file owned by sessionID and returns the
// number removed. Calling it again for the same session is a no-op.
func (m *Manager) CleanupSession(sessionID string) int {
	if sessionID == "" {
		return 0
	}
	claimed := m.claim(func(e *entry) bool {
		return e.sessionID == sessionID
	})

	n := m.removeAll(claimed, reasonSession)
	if len(claimed) > 0 {
		logging.Info("Cleaned up %d file(s) for session %s", n, sessionID)
	}
	return n
}

// CleanupAll deletes every tracked file. It is used at shutdown.
func (m *Manager) CleanupAll() int {
	claimed := m.claim(func(*entry) bool { return true })

	n := m.removeAll(claimed, reasonShutdown)
	logging.Info("Cleaned up %d tracked file(s)", n)
	return n
}

// Len returns the number of tracked files.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// Snapshot returns the tracked files ordered by creation time.
func (m *Manager) Snapshot() []FileInfo {
	now := m.now()

	m.mu.Lock()
	entries := make([]entry, 0, len(m.files))
	for _, e := range m.files {
		entries = append(entries, *e)
	}
	m.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].createdAt.Equal(entries[j].createdAt) {
			return entries[i].path < entries[j].path
		}
		return entries[i].createdAt.Before(entries[j].createdAt)
	})

	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		remaining := max(e.expiresAt.Sub(now), 0)
		_, err := filesystem.StatWithRetry(e.path, m.retry)
		out = append(out, FileInfo{
			File:      filepath.Base(e.path),
			Path:      e.path,
			Session:   e.sessionID,
			CreatedAt: e.createdAt,
			ExpiresAt: e.expiresAt,
			ExpiresIn: fmt.Sprintf("%ds", int(remaining/time.Second)),
			Exists:    err == nil,
		})
	}
	return out
}

// claim removes matching entries from the table and returns them. Only the
// caller that claims an entry deletes its file.
func (m *Manager) claim(match func(*entry) bool) []*entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var claimed []*entry
	for path, e := range m.files {
		if match(e) {
			claimed = append(claimed, e)
			delete(m.files, path)
		}
	}
	metrics.TrackedFiles.Set(float64(len(m.files)))
	return claimed
}

func (m *Manager) removeAll(entries []*entry, reason string) int {
	n := 0
	for _, e := range entries {
		if m.remove(e.path, reason) {
			n++
		}
	}
	return n
}

// remove deletes a claimed path unless it was tracked again after the
// claim, in which case the file now belongs to the new entry.
func (m *Manager) remove(path, reason string) bool {
	m.mu.Lock()
	_, retracked := m.files[path]
	m.mu.Unlock()
	if retracked {
		logging.Debug("Skipping delete of re-tracked file: %s", filepath.Base(path))
		return false
	}

	err := filesystem.RemoveWithRetry(path, m.retry)
	switch {
	case err == nil:
		metrics.FilesDeleted.WithLabelValues(reason).Inc()
		logging.Debug("Deleted file: %s", filepath.Base(path))
		return true
	case errors.Is(err, os.ErrNotExist):
		return false
	default:
		metrics.FileDeleteErrors.Inc()
		logging.Warn("Error deleting file %s: %v", path, err)
		return false
	}
}

// Start begins the periodic sweep.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.mu.Lock()
		m.started = true
		m.mu.Unlock()

		logging.Info("Starting file cleanup scheduler (every %s, default TTL %s)", m.interval, m.defaultTTL)
		go m.loop()
	})
}

// Stop ends the periodic sweep and waits for it to exit. Tracked files are
// left in place; use CleanupAll to remove them.
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()

	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	if started {
		<-m.done
		logging.Info("File cleanup scheduler stopped")
	}
}

func (m *Manager) loop() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stopChan:
			return
		}
	}
}
