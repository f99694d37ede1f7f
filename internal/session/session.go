package session

import (
	"strings"
	"sync"
	"time"

	"asciier/internal/logging"
	"asciier/internal/metrics"

	"github.com/google/uuid"
)

const (
	// DefaultGrace is how long a disconnected session survives.
	DefaultGrace = 30 * time.Second

	// DefaultInactivity is how long a session may go without a request.
	DefaultInactivity = 10 * time.Minute

	// DefaultSweepInterval is how often idle sessions are checked.
	DefaultSweepInterval = time.Minute

	// MaxIDLength bounds client-supplied session ids.
	MaxIDLength = 128
)

const (
	reasonDisconnect = "disconnect"
	reasonInactive   = "inactive"
	reasonShutdown   = "shutdown"
)

// Cleaner removes the files owned by a session.
type Cleaner interface {
	CleanupSession(sessionID string) int
}

// Config configures a Manager.
type Config struct {
	Grace         time.Duration
	Inactivity    time.Duration
	SweepInterval time.Duration
}

// Session is a snapshot of a client session.
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	Connected    bool      `json:"connected"`
}

type state struct {
	Session
	conns int
	grace *time.Timer
}

// Manager owns the session table.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*state
	stopped  bool

	cleaner Cleaner
	cfg     Config
	now     func() time.Time

	timers    sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	done      chan struct{}
	started   bool
}

// NewManager creates a Manager that hands expired sessions to cleaner.
func NewManager(cleaner Cleaner, cfg Config) *Manager {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = DefaultInactivity
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	return &Manager{
		sessions: make(map[string]*state),
		cleaner:  cleaner,
		cfg:      cfg,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ValidID reports whether a client-supplied id may be used as is. Ids are
// logged and used as map keys, so only [A-Za-z0-9._-] up to MaxIDLength
// bytes are accepted.
func ValidID(id string) bool {
	if id == "" || len(id) > MaxIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// Resolve returns the session for a client-supplied id, creating it if it
// is unknown. An id that fails ValidID gets a new UUID. created reports
// whether a new session was registered.
func (m *Manager) Resolve(supplied string) (id string, created bool) {
	id = strings.TrimSpace(supplied)
	if !ValidID(id) {
		id = uuid.NewString()
	}
	now := m.now()

	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		s.LastActivity = now
	} else {
		m.sessions[id] = &state{Session: Session{
			ID:           id,
			CreatedAt:    now,
			LastActivity: now,
			Connected:    true,
		}}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		metrics.ActiveSessions.Set(float64(n))
		logging.Info("New session created: %s", id)
	}
	return id, !ok
}

// Touch refreshes the last-activity time of a session. It returns false for
// unknown sessions.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if ok {
		s.LastActivity = m.now()
	}
	return ok
}

// Get returns a snapshot of a session.
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return s.Session, true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Connect registers an open presence connection for a session, creating the
// session if needed and cancelling any pending grace timer.
func (m *Manager) Connect(id string) {
	m.Resolve(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.conns++
	s.Connected = true
	s.LastActivity = m.now()
	if s.grace != nil {
		m.cancelTimer(s)
		logging.Debug("Session %s reconnected, grace timer cancelled", id)
	}
}

// OnDisconnect records that a presence connection closed. When the last one
// closes, the session is expired after the grace period unless the client
// reconnects first.
func (m *Manager) OnDisconnect(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || m.stopped {
		return
	}
	if s.conns > 0 {
		s.conns--
	}
	if s.conns > 0 {
		return
	}
	s.Connected = false
	if s.grace != nil {
		m.cancelTimer(s)
	}

	logging.Info("Connection closed for session: %s", id)

	m.timers.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(m.cfg.Grace, func() {
		defer m.timers.Done()
		m.expire(id, reasonDisconnect, func(s *state) bool {
			return !s.Connected && s.grace == timer
		})
	})
	s.grace = timer
}

// cancelTimer stops the pending grace timer. Callers hold m.mu.
func (m *Manager) cancelTimer(s *state) {
	if s.grace.Stop() {
		m.timers.Done()
	}
	s.grace = nil
}

// Sweep expires every session idle for at least the inactivity timeout and
// returns how many were expired.
func (m *Manager) Sweep() int {
	now := m.now()
	idle := func(s *state) bool {
		return now.Sub(s.LastActivity) >= m.cfg.Inactivity
	}

	m.mu.Lock()
	var ids []string
	for id, s := range m.sessions {
		if idle(s) {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	n := 0
	for _, id := range ids {
		if m.expire(id, reasonInactive, idle) {
			logging.Info("Session inactive for %s+: %s", m.cfg.Inactivity, id)
			n++
		}
	}
	return n
}

// expire removes a session if cond still holds and cleans its files. It
// returns false if the session was already gone or cond no longer holds.
func (m *Manager) expire(id, reason string, cond func(*state) bool) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || (cond != nil && !cond(s)) {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, id)
	if s.grace != nil && s.grace.Stop() {
		m.timers.Done()
	}
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	metrics.SessionsExpired.WithLabelValues(reason).Inc()

	removed := 0
	if m.cleaner != nil {
		removed = m.cleaner.CleanupSession(id)
	}
	logging.Info("Session %s expired (%s), %d file(s) removed", id, reason, removed)
	return true
}

// Start begins the periodic inactivity sweep.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.mu.Lock()
		m.started = true
		m.mu.Unlock()

		go m.loop()
	})
}

// Stop ends the sweep loop, cancels pending grace timers and waits for any
// running timer callbacks. Remaining sessions are dropped without cleaning
// their files; the lifecycle manager removes those at shutdown.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)

		m.mu.Lock()
		m.stopped = true
		started := m.started
		dropped := len(m.sessions)
		for id, s := range m.sessions {
			if s.grace != nil {
				m.cancelTimer(s)
			}
			delete(m.sessions, id)
		}
		m.mu.Unlock()

		if started {
			<-m.done
		}
		m.timers.Wait()

		metrics.ActiveSessions.Set(0)
		metrics.SessionsExpired.WithLabelValues(reasonShutdown).Add(float64(dropped))
		logging.Info("Session manager stopped (%d session(s) dropped)", dropped)
	})
}

func (m *Manager) loop() {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.SweepInterval)
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
