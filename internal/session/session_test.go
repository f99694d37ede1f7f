package session

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingCleaner counts CleanupSession calls per session.
type recordingCleaner struct {
	mu    sync.Mutex
	calls map[string]int
}

func newRecordingCleaner() *recordingCleaner {
	return &recordingCleaner{calls: make(map[string]int)}
}

func (c *recordingCleaner) CleanupSession(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[id]++
	return 1
}

func (c *recordingCleaner) count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestResolve(t *testing.T) {
	m := NewManager(nil, Config{})
	defer m.Stop()

	tests := []struct {
		name        string
		supplied    string
		wantCreated bool
		wantSameID  bool
	}{
		{"new client id", "abc", true, true},
		{"known client id", "abc", false, true},
		{"trimmed id", "  abc ", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, created := m.Resolve(tt.supplied)
			if created != tt.wantCreated {
				t.Errorf("created = %v, want %v", created, tt.wantCreated)
			}
			if tt.wantSameID && id != tt.supplied {
				t.Errorf("id = %q, want %q", id, tt.supplied)
			}
			if id != "abc" {
				t.Errorf("id = %q, want abc", id)
			}
		})
	}

	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

func TestResolve_GeneratesID(t *testing.T) {
	m := NewManager(nil, Config{})
	defer m.Stop()

	a, createdA := m.Resolve("")
	b, createdB := m.Resolve("")
	if a == "" || a == b {
		t.Errorf("generated ids %q and %q should be distinct and non-empty", a, b)
	}
	if !createdA || !createdB {
		t.Error("generated sessions should be reported as created")
	}

	long := make([]byte, MaxIDLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if id, _ := m.Resolve(string(long)); id == string(long) {
		t.Error("oversized ids should be replaced")
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"abc", true},
		{"3f1c9a52-7b7e-4a35-9d61-1b0f6d2f0e11", true},
		{"client_1.tab-2", true},
		{"", false},
		{"a\nb", false},
		{"a\r\nINFO forged line", false},
		{"a%0Ab", false},
		{"a b", false},
		{"\x1b[31mred", false},
		{"ünïcode", false},
		{strings.Repeat("x", MaxIDLength), true},
		{strings.Repeat("x", MaxIDLength+1), false},
	}

	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestResolve_ReplacesUnsafeID(t *testing.T) {
	m := NewManager(nil, Config{})
	defer m.Stop()

	for _, supplied := range []string{"evil\nINFO New session created: admin", "evil%0Aline"} {
		id, created := m.Resolve(supplied)
		if id == supplied {
			t.Errorf("Resolve(%q) kept an unsafe id", supplied)
		}
		if !created || !ValidID(id) {
			t.Errorf("Resolve(%q) = %q, %v; want a fresh valid id", supplied, id, created)
		}
	}
}

func TestTouchAndGet(t *testing.T) {
	m := NewManager(nil, Config{})
	defer m.Stop()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	m.now = func() time.Time { return now }

	m.Resolve("s")
	now = base.Add(time.Minute)
	if !m.Touch("s") {
		t.Fatal("Touch() = false for a known session")
	}

	s, ok := m.Get("s")
	if !ok || !s.LastActivity.Equal(now) || !s.CreatedAt.Equal(base) {
		t.Errorf("session = %+v", s)
	}
	if m.Touch("missing") {
		t.Error("Touch() = true for an unknown session")
	}
}

func TestSweep_Inactivity(t *testing.T) {
	cleaner := newRecordingCleaner()
	m := NewManager(cleaner, Config{Inactivity: 10 * time.Minute})
	defer m.Stop()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	m.now = func() time.Time { return now }

	m.Resolve("idle")
	m.Resolve("busy")

	now = base.Add(9 * time.Minute)
	m.Touch("busy")
	if n := m.Sweep(); n != 0 {
		t.Errorf("Sweep() before timeout = %d", n)
	}

	now = base.Add(10 * time.Minute)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := m.Get("idle"); ok {
		t.Error("idle session should be gone")
	}
	if _, ok := m.Get("busy"); !ok {
		t.Error("busy session should remain")
	}
	if cleaner.count("idle") != 1 {
		t.Errorf("cleaner called %d times for idle", cleaner.count("idle"))
	}

	if n := m.Sweep(); n != 0 {
		t.Errorf("repeat Sweep() = %d, want 0", n)
	}
	if cleaner.count("idle") != 1 {
		t.Error("session files cleaned more than once")
	}
}

func TestDisconnect_GraceExpiry(t *testing.T) {
	cleaner := newRecordingCleaner()
	m := NewManager(cleaner, Config{Grace: 20 * time.Millisecond})
	defer m.Stop()

	m.Connect("s")
	m.OnDisconnect("s")

	if s, _ := m.Get("s"); s.Connected {
		t.Error("session should be marked disconnected")
	}

	waitFor(t, func() bool { return cleaner.count("s") == 1 })
	if _, ok := m.Get("s"); ok {
		t.Error("session should be removed after the grace period")
	}
}

func TestDisconnect_ReconnectCancelsGrace(t *testing.T) {
	cleaner := newRecordingCleaner()
	m := NewManager(cleaner, Config{Grace: 50 * time.Millisecond})
	defer m.Stop()

	m.Connect("s")
	m.OnDisconnect("s")
	m.Connect("s")

	time.Sleep(150 * time.Millisecond)

	if cleaner.count("s") != 0 {
		t.Error("reconnected session should not be cleaned")
	}
	if s, ok := m.Get("s"); !ok || !s.Connected {
		t.Errorf("session = %+v, %v; want connected", s, ok)
	}
}

func TestDisconnect_MultipleConnections(t *testing.T) {
	cleaner := newRecordingCleaner()
	m := NewManager(cleaner, Config{Grace: 10 * time.Millisecond})
	defer m.Stop()

	m.Connect("s")
	m.Connect("s")
	m.OnDisconnect("s")

	time.Sleep(50 * time.Millisecond)
	if s, ok := m.Get("s"); !ok || !s.Connected {
		t.Error("session with an open connection should stay connected")
	}

	m.OnDisconnect("s")
	waitFor(t, func() bool { return cleaner.count("s") == 1 })
}

func TestGraceAndSweepCleanOnce(t *testing.T) {
	cleaner := newRecordingCleaner()
	m := NewManager(cleaner, Config{Grace: 5 * time.Millisecond, Inactivity: time.Nanosecond})
	defer m.Stop()

	m.Connect("s")
	m.OnDisconnect("s")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Sweep()
		}()
	}
	wg.Wait()
	time.Sleep(30 * time.Millisecond)

	if got := cleaner.count("s"); got != 1 {
		t.Errorf("CleanupSession called %d times, want 1", got)
	}
}

func TestStop_CancelsTimers(t *testing.T) {
	cleaner := newRecordingCleaner()
	m := NewManager(cleaner, Config{Grace: 20 * time.Millisecond, SweepInterval: time.Millisecond})
	m.Start()

	m.Connect("s")
	m.OnDisconnect("s")
	m.Stop()

	time.Sleep(60 * time.Millisecond)
	if cleaner.count("s") != 0 {
		t.Error("grace timer fired after Stop")
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d after Stop", m.Count())
	}

	m.OnDisconnect("s")
	m.Stop()
}

func TestOnDisconnect_Unknown(t *testing.T) {
	m := NewManager(nil, Config{})
	defer m.Stop()
	m.OnDisconnect("nobody")
}
