package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"asciier/internal/handlers"
	"asciier/internal/jobs"
	"asciier/internal/lifecycle"
	"asciier/internal/memory"
	"asciier/internal/metrics"
	"asciier/internal/pipeline"
	"asciier/internal/render"
	"asciier/internal/session"
	"asciier/internal/startup"
	"asciier/internal/transcoder"

	"github.com/gorilla/mux"
)

type testApp struct {
	router *mux.Router
	app    *app
	config *startup.Config
	jobs   *jobs.Tracker
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dir := t.TempDir()
	config := &startup.Config{
		UploadDir:      filepath.Join(dir, "uploads"),
		OutputDir:      filepath.Join(dir, "outputs"),
		WorkDir:        filepath.Join(dir, "work"),
		ImageColumns:   120,
		VideoColumns:   150,
		MaxImageUpload: 10 << 20,
		MaxVideoUpload: 100 << 20,
		FileTTL:        time.Hour,
	}
	for _, d := range []string{config.UploadDir, config.OutputDir, config.WorkDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	trans := transcoder.New("", "")
	renderer := render.New(nil, render.Options{})
	pipe := pipeline.New(trans, renderer, pipeline.Config{WorkRoot: config.WorkDir})
	tracker := jobs.NewTracker()
	files := lifecycle.NewManager(lifecycle.Config{})
	sessions := session.NewManager(files, session.Config{})
	_, cancel := context.WithCancel(context.Background())

	h := handlers.New(handlers.Dependencies{
		Renderer: renderer,
		Pipeline: pipe,
		Jobs:     tracker,
		Files:    files,
		Sessions: sessions,
	}, config)

	return &testApp{
		router: setupRouter(h, config.OutputDir),
		config: config,
		jobs:   tracker,
		app: &app{
			server:     &http.Server{},
			sessions:   sessions,
			files:      files,
			trans:      trans,
			pipeline:   pipe,
			collector:  metrics.NewCollector(metrics.StatsFunc(func() metrics.Stats { return metrics.Stats{} }), time.Hour),
			memory:     memory.NewMonitor(memory.DefaultConfig()),
			cancelJobs: cancel,
		},
	}
}

func TestSetupRouter(t *testing.T) {
	ta := newTestApp(t)
	t.Cleanup(func() { ta.app.sessions.Stop() })

	if err := os.WriteFile(filepath.Join(ta.config.OutputDir, "abc.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	ta.jobs.Create("job-1", jobs.KindVideo)

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{"GET", "/livez", http.StatusOK},
		{"HEAD", "/livez", http.StatusOK},
		{"GET", "/api/health", http.StatusOK},
		{"GET", "/version", http.StatusOK},
		{"GET", "/api/video/status/job-1", http.StatusOK},
		{"GET", "/api/video/download/not-a-uuid", http.StatusNotFound},
		{"GET", "/api/image/download/not-a-uuid", http.StatusNotFound},
		{"GET", "/api/files", http.StatusOK},
		{"GET", "/outputs/abc.png", http.StatusOK},
		{"GET", "/outputs/missing.png", http.StatusNotFound},
		{"GET", "/api/image/upload", http.StatusMethodNotAllowed},
		{"GET", "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ta.router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, http.NoBody))
			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRoutesAreListed(t *testing.T) {
	ta := newTestApp(t)
	t.Cleanup(func() { ta.app.sessions.Stop() })

	routes, err := startup.GetRoutes(ta.router)
	if err != nil {
		t.Fatalf("GetRoutes() error: %v", err)
	}

	want := map[string]bool{
		"/api/image/upload":        false,
		"/api/video/upload":        false,
		"/api/video/status/{id}":   false,
		"/api/video/download/{id}": false,
		"/api/session/ws":          false,
	}
	for _, r := range routes {
		if _, ok := want[r.Path]; ok {
			want[r.Path] = true
		}
	}
	for path, found := range want {
		if !found {
			t.Errorf("route %s not registered", path)
		}
	}
}

func TestShutdownRemovesTrackedFiles(t *testing.T) {
	ta := newTestApp(t)

	var paths []string
	for _, name := range []string{"a.png", "a.txt", "b.mp4"} {
		p := filepath.Join(ta.config.OutputDir, name)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		ta.app.files.Track(p, "s", 0)
		paths = append(paths, p)
	}
	ta.app.files.Start()
	ta.app.sessions.Start()
	ta.app.collector.Start()
	ta.app.memory.Start()

	done := make(chan struct{})
	go func() {
		shutdown(ta.app)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown did not finish")
	}

	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should be removed at shutdown", filepath.Base(p))
		}
	}
	if ta.app.files.Len() != 0 {
		t.Errorf("tracked = %d after shutdown, want 0", ta.app.files.Len())
	}
}

func TestMetricsServer(t *testing.T) {
	srv := newMetricsServer("0", promHandlerFor(t))
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", http.NoBody))

	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "asciier_") {
		t.Error("metrics output should include asciier_ series")
	}
}

func promHandlerFor(t *testing.T) http.Handler {
	t.Helper()
	metrics.SetAppInfo("test", "abc", "go")
	return (&handlers.Handlers{}).MetricsHandler()
}
