package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"asciier/internal/filesystem"
	"asciier/internal/glyph"
	"asciier/internal/handlers"
	"asciier/internal/jobs"
	"asciier/internal/lifecycle"
	"asciier/internal/logging"
	"asciier/internal/media"
	"asciier/internal/memory"
	"asciier/internal/metrics"
	"asciier/internal/middleware"
	"asciier/internal/pipeline"
	"asciier/internal/render"
	"asciier/internal/session"
	"asciier/internal/startup"
	"asciier/internal/transcoder"

	"github.com/gorilla/mux"
)

// statsInterval is how often registry gauges are refreshed.
const statsInterval = 15 * time.Second

// app holds every long-lived component so shutdown can stop them in order.
type app struct {
	server        *http.Server
	metricsServer *http.Server
	sessions      *session.Manager
	files         *lifecycle.Manager
	trans         *transcoder.Transcoder
	pipeline      *pipeline.Pipeline
	collector     *metrics.Collector
	memory        *memory.Monitor
	cancelJobs    context.CancelFunc
}

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	memory.ConfigureFromEnv()

	buildInfo := startup.GetBuildInfo()
	metrics.InitializeMetrics()
	metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, runtime.Version())

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(config.Volumes()))
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	// libvips is optional; the pure Go codec covers every format without it
	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, using pure Go decoding: %v", err)
	}

	palette := glyph.Default()
	if config.Palette != "" {
		palette, err = glyph.New(config.Palette)
		if err != nil {
			startup.LogFatal("Invalid ASCII_PALETTE: %v", err)
		}
	}
	startup.LogRendererInit(palette.Len(), config.MinOutputWidth, media.IsVipsAvailable())
	renderer := render.New(media.NewCodec(), render.Options{
		Palette:        palette,
		MinOutputWidth: config.MinOutputWidth,
	})

	ffmpegOK := startup.LogTranscoderInit(config.FFmpegPath)
	trans := transcoder.New(config.FFmpegPath, config.FFprobePath)

	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	pipe := pipeline.New(trans, renderer.WithoutText(), pipeline.Config{
		WorkRoot: config.WorkDir,
		Workers:  config.FrameWorkers,
		Throttle: memMonitor,
	})

	tracker := jobs.NewTracker()

	startup.LogLifecycleInit(config)
	files := lifecycle.NewManager(lifecycle.Config{
		DefaultTTL:    config.FileTTL,
		SweepInterval: config.SweepInterval,
	})
	files.Start()

	sessions := session.NewManager(files, session.Config{
		Grace:         config.SessionGrace,
		Inactivity:    config.SessionTimeout,
		SweepInterval: config.SweepInterval,
	})
	sessions.Start()

	collector := metrics.NewCollector(metrics.StatsFunc(func() metrics.Stats {
		counts := tracker.Counts()
		mem := memMonitor.Stats()
		return metrics.Stats{
			JobsProcessing: counts.Processing,
			JobsCompleted:  counts.Completed,
			JobsFailed:     counts.Failed,
			TrackedFiles:   files.Len(),
			ActiveSessions: sessions.Count(),
			HeapBytes:      mem.HeapBytes,
			MemoryUsage:    mem.Usage,
			MemoryPaused:   mem.Paused,
		}
	}), statsInterval)
	collector.Start()

	jobCtx, cancelJobs := context.WithCancel(context.Background())

	h := handlers.New(handlers.Dependencies{
		Renderer:        renderer,
		Pipeline:        pipe,
		Jobs:            tracker,
		Files:           files,
		Sessions:        sessions,
		JobContext:      jobCtx,
		FFmpegAvailable: ffmpegOK,
	}, config)

	router := setupRouter(h, config.OutputDir)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	// Session runs outermost so the access log sees the resolved id
	handler := middleware.Session(sessions, middleware.DefaultSessionConfig())(
		middleware.Logger(loggingConfig)(
			middleware.Compression(middleware.DefaultCompressionConfig())(router),
		),
	)

	a := &app{
		server: &http.Server{
			Addr:              ":" + config.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// Uploads of up to MAX_VIDEO_UPLOAD need time on slow links
			ReadTimeout:  5 * time.Minute,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		sessions:   sessions,
		files:      files,
		trans:      trans,
		pipeline:   pipe,
		collector:  collector,
		memory:     memMonitor,
		cancelJobs: cancelJobs,
	}

	if config.MetricsEnabled {
		a.metricsServer = newMetricsServer(config.MetricsPort, h.MetricsHandler())
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		handleShutdown(a)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-shutdownDone
}

func setupRouter(h *handlers.Handlers, outputDir string) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Probes
	r.HandleFunc("/api/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Images
	api.HandleFunc("/image/upload", h.UploadImage).Methods("POST")
	api.HandleFunc("/image/download/{id}", h.DownloadImage).Methods("GET")

	// Videos
	api.HandleFunc("/video/upload", h.UploadVideo).Methods("POST")
	api.HandleFunc("/video/status/{id}", h.VideoStatus).Methods("GET")
	api.HandleFunc("/video/download/{id}", h.DownloadVideo).Methods("GET")

	// Files and sessions
	api.HandleFunc("/files", h.ListFiles).Methods("GET")
	api.HandleFunc("/session", h.GetSession).Methods("GET")
	api.HandleFunc("/session/ws", h.SessionSocket).Methods("GET")

	// Rendered artifacts
	r.PathPrefix("/outputs/").Handler(http.StripPrefix("/outputs/", http.FileServer(http.Dir(outputDir))))

	return r
}

func newMetricsServer(port string, metricsHandler http.Handler) *http.Server {
	m := http.NewServeMux()
	m.Handle("/metrics", metricsHandler)
	m.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              ":" + port,
		Handler:           m,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func handleShutdown(a *app) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	shutdown(a)
	startup.LogShutdownComplete()
}

// shutdown stops intake first, then background loops, then running jobs,
// and finally removes every tracked file.
func shutdown(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := a.server.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping session manager")
	a.sessions.Stop()
	startup.LogShutdownStepComplete("Session manager stopped")

	startup.LogShutdownStep("Stopping file sweeper")
	a.files.Stop()
	startup.LogShutdownStepComplete("File sweeper stopped")

	startup.LogShutdownStep("Cancelling video jobs")
	a.cancelJobs()
	a.trans.Cleanup()
	a.pipeline.Wait()
	startup.LogShutdownStepComplete("Video jobs stopped")

	startup.LogShutdownStep("Removing tracked files")
	removed := a.files.CleanupAll()
	startup.LogShutdownStepComplete("Removed tracked files")
	logging.Info("  %d files removed", removed)

	a.collector.Stop()
	a.memory.Stop()

	if a.metricsServer != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	media.ShutdownVips()
}
