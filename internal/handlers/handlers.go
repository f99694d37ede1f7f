package handlers

import (
	"context"
	"net/http"
	"time"

	"asciier/internal/jobs"
	"asciier/internal/lifecycle"
	"asciier/internal/pipeline"
	"asciier/internal/render"
	"asciier/internal/session"
	"asciier/internal/startup"

	"github.com/gorilla/websocket"
)

// ImageRenderer renders a single image synchronously.
type ImageRenderer interface {
	RenderFrame(ctx context.Context, inputPath, outputPath string, columns int) (*render.Result, error)
}

// VideoSubmitter starts video jobs in the background.
type VideoSubmitter interface {
	Submit(ctx context.Context, req pipeline.Request, recorder pipeline.JobRecorder, files pipeline.FileTracker)
}

// Dependencies are the components the handlers drive.
type Dependencies struct {
	Renderer ImageRenderer
	Pipeline VideoSubmitter
	Jobs     *jobs.Tracker
	Files    *lifecycle.Manager
	Sessions *session.Manager

	// JobContext is handed to video jobs instead of the request context,
	// which ends as soon as the upload is acknowledged.
	JobContext context.Context

	// FFmpegAvailable is reported by the readiness probe.
	FFmpegAvailable bool
}

type Handlers struct {
	renderer ImageRenderer
	pipeline VideoSubmitter
	jobs     *jobs.Tracker
	files    *lifecycle.Manager
	sessions *session.Manager
	jobCtx   context.Context
	ffmpegOK bool

	uploadDir      string
	outputDir      string
	imageColumns   int
	videoColumns   int
	maxImageUpload int64
	maxVideoUpload int64
	fileTTL        time.Duration

	startTime time.Time
	upgrader  websocket.Upgrader
}

func New(deps Dependencies, config *startup.Config) *Handlers {
	jobCtx := deps.JobContext
	if jobCtx == nil {
		jobCtx = context.Background()
	}
	return &Handlers{
		renderer:       deps.Renderer,
		pipeline:       deps.Pipeline,
		jobs:           deps.Jobs,
		files:          deps.Files,
		sessions:       deps.Sessions,
		jobCtx:         jobCtx,
		ffmpegOK:       deps.FFmpegAvailable,
		uploadDir:      config.UploadDir,
		outputDir:      config.OutputDir,
		imageColumns:   config.ImageColumns,
		videoColumns:   config.VideoColumns,
		maxImageUpload: config.MaxImageUpload,
		maxVideoUpload: config.MaxVideoUpload,
		fileTTL:        config.FileTTL,
		startTime:      time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}
