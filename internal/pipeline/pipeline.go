package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"asciier/internal/apperr"
	"asciier/internal/filesystem"
	"asciier/internal/jobs"
	"asciier/internal/logging"
	"asciier/internal/media"
	"asciier/internal/metrics"
	"asciier/internal/render"
	"asciier/internal/transcoder"
	"asciier/internal/workers"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultFPS is the rate frames are sampled and played back at.
	DefaultFPS = 10

	// DefaultAudioBitrate is the MP3 bitrate in kbps for the extracted track.
	DefaultAudioBitrate = 128

	// FramePattern names extracted and rendered frames. The zero padding
	// keeps lexical order equal to playback order.
	FramePattern = "frame_%04d.png"

	framesDir      = "frames"
	asciiFramesDir = "ascii_frames"
	audioFile      = "audio.mp3"
)

// Transcoder is the media transcoder the pipeline drives.
type Transcoder interface {
	Probe(ctx context.Context, path string) (*transcoder.StreamInfo, error)
	ExtractAudio(ctx context.Context, input, output string, bitrateKbps int) error
	ExtractFrames(ctx context.Context, input, outputPattern string, fps int) error
	MuxFramesAndAudio(ctx context.Context, framePattern string, fps int, audioPath, output string) error
}

// FrameRenderer converts one frame into ASCII art.
type FrameRenderer interface {
	RenderFrame(ctx context.Context, inputPath, outputPath string, columns int) (*render.Result, error)
}

// StageObserver is told when a job enters a new stage.
type StageObserver interface {
	SetStage(id string, stage jobs.Stage)
}

// JobRecorder receives the outcome of submitted jobs.
type JobRecorder interface {
	StageObserver
	Complete(id, outputPath string) bool
	Fail(id, message string) bool
}

// FileTracker registers artifacts for later deletion.
type FileTracker interface {
	Track(path, sessionID string, ttl time.Duration) time.Time
}

// Config configures a Pipeline.
type Config struct {
	WorkRoot     string
	FPS          int
	AudioBitrate int
	// Workers bounds concurrent frame conversions per job. Zero means one
	// per CPU, overridable with FRAME_WORKERS.
	Workers int
	Retry   filesystem.RetryConfig
	// Throttle, when set, is consulted before every frame conversion so
	// that memory pressure can hold workers back.
	Throttle Throttle
}

// Throttle holds back work while the process is short of memory.
type Throttle interface {
	WaitIfPaused(ctx context.Context) error
}

// Request describes a video job.
type Request struct {
	JobID      string
	InputPath  string
	OutputPath string
	Columns    int
	SessionID  string
}

// Pipeline runs video jobs.
type Pipeline struct {
	trans    Transcoder
	renderer FrameRenderer
	cfg      Config

	running sync.WaitGroup
}

// New creates a Pipeline.
func New(trans Transcoder, renderer FrameRenderer, cfg Config) *Pipeline {
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	if cfg.AudioBitrate <= 0 {
		cfg.AudioBitrate = DefaultAudioBitrate
	}
	if cfg.Workers <= 0 {
		cfg.Workers = workers.ForCPU(0)
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialBackoff == 0 {
		cfg.Retry = filesystem.DefaultRetryConfig()
	}
	return &Pipeline{
		trans:    trans,
		renderer: renderer,
		cfg:      cfg,
	}
}

// WorkDir returns the working directory of a job.
func (p *Pipeline) WorkDir(jobID string) string {
	return filepath.Join(p.cfg.WorkRoot, jobID)
}

// Submit runs req in a new goroutine. The output is tracked under the
// request's session before the job is marked completed; failures are
// recorded with Fail.
func (p *Pipeline) Submit(ctx context.Context, req Request, recorder JobRecorder, files FileTracker) {
	p.running.Add(1)
	go func() {
		defer p.running.Done()

		log := logging.Job(req.JobID)
		if err := p.Process(ctx, req.InputPath, req.OutputPath, req.JobID, req.Columns, recorder); err != nil {
			log.Error("video processing failed: %v", err)
			metrics.ConversionsTotal.WithLabelValues("video", "error").Inc()
			recorder.Fail(req.JobID, err.Error())
			return
		}

		if files != nil {
			files.Track(req.OutputPath, req.SessionID, 0)
		}
		metrics.ConversionsTotal.WithLabelValues("video", "success").Inc()
		recorder.Complete(req.JobID, req.OutputPath)
		log.Info("video processing completed: %s", filepath.Base(req.OutputPath))
	}()
}

// Wait blocks until every submitted job has finished.
func (p *Pipeline) Wait() {
	p.running.Wait()
}

// Process converts inputPath into an ASCII-art video at outputPath,
// reporting stage changes to observer (which may be nil). On failure
// nothing is left at outputPath. The working directory is always removed.
func (p *Pipeline) Process(ctx context.Context, inputPath, outputPath, jobID string, columns int, observer StageObserver) (err error) {
	log := logging.Job(jobID)
	start := time.Now()
	metrics.PipelineJobsInProgress.Inc()
	defer func() {
		metrics.PipelineJobsInProgress.Dec()
		metrics.PipelineJobDuration.Observe(time.Since(start).Seconds())
	}()

	setStage := func(stage jobs.Stage) {
		log.Debug("stage %s", stage)
		if observer != nil {
			observer.SetStage(jobID, stage)
		}
	}

	workDir := p.WorkDir(jobID)
	frames := filepath.Join(workDir, framesDir)
	asciiFrames := filepath.Join(workDir, asciiFramesDir)
	for _, dir := range []string{frames, asciiFrames} {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return fmt.Errorf("create work dir: %w", mkErr)
		}
	}
	defer func() {
		if rmErr := filesystem.RemoveAllWithRetry(workDir, p.cfg.Retry); rmErr != nil {
			log.Warn("failed to remove work dir %s: %v", workDir, rmErr)
		}
	}()

	log.Info("processing %s at %d columns", filepath.Base(inputPath), columns)

	audioPath, err := p.extract(ctx, inputPath, frames, workDir, setStage, log)
	if err != nil {
		return err
	}

	setStage(jobs.StageConvertingFrames)
	stageStart := time.Now()
	count, err := p.convertFrames(ctx, frames, asciiFrames, columns)
	if err != nil {
		return err
	}
	metrics.PipelineStageDuration.WithLabelValues(string(jobs.StageConvertingFrames)).Observe(time.Since(stageStart).Seconds())
	log.Info("converted %d frames", count)

	setStage(jobs.StageMuxing)
	stageStart = time.Now()
	tmpOut := filepath.Join(workDir, "output.mp4")
	if err := p.trans.MuxFramesAndAudio(ctx, filepath.Join(asciiFrames, FramePattern), p.cfg.FPS, audioPath, tmpOut); err != nil {
		return fmt.Errorf("mux video: %w", err)
	}
	if err := moveFile(tmpOut, outputPath); err != nil {
		return fmt.Errorf("move output: %w", err)
	}
	metrics.PipelineStageDuration.WithLabelValues(string(jobs.StageMuxing)).Observe(time.Since(stageStart).Seconds())

	return nil
}

// extract pulls the audio track and the frames out of the source at the
// same time. It returns the audio path, or "" when the video will be silent.
func (p *Pipeline) extract(ctx context.Context, inputPath, frames, workDir string, setStage func(jobs.Stage), log logging.JobLogger) (string, error) {
	hasAudio := true
	info, probeErr := p.trans.Probe(ctx, inputPath)
	switch {
	case probeErr != nil:
		log.Warn("probe failed, attempting audio extraction anyway: %v", probeErr)
	case !info.HasAudio:
		hasAudio = false
		metrics.PipelineAudioMissing.WithLabelValues("no_stream").Inc()
		log.Info("no audio stream, output will be silent")
	}

	var audioPath string
	g, gctx := errgroup.WithContext(ctx)

	if hasAudio {
		setStage(jobs.StageExtractingAudio)
		g.Go(func() error {
			// Frames are still extracting once audio ends, whatever the outcome
			defer setStage(jobs.StageExtractingFrames)

			start := time.Now()
			out := filepath.Join(workDir, audioFile)
			if err := p.trans.ExtractAudio(gctx, inputPath, out, p.cfg.AudioBitrate); err != nil {
				if gctx.Err() == nil {
					metrics.PipelineAudioMissing.WithLabelValues("extract_failed").Inc()
					log.Warn("audio extraction failed, continuing without audio: %v", err)
				}
				return nil
			}
			metrics.PipelineStageDuration.WithLabelValues(string(jobs.StageExtractingAudio)).Observe(time.Since(start).Seconds())
			audioPath = out
			return nil
		})
	} else {
		setStage(jobs.StageExtractingFrames)
	}

	g.Go(func() error {
		start := time.Now()
		if err := p.trans.ExtractFrames(gctx, inputPath, filepath.Join(frames, FramePattern), p.cfg.FPS); err != nil {
			return fmt.Errorf("extract frames: %w", err)
		}
		metrics.PipelineStageDuration.WithLabelValues(string(jobs.StageExtractingFrames)).Observe(time.Since(start).Seconds())
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return audioPath, nil
}

// convertFrames renders every PNG in src into dst under the same name. The
// first failure cancels the remaining conversions.
func (p *Pipeline) convertFrames(ctx context.Context, src, dst string, columns int) (int, error) {
	entries, err := filesystem.ReadDirWithRetry(src, p.cfg.Retry)
	if err != nil {
		return 0, fmt.Errorf("list frames: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return 0, fmt.Errorf("%w: no frames extracted", apperr.ErrTranscodeFailure)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, name := range names {
		g.Go(func() error {
			if p.cfg.Throttle != nil {
				if err := p.cfg.Throttle.WaitIfPaused(gctx); err != nil {
					return err
				}
			}
			if _, err := p.renderer.RenderFrame(gctx, filepath.Join(src, name), filepath.Join(dst, name), columns); err != nil {
				return fmt.Errorf("convert %s: %w", name, err)
			}
			metrics.PipelineFramesConverted.Inc()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(names), nil
}

// moveFile renames src onto dst, copying across filesystems if needed.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	return media.WriteFileAtomic(dst, func(f *os.File) error {
		_, err := f.ReadFrom(in)
		return err
	})
}
