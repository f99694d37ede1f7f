package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"asciier/internal/apperr"
	"asciier/internal/jobs"
	"asciier/internal/media"
	"asciier/internal/mediatypes"
	"asciier/internal/pipeline"
	"asciier/internal/render"
	"asciier/internal/transcoder"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// stageReporter prints pipeline stages as they start.
type stageReporter struct {
	w     io.Writer
	start time.Time
}

func (s *stageReporter) SetStage(_ string, stage jobs.Stage) {
	fmt.Fprintf(s.w, "[%6.1fs] %s\n", time.Since(s.start).Seconds(), stage)
}

func newVideoCommand() *cobra.Command {
	var flags renderFlags
	var ffmpegPath, ffprobePath string
	var fps, workerCount int

	cmd := &cobra.Command{
		Use:   "video <input> <output.mp4>",
		Short: "Render a video as ASCII art, keeping its audio",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, output := args[0], args[1]
			if mediatypes.GetFileType(mediatypes.Ext(input)) != mediatypes.FileTypeVideo {
				return fmt.Errorf("%w: %s is not a video", apperr.ErrUnsupportedFormat, filepath.Base(input))
			}
			if flags.columns <= 0 {
				return fmt.Errorf("--columns must be positive, got %d", flags.columns)
			}

			palette, err := flags.resolvePalette()
			if err != nil {
				return err
			}

			trans := transcoder.New(ffmpegPath, ffprobePath)
			if err := trans.Available(); err != nil {
				return err
			}
			defer trans.Cleanup()

			workRoot, err := os.MkdirTemp("", "asciify-")
			if err != nil {
				return fmt.Errorf("create work directory: %w", err)
			}
			defer os.RemoveAll(workRoot)

			renderer := render.New(media.NewCodec(), render.Options{
				Palette:        palette,
				MinOutputWidth: flags.minWidth,
				SkipText:       true,
			})
			pipe := pipeline.New(trans, renderer, pipeline.Config{
				WorkRoot: workRoot,
				FPS:      fps,
				Workers:  workerCount,
			})

			reporter := &stageReporter{w: cmd.ErrOrStderr(), start: time.Now()}
			if err := pipe.Process(cmd.Context(), input, output, uuid.NewString(), flags.columns, reporter); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s in %s\n", output, time.Since(reporter.start).Round(time.Millisecond))
			return nil
		},
	}

	flags.register(cmd, 150)
	cmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "ffmpeg", "Path to the ffmpeg binary")
	cmd.Flags().StringVar(&ffprobePath, "ffprobe", "ffprobe", "Path to the ffprobe binary")
	cmd.Flags().IntVar(&fps, "fps", pipeline.DefaultFPS, "Frames per second to sample and play back")
	cmd.Flags().IntVar(&workerCount, "workers", 0, "Concurrent frame conversions (default one per CPU)")

	return cmd
}
