package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"facetrack/internal/frame"
	"facetrack/internal/render"
	"facetrack/internal/tracker"
	"facetrack/internal/video"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Options controls playback.
type Options struct {
	// Realtime paces frames at the source FPS even without a display.
	Realtime bool
	// Progress draws a progress bar on stderr for sources with a known length.
	Progress bool
	// MaxFrames stops after this many frames read; 0 means no limit.
	MaxFrames int
}

// Stats summarizes a run.
type Stats struct {
	Frames  int // frames read from the source
	Skipped int // invalid frames
	Rewinds int
	Quit    bool // stopped by the user
}

// Runner feeds frames from a source through a tracking session and into a
// sink. One Runner drives one session.
type Runner struct {
	*Bus

	session *tracker.Session
	source  video.Source
	sink    render.Sink
	opts    Options
	log     *logrus.Entry

	progress io.Writer
	sleep    func(context.Context, time.Duration) error
}

// NewRunner wires a session to a source. sink may be nil for headless runs.
func NewRunner(session *tracker.Session, source video.Source, sink render.Sink, opts Options, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		Bus:      NewBus(),
		session:  session,
		source:   source,
		sink:     sink,
		opts:     opts,
		log:      log.WithField("session", session.ID),
		progress: os.Stderr,
		sleep:    sleepCtx,
	}
}

// Run processes frames until the source ends, the user quits, or ctx is
// cancelled. Cancellation is not an error.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	delay := time.Duration(video.Delay(r.source.FPS())) * time.Millisecond
	bar := r.newBar()

	r.log.WithFields(logrus.Fields{
		"fps":    r.source.FPS(),
		"frames": r.source.FrameCount(),
		"delay":  delay,
	}).Info("playback started")

	finish := func(err error) (Stats, error) {
		if bar != nil {
			_ = bar.Finish()
		}
		r.Emit(EventFinished, stats)
		r.log.WithFields(logrus.Fields{
			"frames":  stats.Frames,
			"skipped": stats.Skipped,
			"rewinds": stats.Rewinds,
		}).Info("playback finished")
		return stats, err
	}

	for {
		if ctx.Err() != nil {
			return finish(nil)
		}
		if r.opts.MaxFrames > 0 && stats.Frames >= r.opts.MaxFrames {
			return finish(nil)
		}

		start := time.Now()
		img, err := r.source.Read()
		if errors.Is(err, io.EOF) {
			return finish(nil)
		}
		if err != nil {
			return finish(fmt.Errorf("read frame: %w", err))
		}
		stats.Frames++
		if bar != nil {
			_ = bar.Add(1)
		}

		ev, err := r.session.Process(img)
		if errors.Is(err, frame.ErrInvalidInput) {
			stats.Skipped++
			r.log.WithError(err).WithFields(logrus.Fields{"read": stats.Frames, "size": frameSize(img)}).Warn("skipping invalid frame")
			r.Emit(EventSkipped, err)
			continue
		}
		// Detector and matcher failures are logged by the session and
		// already reflected in ev.
		r.Emit(EventFrame, ev)

		wait := delay - time.Since(start)
		if wait < time.Millisecond {
			wait = time.Millisecond
		}

		if r.sink == nil {
			if r.opts.Realtime {
				if err := r.sleep(ctx, wait); err != nil {
					return finish(nil)
				}
			}
			continue
		}

		key, err := r.sink.Show(render.Annotate(img, ev), wait)
		if err != nil {
			return finish(fmt.Errorf("show frame: %w", err))
		}
		switch key {
		case render.KeyQuit:
			stats.Quit = true
			return finish(nil)
		case render.KeyRewind:
			if err := r.rewind(bar); err != nil {
				r.log.WithError(err).Warn("rewind failed")
				continue
			}
			stats.Rewinds++
		}
	}
}

func (r *Runner) rewind(bar *progressbar.ProgressBar) error {
	if err := r.source.Rewind(); err != nil {
		return err
	}
	if bar != nil {
		bar.Reset()
	}
	r.log.Info("rewound to first frame")
	r.Emit(EventRewind, nil)
	return nil
}

func (r *Runner) newBar() *progressbar.ProgressBar {
	n := r.source.FrameCount()
	if !r.opts.Progress || n <= 0 {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionSetDescription("Tracking"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func frameSize(img image.Image) string {
	if img == nil {
		return "nil"
	}
	return img.Bounds().Size().String()
}
