package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"facetrack/internal/app"
	"facetrack/internal/config"
	"facetrack/internal/render"
	"facetrack/internal/report"
	"facetrack/internal/tracker"
	"facetrack/internal/video"
	"facetrack/ui/viewer"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [source]",
	Short: "Track a face through a video, camera or image directory",
	Long: `Track a face through a video file, a camera (by index) or a directory
of still images. Without an argument the configured source is used.

Keys in the display window: ESC quits, r rewinds to the first frame.

Examples:
  # Webcam with the default OpenCV window
  facetrack run 0

  # Headless run over a clip, writing an annotated copy and a report
  facetrack run clip.mp4 --display none --record out.mp4 --report report.html

  # Pure-Go detector and viewer
  facetrack run frames/ --detector pigo --cascade facefinder --display fyne`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("detector", "", "Detector backend (haar or pigo)")
	f.String("cascade", "", "Cascade file name or path")
	f.String("selection", "", "Face selection when several are found (first or largest)")
	f.Float64("threshold", 0, "Minimum correlation accepted as a match")
	f.Int("miss-limit", 0, "Consecutive misses before returning to detection")
	f.Int("template-size", 0, "Template side length in pixels")
	f.String("correlator", "", "Template correlator (ncc or opencv)")
	f.String("preprocess", "", "Frame preprocessing (opencv or go)")
	f.String("display", "", "Display (opencv, fyne or none)")
	f.Float64("fps", 0, "Override the source frame rate")
	f.Bool("realtime", false, "Pace headless runs at the source frame rate")
	f.Int("max-frames", 0, "Stop after this many frames (0 = no limit)")
	f.String("record", "", "Write annotated frames to this video file")
	f.String("report", "", "Write an HTML score report to this file")
	f.Bool("progress", true, "Show a progress bar for file sources")
}

func applyRunFlags(cmd *cobra.Command, args []string, cfg *config.Config) {
	if len(args) == 1 {
		cfg.Source.Path = args[0]
	}
	overrideString(cmd, "detector", &cfg.Detector.Backend)
	overrideString(cmd, "cascade", &cfg.Detector.Cascade)
	overrideString(cmd, "selection", &cfg.Detector.Selection)
	overrideFloat64(cmd, "threshold", &cfg.Tracker.Threshold)
	overrideInt(cmd, "miss-limit", &cfg.Tracker.MissLimit)
	overrideInt(cmd, "template-size", &cfg.Tracker.TemplateSize)
	overrideString(cmd, "correlator", &cfg.Tracker.Correlator)
	overrideString(cmd, "preprocess", &cfg.Tracker.Preprocess)
	overrideString(cmd, "display", &cfg.Display.Mode)
	overrideFloat64(cmd, "fps", &cfg.Source.FPS)
	overrideBool(cmd, "realtime", &cfg.Source.Realtime)
	overrideInt(cmd, "max-frames", &cfg.Source.MaxFrames)
	overrideString(cmd, "record", &cfg.Output.Record)
	overrideString(cmd, "report", &cfg.Output.Report)
}

func runTrack(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, args, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	var cleanup closers
	defer func() { cleanup.Close() }()

	det, err := openDetector(cfg, log)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, det)

	templates, closer, err := newTemplates(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		cleanup = append(cleanup, closer)
	}

	pre, err := newPreprocessor(cfg)
	if err != nil {
		return err
	}

	session, err := tracker.NewSession(cfg.TrackerConfig(), det, templates, log)
	if err != nil {
		return err
	}
	session.SetPreprocessor(pre)

	src, err := video.Open(cfg.Source.Path, cfg.Source.FPS)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, src)

	var sinks render.Multi
	var view *viewer.Viewer
	switch cfg.Display.Mode {
	case config.DisplayOpenCV:
		sinks = append(sinks, render.NewWindow(cfg.Display.Title))
	case config.DisplayFyne:
		view = viewer.New(cfg.Display.Title)
		sinks = append(sinks, view)
	}
	if cfg.Output.Record != "" {
		sinks = append(sinks, render.NewRecorder(cfg.Output.Record, cfg.Output.Codec, src.FPS()))
	}
	var sink render.Sink
	if len(sinks) > 0 {
		sink = sinks
		cleanup = append(cleanup, sinks)
	}

	runner := app.NewRunner(session, src, sink, app.Options{
		Realtime:  cfg.Source.Realtime,
		Progress:  mustGetBool(cmd, "progress") && cfg.Display.Mode == config.DisplayNone,
		MaxFrames: cfg.Source.MaxFrames,
	}, log)
	collector := report.NewCollector()
	collector.Attach(runner)
	if view != nil {
		runner.On(app.EventFrame, func(data interface{}) {
			ev := data.(tracker.Event)
			view.SetStatus(fmt.Sprintf("frame %d  %s  %s  score %.2f  misses %d",
				ev.Frame, ev.State, ev.Kind, ev.Score, ev.Misses))
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stats app.Stats
	loop := func() error {
		var err error
		stats, err = runner.Run(ctx)
		return err
	}
	if view != nil {
		err = view.Run(loop)
	} else {
		err = loop()
	}
	if err != nil {
		return err
	}

	return finishRun(cfg, collector, stats, log)
}

func finishRun(cfg *config.Config, collector *report.Collector, stats app.Stats, log *logrus.Logger) error {
	sum := collector.Summary()
	log.WithFields(logrus.Fields{
		"frames":       sum.Frames,
		"skipped":      stats.Skipped,
		"acquisitions": sum.Acquisitions,
		"losses":       sum.Losses,
		"tracked":      fmt.Sprintf("%.1f%%", 100*sum.TrackedFraction),
		"mean_score":   fmt.Sprintf("%.3f", sum.MeanMatchScore),
	}).Info("tracking summary")

	if cfg.Output.Report != "" {
		if err := collector.WriteHTMLFile(cfg.Output.Report, cfg.Source.Path, cfg.Tracker.Threshold); err != nil {
			return err
		}
		log.WithField("path", cfg.Output.Report).Info("report written")
	}
	return nil
}
