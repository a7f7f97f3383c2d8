package cli

import (
	"fmt"
	"io"

	"facetrack/internal/config"
	"facetrack/internal/cvframe"
	"facetrack/internal/cvmatch"
	"facetrack/internal/detect"
	"facetrack/internal/frame"
	"facetrack/internal/template"

	"github.com/sirupsen/logrus"
)

// closers releases resources in reverse order of acquisition.
type closers []io.Closer

func (c closers) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		_ = c[i].Close()
	}
}

// openDetector resolves the configured cascade and loads it. Failure here
// is fatal for every command.
func openDetector(cfg *config.Config, log logrus.FieldLogger) (detect.Detector, error) {
	backend, err := detect.ParseBackend(cfg.Detector.Backend)
	if err != nil {
		return nil, err
	}
	path, err := config.FindCascade(cfg.Detector.Cascade, nil)
	if err != nil {
		return nil, err
	}
	det, err := detect.Open(backend, path)
	if err != nil {
		return nil, err
	}
	if p, ok := det.(*detect.Pigo); ok {
		p.SetQuality(float32(cfg.Detector.PigoQuality))
	}
	log.WithFields(logrus.Fields{"backend": backend, "cascade": path}).Info("face cascade loaded")
	return det, nil
}

// newTemplates builds the template manager with the configured correlator.
// The returned closer is nil for the pure-Go correlator.
func newTemplates(cfg *config.Config) (*template.Manager, io.Closer, error) {
	threshold := cfg.Tracker.Threshold
	tc := template.Config{
		Size:      cfg.Tracker.TemplateSize,
		Threshold: &threshold,
	}
	var closer io.Closer
	switch cfg.Tracker.Correlator {
	case config.CorrelatorNCC:
		tc.Correlator = template.NCC{}
	case config.CorrelatorOpenCV:
		c := cvmatch.New()
		tc.Correlator = c
		closer = c
	default:
		return nil, nil, fmt.Errorf("unknown correlator %q", cfg.Tracker.Correlator)
	}
	return template.NewManager(tc), closer, nil
}

// newPreprocessor returns the configured frame preprocessor. OpenCV is the
// production path; the pure-Go one serves builds and tests without it.
func newPreprocessor(cfg *config.Config) (frame.Preprocessor, error) {
	switch cfg.Tracker.Preprocess {
	case config.PreprocessOpenCV:
		return cvframe.New(), nil
	case config.PreprocessGo:
		return frame.Software, nil
	default:
		return nil, fmt.Errorf("unknown preprocessing backend %q", cfg.Tracker.Preprocess)
	}
}
