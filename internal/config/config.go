// Package config loads facetrack settings from defaults, a YAML file and
// FACETRACK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"facetrack/internal/template"
	"facetrack/internal/tracker"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultCascade is the face cascade looked up when none is configured.
const DefaultCascade = "haarcascade_frontalface_alt.xml"

// Display modes.
const (
	DisplayOpenCV = "opencv"
	DisplayFyne   = "fyne"
	DisplayNone   = "none"
)

// Detector backends.
const (
	DetectorHaar = "haar"
	DetectorPigo = "pigo"
)

// Correlator backends.
const (
	CorrelatorNCC    = "ncc"
	CorrelatorOpenCV = "opencv"
)

// Preprocessing backends.
const (
	PreprocessOpenCV = "opencv"
	PreprocessGo     = "go"
)

type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Detector DetectorConfig `yaml:"detector"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Display  DisplayConfig  `yaml:"display"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
}

type SourceConfig struct {
	Path      string  `yaml:"path"`       // video file, URL, device index or image directory
	FPS       float64 `yaml:"fps"`        // 0 uses the source's rate
	Realtime  bool    `yaml:"realtime"`   // pace headless runs at the source rate
	MaxFrames int     `yaml:"max_frames"` // 0 = no limit
}

type DetectorConfig struct {
	Backend      string  `yaml:"backend"` // haar or pigo
	Cascade      string  `yaml:"cascade"` // file name or path
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
	MinSize      int     `yaml:"min_size"`
	Selection    string  `yaml:"selection"` // first or largest
	PigoQuality  float64 `yaml:"pigo_quality"`
}

type TrackerConfig struct {
	TemplateSize int     `yaml:"template_size"`
	Threshold    float64 `yaml:"threshold"`
	MissLimit    int     `yaml:"miss_limit"`
	Correlator   string  `yaml:"correlator"` // ncc or opencv
	Preprocess   string  `yaml:"preprocess"` // opencv or go
}

type DisplayConfig struct {
	Mode  string `yaml:"mode"`
	Title string `yaml:"title"`
}

type OutputConfig struct {
	Record string `yaml:"record"` // annotated video path, empty to disable
	Codec  string `yaml:"codec"`
	Report string `yaml:"report"` // HTML report path, empty to disable
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns the stock configuration.
func Default() *Config {
	tc := tracker.DefaultConfig()
	return &Config{
		Source: SourceConfig{Path: "0"},
		Detector: DetectorConfig{
			Backend:      DetectorHaar,
			Cascade:      DefaultCascade,
			ScaleFactor:  tc.Detect.ScaleFactor,
			MinNeighbors: tc.Detect.MinNeighbors,
			MinSize:      tc.Detect.MinSize,
			Selection:    string(tc.Selection),
			PigoQuality:  5.0,
		},
		Tracker: TrackerConfig{
			TemplateSize: template.DefaultSize,
			Threshold:    template.DefaultThreshold,
			MissLimit:    tc.MissLimit,
			Correlator:   CorrelatorNCC,
			Preprocess:   PreprocessOpenCV,
		},
		Display: DisplayConfig{Mode: DisplayOpenCV, Title: "facetrack"},
		Output:  OutputConfig{Codec: "mp4v"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from FACETRACK_* variables. Unset or empty
// variables are ignored; unparsable numbers are errors.
func (c *Config) ApplyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("FACETRACK_SOURCE", &c.Source.Path)
	num("FACETRACK_FPS", &c.Source.FPS)
	str("FACETRACK_DETECTOR", &c.Detector.Backend)
	str("FACETRACK_CASCADE", &c.Detector.Cascade)
	str("FACETRACK_SELECTION", &c.Detector.Selection)
	num("FACETRACK_THRESHOLD", &c.Tracker.Threshold)
	integer("FACETRACK_MISS_LIMIT", &c.Tracker.MissLimit)
	str("FACETRACK_CORRELATOR", &c.Tracker.Correlator)
	str("FACETRACK_PREPROCESS", &c.Tracker.Preprocess)
	str("FACETRACK_DISPLAY", &c.Display.Mode)
	str("FACETRACK_RECORD", &c.Output.Record)
	str("FACETRACK_REPORT", &c.Output.Report)
	str("FACETRACK_LOG_LEVEL", &c.Log.Level)
	str("FACETRACK_LOG_FORMAT", &c.Log.Format)
	return errors.Join(errs...)
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Detector.Backend) {
	case DetectorHaar, DetectorPigo:
	default:
		return fmt.Errorf("unknown detector backend %q", c.Detector.Backend)
	}
	if err := c.TrackerConfig().Validate(); err != nil {
		return err
	}
	if c.Tracker.TemplateSize < 8 {
		return fmt.Errorf("template size must be at least 8, got %d", c.Tracker.TemplateSize)
	}
	if c.Tracker.Threshold <= -1 || c.Tracker.Threshold > 1 {
		return fmt.Errorf("threshold must be in (-1, 1], got %g", c.Tracker.Threshold)
	}
	switch c.Tracker.Correlator {
	case CorrelatorNCC, CorrelatorOpenCV:
	default:
		return fmt.Errorf("unknown correlator %q", c.Tracker.Correlator)
	}
	switch c.Tracker.Preprocess {
	case PreprocessOpenCV, PreprocessGo:
	default:
		return fmt.Errorf("unknown preprocessing backend %q", c.Tracker.Preprocess)
	}
	switch c.Display.Mode {
	case DisplayOpenCV, DisplayFyne, DisplayNone:
	default:
		return fmt.Errorf("unknown display mode %q", c.Display.Mode)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Source.FPS < 0 {
		return fmt.Errorf("fps must be >= 0, got %g", c.Source.FPS)
	}
	return nil
}

// TrackerConfig returns the session configuration.
func (c *Config) TrackerConfig() tracker.Config {
	return tracker.Config{
		MissLimit: c.Tracker.MissLimit,
		Detect: tracker.DetectParams{
			ScaleFactor:  c.Detector.ScaleFactor,
			MinNeighbors: c.Detector.MinNeighbors,
			MinSize:      c.Detector.MinSize,
		},
		Selection: tracker.Selection(c.Detector.Selection),
	}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
