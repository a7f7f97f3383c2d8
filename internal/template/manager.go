package template

import (
	"fmt"
	"image"

	"facetrack/pkg/geometry"
)

// DefaultThreshold is the minimum correlation accepted as a match.
const DefaultThreshold = 0.65

// Result is the outcome of one match attempt. Matched is false for a NoMatch;
// when Attempted is true Box and Score still describe the best location.
type Result struct {
	Box       geometry.Box
	Score     float64
	Matched   bool
	Attempted bool
}

// Config controls template construction and matching. A nil Threshold
// selects DefaultThreshold; any other value, zero included, is used as given.
type Config struct {
	Size       int
	Threshold  *float64
	Correlator Correlator
}

// Manager owns at most one template. Build is its only mutator besides
// Discard; Match never changes it.
type Manager struct {
	size       int
	threshold  float64
	correlator Correlator
	current    *Template
}

// NewManager creates a Manager. Unset config fields fall back to the
// defaults (64×64, 0.65, pure-Go NCC).
func NewManager(cfg Config) *Manager {
	m := &Manager{
		size:       cfg.Size,
		threshold:  DefaultThreshold,
		correlator: cfg.Correlator,
	}
	if m.size <= 0 {
		m.size = DefaultSize
	}
	if cfg.Threshold != nil {
		m.threshold = *cfg.Threshold
	}
	if m.correlator == nil {
		m.correlator = NCC{}
	}
	return m
}

// Build replaces the owned template with one extracted from box. On error
// the previous template is left untouched.
func (m *Manager) Build(gray *image.Gray, box geometry.Box) error {
	t, err := New(gray, box, m.size)
	if err != nil {
		return err
	}
	m.current = t
	return nil
}

// Have reports whether a template is currently owned.
func (m *Manager) Have() bool {
	return m.current != nil
}

// Template returns the owned template, or nil.
func (m *Manager) Template() *Template {
	return m.current
}

// Discard drops the owned template.
func (m *Manager) Discard() {
	m.current = nil
}

// Size returns the template side length.
func (m *Manager) Size() int { return m.size }

// Threshold returns the match acceptance threshold.
func (m *Manager) Threshold() float64 { return m.threshold }

// Match searches gray for the owned template. Without a valid template, or
// when the frame is smaller than the template, it returns an unattempted
// NoMatch. A correlator failure is reported as an error.
func (m *Manager) Match(gray *image.Gray) (Result, error) {
	t := m.current
	if !t.valid(m.size) {
		return Result{}, nil
	}
	b := gray.Bounds()
	if b.Dx() < t.Width() || b.Dy() < t.Height() {
		return Result{}, nil
	}

	peak, err := m.correlator.Correlate(gray, t)
	if err != nil {
		return Result{}, fmt.Errorf("correlate: %w", err)
	}

	res := Result{
		Box:       geometry.NewBox(b.Min.X+peak.X, b.Min.Y+peak.Y, t.Width(), t.Height()),
		Score:     peak.Score,
		Attempted: true,
	}
	res.Matched = peak.Score >= m.threshold
	return res, nil
}
