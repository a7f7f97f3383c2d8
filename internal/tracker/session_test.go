package tracker

import (
	"errors"
	"image"
	"math/rand"
	"testing"

	"facetrack/internal/frame"
	"facetrack/internal/template"
	"facetrack/pkg/geometry"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xdraw "golang.org/x/image/draw"
)

// scriptedDetector returns its boxes on every call and counts invocations.
type scriptedDetector struct {
	boxes []geometry.Box
	err   error
	calls int
}

func (d *scriptedDetector) Detect(*image.Gray, DetectParams) ([]geometry.Box, error) {
	d.calls++
	return d.boxes, d.err
}

// scriptedTemplates replays match results in order and records builds.
type scriptedTemplates struct {
	buildErr error
	results  []template.Result
	matchErr error
	built    []geometry.Box
	have     bool
	matches  int
	discards int
}

func (s *scriptedTemplates) Build(_ *image.Gray, box geometry.Box) error {
	if s.buildErr != nil {
		return s.buildErr
	}
	s.built = append(s.built, box)
	s.have = true
	return nil
}

func (s *scriptedTemplates) Match(*image.Gray) (template.Result, error) {
	s.matches++
	if s.matchErr != nil {
		return template.Result{}, s.matchErr
	}
	if len(s.results) == 0 {
		return template.Result{Attempted: true}, nil
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r, nil
}

func (s *scriptedTemplates) Have() bool { return s.have }

func (s *scriptedTemplates) Discard() {
	s.have = false
	s.discards++
}

func hit(box geometry.Box, score float64) template.Result {
	return template.Result{Box: box, Score: score, Matched: true, Attempted: true}
}

func miss(score float64) template.Result {
	return template.Result{Score: score, Attempted: true}
}

func newTestSession(t *testing.T, det Detector, tmpl Templates) *Session {
	t.Helper()
	s, err := NewSession(DefaultConfig(), det, tmpl, nil)
	require.NoError(t, err)
	return s
}

func blank() *image.Gray {
	return image.NewGray(image.Rect(0, 0, 320, 240))
}

func TestNewSession(t *testing.T) {
	s := newTestSession(t, &scriptedDetector{}, &scriptedTemplates{})
	assert.Equal(t, StateDetect, s.State())
	assert.Zero(t, s.Misses())
	assert.False(t, s.HaveTemplate())
	assert.NotEmpty(t, s.ID)

	_, err := NewSession(Config{MissLimit: 0}, &scriptedDetector{}, &scriptedTemplates{}, nil)
	assert.Error(t, err)
	_, err = NewSession(DefaultConfig(), nil, &scriptedTemplates{}, nil)
	assert.Error(t, err)
}

func TestDetectNoFace(t *testing.T) {
	det := &scriptedDetector{}
	tmpl := &scriptedTemplates{}
	s := newTestSession(t, det, tmpl)

	for i := 0; i < 3; i++ {
		ev, err := s.Step(blank())
		require.NoError(t, err)
		assert.Equal(t, EventNoFace, ev.Kind)
		assert.Equal(t, StateDetect, ev.State)
		assert.False(t, ev.HasBox)
	}
	assert.Equal(t, 3, det.calls)
	assert.Zero(t, tmpl.matches)
	assert.Empty(t, tmpl.built)
}

func TestDetectEmptyRegion(t *testing.T) {
	box := geometry.NewBox(500, 500, 80, 80)
	tmpl := &scriptedTemplates{buildErr: template.ErrEmptyRegion}
	s := newTestSession(t, &scriptedDetector{boxes: []geometry.Box{box}}, tmpl)

	ev, err := s.Step(blank())
	require.NoError(t, err)
	assert.Equal(t, EventEmptyRegion, ev.Kind)
	assert.Equal(t, StateDetect, s.State())
	assert.False(t, s.HaveTemplate())
	assert.False(t, ev.HasBox)
}

func TestDetectBuildFailure(t *testing.T) {
	box := geometry.NewBox(10, 10, 80, 80)
	boom := errors.New("invalid template size 0")
	tmpl := &scriptedTemplates{buildErr: boom}
	s := newTestSession(t, &scriptedDetector{boxes: []geometry.Box{box}}, tmpl)

	ev, err := s.Step(blank())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, EventNoFace, ev.Kind, "only an empty region is reported as such")
	assert.Equal(t, StateDetect, s.State())
	assert.False(t, ev.HasBox)
}

func TestDetectorError(t *testing.T) {
	boom := errors.New("cascade not loaded")
	s := newTestSession(t, &scriptedDetector{err: boom}, &scriptedTemplates{})

	ev, err := s.Step(blank())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, EventNoFace, ev.Kind)
	assert.Equal(t, StateDetect, s.State())
}

func TestAcquireSelection(t *testing.T) {
	faces := []geometry.Box{
		geometry.NewBox(10, 10, 60, 60),
		geometry.NewBox(100, 50, 90, 90),
		geometry.NewBox(200, 50, 90, 90),
	}

	t.Run("first", func(t *testing.T) {
		tmpl := &scriptedTemplates{}
		s := newTestSession(t, &scriptedDetector{boxes: faces}, tmpl)
		ev, err := s.Step(blank())
		require.NoError(t, err)
		assert.Equal(t, EventAcquired, ev.Kind)
		assert.Equal(t, faces[0], ev.Box)
		assert.Equal(t, []geometry.Box{faces[0]}, tmpl.built)
	})

	t.Run("largest", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Selection = SelectLargest
		tmpl := &scriptedTemplates{}
		s, err := NewSession(cfg, &scriptedDetector{boxes: faces}, tmpl, nil)
		require.NoError(t, err)
		ev, err := s.Step(blank())
		require.NoError(t, err)
		assert.Equal(t, faces[1], ev.Box)
		assert.Len(t, ev.Faces, 3)
	})
}

func TestMissLimitBoundary(t *testing.T) {
	face := geometry.NewBox(40, 40, 80, 80)
	det := &scriptedDetector{boxes: []geometry.Box{face}}
	tmpl := &scriptedTemplates{results: []template.Result{miss(0.1), miss(0.2), miss(0.3), miss(0.4), miss(0.5)}}
	s := newTestSession(t, det, tmpl)

	_, err := s.Step(blank())
	require.NoError(t, err)
	require.Equal(t, StateTrack, s.State())

	for i := 1; i <= 4; i++ {
		ev, err := s.Step(blank())
		require.NoError(t, err)
		assert.Equal(t, EventMissed, ev.Kind)
		assert.Equal(t, StateTrack, ev.State, "miss %d", i)
		assert.Equal(t, i, ev.Misses)
		assert.True(t, s.HaveTemplate())
	}

	ev, err := s.Step(blank())
	require.NoError(t, err)
	assert.Equal(t, EventLost, ev.Kind)
	assert.Equal(t, StateDetect, ev.State)
	assert.Equal(t, 5, ev.Misses)
	assert.False(t, s.HaveTemplate())
	assert.Equal(t, 1, tmpl.discards)
	assert.Equal(t, 1, det.calls, "detector is not consulted while tracking")

	// The next frame detects again and resets the counter.
	ev, err = s.Step(blank())
	require.NoError(t, err)
	assert.Equal(t, EventAcquired, ev.Kind)
	assert.Zero(t, s.Misses())
	assert.Equal(t, 2, det.calls)
}

func TestMatchResetsMisses(t *testing.T) {
	face := geometry.NewBox(40, 40, 64, 64)
	moved := geometry.NewBox(44, 38, 64, 64)
	tmpl := &scriptedTemplates{results: []template.Result{
		miss(0.2), miss(0.3), miss(0.1), miss(0.4),
		hit(moved, 0.9),
		miss(0.2), miss(0.2), miss(0.2), miss(0.2),
	}}
	s := newTestSession(t, &scriptedDetector{boxes: []geometry.Box{face}}, tmpl)

	for i := 0; i < 5; i++ {
		_, err := s.Step(blank())
		require.NoError(t, err)
	}
	assert.Equal(t, 4, s.Misses())

	ev, err := s.Step(blank())
	require.NoError(t, err)
	assert.Equal(t, EventMatched, ev.Kind)
	assert.Equal(t, moved, ev.Box)
	assert.Zero(t, ev.Misses)

	for i := 0; i < 4; i++ {
		ev, err = s.Step(blank())
		require.NoError(t, err)
	}
	assert.Equal(t, StateTrack, ev.State, "four misses after a match keep tracking")
	assert.Equal(t, 4, ev.Misses)
}

func TestMatchErrorCountsAsMiss(t *testing.T) {
	boom := errors.New("correlator failed")
	tmpl := &scriptedTemplates{}
	s := newTestSession(t, &scriptedDetector{boxes: []geometry.Box{geometry.NewBox(0, 0, 64, 64)}}, tmpl)
	_, err := s.Step(blank())
	require.NoError(t, err)

	tmpl.matchErr = boom
	ev, err := s.Step(blank())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, EventMissed, ev.Kind)
	assert.Equal(t, 1, s.Misses())
}

// fixedGray ignores its input and hands out the same frame.
type fixedGray struct {
	gray  *image.Gray
	calls int
}

func (f *fixedGray) Preprocess(image.Image) (*image.Gray, error) {
	f.calls++
	return f.gray, nil
}

func TestProcessUsesPreprocessor(t *testing.T) {
	face := geometry.NewBox(40, 30, 64, 64)
	pre := &fixedGray{gray: noise(200, 160, 3)}
	tmpl := template.NewManager(template.Config{})
	s := newTestSession(t, &scriptedDetector{boxes: []geometry.Box{face}}, tmpl)
	s.SetPreprocessor(pre)

	ev, err := s.Process(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)
	assert.Equal(t, EventAcquired, ev.Kind)
	ev, err = s.Process(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)
	assert.Equal(t, EventMatched, ev.Kind)
	assert.Equal(t, face, ev.Box)
	assert.Equal(t, 2, pre.calls)

	s.SetPreprocessor(nil)
	_, err = s.Process(nil)
	assert.ErrorIs(t, err, frame.ErrInvalidInput)
}

func TestProcessInvalidFrame(t *testing.T) {
	det := &scriptedDetector{}
	s := newTestSession(t, det, &scriptedTemplates{})

	_, err := s.Process(nil)
	require.ErrorIs(t, err, frame.ErrInvalidInput)
	_, err = s.Process(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	require.ErrorIs(t, err, frame.ErrInvalidInput)
	assert.Zero(t, det.calls)
	assert.Zero(t, s.Frames())

	_, err = s.Process(image.NewRGBA(image.Rect(0, 0, 32, 32)))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.Frames())
}

func TestScenarioAcquireTrackLose(t *testing.T) {
	face := geometry.NewBox(100, 60, 80, 80)
	matched := geometry.NewBox(108, 68, 64, 64)
	tmpl := &scriptedTemplates{results: []template.Result{
		hit(matched, 1), hit(matched, 1), hit(matched, 1),
		miss(0.12), miss(0.08), miss(0.15), miss(0.1), miss(0.05),
	}}
	det := &scriptedDetector{boxes: []geometry.Box{face}}
	s := newTestSession(t, det, tmpl)

	var got []Event
	for i := 0; i < 9; i++ {
		ev, err := s.Step(blank())
		require.NoError(t, err)
		got = append(got, ev)
	}

	want := []Event{
		{Frame: 1, Kind: EventAcquired, State: StateTrack, Box: face, HasBox: true, Faces: []geometry.Box{face}},
		{Frame: 2, Kind: EventMatched, State: StateTrack, Box: matched, HasBox: true, Score: 1, Attempted: true},
		{Frame: 3, Kind: EventMatched, State: StateTrack, Box: matched, HasBox: true, Score: 1, Attempted: true},
		{Frame: 4, Kind: EventMatched, State: StateTrack, Box: matched, HasBox: true, Score: 1, Attempted: true},
		{Frame: 5, Kind: EventMissed, State: StateTrack, Score: 0.12, Attempted: true, Misses: 1},
		{Frame: 6, Kind: EventMissed, State: StateTrack, Score: 0.08, Attempted: true, Misses: 2},
		{Frame: 7, Kind: EventMissed, State: StateTrack, Score: 0.15, Attempted: true, Misses: 3},
		{Frame: 8, Kind: EventMissed, State: StateTrack, Score: 0.1, Attempted: true, Misses: 4},
		{Frame: 9, Kind: EventLost, State: StateDetect, Score: 0.05, Attempted: true, Misses: 5},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, s.HaveTemplate())
	assert.Equal(t, 1, det.calls)
}

func noise(w, h int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = uint8(rng.Intn(256))
	}
	return g
}

func TestSessionWithManager(t *testing.T) {
	face := geometry.NewBox(40, 30, 64, 64)
	scene := noise(200, 160, 7)
	occluded := noise(200, 160, 8)

	s := newTestSession(t, &scriptedDetector{boxes: []geometry.Box{face}}, template.NewManager(template.Config{}))

	ev, err := s.Step(scene)
	require.NoError(t, err)
	require.Equal(t, EventAcquired, ev.Kind)

	for i := 0; i < 3; i++ {
		ev, err = s.Step(scene)
		require.NoError(t, err)
		assert.Equal(t, EventMatched, ev.Kind)
		assert.Equal(t, face, ev.Box)
		assert.InDelta(t, 1.0, ev.Score, 1e-9)
	}

	for i := 1; i <= 5; i++ {
		ev, err = s.Step(occluded)
		require.NoError(t, err)
		assert.Less(t, ev.Score, template.DefaultThreshold)
		assert.Equal(t, i, ev.Misses)
	}
	assert.Equal(t, EventLost, ev.Kind)
	assert.Equal(t, StateDetect, s.State())
	assert.False(t, s.HaveTemplate())
}

// blocks fills a frame with 4x4 cells of random intensity.
func blocks(w, h int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	cols := (w + 3) / 4
	cells := make([]uint8, cols*((h+3)/4))
	for i := range cells {
		cells[i] = uint8(rng.Intn(256))
	}
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Pix[y*g.Stride+x] = cells[(y/4)*cols+x/4]
		}
	}
	return g
}

func TestSessionWithManagerResizedFace(t *testing.T) {
	// An 80x80 face is resampled into the 64x64 template. The following
	// frames show the scene at 64/80 scale, where the face is template-sized.
	face := geometry.NewBox(100, 60, 80, 80)
	scene := blocks(320, 240, 11)
	scaled := image.NewGray(image.Rect(0, 0, 256, 192))
	xdraw.BiLinear.Scale(scaled, scaled.Bounds(), scene, scene.Bounds(), xdraw.Src, nil)
	want := geometry.NewBox(80, 48, 64, 64)

	s := newTestSession(t, &scriptedDetector{boxes: []geometry.Box{face}}, template.NewManager(template.Config{}))

	ev, err := s.Step(scene)
	require.NoError(t, err)
	require.Equal(t, EventAcquired, ev.Kind)
	assert.Equal(t, face, ev.Box)

	for i := 0; i < 3; i++ {
		ev, err = s.Step(scaled)
		require.NoError(t, err)
		require.Equal(t, EventMatched, ev.Kind, "frame %d score %.3f", ev.Frame, ev.Score)
		assert.Greater(t, ev.Score, template.DefaultThreshold)
		assert.InDelta(t, want.X, ev.Box.X, 1)
		assert.InDelta(t, want.Y, ev.Box.Y, 1)
		assert.Equal(t, 64, ev.Box.Width)
		assert.Equal(t, 64, ev.Box.Height)
		assert.Zero(t, ev.Misses)
	}
	assert.Equal(t, StateTrack, s.State())
}
