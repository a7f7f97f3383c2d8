package template

import (
	"errors"
	"image"
	"math/rand"
	"testing"

	"facetrack/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noiseFrame returns a w×h gray image of seeded uniform noise.
func noiseFrame(w, h int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = uint8(rng.Intn(256))
	}
	return g
}

// shifted returns a copy of src translated by (dx, dy), filling uncovered
// pixels from fill.
func shifted(src, fill *image.Gray, dx, dy int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	copy(dst.Pix, fill.Pix)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sx, sy := x-dx, y-dy
			if image.Pt(sx, sy).In(b) {
				dst.SetGray(x, y, src.GrayAt(sx, sy))
			}
		}
	}
	return dst
}

func TestBuildTemplate(t *testing.T) {
	gray := noiseFrame(200, 160, 1)

	t.Run("native size copies samples", func(t *testing.T) {
		tmpl, err := New(gray, geometry.NewBox(40, 30, 64, 64), DefaultSize)
		require.NoError(t, err)
		assert.Equal(t, 64, tmpl.Width())
		assert.Equal(t, 64, tmpl.Height())
		assert.Equal(t, gray.GrayAt(40, 30), tmpl.Image().GrayAt(0, 0))
		assert.Equal(t, gray.GrayAt(103, 93), tmpl.Image().GrayAt(63, 63))
		assert.InDelta(t, float64(gray.GrayAt(40, 30).Y)/255, tmpl.Plane().At(0, 0), 1e-12)
	})

	t.Run("larger box is resized", func(t *testing.T) {
		tmpl, err := New(gray, geometry.NewBox(10, 10, 80, 80), DefaultSize)
		require.NoError(t, err)
		assert.Equal(t, 64, tmpl.Width())
		assert.Len(t, tmpl.Plane().Pix, 64*64)
		for _, v := range tmpl.Plane().Pix {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
	})

	t.Run("box is clipped to frame", func(t *testing.T) {
		tmpl, err := New(gray, geometry.NewBox(180, 150, 80, 80), DefaultSize)
		require.NoError(t, err)
		assert.Equal(t, geometry.NewBox(180, 150, 20, 10), tmpl.Source())
	})

	t.Run("box outside frame", func(t *testing.T) {
		_, err := New(gray, geometry.NewBox(300, 300, 80, 80), DefaultSize)
		assert.ErrorIs(t, err, ErrEmptyRegion)
	})

	t.Run("zero area box", func(t *testing.T) {
		_, err := New(gray, geometry.NewBox(10, 10, 0, 80), DefaultSize)
		assert.ErrorIs(t, err, ErrEmptyRegion)
	})
}

func TestBuildIdempotent(t *testing.T) {
	gray := noiseFrame(160, 120, 2)
	box := geometry.NewBox(20, 25, 80, 80)

	m := NewManager(Config{})
	require.NoError(t, m.Build(gray, box))
	first := m.Template()
	require.NoError(t, m.Build(gray, box))
	second := m.Template()

	assert.NotSame(t, first, second, "build replaces the template wholesale")
	assert.Equal(t, first.Image().Pix, second.Image().Pix)
	assert.Equal(t, first.Plane().Pix, second.Plane().Pix)
}

func TestBuildEmptyRegionKeepsTemplate(t *testing.T) {
	gray := noiseFrame(160, 120, 3)
	m := NewManager(Config{})
	require.NoError(t, m.Build(gray, geometry.NewBox(10, 10, 64, 64)))
	before := m.Template()

	err := m.Build(gray, geometry.NewBox(-200, -200, 80, 80))
	require.ErrorIs(t, err, ErrEmptyRegion)
	assert.Same(t, before, m.Template())
	assert.True(t, m.Have())
}

func TestMatchSelf(t *testing.T) {
	gray := noiseFrame(200, 160, 4)
	box := geometry.NewBox(40, 30, 64, 64)

	m := NewManager(Config{})
	require.NoError(t, m.Build(gray, box))

	res, err := m.Match(gray)
	require.NoError(t, err)
	assert.True(t, res.Attempted)
	assert.True(t, res.Matched)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.LessOrEqual(t, res.Box.TopLeft().Distance(box.TopLeft()), 1.0)
	assert.Equal(t, 64, res.Box.Width)
	assert.Equal(t, 64, res.Box.Height)
}

func TestMatchFollowsShift(t *testing.T) {
	gray := noiseFrame(200, 160, 5)
	m := NewManager(Config{})
	require.NoError(t, m.Build(gray, geometry.NewBox(60, 40, 64, 64)))

	moved := shifted(gray, noiseFrame(200, 160, 6), 7, -4)
	res, err := m.Match(moved)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, geometry.NewBox(67, 36, 64, 64), res.Box)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
}

func TestMatchSubImageCoordinates(t *testing.T) {
	gray := noiseFrame(200, 160, 7)
	m := NewManager(Config{})
	require.NoError(t, m.Build(gray, geometry.NewBox(50, 40, 64, 64)))

	sub := gray.SubImage(image.Rect(20, 20, 180, 140)).(*image.Gray)
	res, err := m.Match(sub)
	require.NoError(t, err)
	assert.Equal(t, geometry.NewBox(50, 40, 64, 64), res.Box)
}

func TestMatchNoMatch(t *testing.T) {
	gray := noiseFrame(200, 160, 8)

	t.Run("no template", func(t *testing.T) {
		m := NewManager(Config{})
		res, err := m.Match(gray)
		require.NoError(t, err)
		assert.False(t, res.Attempted)
		assert.False(t, res.Matched)
	})

	t.Run("frame narrower than template", func(t *testing.T) {
		m := NewManager(Config{Correlator: failingCorrelator{}})
		require.NoError(t, m.Build(gray, geometry.NewBox(0, 0, 64, 64)))
		res, err := m.Match(noiseFrame(63, 100, 9))
		require.NoError(t, err, "correlation must not be attempted")
		assert.False(t, res.Attempted)
		assert.False(t, res.Matched)
	})

	t.Run("frame shorter than template", func(t *testing.T) {
		m := NewManager(Config{Correlator: failingCorrelator{}})
		require.NoError(t, m.Build(gray, geometry.NewBox(0, 0, 64, 64)))
		res, err := m.Match(noiseFrame(100, 10, 9))
		require.NoError(t, err)
		assert.False(t, res.Attempted)
	})

	t.Run("unrelated frame scores below threshold", func(t *testing.T) {
		m := NewManager(Config{})
		require.NoError(t, m.Build(gray, geometry.NewBox(30, 30, 64, 64)))
		res, err := m.Match(noiseFrame(200, 160, 10))
		require.NoError(t, err)
		assert.True(t, res.Attempted)
		assert.False(t, res.Matched)
		assert.Less(t, res.Score, DefaultThreshold)
		assert.Equal(t, 64, res.Box.Width, "best location is still reported")
	})

	t.Run("after discard", func(t *testing.T) {
		m := NewManager(Config{})
		require.NoError(t, m.Build(gray, geometry.NewBox(30, 30, 64, 64)))
		m.Discard()
		assert.False(t, m.Have())
		res, err := m.Match(gray)
		require.NoError(t, err)
		assert.False(t, res.Attempted)
	})
}

func TestMatchFlatTemplate(t *testing.T) {
	gray := noiseFrame(200, 160, 11)
	for y := 10; y < 74; y++ {
		for x := 10; x < 74; x++ {
			gray.Pix[y*gray.Stride+x] = 128
		}
	}

	m := NewManager(Config{})
	require.NoError(t, m.Build(gray, geometry.NewBox(10, 10, 64, 64)))
	assert.True(t, m.Template().Flat())

	res, err := m.Match(gray)
	require.NoError(t, err)
	assert.True(t, res.Attempted)
	assert.False(t, res.Matched)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, geometry.NewBox(0, 0, 64, 64), res.Box, "first offset wins ties")
}

func TestMatchCorrelatorError(t *testing.T) {
	gray := noiseFrame(100, 100, 12)
	m := NewManager(Config{Correlator: failingCorrelator{}})
	require.NoError(t, m.Build(gray, geometry.NewBox(0, 0, 64, 64)))

	_, err := m.Match(gray)
	assert.ErrorIs(t, err, errCorrelate)
}

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager(Config{})
	assert.Equal(t, DefaultSize, m.Size())
	assert.Equal(t, DefaultThreshold, m.Threshold())

	th := 0.8
	m = NewManager(Config{Size: 32, Threshold: &th})
	assert.Equal(t, 32, m.Size())
	assert.Equal(t, 0.8, m.Threshold())
}

func TestZeroThresholdIsKept(t *testing.T) {
	th := 0.0
	m := NewManager(Config{Threshold: &th})
	require.Zero(t, m.Threshold())

	ref := noiseFrame(160, 120, 21)
	require.NoError(t, m.Build(ref, geometry.NewBox(30, 20, 64, 64)))

	// Unrelated noise peaks well below the default but above zero.
	res, err := m.Match(noiseFrame(160, 120, 22))
	require.NoError(t, err)
	require.True(t, res.Attempted)
	assert.Less(t, res.Score, DefaultThreshold)
	assert.Greater(t, res.Score, 0.0)
	assert.True(t, res.Matched, "score %.3f", res.Score)
}

var errCorrelate = errors.New("correlator unavailable")

type failingCorrelator struct{}

func (failingCorrelator) Correlate(*image.Gray, *Template) (Peak, error) {
	return Peak{}, errCorrelate
}
