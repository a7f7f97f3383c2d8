// Package template owns the tracking template: it builds a fixed-size,
// intensity-normalized patch from a detected face and relocates that patch
// in later frames with zero-mean normalized cross-correlation.
package template

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"facetrack/internal/frame"
	"facetrack/pkg/geometry"

	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultSize is the side length of the square template.
const DefaultSize = 64

// ErrEmptyRegion is returned when a face box has no overlap with the frame.
var ErrEmptyRegion = errors.New("face region is empty after clipping")

// Template is an immutable size×size patch with samples in [0,1] plus the
// statistics the correlators need.
type Template struct {
	gray  *image.Gray
	plane *frame.Plane

	// zeroMean holds plane samples minus their mean.
	zeroMean []float64
	mean     float64
	// energy is the sum of squared zero-mean samples.
	energy float64
	source geometry.Box
}

// New builds a template from the region of gray covered by box. The box is
// clipped to the frame first; an empty clip yields ErrEmptyRegion.
func New(gray *image.Gray, box geometry.Box, size int) (*Template, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid template size %d", size)
	}
	roi := box.Clip(gray.Bounds())
	if roi.Empty() {
		return nil, fmt.Errorf("%w: box %s, frame %v", ErrEmptyRegion, box, gray.Bounds())
	}
	r := roi.Rect()

	patch := image.NewGray(image.Rect(0, 0, size, size))
	if r.Dx() == size && r.Dy() == size {
		// Already the right size: take the samples verbatim.
		draw.Draw(patch, patch.Bounds(), gray, r.Min, draw.Src)
	} else {
		xdraw.BiLinear.Scale(patch, patch.Bounds(), gray, r, xdraw.Src, nil)
	}

	plane := frame.Normalize(patch)
	mean := stat.Mean(plane.Pix, nil)
	zeroMean := make([]float64, len(plane.Pix))
	copy(zeroMean, plane.Pix)
	floats.AddConst(-mean, zeroMean)

	return &Template{
		gray:     patch,
		plane:    plane,
		zeroMean: zeroMean,
		mean:     mean,
		energy:   floats.Dot(zeroMean, zeroMean),
		source:   roi,
	}, nil
}

// Width returns the template width in pixels.
func (t *Template) Width() int { return t.plane.Width }

// Height returns the template height in pixels.
func (t *Template) Height() int { return t.plane.Height }

// Plane returns the normalized samples. Callers must not modify them.
func (t *Template) Plane() *frame.Plane { return t.plane }

// Image returns the 8-bit patch the template was built from.
func (t *Template) Image() *image.Gray { return t.gray }

// Mean returns the mean normalized intensity.
func (t *Template) Mean() float64 { return t.mean }

// Source returns the clipped frame region the template was extracted from.
func (t *Template) Source() geometry.Box { return t.source }

// Flat reports whether the template has no intensity variation, in which
// case no location can correlate with it.
func (t *Template) Flat() bool { return t.energy <= flatEpsilon }

// valid reports whether the template is non-empty and size×size.
func (t *Template) valid(size int) bool {
	return t != nil && t.plane != nil &&
		t.plane.Width == size && t.plane.Height == size &&
		len(t.plane.Pix) == size*size
}
