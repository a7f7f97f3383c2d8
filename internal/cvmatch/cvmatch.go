// Package cvmatch implements template.Correlator on top of OpenCV's
// matchTemplate, which is much faster than the pure-Go scan on full frames.
package cvmatch

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"facetrack/internal/frame"
	"facetrack/internal/template"

	"gocv.io/x/gocv"
)

// Correlator caches the float Mat of the last template it saw. It is not
// safe for concurrent use; each tracking session owns one.
type Correlator struct {
	tmpl *template.Template
	mat  gocv.Mat
}

// New returns a Correlator. Call Close to release the cached Mat.
func New() *Correlator {
	return &Correlator{mat: gocv.NewMat()}
}

// Correlate runs TM_CCOEFF_NORMED and returns the global maximum. OpenCV's
// minMaxLoc reports the first maximum in row-major order.
func (c *Correlator) Correlate(gray *image.Gray, t *template.Template) (template.Peak, error) {
	if err := c.load(t); err != nil {
		return template.Peak{}, err
	}

	f32, err := grayToFloat(gray)
	if err != nil {
		return template.Peak{}, err
	}
	defer f32.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(f32, c.mat, &result, gocv.TmCcoeffNormed, mask)
	if result.Empty() {
		return template.Peak{}, fmt.Errorf("matchTemplate produced no surface")
	}

	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
	score := float64(maxVal)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		score = 0
	}
	return template.Peak{X: maxLoc.X, Y: maxLoc.Y, Score: score}, nil
}

// Close releases the cached template Mat.
func (c *Correlator) Close() error {
	c.tmpl = nil
	return c.mat.Close()
}

// load rebuilds the cached CV_32F template when t changes. Templates are
// immutable, so pointer identity is enough.
func (c *Correlator) load(t *template.Template) error {
	if t == c.tmpl && !c.mat.Empty() {
		return nil
	}
	p := t.Plane()
	data := make([]byte, 4*len(p.Pix))
	for i, v := range p.Pix {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(float32(v)))
	}
	view, err := gocv.NewMatFromBytes(p.Height, p.Width, gocv.MatTypeCV32F, data)
	if err != nil {
		return fmt.Errorf("failed to build template mat: %w", err)
	}
	defer view.Close()

	// view aliases data; keep an OpenCV-owned copy.
	c.mat.Close()
	c.mat = view.Clone()
	c.tmpl = t
	return nil
}

// grayToFloat converts an 8-bit gray image into a CV_32F Mat scaled to [0,1].
func grayToFloat(gray *image.Gray) (gocv.Mat, error) {
	u8, err := gocv.ImageGrayToMatGray(frame.Compact(gray))
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer u8.Close()

	f32 := gocv.NewMat()
	u8.ConvertToWithParams(&f32, gocv.MatTypeCV32F, float32(1/frame.MaxIntensity), 0)
	return f32, nil
}
