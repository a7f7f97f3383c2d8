package template

import (
	"image"
	"math"

	"facetrack/internal/frame"

	"gonum.org/v1/gonum/floats"
)

// flatEpsilon is the variance floor below which a window (or the template)
// is treated as flat and scores 0.
const flatEpsilon = 1e-12

// Peak is the best location on a correlation surface.
type Peak struct {
	X, Y  int
	Score float64
}

// Correlator computes the global maximum of the zero-mean normalized
// cross-correlation surface between a frame and a template. The frame is
// guaranteed to be at least as large as the template in both axes.
type Correlator interface {
	Correlate(gray *image.Gray, t *Template) (Peak, error)
}

// NCC is the pure-Go correlator. Window sums come from integral images so
// each offset costs one template-sized dot product.
type NCC struct{}

// Correlate scans every top-left offset in row-major order; the first
// maximum wins ties.
func (NCC) Correlate(gray *image.Gray, t *Template) (Peak, error) {
	f := frame.Normalize(gray)
	return correlatePlane(f, t), nil
}

func correlatePlane(f *frame.Plane, t *Template) Peak {
	w, h := t.Width(), t.Height()
	W, H := f.Width, f.Height
	n := float64(w * h)

	sum, sumSq := integrals(f)
	stride := W + 1
	window := func(I []float64, x, y int) float64 {
		return I[(y+h)*stride+x+w] - I[y*stride+x+w] - I[(y+h)*stride+x] + I[y*stride+x]
	}

	best := Peak{Score: math.Inf(-1)}
	for y := 0; y <= H-h; y++ {
		for x := 0; x <= W-w; x++ {
			score := 0.0
			if !t.Flat() {
				s := window(sum, x, y)
				variance := window(sumSq, x, y) - s*s/n
				if variance > flatEpsilon {
					// Template is zero-mean, so the frame mean drops out.
					var num float64
					for r := 0; r < h; r++ {
						off := (y+r)*W + x
						num += floats.Dot(f.Pix[off:off+w], t.zeroMean[r*w:(r+1)*w])
					}
					score = num / math.Sqrt(variance*t.energy)
				}
			}
			if score > best.Score {
				best = Peak{X: x, Y: y, Score: score}
			}
		}
	}
	return best
}

// integrals returns the (W+1)×(H+1) summed-area tables of samples and of
// squared samples, with a zero first row and column.
func integrals(f *frame.Plane) (sum, sumSq []float64) {
	stride := f.Width + 1
	sum = make([]float64, stride*(f.Height+1))
	sumSq = make([]float64, stride*(f.Height+1))
	for y := 0; y < f.Height; y++ {
		var rowSum, rowSq float64
		row := f.Row(y)
		for x, v := range row {
			rowSum += v
			rowSq += v * v
			i := (y+1)*stride + x + 1
			sum[i] = sum[i-stride] + rowSum
			sumSq[i] = sumSq[i-stride] + rowSq
		}
	}
	return sum, sumSq
}
