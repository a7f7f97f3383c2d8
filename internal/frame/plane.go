package frame

import "image"

// MaxIntensity is the largest 8-bit sample value; dividing by it maps
// intensities onto [0,1].
const MaxIntensity = 255.0

// Plane is a single-channel image of float64 samples in row-major order.
type Plane struct {
	Width  int
	Height int
	Pix    []float64
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// Normalize converts a gray image to a Plane with samples in [0,1].
func Normalize(g *image.Gray) *Plane {
	b := g.Bounds()
	p := NewPlane(b.Dx(), b.Dy())
	for y := 0; y < p.Height; y++ {
		row := g.Pix[(y+b.Min.Y-g.Rect.Min.Y)*g.Stride+(b.Min.X-g.Rect.Min.X):]
		out := p.Pix[y*p.Width : (y+1)*p.Width]
		for x := range out {
			out[x] = float64(row[x]) / MaxIntensity
		}
	}
	return p
}

// At returns the sample at (x, y).
func (p *Plane) At(x, y int) float64 {
	return p.Pix[y*p.Width+x]
}

// Row returns the samples of row y.
func (p *Plane) Row(y int) []float64 {
	return p.Pix[y*p.Width : (y+1)*p.Width]
}
