// Package cvframe implements frame.Preprocessor with OpenCV's cvtColor and
// equalizeHist. It is the production preprocessing path.
package cvframe

import (
	"fmt"
	"image"
	"image/draw"

	"facetrack/internal/frame"

	"gocv.io/x/gocv"
)

// Preprocessor converts frames to equalized gray through OpenCV. It holds no
// Mats between calls and is safe for concurrent use.
type Preprocessor struct{}

// New returns an OpenCV preprocessor.
func New() Preprocessor { return Preprocessor{} }

// Preprocess converts img to 8-bit gray and equalizes its histogram. The
// result is anchored at (0,0).
func (Preprocessor) Preprocess(img image.Image) (*image.Gray, error) {
	if err := frame.Validate(img); err != nil {
		return nil, err
	}

	gray, err := toGrayMat(img)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	eq := gocv.NewMat()
	defer eq.Close()
	gocv.EqualizeHist(gray, &eq)

	out, err := eq.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert equalized frame: %w", err)
	}
	g, ok := out.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("equalized frame has unexpected type %T", out)
	}
	return g, nil
}

// toGrayMat returns a single-channel CV_8U Mat for img. Gray inputs are
// copied directly; everything else goes through RGBA and cvtColor.
func toGrayMat(img image.Image) (gocv.Mat, error) {
	if g, ok := img.(*image.Gray); ok {
		m, err := gocv.ImageGrayToMatGray(frame.Compact(g))
		if err != nil {
			return gocv.Mat{}, fmt.Errorf("failed to convert frame: %w", err)
		}
		return m, nil
	}

	rgba := compactRGBA(img)
	b := rgba.Bounds()
	view, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer view.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(view, &gray, gocv.ColorRGBAToGray)
	return gray, nil
}

// compactRGBA returns img as an origin-anchored RGBA with a tight stride.
func compactRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if r, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && r.Stride == 4*b.Dx() {
		return r
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
