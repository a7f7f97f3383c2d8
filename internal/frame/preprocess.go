// Package frame turns captured color frames into the normalized grayscale
// images the tracker works on.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/gift"
)

// ErrInvalidInput is returned for nil or zero-area frames.
var ErrInvalidInput = errors.New("invalid input frame")

var grayscale = gift.New(gift.Grayscale())

// Preprocessor turns a captured frame into the equalized grayscale image the
// detector and matcher work on. Implementations return ErrInvalidInput for
// frames that fail Validate.
type Preprocessor interface {
	Preprocess(img image.Image) (*image.Gray, error)
}

// PreprocessFunc adapts a plain function to Preprocessor.
type PreprocessFunc func(img image.Image) (*image.Gray, error)

func (f PreprocessFunc) Preprocess(img image.Image) (*image.Gray, error) { return f(img) }

// Software is the pure-Go Preprocessor. It needs no OpenCV and is the
// default for sessions built without one.
var Software Preprocessor = PreprocessFunc(Preprocess)

// Validate rejects nil and zero-area frames with ErrInvalidInput.
func Validate(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: bounds %v", ErrInvalidInput, b)
	}
	return nil
}

// Preprocess converts a frame to single-channel intensity and equalizes its
// histogram. The result always has its origin at (0,0).
func Preprocess(img image.Image) (*image.Gray, error) {
	if err := Validate(img); err != nil {
		return nil, err
	}
	return EqualizeHist(Grayscale(img)), nil
}

// Grayscale converts img to an 8-bit gray image anchored at (0,0).
// Gray inputs are copied as-is; everything else goes through gift's
// BT.601 luminance filter.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if g, ok := img.(*image.Gray); ok {
		draw.Draw(dst, dst.Bounds(), g, b.Min, draw.Src)
		return dst
	}
	grayscale.Draw(dst, img)
	return dst
}

// EqualizeHist redistributes intensities so the cumulative histogram is
// approximately linear. The lowest occupied level maps to 0 and the highest
// to 255; a single-level image is returned unchanged. The LUT follows
// OpenCV's equalizeHist, so Software and the cvframe backend agree.
func EqualizeHist(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	total := w * h
	if total == 0 {
		return dst
	}

	var hist [256]int
	for y := 0; y < h; y++ {
		row := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride+(b.Min.X-src.Rect.Min.X):]
		for x := 0; x < w; x++ {
			hist[row[x]]++
		}
	}

	first := 0
	for hist[first] == 0 {
		first++
	}

	var lut [256]uint8
	if hist[first] == total {
		for i := range lut {
			lut[i] = uint8(first)
		}
	} else {
		scale := 255.0 / float64(total-hist[first])
		sum := 0
		for i := first + 1; i < 256; i++ {
			sum += hist[i]
			v := float64(sum)*scale + 0.5
			if v > 255 {
				v = 255
			}
			lut[i] = uint8(v)
		}
	}

	for y := 0; y < h; y++ {
		in := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride+(b.Min.X-src.Rect.Min.X):]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			out[x] = lut[in[x]]
		}
	}
	return dst
}

// Compact returns gray with its origin at (0,0) and stride equal to its
// width, copying only when needed. OpenCV conversions require this layout.
func Compact(gray *image.Gray) *image.Gray {
	b := gray.Bounds()
	if b.Min == (image.Point{}) && gray.Stride == b.Dx() {
		return gray
	}
	return Grayscale(gray)
}
