package render

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// DefaultCodec is the FourCC used for recordings.
const DefaultCodec = "mp4v"

// Recorder writes annotated frames to a video file. The writer is opened on
// the first frame, once the frame size is known.
type Recorder struct {
	path   string
	codec  string
	fps    float64
	writer *gocv.VideoWriter
	size   image.Point
	frames int
}

// NewRecorder prepares a recording to path at fps.
func NewRecorder(path, codec string, fps float64) *Recorder {
	if codec == "" {
		codec = DefaultCodec
	}
	return &Recorder{path: path, codec: codec, fps: fps}
}

// Show appends img to the recording. Frames of a different size than the
// first are rejected.
func (r *Recorder) Show(img image.Image, _ time.Duration) (Key, error) {
	b := img.Bounds()
	if r.writer == nil {
		vw, err := gocv.VideoWriterFile(r.path, r.codec, r.fps, b.Dx(), b.Dy(), true)
		if err != nil {
			return KeyNone, fmt.Errorf("failed to open recording %s: %w", r.path, err)
		}
		r.writer = vw
		r.size = b.Size()
	}
	if b.Size() != r.size {
		return KeyNone, fmt.Errorf("frame size %v differs from recording size %v", b.Size(), r.size)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return KeyNone, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()
	if err := r.writer.Write(mat); err != nil {
		return KeyNone, fmt.Errorf("failed to write frame: %w", err)
	}
	r.frames++
	return KeyNone, nil
}

// Frames returns the number of frames written.
func (r *Recorder) Frames() int { return r.frames }

func (r *Recorder) Close() error {
	if r.writer == nil {
		return nil
	}
	return r.writer.Close()
}
