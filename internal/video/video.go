// Package video provides frame sources for the tracker: video files and
// capture devices through gocv, and directories of still images.
package video

import (
	"fmt"
	"image"
	"os"
	"strconv"
)

// DefaultFPS is assumed when a source does not report its frame rate.
const DefaultFPS = 30.0

// Source yields frames in order. Read returns io.EOF at the end of the
// stream.
type Source interface {
	Read() (image.Image, error)
	FPS() float64
	// FrameCount returns the number of frames, or 0 when unknown (live devices).
	FrameCount() int
	Rewind() error
	Close() error
}

// Open picks a source for name: a directory of images, a device index, or
// a video file or URL. fps overrides the reported frame rate when positive.
func Open(name string, fps float64) (Source, error) {
	if name == "" {
		return nil, fmt.Errorf("no video source given")
	}
	if st, err := os.Stat(name); err == nil && st.IsDir() {
		return OpenSequence(name, fps)
	}
	if idx, err := strconv.Atoi(name); err == nil {
		return OpenDevice(idx, fps)
	}
	return OpenFile(name, fps)
}

// Delay returns the per-frame wait in milliseconds for fps, at least 1.
func Delay(fps float64) int {
	if fps <= 0 {
		fps = DefaultFPS
	}
	d := int(1000/fps + 0.5)
	if d < 1 {
		d = 1
	}
	return d
}
