package video

import (
	"fmt"
	"image"
	"io"
	"math"

	"gocv.io/x/gocv"
)

// Capture reads frames from a video file, URL or camera through OpenCV.
type Capture struct {
	cap  *gocv.VideoCapture
	mat  gocv.Mat
	fps  float64
	n    int
	live bool
	name string
}

// OpenFile opens a video file or stream URL.
func OpenFile(path string, fps float64) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	return newCapture(vc, path, fps, false)
}

// OpenDevice opens a camera by index.
func OpenDevice(index int, fps float64) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture device %d: %w", index, err)
	}
	return newCapture(vc, fmt.Sprintf("device %d", index), fps, true)
}

func newCapture(vc *gocv.VideoCapture, name string, fps float64, live bool) (*Capture, error) {
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video source %s is not open", name)
	}
	c := &Capture{cap: vc, mat: gocv.NewMat(), fps: fps, live: live, name: name}
	if c.fps <= 0 {
		c.fps = vc.Get(gocv.VideoCaptureFPS)
	}
	if c.fps <= 0 || math.IsNaN(c.fps) {
		c.fps = DefaultFPS
	}
	if !live {
		if n := vc.Get(gocv.VideoCaptureFrameCount); n > 0 {
			c.n = int(n)
		}
	}
	return c, nil
}

// Read grabs and decodes the next frame. An empty frame ends the stream.
func (c *Capture) Read() (image.Image, error) {
	if ok := c.cap.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, io.EOF
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

// FPS returns the playback frame rate.
func (c *Capture) FPS() float64 { return c.fps }

// FrameCount returns the reported frame count, 0 for live devices.
func (c *Capture) FrameCount() int { return c.n }

// Rewind seeks back to the first frame. Live devices cannot rewind.
func (c *Capture) Rewind() error {
	if c.live {
		return fmt.Errorf("cannot rewind %s", c.name)
	}
	c.cap.Set(gocv.VideoCapturePosFrames, 0)
	return nil
}

func (c *Capture) String() string { return c.name }

// Close releases the capture and its frame buffer.
func (c *Capture) Close() error {
	c.mat.Close()
	return c.cap.Close()
}
