package detect

import (
	"fmt"
	"image"
	"os"

	"facetrack/internal/frame"
	"facetrack/internal/tracker"
	"facetrack/pkg/geometry"

	"gocv.io/x/gocv"
)

// Cascade wraps an OpenCV cascade classifier.
type Cascade struct {
	classifier gocv.CascadeClassifier
	path       string
}

// LoadCascade loads a Haar (or LBP) cascade XML file.
func LoadCascade(path string) (*Cascade, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cascade file: %w", err)
	}
	c := gocv.NewCascadeClassifier()
	if !c.Load(path) {
		c.Close()
		return nil, fmt.Errorf("failed to load cascade classifier from %s", path)
	}
	return &Cascade{classifier: c, path: path}, nil
}

// Path returns the file the cascade was loaded from.
func (c *Cascade) Path() string { return c.path }

// Detect runs detectMultiScale on an equalized gray frame. Boxes come back
// in OpenCV's order.
func (c *Cascade) Detect(gray *image.Gray, p tracker.DetectParams) ([]geometry.Box, error) {
	mat, err := gocv.ImageGrayToMatGray(frame.Compact(gray))
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	rects := c.classifier.DetectMultiScaleWithParams(
		mat,
		p.ScaleFactor,
		p.MinNeighbors,
		0,
		image.Pt(p.MinSize, p.MinSize),
		image.Point{},
	)

	boxes := make([]geometry.Box, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, geometry.BoxFromRect(r))
	}
	return boxes, nil
}

// Close releases the classifier.
func (c *Cascade) Close() error {
	return c.classifier.Close()
}
