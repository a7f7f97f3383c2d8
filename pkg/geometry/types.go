// Package geometry provides the box and point types shared by detection,
// tracking and rendering.
package geometry

import (
	"fmt"
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Box is an axis-aligned rectangle in frame pixel coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewBox creates a new Box.
func NewBox(x, y, width, height int) Box {
	return Box{X: x, Y: y, Width: width, Height: height}
}

// BoxFromRect converts an image.Rectangle (as returned by gocv) to a Box.
func BoxFromRect(r image.Rectangle) Box {
	r = r.Canon()
	return Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Area returns the box area in pixels, 0 for empty boxes.
func (b Box) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width * b.Height
}

// Clip returns the part of the box inside bounds. The result is the zero
// Box when they do not overlap.
func (b Box) Clip(bounds image.Rectangle) Box {
	r := b.Rect().Intersect(bounds)
	if r.Empty() {
		return Box{}
	}
	return BoxFromRect(r)
}

// Center returns the center point of the box.
func (b Box) Center() Point2D {
	return Point2D{X: float64(b.X) + float64(b.Width)/2, Y: float64(b.Y) + float64(b.Height)/2}
}

// TopLeft returns the top-left corner.
func (b Box) TopLeft() Point2D {
	return Point2D{X: float64(b.X), Y: float64(b.Y)}
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", b.X, b.Y, b.Width, b.Height)
}

// Largest returns the index of the box with the largest area, the earliest
// one on ties. It returns -1 for an empty slice.
func Largest(boxes []Box) int {
	best := -1
	bestArea := -1
	for i, b := range boxes {
		if a := b.Area(); a > bestArea {
			best, bestArea = i, a
		}
	}
	return best
}
