// Package render draws tracking results onto frames and sends them to
// display and recording sinks.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"facetrack/internal/tracker"
	"facetrack/pkg/colorutil"
	"facetrack/pkg/geometry"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	boxThickness = 2
	textMargin   = 10
	lineHeight   = 18
)

var face = basicfont.Face7x13

// Annotate returns a copy of img with the event drawn on it. Raw detections
// get a thin outline and the tracked box a captioned one. img is not modified.
func Annotate(img image.Image, ev tracker.Event) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	for _, f := range ev.Faces {
		drawBox(out, f, colorutil.Yellow, 1)
	}

	switch ev.Kind {
	case tracker.EventAcquired:
		drawBox(out, ev.Box, colorutil.Magenta, boxThickness)
		drawCaption(out, "Template init", ev.Box, colorutil.Magenta)
	case tracker.EventMatched:
		drawBox(out, ev.Box, colorutil.Green, boxThickness)
		drawCaption(out, fmt.Sprintf("match %.2f", ev.Score), ev.Box, colorutil.Green)
	case tracker.EventMissed, tracker.EventLost:
		drawText(out, fmt.Sprintf("no match (%.2f)", ev.Score), textMargin, textMargin+2*lineHeight, colorutil.Red)
	}

	label := ev.Label()
	if ev.State == tracker.StateTrack && ev.Misses > 0 {
		label = fmt.Sprintf("%s  misses %d", label, ev.Misses)
	}
	drawText(out, label, textMargin, textMargin+lineHeight, colorutil.White)
	return out
}

// drawBox draws a rectangle outline clipped to the image.
func drawBox(dst *image.RGBA, box geometry.Box, col color.RGBA, thickness int) {
	if box.Empty() {
		return
	}
	x1, y1 := box.X, box.Y
	x2, y2 := box.X+box.Width-1, box.Y+box.Height-1
	for t := 0; t < thickness; t++ {
		hline(dst, x1, x2, y1+t, col)
		hline(dst, x1, x2, y2-t, col)
		vline(dst, x1+t, y1, y2, col)
		vline(dst, x2-t, y1, y2, col)
	}
}

func hline(dst *image.RGBA, x1, x2, y int, col color.RGBA) {
	for x := x1; x <= x2; x++ {
		setIn(dst, x, y, col)
	}
}

func vline(dst *image.RGBA, x, y1, y2 int, col color.RGBA) {
	for y := y1; y <= y2; y++ {
		setIn(dst, x, y, col)
	}
}

func setIn(dst *image.RGBA, x, y int, col color.RGBA) {
	if image.Pt(x, y).In(dst.Bounds()) {
		dst.SetRGBA(x, y, col)
	}
}

// drawCaption places text just above box, or inside its top edge when the
// box touches the top of the frame.
func drawCaption(dst *image.RGBA, text string, box geometry.Box, col color.RGBA) {
	y := box.Y - 4
	if y < lineHeight {
		y = box.Y + lineHeight
	}
	x := box.X
	if x < 0 {
		x = 0
	}
	drawText(dst, text, x, y, col)
}

// drawText renders text with its baseline at (x, y) over a dimmed backdrop.
func drawText(dst *image.RGBA, text string, x, y int, col color.RGBA) {
	w := font.MeasureString(face, text).Ceil()
	m := face.Metrics()
	backdrop := image.Rect(x-2, y-m.Ascent.Ceil()-1, x+w+2, y+m.Descent.Ceil()+1).Intersect(dst.Bounds())
	for py := backdrop.Min.Y; py < backdrop.Max.Y; py++ {
		for px := backdrop.Min.X; px < backdrop.Max.X; px++ {
			dst.SetRGBA(px, py, colorutil.Scale(dst.RGBAAt(px, py), 0.4))
		}
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
