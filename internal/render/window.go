package render

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Window shows frames in an OpenCV highgui window.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a named window.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show displays img and waits up to wait for a key, at least 1 ms so the
// window gets to repaint. A closed window reads as KeyQuit.
func (w *Window) Show(img image.Image, wait time.Duration) (Key, error) {
	if !w.win.IsOpen() {
		return KeyQuit, nil
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return KeyNone, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	w.win.IMShow(mat)
	ms := int(wait / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return KeyFromCode(w.win.WaitKey(ms)), nil
}

func (w *Window) Close() error {
	return w.win.Close()
}
