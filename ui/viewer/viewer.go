// Package viewer provides a fyne window that displays annotated frames and
// forwards ESC and r/R to the tracking loop.
package viewer

import (
	"image"
	"sync"
	"time"

	"facetrack/internal/app"
	"facetrack/internal/render"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Viewer is a render.Sink backed by a fyne window. fyne must own the main
// goroutine, so the tracking loop runs inside Run.
type Viewer struct {
	app    fyne.App
	win    fyne.Window
	image  *canvas.Image
	status *widget.Label

	keys      chan render.Key
	closed    chan struct{}
	closeOnce sync.Once
}

// New creates the application and its window.
func New(title string) *Viewer {
	a := fyneapp.New()
	a.Settings().SetTheme(&app.ViewerTheme{})
	return NewWithApp(a, title)
}

// NewWithApp builds the viewer window on an existing fyne app.
func NewWithApp(a fyne.App, title string) *Viewer {
	v := &Viewer{
		app:    a,
		win:    a.NewWindow(title),
		keys:   make(chan render.Key, 4),
		closed: make(chan struct{}),
	}

	v.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 640, 480)))
	v.image.FillMode = canvas.ImageFillContain
	v.image.SetMinSize(fyne.NewSize(640, 480))
	v.status = widget.NewLabel("Waiting for frames")

	v.win.SetContent(container.NewBorder(nil, container.NewPadded(v.status), nil, nil, v.image))
	v.win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			v.send(render.KeyQuit)
		}
	})
	v.win.Canvas().SetOnTypedRune(func(r rune) {
		v.send(render.KeyFromCode(int(r)))
	})
	v.win.SetOnClosed(v.markClosed)
	return v
}

func (v *Viewer) send(k render.Key) {
	if k == render.KeyNone {
		return
	}
	select {
	case v.keys <- k:
	default:
	}
}

func (v *Viewer) markClosed() {
	v.closeOnce.Do(func() { close(v.closed) })
}

// Run shows the window and runs loop on a separate goroutine. It returns
// loop's error once both the loop and the window are done.
func (v *Viewer) Run(loop func() error) error {
	errc := make(chan error, 1)
	go func() {
		errc <- loop()
		v.app.Quit()
	}()
	v.win.ShowAndRun()
	v.markClosed()
	return <-errc
}

// SetStatus updates the status line under the frame.
func (v *Viewer) SetStatus(text string) {
	v.status.SetText(text)
}

// Show replaces the displayed frame and waits up to wait for a key.
func (v *Viewer) Show(img image.Image, wait time.Duration) (render.Key, error) {
	select {
	case <-v.closed:
		return render.KeyQuit, nil
	default:
	}

	v.image.Image = img
	v.image.Refresh()

	if wait <= 0 {
		select {
		case k := <-v.keys:
			return k, nil
		default:
			return render.KeyNone, nil
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case k := <-v.keys:
		return k, nil
	case <-v.closed:
		return render.KeyQuit, nil
	case <-timer.C:
		return render.KeyNone, nil
	}
}

// Close quits the application.
func (v *Viewer) Close() error {
	v.markClosed()
	v.app.Quit()
	return nil
}
