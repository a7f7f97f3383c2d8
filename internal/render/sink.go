package render

import (
	"errors"
	"image"
	"time"
)

// Key is a user command read from a display sink.
type Key int

const (
	KeyNone Key = iota
	KeyQuit
	KeyRewind
)

const keyEscape = 27

// KeyFromCode maps a raw key code: ESC quits, r or R rewinds.
func KeyFromCode(code int) Key {
	switch code {
	case keyEscape:
		return KeyQuit
	case 'r', 'R':
		return KeyRewind
	default:
		return KeyNone
	}
}

// Sink consumes annotated frames. Show may block up to wait for input and
// returns the key pressed, if any.
type Sink interface {
	Show(img image.Image, wait time.Duration) (Key, error)
	Close() error
}

// Multi fans frames out to several sinks. Only the first sink waits; the
// first key reported wins.
type Multi []Sink

func (m Multi) Show(img image.Image, wait time.Duration) (Key, error) {
	key := KeyNone
	var errs []error
	for i, s := range m {
		w := wait
		if i > 0 {
			w = 0
		}
		k, err := s.Show(img, w)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if key == KeyNone {
			key = k
		}
	}
	return key, errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
