// Package detect provides the face detectors the tracker runs in DETECT:
// OpenCV Haar cascades through gocv and pigo's pure-Go pixel-intensity
// cascade.
package detect

import (
	"fmt"
	"strings"

	"facetrack/internal/tracker"
)

// Backend names a detector implementation.
type Backend string

const (
	BackendHaar Backend = "haar"
	BackendPigo Backend = "pigo"
)

// ParseBackend parses a backend name, case-insensitively.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendHaar, BackendPigo:
		return b, nil
	case "":
		return BackendHaar, nil
	default:
		return "", fmt.Errorf("unknown detector backend %q (want haar or pigo)", s)
	}
}

// Detector is a tracker.Detector holding native resources.
type Detector interface {
	tracker.Detector
	Close() error
}

// Open loads the cascade at path with the given backend.
func Open(backend Backend, path string) (Detector, error) {
	switch backend {
	case BackendHaar, "":
		c, err := LoadCascade(path)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendPigo:
		p, err := LoadPigo(path)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", backend)
	}
}
