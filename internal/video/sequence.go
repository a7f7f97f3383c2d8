package video

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"facetrack/internal/frame"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// Sequence plays the images of a directory in lexical filename order.
type Sequence struct {
	files []string
	next  int
	fps   float64
}

// OpenSequence lists the images in dir.
func OpenSequence(dir string, fps float64) (*Sequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s", dir)
	}
	sort.Strings(files)
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Sequence{files: files, fps: fps}, nil
}

// Read decodes the next image.
func (s *Sequence) Read() (image.Image, error) {
	if s.next >= len(s.files) {
		return nil, io.EOF
	}
	path := s.files[s.next]
	s.next++
	return frame.Load(path)
}

// Files returns the frame paths in playback order.
func (s *Sequence) Files() []string { return s.files }

func (s *Sequence) FPS() float64    { return s.fps }
func (s *Sequence) FrameCount() int { return len(s.files) }

func (s *Sequence) Rewind() error {
	s.next = 0
	return nil
}

func (s *Sequence) Close() error { return nil }
