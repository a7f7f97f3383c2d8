package detect

import (
	"fmt"
	"image"
	"os"
	"sort"

	"facetrack/internal/frame"
	"facetrack/internal/tracker"
	"facetrack/pkg/geometry"

	pigo "github.com/esimov/pigo/core"
)

const (
	// DefaultPigoQuality is the minimum cluster score kept.
	DefaultPigoQuality = 5.0

	pigoShiftFactor = 0.1
	pigoIoU         = 0.2
)

// Pigo runs pigo's facefinder cascade. It needs no OpenCV.
type Pigo struct {
	classifier *pigo.Pigo
	quality    float32
}

// LoadPigo reads and unpacks a pigo facefinder cascade file.
func LoadPigo(path string) (*Pigo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the facefinder cascade file: %w", err)
	}
	return NewPigo(data)
}

// NewPigo unpacks a cascade already in memory.
func NewPigo(data []byte) (*Pigo, error) {
	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the facefinder cascade file: %w", err)
	}
	return &Pigo{classifier: classifier, quality: DefaultPigoQuality}, nil
}

// SetQuality changes the minimum detection score.
func (d *Pigo) SetQuality(q float32) { d.quality = q }

// Detect runs the cascade over all scales and clusters overlapping hits.
// pigo has no neighbor count; MinNeighbors is ignored and the quality
// threshold plays its role. Boxes are ordered by descending score.
func (d *Pigo) Detect(gray *image.Gray, p tracker.DetectParams) ([]geometry.Box, error) {
	g := frame.Compact(gray)
	b := g.Bounds()

	maxSize := b.Dx()
	if b.Dy() > maxSize {
		maxSize = b.Dy()
	}
	params := pigo.CascadeParams{
		MinSize:     p.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: pigoShiftFactor,
		ScaleFactor: p.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: g.Pix,
			Rows:   b.Dy(),
			Cols:   b.Dx(),
			Dim:    b.Dx(),
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, pigoIoU)
	return boxesFromDetections(dets, d.quality), nil
}

// Close is a no-op; pigo holds no native resources.
func (d *Pigo) Close() error { return nil }

// boxesFromDetections converts pigo's center/scale detections into boxes.
func boxesFromDetections(dets []pigo.Detection, quality float32) []geometry.Box {
	kept := make([]pigo.Detection, 0, len(dets))
	for _, det := range dets {
		if det.Q >= quality && det.Scale > 0 {
			kept = append(kept, det)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Q > kept[j].Q })

	boxes := make([]geometry.Box, len(kept))
	for i, det := range kept {
		half := det.Scale / 2
		boxes[i] = geometry.NewBox(det.Col-half, det.Row-half, det.Scale, det.Scale)
	}
	return boxes
}
