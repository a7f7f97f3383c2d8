package tracker

import "fmt"

// Selection chooses one face when the detector returns several.
type Selection string

const (
	// SelectFirst keeps the detector's first box; its ordering is detector-defined.
	SelectFirst Selection = "first"
	// SelectLargest picks the largest-area box, the earliest on ties.
	SelectLargest Selection = "largest"
)

// DetectParams are the fixed cascade parameters used in DETECT.
type DetectParams struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int // Minimum face side in pixels
}

// Config holds session parameters.
type Config struct {
	MissLimit int
	Detect    DetectParams
	Selection Selection
}

// DefaultConfig returns the stock tracker configuration.
func DefaultConfig() Config {
	return Config{
		MissLimit: 5,
		Detect: DetectParams{
			ScaleFactor:  1.1,
			MinNeighbors: 4,
			MinSize:      60,
		},
		Selection: SelectFirst,
	}
}

// Validate checks the configuration for values the state machine cannot run with.
func (c Config) Validate() error {
	if c.MissLimit < 1 {
		return fmt.Errorf("miss limit must be at least 1, got %d", c.MissLimit)
	}
	if c.Detect.ScaleFactor <= 1 {
		return fmt.Errorf("detector scale factor must be > 1, got %g", c.Detect.ScaleFactor)
	}
	if c.Detect.MinNeighbors < 0 {
		return fmt.Errorf("detector min neighbors must be >= 0, got %d", c.Detect.MinNeighbors)
	}
	if c.Detect.MinSize < 0 {
		return fmt.Errorf("detector min size must be >= 0, got %d", c.Detect.MinSize)
	}
	switch c.Selection {
	case SelectFirst, SelectLargest:
	default:
		return fmt.Errorf("unknown face selection %q", c.Selection)
	}
	return nil
}
