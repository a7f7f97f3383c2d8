// Package report collects per-frame tracking results and summarizes them
// as statistics and an HTML score timeline.
package report

import (
	"sync"

	"facetrack/internal/app"
	"facetrack/internal/tracker"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Record is one processed frame.
type Record struct {
	Frame     uint64  `json:"frame"`
	State     string  `json:"state"`
	Event     string  `json:"event"`
	Score     float64 `json:"score"`
	Attempted bool    `json:"attempted"`
	Misses    int     `json:"misses"`
}

// Summary aggregates a run.
type Summary struct {
	Frames          int     `json:"frames" yaml:"frames"`
	Skipped         int     `json:"skipped" yaml:"skipped"`
	Acquisitions    int     `json:"acquisitions" yaml:"acquisitions"`
	Losses          int     `json:"losses" yaml:"losses"`
	Matches         int     `json:"matches" yaml:"matches"`
	Misses          int     `json:"misses" yaml:"misses"`
	TrackedFraction float64 `json:"tracked_fraction" yaml:"tracked_fraction"`
	MeanMatchScore  float64 `json:"mean_match_score" yaml:"mean_match_score"`
	StdMatchScore   float64 `json:"std_match_score" yaml:"std_match_score"`
	MinMatchScore   float64 `json:"min_match_score" yaml:"min_match_score"`
}

// Collector accumulates runner events. It is safe to Attach to a runner
// and read from another goroutine.
type Collector struct {
	mu      sync.Mutex
	records []Record
	skipped int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Attach subscribes the collector to a runner's frame and skip events.
func (c *Collector) Attach(bus interface {
	On(app.EventType, app.EventListener)
}) {
	bus.On(app.EventFrame, func(data interface{}) {
		if ev, ok := data.(tracker.Event); ok {
			c.Add(ev)
		}
	})
	bus.On(app.EventSkipped, func(interface{}) {
		c.mu.Lock()
		c.skipped++
		c.mu.Unlock()
	})
}

// Add records one event.
func (c *Collector) Add(ev tracker.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, Record{
		Frame:     ev.Frame,
		State:     ev.State.String(),
		Event:     ev.Kind.String(),
		Score:     ev.Score,
		Attempted: ev.Attempted,
		Misses:    ev.Misses,
	})
}

// Records returns a copy of the collected records.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.records...)
}

// Summary computes aggregate statistics over the collected records.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{Frames: len(c.records), Skipped: c.skipped}
	var matched []float64
	tracked := 0
	for _, r := range c.records {
		switch r.Event {
		case tracker.EventAcquired.String():
			s.Acquisitions++
			tracked++
		case tracker.EventMatched.String():
			s.Matches++
			matched = append(matched, r.Score)
			tracked++
		case tracker.EventMissed.String():
			s.Misses++
		case tracker.EventLost.String():
			// The miss that reaches the limit is still a miss.
			s.Losses++
			s.Misses++
		}
	}
	if s.Frames > 0 {
		s.TrackedFraction = float64(tracked) / float64(s.Frames)
	}
	if len(matched) > 0 {
		s.MeanMatchScore, s.StdMatchScore = stat.MeanStdDev(matched, nil)
		s.MinMatchScore = floats.Min(matched)
	}
	return s
}
