package tracker

import "facetrack/pkg/geometry"

// Event is the per-frame output of a session, consumed by render sinks,
// reports and logs.
type Event struct {
	Frame uint64 // 1-based index of the processed frame
	Kind  EventKind
	State State // State after the transition

	// Box is the acquired face (EventAcquired) or matched location
	// (EventMatched). HasBox is false otherwise.
	Box    geometry.Box
	HasBox bool

	// Score is the best correlation of a match attempt; meaningful when
	// Attempted is true, including for misses.
	Score     float64
	Attempted bool

	Misses int            // Miss counter after this frame
	Faces  []geometry.Box // Raw detector output in DETECT
}

// Label returns the short state label shown on annotated frames.
func (e Event) Label() string {
	return e.State.String()
}
