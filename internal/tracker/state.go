// Package tracker implements the DETECT/TRACK state machine that locates a
// face with an injected detector and follows it with template matching.
package tracker

// State is the tracking mode of a session.
type State int

const (
	StateDetect State = iota // Searching for a face with the detector
	StateTrack               // Following the template
)

func (s State) String() string {
	switch s {
	case StateDetect:
		return "DETECT"
	case StateTrack:
		return "TRACK"
	default:
		return "UNKNOWN"
	}
}

// EventKind classifies what happened on a frame.
type EventKind int

const (
	EventNoFace      EventKind = iota // DETECT: detector returned nothing
	EventEmptyRegion                  // DETECT: selected box clipped to nothing
	EventAcquired                     // DETECT → TRACK: template built
	EventMatched                      // TRACK: template found above threshold
	EventMissed                       // TRACK: no match, still tracking
	EventLost                         // TRACK → DETECT: miss limit reached
)

func (k EventKind) String() string {
	switch k {
	case EventNoFace:
		return "no-face"
	case EventEmptyRegion:
		return "empty-region"
	case EventAcquired:
		return "acquired"
	case EventMatched:
		return "matched"
	case EventMissed:
		return "missed"
	case EventLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Transition reports whether the event kind changes the session state.
func (k EventKind) Transition() bool {
	return k == EventAcquired || k == EventLost
}
