package tracker

import (
	"errors"
	"fmt"
	"image"

	"facetrack/internal/frame"
	"facetrack/internal/template"
	"facetrack/pkg/geometry"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Detector finds candidate faces in a preprocessed grayscale frame.
type Detector interface {
	Detect(gray *image.Gray, p DetectParams) ([]geometry.Box, error)
}

// Templates is the template store the session drives: *template.Manager in
// production, stubs in tests.
type Templates interface {
	Build(gray *image.Gray, box geometry.Box) error
	Match(gray *image.Gray) (template.Result, error)
	Have() bool
	Discard()
}

// Session tracks a single face across the frames of one stream. It is not
// safe for concurrent use.
type Session struct {
	ID string

	cfg       Config
	pre       frame.Preprocessor
	detector  Detector
	templates Templates
	log       *logrus.Entry

	state  State
	misses int
	frames uint64
}

// NewSession creates a session in DETECT with no template.
func NewSession(cfg Config, detector Detector, templates Templates, log logrus.FieldLogger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if detector == nil || templates == nil {
		return nil, errors.New("tracker session needs a detector and a template store")
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	id := uuid.NewString()
	return &Session{
		ID:        id,
		cfg:       cfg,
		pre:       frame.Software,
		detector:  detector,
		templates: templates,
		log:       log.WithField("session", id),
		state:     StateDetect,
	}, nil
}

// State returns the current tracking state.
func (s *Session) State() State { return s.state }

// Misses returns the miss counter. It keeps its final value after a loss
// until the next acquisition resets it.
func (s *Session) Misses() int { return s.misses }

// Frames returns the number of frames stepped so far.
func (s *Session) Frames() uint64 { return s.frames }

// HaveTemplate reports whether the template store currently holds a template.
func (s *Session) HaveTemplate() bool { return s.templates.Have() }

// SetPreprocessor replaces the frame preprocessor. A nil p restores the
// pure-Go one.
func (s *Session) SetPreprocessor(p frame.Preprocessor) {
	if p == nil {
		p = frame.Software
	}
	s.pre = p
}

// Process preprocesses a color frame and steps the state machine. Invalid
// frames return frame.ErrInvalidInput and leave the session untouched.
func (s *Session) Process(img image.Image) (Event, error) {
	gray, err := s.pre.Preprocess(img)
	if err != nil {
		return Event{}, err
	}
	return s.Step(gray)
}

// Step advances the state machine by one preprocessed frame. An error from
// the detector or the matcher is returned alongside the event; the state
// machine has already applied its policy for that frame.
func (s *Session) Step(gray *image.Gray) (Event, error) {
	s.frames++
	ev := Event{Frame: s.frames}

	var err error
	switch s.state {
	case StateTrack:
		err = s.track(gray, &ev)
	default:
		err = s.detect(gray, &ev)
	}

	ev.State = s.state
	ev.Misses = s.misses
	s.logEvent(ev, err)
	return ev, err
}

func (s *Session) detect(gray *image.Gray, ev *Event) error {
	ev.Kind = EventNoFace

	faces, err := s.detector.Detect(gray, s.cfg.Detect)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	ev.Faces = faces
	if len(faces) == 0 {
		return nil
	}

	box := faces[s.pick(faces)]
	ev.Box = box
	if err := s.templates.Build(gray, box); err != nil {
		if errors.Is(err, template.ErrEmptyRegion) {
			ev.Kind = EventEmptyRegion
			return nil
		}
		return fmt.Errorf("build template: %w", err)
	}

	s.misses = 0
	s.state = StateTrack
	ev.Kind = EventAcquired
	ev.HasBox = true
	return nil
}

func (s *Session) track(gray *image.Gray, ev *Event) error {
	res, err := s.templates.Match(gray)
	if err != nil {
		// A failed correlation counts as a miss so the session can recover.
		res = template.Result{}
		err = fmt.Errorf("match: %w", err)
	}
	ev.Score = res.Score
	ev.Attempted = res.Attempted

	if res.Matched {
		s.misses = 0
		ev.Kind = EventMatched
		ev.Box = res.Box
		ev.HasBox = true
		return err
	}

	s.misses++
	ev.Kind = EventMissed
	if s.misses >= s.cfg.MissLimit {
		s.state = StateDetect
		s.templates.Discard()
		ev.Kind = EventLost
	}
	return err
}

// pick returns the index of the face to acquire.
func (s *Session) pick(faces []geometry.Box) int {
	if s.cfg.Selection == SelectLargest {
		return geometry.Largest(faces)
	}
	return 0
}

func (s *Session) logEvent(ev Event, err error) {
	entry := s.log.WithFields(logrus.Fields{
		"frame":  ev.Frame,
		"state":  ev.State.String(),
		"event":  ev.Kind.String(),
		"misses": ev.Misses,
	})
	if ev.Attempted {
		entry = entry.WithField("score", fmt.Sprintf("%.3f", ev.Score))
	}
	if ev.HasBox {
		entry = entry.WithField("box", ev.Box.String())
	}

	switch {
	case err != nil:
		entry.WithError(err).Warn("frame step failed")
	case ev.Kind.Transition():
		entry.Info("tracking state changed")
	default:
		entry.Debug("frame processed")
	}
}
