// Package segment detects stroke boundaries on the filtered pressure channel
// and accumulates stroke windows.
//
// Detection is an explicit two-state machine with hysteresis and debounce:
// two thresholds (rise above fall) prevent chatter around a single level,
// and the fall transition requires the pressure to stay below the fall
// threshold for a configured run of consecutive samples so that single-sample
// dropouts cannot truncate a stroke.
package segment

import (
	"fmt"

	"github.com/penovate/penstream/internal/pen"
)

// State is the segmenter FSM state.
type State int

const (
	// StateIdle means no stroke is in progress; the pen is up.
	StateIdle State = iota
	// StateInStroke means a pressure rise has been seen and frames are
	// accumulating into the current window.
	StateInStroke
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInStroke:
		return "in_stroke"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds the segmentation thresholds. All values are required except
// LookbackSamples, which may be zero.
type Config struct {
	// RiseThreshold starts a stroke when pressure reaches or exceeds it.
	RiseThreshold float64
	// FallThreshold ends a stroke when pressure stays below it; must be
	// at or below RiseThreshold to provide hysteresis.
	FallThreshold float64
	// FallDebounceSamples is the run of consecutive below-fall samples
	// required to end a stroke.
	FallDebounceSamples int
	// MinStrokeSamples discards finalized windows shorter than this as
	// contact noise (taps). Reported, not an error.
	MinStrokeSamples int
	// LookbackSamples is how many pre-trigger frames are prepended to a
	// new window so the stroke onset is not clipped.
	LookbackSamples int
}

// Validate checks threshold ordering and sample counts.
func (c Config) Validate() error {
	if c.FallThreshold > c.RiseThreshold {
		return fmt.Errorf("segment: fall threshold %g must not exceed rise threshold %g",
			c.FallThreshold, c.RiseThreshold)
	}
	if c.FallDebounceSamples < 1 {
		return fmt.Errorf("segment: fall debounce must be at least 1 sample, got %d", c.FallDebounceSamples)
	}
	if c.MinStrokeSamples < 1 {
		return fmt.Errorf("segment: min stroke length must be at least 1 sample, got %d", c.MinStrokeSamples)
	}
	if c.LookbackSamples < 0 {
		return fmt.Errorf("segment: lookback must not be negative, got %d", c.LookbackSamples)
	}
	return nil
}

// Segmenter consumes preprocessed frames and emits complete stroke windows.
// It holds at most one in-progress window; strokes never overlap because a
// new stroke can only begin from the idle state.
type Segmenter struct {
	cfg Config

	state      State
	lookback   []pen.Frame
	window     []pen.Frame
	belowCount int
}

// New returns a Segmenter in the idle state.
func New(cfg Config) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{cfg: cfg}, nil
}

// State returns the current FSM state.
func (s *Segmenter) State() State { return s.state }

// Feed consumes one frame, using its pressure channel to drive the FSM.
//
// When a stroke completes, the finalized window is returned. If the
// completed stroke was shorter than MinStrokeSamples it is discarded and
// skipped reports true instead. Both results are nil/false while a stroke
// is idle or still accumulating.
func (s *Segmenter) Feed(fr pen.Frame) (window *pen.StrokeWindow, skipped bool) {
	pressure := fr.Values[pen.ChanPressure]

	switch s.state {
	case StateIdle:
		if pressure >= s.cfg.RiseThreshold {
			// Pre-trigger lookback plus the triggering frame open the window.
			s.window = make([]pen.Frame, 0, len(s.lookback)+1)
			s.window = append(s.window, s.lookback...)
			s.window = append(s.window, fr)
			s.lookback = s.lookback[:0]
			s.belowCount = 0
			s.state = StateInStroke
			return nil, false
		}
		if s.cfg.LookbackSamples > 0 {
			if len(s.lookback) == s.cfg.LookbackSamples {
				copy(s.lookback, s.lookback[1:])
				s.lookback = s.lookback[:len(s.lookback)-1]
			}
			s.lookback = append(s.lookback, fr)
		}
		return nil, false

	case StateInStroke:
		// Every frame while in-stroke joins the window, including the
		// below-threshold debounce tail.
		s.window = append(s.window, fr)

		if pressure < s.cfg.FallThreshold {
			s.belowCount++
			if s.belowCount >= s.cfg.FallDebounceSamples {
				return s.finalize()
			}
		} else {
			s.belowCount = 0
		}
		return nil, false
	}
	return nil, false
}

// finalize closes the in-progress window and returns to idle.
func (s *Segmenter) finalize() (*pen.StrokeWindow, bool) {
	w := s.window
	s.window = nil
	s.belowCount = 0
	s.state = StateIdle

	if len(w) < s.cfg.MinStrokeSamples {
		return nil, true
	}
	return &pen.StrokeWindow{Frames: w}, false
}

// Flush discards any in-progress window and returns to idle. It reports
// whether a partial stroke was dropped. Used on clean stop: a partial window
// must never be emitted as if it were a complete stroke.
func (s *Segmenter) Flush() (discarded bool) {
	discarded = s.state == StateInStroke && len(s.window) > 0
	s.window = nil
	s.lookback = s.lookback[:0]
	s.belowCount = 0
	s.state = StateIdle
	return discarded
}
