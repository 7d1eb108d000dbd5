// Package fatigue implements the baseline-then-monitoring decision logic
// over the median frequency of successive windows. All mutable session
// state lives in one Session object with a single entry point; callers that
// must never influence the decision (viewer clears, telemetry) simply never
// hold a reference to it.
package fatigue

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/care/myo/internal/types"
)

// Config holds the decision parameters
type Config struct {
	// BaselineWindows is the number of windows averaged into the reference
	BaselineWindows int
	// DropThreshold is the relative decline that qualifies a window, e.g. 0.15
	DropThreshold float64
	// ConsecutiveDeclines is the streak length that confirms fatigue
	ConsecutiveDeclines int
}

// Validate checks the decision parameters
func (c Config) Validate() error {
	if c.BaselineWindows < 1 {
		return fmt.Errorf("fatigue: baseline windows must be at least 1, got %d", c.BaselineWindows)
	}
	if c.DropThreshold <= 0 || c.DropThreshold >= 1 {
		return fmt.Errorf("fatigue: drop threshold must be in (0, 1), got %v", c.DropThreshold)
	}
	if c.ConsecutiveDeclines < 1 {
		return fmt.Errorf("fatigue: consecutive declines must be at least 1, got %d", c.ConsecutiveDeclines)
	}
	return nil
}

// Update is the outcome of observing one window's median frequency
type Update struct {
	// Window is the 1-based number of the observed window
	Window uint64
	// Phase is the session phase after processing the window
	Phase types.Phase
	// Reference is the baseline median frequency, 0 until established
	Reference float64
	// Drop is (reference - median) / reference; valid only when HasDrop is set
	Drop    float64
	HasDrop bool
	// Streak is the current consecutive-decline count
	Streak int
	// Fatigued reports the sticky declared flag
	Fatigued bool
	// BaselineCount is the 1-based position of this window within the
	// current baseline accumulation; 0 outside the Baseline phase.
	// Restarts reset the count, so it is the progress to report, not
	// the window number.
	BaselineCount int
	// Events lists the transitions this window produced, in emission order
	Events []types.Event
}

// Session tracks one continuous monitoring session. Not safe for concurrent
// use; the processing cycle owns it.
type Session struct {
	cfg Config

	window    uint64
	medians   []float64
	reference float64
	streak    int
	fatigued  bool
}

// NewSession creates a session in the Baseline phase
func NewSession(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		cfg:     cfg,
		medians: make([]float64, 0, cfg.BaselineWindows),
	}, nil
}

// Observe feeds one window's median frequency through the state machine and
// returns what happened. This is the session's only entry point.
func (s *Session) Observe(median float64) Update {
	s.window++
	u := Update{
		Window:    s.window,
		Reference: s.reference,
	}

	if s.reference <= 0 {
		s.observeBaseline(median, &u)
	} else {
		s.observeMonitoring(median, &u)
	}

	u.Phase = s.phase()
	u.Streak = s.streak
	u.Fatigued = s.fatigued
	return u
}

func (s *Session) observeBaseline(median float64, u *Update) {
	s.medians = append(s.medians, median)
	u.BaselineCount = len(s.medians)
	u.Events = append(u.Events, types.Event{
		Kind:   types.EventBaselineProgress,
		Window: u.Window,
		Value:  median,
	})

	if len(s.medians) < s.cfg.BaselineWindows {
		return
	}

	ref := stat.Mean(s.medians, nil)
	if ref <= 0 {
		// A degenerate (all-silent) baseline must never become a divisor;
		// accumulate a fresh baseline instead. BaselineCount keeps the
		// position this window held before the discard.
		s.medians = s.medians[:0]
		u.Events = append(u.Events, types.Event{
			Kind:   types.EventBaselineRestarted,
			Window: u.Window,
			Value:  ref,
		})
		return
	}

	s.reference = ref
	u.Reference = ref
	u.Events = append(u.Events, types.Event{
		Kind:   types.EventReferenceEstablished,
		Window: u.Window,
		Value:  ref,
	})
}

func (s *Session) observeMonitoring(median float64, u *Update) {
	drop := (s.reference - median) / s.reference
	u.Drop = drop
	u.HasDrop = true

	if drop <= s.cfg.DropThreshold {
		// Full reset: one recovering window cancels the streak, but a
		// declared fatigue stays declared.
		s.streak = 0
		return
	}

	s.streak++
	if s.fatigued {
		return
	}

	if s.streak == 1 {
		u.Events = append(u.Events, types.Event{
			Kind:   types.EventDeclineDetected,
			Window: u.Window,
			Value:  drop,
		})
	}
	if s.streak >= s.cfg.ConsecutiveDeclines {
		s.fatigued = true
		u.Events = append(u.Events, types.Event{
			Kind:   types.EventFatigueConfirmed,
			Window: u.Window,
			Value:  drop,
		})
	}
}

func (s *Session) phase() types.Phase {
	if s.reference > 0 {
		return types.PhaseMonitoring
	}
	return types.PhaseBaseline
}

// Status is a read-only snapshot of the session for health reporting
type Status struct {
	Window    uint64      `json:"window"`
	Phase     types.Phase `json:"phase"`
	Reference float64     `json:"reference_hz"`
	Streak    int         `json:"streak"`
	Fatigued  bool        `json:"fatigued"`
}

// Snapshot returns the current session state
func (s *Session) Snapshot() Status {
	return Status{
		Window:    s.window,
		Phase:     s.phase(),
		Reference: s.reference,
		Streak:    s.streak,
		Fatigued:  s.fatigued,
	}
}
