package fatigue

import (
	"testing"

	"github.com/care/myo/internal/types"
)

func mustSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func hasEvent(u Update, kind types.EventKind) bool {
	for _, e := range u.Events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// TestConfigValidation verifies parameter validation.
func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero baseline", Config{0, 0.15, 3}},
		{"zero threshold", Config{5, 0, 3}},
		{"threshold at one", Config{5, 1.0, 3}},
		{"negative threshold", Config{5, -0.1, 3}},
		{"zero consecutive", Config{5, 0.15, 0}},
	}
	for _, tc := range cases {
		if _, err := NewSession(tc.cfg); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

// TestBaselineTransition verifies the reference is the mean of the first B
// medians and is established exactly on window B.
func TestBaselineTransition(t *testing.T) {
	s := mustSession(t, Config{BaselineWindows: 5, DropThreshold: 0.15, ConsecutiveDeclines: 3})

	medians := []float64{100, 102, 98, 101, 99}
	for i, m := range medians {
		u := s.Observe(m)

		if u.Window != uint64(i+1) {
			t.Fatalf("Window %d: expected seq %d, got %d", i+1, i+1, u.Window)
		}
		if !hasEvent(u, types.EventBaselineProgress) {
			t.Errorf("Window %d: expected baseline progress event", i+1)
		}
		if u.HasDrop {
			t.Errorf("Window %d: no drop should be computed during baseline", i+1)
		}
		if u.BaselineCount != i+1 {
			t.Errorf("Window %d: expected baseline count %d, got %d", i+1, i+1, u.BaselineCount)
		}

		if i < 4 {
			if u.Phase != types.PhaseBaseline {
				t.Errorf("Window %d: expected baseline phase, got %s", i+1, u.Phase)
			}
			if hasEvent(u, types.EventReferenceEstablished) {
				t.Errorf("Window %d: reference established too early", i+1)
			}
			continue
		}

		// Window 5: established with the exact mean
		if u.Phase != types.PhaseMonitoring {
			t.Errorf("Window 5: expected monitoring phase, got %s", u.Phase)
		}
		if !hasEvent(u, types.EventReferenceEstablished) {
			t.Error("Window 5: expected reference established event")
		}
		if u.Reference != 100.0 {
			t.Errorf("Window 5: expected reference 100.0, got %v", u.Reference)
		}
	}
}

// TestDeclineAndFatigueSequence verifies the decline notification on the
// first qualifying window and fatigue exactly on the third.
func TestDeclineAndFatigueSequence(t *testing.T) {
	s := mustSession(t, Config{BaselineWindows: 1, DropThreshold: 0.15, ConsecutiveDeclines: 3})

	if u := s.Observe(100); !hasEvent(u, types.EventReferenceEstablished) {
		t.Fatal("Reference should be established after one baseline window")
	}

	// drop = 0.20 on every window
	u1 := s.Observe(80)
	if !hasEvent(u1, types.EventDeclineDetected) {
		t.Error("Window 1 of streak: expected decline detected")
	}
	if hasEvent(u1, types.EventFatigueConfirmed) || u1.Fatigued {
		t.Error("Window 1 of streak: fatigue declared too early")
	}
	if u1.Drop != 0.2 {
		t.Errorf("Expected drop 0.2, got %v", u1.Drop)
	}

	u2 := s.Observe(80)
	if hasEvent(u2, types.EventDeclineDetected) {
		t.Error("Window 2 of streak: decline must be notified only once per streak")
	}
	if hasEvent(u2, types.EventFatigueConfirmed) || u2.Fatigued {
		t.Error("Window 2 of streak: fatigue declared too early")
	}

	u3 := s.Observe(80)
	if !hasEvent(u3, types.EventFatigueConfirmed) {
		t.Error("Window 3 of streak: expected fatigue confirmed")
	}
	if !u3.Fatigued {
		t.Error("Window 3 of streak: expected fatigued flag set")
	}
}

// TestRecoveryResetsStreak verifies a single recovering window forces the
// full sequence to start over.
func TestRecoveryResetsStreak(t *testing.T) {
	s := mustSession(t, Config{BaselineWindows: 1, DropThreshold: 0.15, ConsecutiveDeclines: 3})
	s.Observe(100)

	medians := []float64{80, 80, 90, 80, 80, 80}
	var fatigueWindow int
	for i, m := range medians {
		u := s.Observe(m)
		if hasEvent(u, types.EventFatigueConfirmed) {
			fatigueWindow = i + 1
		}
	}

	// 90 recovers (drop 0.10), so fatigue lands on the 6th monitoring window
	if fatigueWindow != 6 {
		t.Errorf("Expected fatigue on monitoring window 6, got %d", fatigueWindow)
	}
}

// TestDeclinePerStreak verifies each new streak announces itself once.
func TestDeclinePerStreak(t *testing.T) {
	s := mustSession(t, Config{BaselineWindows: 1, DropThreshold: 0.15, ConsecutiveDeclines: 5})
	s.Observe(100)

	declines := 0
	for _, m := range []float64{80, 80, 95, 80, 80} {
		if hasEvent(s.Observe(m), types.EventDeclineDetected) {
			declines++
		}
	}
	if declines != 2 {
		t.Errorf("Expected 2 decline notifications (one per streak), got %d", declines)
	}
}

// TestFatigueSticky verifies recovery never clears a declared fatigue and
// later declines stay silent.
func TestFatigueSticky(t *testing.T) {
	s := mustSession(t, Config{BaselineWindows: 1, DropThreshold: 0.15, ConsecutiveDeclines: 2})
	s.Observe(100)
	s.Observe(80)
	u := s.Observe(80)
	if !u.Fatigued {
		t.Fatal("Expected fatigue declared")
	}

	u = s.Observe(100)
	if !u.Fatigued {
		t.Error("Recovery window must not clear declared fatigue")
	}
	if u.Streak != 0 {
		t.Errorf("Recovery window should reset the streak, got %d", u.Streak)
	}

	u = s.Observe(80)
	if len(u.Events) != 0 {
		t.Errorf("Post-fatigue decline should stay silent, got %d events", len(u.Events))
	}
	if !u.Fatigued {
		t.Error("Fatigue flag lost after post-fatigue decline")
	}
}

// TestThresholdBoundary verifies a drop equal to the threshold does not
// qualify.
func TestThresholdBoundary(t *testing.T) {
	s := mustSession(t, Config{BaselineWindows: 1, DropThreshold: 0.15, ConsecutiveDeclines: 1})
	s.Observe(100)

	u := s.Observe(85) // drop == 0.15 exactly
	if u.Drop != 0.15 {
		t.Fatalf("Expected drop 0.15, got %v", u.Drop)
	}
	if hasEvent(u, types.EventDeclineDetected) || u.Fatigued {
		t.Error("Drop equal to the threshold must not qualify")
	}

	u = s.Observe(84.9)
	if !u.Fatigued {
		t.Error("Drop above the threshold should qualify")
	}
}

// TestZeroReferenceRestartsBaseline verifies a degenerate baseline never
// becomes a divisor and accumulation starts over.
func TestZeroReferenceRestartsBaseline(t *testing.T) {
	s := mustSession(t, Config{BaselineWindows: 2, DropThreshold: 0.15, ConsecutiveDeclines: 3})

	s.Observe(0)
	u := s.Observe(0)
	if !hasEvent(u, types.EventBaselineRestarted) {
		t.Error("Expected baseline restarted on a zero mean")
	}
	if u.Phase != types.PhaseBaseline {
		t.Errorf("Expected baseline phase after restart, got %s", u.Phase)
	}
	if u.HasDrop {
		t.Error("No drop may be computed without a reference")
	}
	if u.BaselineCount != 2 {
		t.Errorf("Expected baseline count 2 on the restart window, got %d", u.BaselineCount)
	}

	u = s.Observe(50)
	if u.BaselineCount != 1 {
		t.Errorf("Expected baseline count 1 after restart, got %d", u.BaselineCount)
	}
	u = s.Observe(60)
	if !hasEvent(u, types.EventReferenceEstablished) {
		t.Error("Expected reference established after a fresh baseline")
	}
	if u.Reference != 55 {
		t.Errorf("Expected reference 55, got %v", u.Reference)
	}
}

// TestSnapshot verifies the health view tracks the session.
func TestSnapshot(t *testing.T) {
	s := mustSession(t, Config{BaselineWindows: 1, DropThreshold: 0.15, ConsecutiveDeclines: 3})

	st := s.Snapshot()
	if st.Window != 0 || st.Phase != types.PhaseBaseline || st.Fatigued {
		t.Errorf("Unexpected initial snapshot: %+v", st)
	}

	s.Observe(100)
	s.Observe(80)
	st = s.Snapshot()
	if st.Window != 2 {
		t.Errorf("Expected window 2, got %d", st.Window)
	}
	if st.Phase != types.PhaseMonitoring {
		t.Errorf("Expected monitoring phase, got %s", st.Phase)
	}
	if st.Reference != 100 {
		t.Errorf("Expected reference 100, got %v", st.Reference)
	}
	if st.Streak != 1 {
		t.Errorf("Expected streak 1, got %d", st.Streak)
	}
}
