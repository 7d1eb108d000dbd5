package types

import (
	"encoding/json"
	"time"
)

// Phase identifies the stage of a fatigue session
type Phase string

const (
	// PhaseBaseline is the reference acquisition stage
	PhaseBaseline Phase = "baseline"
	// PhaseMonitoring is the decline tracking stage
	PhaseMonitoring Phase = "monitoring"
)

// EventKind identifies a fatigue session transition
type EventKind string

const (
	// EventBaselineProgress fires once per baseline window
	EventBaselineProgress EventKind = "baseline_progress"
	// EventBaselineRestarted fires when a degenerate reference forces a new baseline
	EventBaselineRestarted EventKind = "baseline_restarted"
	// EventReferenceEstablished fires when the reference frequency is fixed
	EventReferenceEstablished EventKind = "reference_established"
	// EventDeclineDetected fires on the first window of a decline streak
	EventDeclineDetected EventKind = "decline_detected"
	// EventFatigueConfirmed fires once when the decline streak reaches the
	// configured length
	EventFatigueConfirmed EventKind = "fatigue_confirmed"
)

// Event is a single fatigue session transition tied to the window that
// produced it
type Event struct {
	Kind   EventKind `json:"kind"`
	Window uint64    `json:"window"`
	// Value carries the kind-specific quantity: the median frequency for
	// baseline progress, the reference frequency once established, the
	// drop ratio for decline and fatigue events
	Value float64 `json:"value"`
}

// WindowResult is the complete outcome of one capture cycle
type WindowResult struct {
	Window    uint64     `json:"window"`
	TraceID   string     `json:"trace_id"`
	Timestamp time.Time  `json:"timestamp"`
	Features  FeatureSet `json:"features"`
	Phase     Phase      `json:"phase"`
	// Reference is the baseline median frequency, 0 until established
	Reference float64 `json:"reference_hz,omitempty"`
	// Drop is (reference - median) / reference; valid only when HasDrop is set
	Drop    float64 `json:"drop"`
	HasDrop bool    `json:"has_drop"`
	// Fatigued is sticky for the rest of the session once set
	Fatigued bool    `json:"fatigued"`
	Events   []Event `json:"events,omitempty"`
	// Spectrum is distributed in-process only, never serialized
	Spectrum *SpectralFrame `json:"-"`
}

// ToJSON converts the result to JSON bytes
func (r *WindowResult) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
