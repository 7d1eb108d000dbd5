// Package metrics exposes the Prometheus collectors for the daemon. All
// collectors are registered at import via promauto and served on the
// health endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SamplesCaptured counts samples appended to the ring
	SamplesCaptured = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "myo_samples_captured_total",
			Help: "Total number of samples captured from the signal source",
		},
	)

	// CaptureErrors counts failed sampler reads
	CaptureErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "myo_capture_errors_total",
			Help: "Total number of sampler read errors",
		},
	)

	// WindowsProcessed counts completed processing cycles
	WindowsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "myo_windows_processed_total",
			Help: "Total number of analysis windows processed",
		},
	)

	// TriggersDropped counts triggers rejected while a cycle was pending
	TriggersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "myo_triggers_dropped_total",
			Help: "Total number of cycle triggers dropped",
		},
	)

	// CycleDuration tracks full-cycle latency including paced emission
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "myo_cycle_duration_seconds",
			Help:    "Processing cycle duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// RMS is the latest window's RMS amplitude
	RMS = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "myo_rms",
			Help: "RMS amplitude of the latest window",
		},
	)

	// MeanFrequency is the latest window's spectral mean frequency
	MeanFrequency = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "myo_mean_frequency_hz",
			Help: "Mean frequency of the latest window in Hz",
		},
	)

	// MedianFrequency is the latest window's spectral median frequency
	MedianFrequency = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "myo_median_frequency_hz",
			Help: "Median frequency of the latest window in Hz",
		},
	)

	// ReferenceFrequency is the established baseline reference, 0 until set
	ReferenceFrequency = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "myo_reference_frequency_hz",
			Help: "Baseline reference median frequency in Hz (0 while accumulating)",
		},
	)

	// FrequencyDrop is the latest relative drop against the reference
	FrequencyDrop = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "myo_frequency_drop_ratio",
			Help: "Relative median-frequency drop against the reference",
		},
	)

	// DeclineStreak is the current run of consecutive declined windows
	DeclineStreak = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "myo_decline_streak",
			Help: "Current count of consecutive windows above the drop threshold",
		},
	)

	// FatigueState is 1 once fatigue has been confirmed
	FatigueState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "myo_fatigue_state",
			Help: "Fatigue state of the session (0 = normal, 1 = fatigued)",
		},
	)

	// DeclinesDetected counts decline-streak starts
	DeclinesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "myo_declines_detected_total",
			Help: "Total number of decline streaks detected",
		},
	)

	// FatigueConfirmed counts fatigue confirmations
	FatigueConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "myo_fatigue_confirmed_total",
			Help: "Total number of fatigue confirmations",
		},
	)

	// MessagesPublished counts MQTT publishes per channel
	MessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "myo_mqtt_messages_published_total",
			Help: "Total number of MQTT messages published",
		},
		[]string{"channel"},
	)

	// PublishErrors counts failed MQTT publishes
	PublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "myo_mqtt_publish_errors_total",
			Help: "Total number of failed MQTT publishes",
		},
	)
)
