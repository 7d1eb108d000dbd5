package types

import "time"

// Window is one fixed-length run of samples extracted from the ring buffer
type Window struct {
	// Seq is the 1-based capture cycle number
	Seq uint64
	// Timestamp is when the window was extracted
	Timestamp time.Time
	// Samples holds the samples in chronological order (oldest first)
	Samples []float64
	// SampleRate is the acquisition rate in Hz
	SampleRate float64
	// TraceID is a unique identifier for tracing one capture cycle
	TraceID string
}

// SpectralFrame holds the single-sided magnitude spectrum of one window,
// computed for both the unfiltered and the filtered signal
type SpectralFrame struct {
	// Freqs are the bin center frequencies in Hz
	Freqs []float64
	// Raw are the magnitudes of the unfiltered window
	Raw []float64
	// Filtered are the magnitudes of the filtered window
	Filtered []float64
}

// Bins returns the number of spectrum bins
func (s *SpectralFrame) Bins() int {
	return len(s.Freqs)
}

// FeatureSet carries the scalar features computed from one filtered window
type FeatureSet struct {
	// RMS is the root mean square amplitude
	RMS float64 `json:"rms"`
	// MeanFreq is the magnitude-weighted mean frequency in Hz
	MeanFreq float64 `json:"fmean_hz"`
	// MedianFreq is the frequency splitting the spectrum magnitude in half, in Hz
	MedianFreq float64 `json:"fmed_hz"`
}

// CaptureStats contains sample acquisition statistics
type CaptureStats struct {
	SampleCount uint64
	RateTarget  int
	RateReal    float64
	Channel     int
	Errors      uint64
	IsRunning   bool
}
