package dsp

import (
	"math"
	"testing"
)

// TestNewSpectrumValidation verifies parameter validation.
func TestNewSpectrumValidation(t *testing.T) {
	if _, err := NewSpectrum(0, 512); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := NewSpectrum(-512, 512); err == nil {
		t.Error("Expected error for negative sample rate")
	}
	if _, err := NewSpectrum(512, 1); err == nil {
		t.Error("Expected error for window length 1")
	}
}

// TestBinFrequencies verifies the Fs/N bin spacing.
func TestBinFrequencies(t *testing.T) {
	s, err := NewSpectrum(512, 512)
	if err != nil {
		t.Fatalf("NewSpectrum failed: %v", err)
	}

	if s.Bins() != 256 {
		t.Errorf("Expected 256 bins, got %d", s.Bins())
	}
	if s.Length() != 512 {
		t.Errorf("Expected length 512, got %d", s.Length())
	}

	freqs := s.Freqs()
	if freqs[0] != 0 {
		t.Errorf("Expected bin 0 at 0 Hz, got %v", freqs[0])
	}
	if freqs[1] != 1.0 {
		t.Errorf("Expected bin 1 at 1 Hz, got %v", freqs[1])
	}
	if freqs[255] != 255.0 {
		t.Errorf("Expected bin 255 at 255 Hz, got %v", freqs[255])
	}
}

// TestMagnitudePeakAtSineFrequency verifies a pure tone lands in its bin.
func TestMagnitudePeakAtSineFrequency(t *testing.T) {
	const n = 64
	s, err := NewSpectrum(64, n)
	if err != nil {
		t.Fatalf("NewSpectrum failed: %v", err)
	}

	// 8 Hz sine on integer bins: no leakage
	window := make([]float64, n)
	for i := range window {
		window[i] = math.Sin(2 * math.Pi * 8.0 * float64(i) / float64(n))
	}

	mags, err := s.Magnitudes(window)
	if err != nil {
		t.Fatalf("Magnitudes failed: %v", err)
	}

	peak := 0
	for i := range mags {
		if mags[i] > mags[peak] {
			peak = i
		}
	}
	if peak != 8 {
		t.Fatalf("Expected peak at bin 8, got bin %d", peak)
	}

	// Unit sine on an exact bin: |X[k]| = N/2
	if math.Abs(mags[8]-float64(n)/2) > 1e-6 {
		t.Errorf("Expected peak magnitude %v, got %v", float64(n)/2, mags[8])
	}
	for i := range mags {
		if i != 8 && mags[i] > 1e-6 {
			t.Errorf("Expected bin %d near zero, got %v", i, mags[i])
		}
	}
}

// TestMagnitudeDCComponent verifies a constant signal concentrates in bin 0.
func TestMagnitudeDCComponent(t *testing.T) {
	const n = 64
	s, _ := NewSpectrum(64, n)

	window := make([]float64, n)
	for i := range window {
		window[i] = 1.0
	}

	mags, err := s.Magnitudes(window)
	if err != nil {
		t.Fatalf("Magnitudes failed: %v", err)
	}
	if math.Abs(mags[0]-float64(n)) > 1e-6 {
		t.Errorf("Expected DC magnitude %v, got %v", float64(n), mags[0])
	}
	for i := 1; i < len(mags); i++ {
		if mags[i] > 1e-6 {
			t.Errorf("Expected bin %d near zero, got %v", i, mags[i])
		}
	}
}

// TestMagnitudesLengthMismatch verifies the window length contract.
func TestMagnitudesLengthMismatch(t *testing.T) {
	s, _ := NewSpectrum(512, 512)
	if _, err := s.Magnitudes(make([]float64, 256)); err == nil {
		t.Error("Expected error for short window")
	}
	if _, err := s.Magnitudes(make([]float64, 1024)); err == nil {
		t.Error("Expected error for long window")
	}
}
