package dsp

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Spectrum computes single-sided magnitude spectra for windows of a fixed
// length at a fixed sample rate. Bin center frequencies are precomputed once.
type Spectrum struct {
	sampleRate float64
	length     int
	freqs      []float64
}

// NewSpectrum creates a spectrum calculator for windows of the given length
func NewSpectrum(sampleRate float64, length int) (*Spectrum, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("dsp: sample rate must be positive, got %v", sampleRate)
	}
	if length < 2 {
		return nil, fmt.Errorf("dsp: window length must be at least 2, got %d", length)
	}

	// Bin i sits at i*Fs/N; only the first N/2 bins are meaningful for a
	// real signal
	freqs := make([]float64, length/2)
	for i := range freqs {
		freqs[i] = float64(i) * sampleRate / float64(length)
	}

	return &Spectrum{
		sampleRate: sampleRate,
		length:     length,
		freqs:      freqs,
	}, nil
}

// Freqs returns the bin center frequencies in Hz. The slice is shared;
// callers must not modify it.
func (s *Spectrum) Freqs() []float64 {
	return s.freqs
}

// Bins returns the number of single-sided bins
func (s *Spectrum) Bins() int {
	return len(s.freqs)
}

// Length returns the configured window length
func (s *Spectrum) Length() int {
	return s.length
}

// Magnitudes computes the single-sided magnitude spectrum of window, which
// must match the configured length.
func (s *Spectrum) Magnitudes(window []float64) ([]float64, error) {
	if len(window) != s.length {
		return nil, fmt.Errorf("dsp: window length %d, expected %d", len(window), s.length)
	}

	coeffs := fft.FFTReal(window)
	mags := make([]float64, len(s.freqs))
	for i := range mags {
		mags[i] = cmplx.Abs(coeffs[i])
	}
	return mags, nil
}
