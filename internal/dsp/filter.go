package dsp

import (
	"fmt"
	"math"
)

// biquad is a single second-order IIR section in Direct Form II, with
// coefficients from the Bristow-Johnson audio EQ cookbook.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	// Delay line: w[n-1], w[n-2]
	w1, w2 float64
}

// butterworthQ is the quality factor of a maximally flat second-order section
const butterworthQ = 1.0 / math.Sqrt2

// kind selects the cookbook coefficient set
type kind int

const (
	lowPass kind = iota
	highPass
)

func newSection(k kind, sampleRate, cutoff float64) *biquad {
	// Normalized frequency: w0 = 2*pi*fc/Fs, kept below Nyquist
	w0 := 2.0 * math.Pi * cutoff / sampleRate
	if w0 >= math.Pi {
		w0 = math.Pi * 0.99
	}

	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)
	alpha := sinW0 / (2.0 * butterworthQ)

	var b0, b1, b2 float64
	switch k {
	case lowPass:
		b0 = (1.0 - cosW0) / 2.0
		b1 = 1.0 - cosW0
		b2 = (1.0 - cosW0) / 2.0
	case highPass:
		b0 = (1.0 + cosW0) / 2.0
		b1 = -(1.0 + cosW0)
		b2 = (1.0 + cosW0) / 2.0
	}

	a0 := 1.0 + alpha
	a1 := -2.0 * cosW0
	a2 := 1.0 - alpha

	// Normalize by a0 for the Direct Form II difference equation
	return &biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

// process filters one sample.
//
// w[n] = x[n] - a1*w[n-1] - a2*w[n-2]
// y[n] = b0*w[n] + b1*w[n-1] + b2*w[n-2]
func (s *biquad) process(x float64) float64 {
	w := x - s.a1*s.w1 - s.a2*s.w2
	y := s.b0*w + s.b1*s.w1 + s.b2*s.w2
	s.w2 = s.w1
	s.w1 = w
	return y
}

func (s *biquad) reset() {
	s.w1, s.w2 = 0.0, 0.0
}

// Filter is a cascade of second-order sections forming a high-pass or
// low-pass of the configured order.
type Filter struct {
	sections   []*biquad
	sampleRate float64
	cutoff     float64
	order      int
}

// NewHighPass creates a high-pass filter. Order must be a positive multiple
// of two; cutoff must sit between 0 and the Nyquist frequency.
func NewHighPass(sampleRate, cutoff float64, order int) (*Filter, error) {
	return newFilter(highPass, sampleRate, cutoff, order)
}

// NewLowPass creates a low-pass filter with the same parameter rules as
// NewHighPass.
func NewLowPass(sampleRate, cutoff float64, order int) (*Filter, error) {
	return newFilter(lowPass, sampleRate, cutoff, order)
}

func newFilter(k kind, sampleRate, cutoff float64, order int) (*Filter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("dsp: sample rate must be positive, got %v", sampleRate)
	}
	if cutoff <= 0 || cutoff >= sampleRate/2 {
		return nil, fmt.Errorf("dsp: cutoff must be between 0 and Nyquist (%v Hz), got %v", sampleRate/2, cutoff)
	}
	if order < 2 || order%2 != 0 {
		return nil, fmt.Errorf("dsp: order must be a positive multiple of 2, got %d", order)
	}

	sections := make([]*biquad, order/2)
	for i := range sections {
		sections[i] = newSection(k, sampleRate, cutoff)
	}

	return &Filter{
		sections:   sections,
		sampleRate: sampleRate,
		cutoff:     cutoff,
		order:      order,
	}, nil
}

// Process filters a single sample through the cascade
func (f *Filter) Process(x float64) float64 {
	y := x
	for _, s := range f.sections {
		y = s.process(y)
	}
	return y
}

// ProcessBuffer filters a buffer into a newly allocated slice
func (f *Filter) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = f.Process(sample)
	}
	return output
}

// ProcessInPlace filters buf sample by sample, overwriting it
func (f *Filter) ProcessInPlace(buf []float64) {
	for i, sample := range buf {
		buf[i] = f.Process(sample)
	}
}

// Reset clears the delay lines of every section. Call it between
// discontinuous signal segments.
func (f *Filter) Reset() {
	for _, s := range f.sections {
		s.reset()
	}
}

// Cutoff returns the configured cutoff frequency in Hz
func (f *Filter) Cutoff() float64 {
	return f.cutoff
}

// Order returns the configured filter order
func (f *Filter) Order() int {
	return f.order
}
