// Package feature computes the per-window scalar features the fatigue
// session consumes: RMS amplitude and the mean and median frequency of a
// magnitude spectrum. All functions are stateless.
package feature

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/care/myo/internal/types"
)

// RMS returns the root mean square amplitude of signal, 0 for an empty
// signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	sumSquares := floats.Dot(signal, signal)
	return math.Sqrt(sumSquares / float64(len(signal)))
}

// MeanFrequency returns the magnitude-weighted mean of freqs, 0 when the
// spectrum carries no magnitude.
func MeanFrequency(mags, freqs []float64) float64 {
	n := min(len(mags), len(freqs))
	if n == 0 {
		return 0
	}
	total := floats.Sum(mags[:n])
	if total == 0 {
		return 0
	}
	weighted := floats.Dot(mags[:n], freqs[:n])
	return weighted / total
}

// MedianFrequency returns the smallest frequency at which the cumulative
// magnitude reaches half the total. A spectrum with no magnitude, or one
// where rounding keeps the half-point out of reach, yields the highest bin.
func MedianFrequency(mags, freqs []float64) float64 {
	n := min(len(mags), len(freqs))
	if n == 0 {
		return 0
	}
	total := floats.Sum(mags[:n])
	if total > 0 {
		half := total / 2
		cumulative := 0.0
		for i := 0; i < n; i++ {
			cumulative += mags[i]
			if cumulative >= half {
				return freqs[i]
			}
		}
	}
	return freqs[n-1]
}

// Compute bundles the per-window features: RMS over the filtered signal,
// mean and median frequency over its spectrum.
func Compute(signal, mags, freqs []float64) types.FeatureSet {
	return types.FeatureSet{
		RMS:        RMS(signal),
		MeanFreq:   MeanFrequency(mags, freqs),
		MedianFreq: MedianFrequency(mags, freqs),
	}
}
