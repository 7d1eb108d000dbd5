package acquire

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Sampler reads one scalar sample from an analog source. Implementations
// are called from the producer goroutine only.
type Sampler interface {
	Read() (float64, error)
}

// SynthEMG generates a deliberately simple surface-EMG-like signal: two
// band-limited tones around a center frequency, a slow activation envelope
// and deterministic noise. With a positive drift the center frequency slides
// down over time, which walks the median frequency through the fatigue
// logic end to end.
type SynthEMG struct {
	fs        float64
	amplitude float64
	center    float64
	driftSec  float64 // Hz lost per second
	noise     float64

	n      uint64
	phase1 float64
	phase2 float64
}

// NewSynthEMG creates a generator. driftHzPerMin of 0 keeps the signal
// stationary; a positive value simulates progressive fatigue.
func NewSynthEMG(sampleRate, amplitude, centerFreq, driftHzPerMin, noise float64) (*SynthEMG, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("acquire: sample rate must be positive, got %v", sampleRate)
	}
	if centerFreq <= 0 || centerFreq >= sampleRate/2 {
		return nil, fmt.Errorf("acquire: center frequency must be between 0 and Nyquist, got %v", centerFreq)
	}
	if amplitude <= 0 {
		return nil, fmt.Errorf("acquire: amplitude must be positive, got %v", amplitude)
	}
	return &SynthEMG{
		fs:        sampleRate,
		amplitude: amplitude,
		center:    centerFreq,
		driftSec:  driftHzPerMin / 60.0,
		noise:     noise,
	}, nil
}

// Read returns the next sample and advances time. Never fails.
func (s *SynthEMG) Read() (float64, error) {
	t := float64(s.n) / s.fs
	s.n++

	// Center frequency slides down with fatigue, floored well above DC
	center := s.center - s.driftSec*t
	if center < 1.0 {
		center = 1.0
	}

	s.phase1 += center / s.fs
	if s.phase1 >= 1.0 {
		s.phase1 -= 1.0
	}
	s.phase2 += 1.8 * center / s.fs
	if s.phase2 >= 1.0 {
		s.phase2 -= 1.0
	}

	// Slow activation envelope, never silent
	envelope := 1.0 + 0.2*math.Sin(2*math.Pi*0.4*t)

	tone := 0.7*math.Sin(2*math.Pi*s.phase1) + 0.3*math.Sin(2*math.Pi*s.phase2)
	n := s.noise * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)

	return s.amplitude*envelope*tone + n, nil
}

func fract(x float64) float64 { return x - math.Floor(x) }

// Replay feeds samples from a recording, one float per line, cycling back
// to the start at the end of the file.
type Replay struct {
	values []float64
	pos    int
}

// NewReplay loads a recording. Blank lines and '#' comments are skipped.
func NewReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("acquire: open recording: %w", err)
	}
	defer f.Close()

	var values []float64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("acquire: recording %s line %d: %w", path, line, err)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("acquire: read recording: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("acquire: recording %s holds no samples", path)
	}

	return &Replay{values: values}, nil
}

// Read returns the next recorded sample, wrapping around at the end
func (r *Replay) Read() (float64, error) {
	v := r.values[r.pos]
	r.pos = (r.pos + 1) % len(r.values)
	return v, nil
}

// Len returns the number of recorded samples
func (r *Replay) Len() int {
	return len(r.values)
}
