package config

import (
	"fmt"
	"regexp"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Source names accepted by capture.source
const (
	SourceSynth  = "synth"
	SourceReplay = "replay"
)

// Validate checks if the configuration is valid and fills in defaults
func Validate(cfg *Config) error {
	// Validate instance_id
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	// Validate room_id
	if cfg.RoomID == "" {
		return fmt.Errorf("room_id is required")
	}

	if cfg.ShutdownTimeoutS <= 0 {
		cfg.ShutdownTimeoutS = 5 // default
	}

	if err := validateCapture(&cfg.Capture); err != nil {
		return err
	}
	if err := validateFilters(&cfg.Filters, cfg.Capture.SampleRateHz); err != nil {
		return err
	}
	if err := validateFatigue(&cfg.Fatigue); err != nil {
		return err
	}

	if cfg.Emission.BinPacingMS < 0 {
		return fmt.Errorf("emission.bin_pacing_ms must be >= 0")
	}
	if cfg.Emission.BinPacingMS == 0 {
		cfg.Emission.BinPacingMS = 5 // default
	}

	// Validate MQTT broker
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}

	// Set default topics if not provided
	if cfg.MQTT.Topics.Control == "" {
		cfg.MQTT.Topics.Control = fmt.Sprintf("care/control/%s", cfg.InstanceID)
	}
	if cfg.MQTT.Topics.Panel == "" {
		cfg.MQTT.Topics.Panel = fmt.Sprintf("care/panel/%s", cfg.InstanceID)
	}
	if cfg.MQTT.Topics.Results == "" {
		cfg.MQTT.Topics.Results = fmt.Sprintf("care/results/%s", cfg.InstanceID)
	}
	if cfg.MQTT.Topics.Health == "" {
		cfg.MQTT.Topics.Health = fmt.Sprintf("care/health/%s", cfg.InstanceID)
	}

	// Set default QoS if not provided
	if cfg.MQTT.QoS == nil {
		cfg.MQTT.QoS = map[string]byte{
			"control": 1,
			"panel":   0,
			"results": 0,
			"health":  0,
		}
	}

	if cfg.Health.Port <= 0 {
		cfg.Health.Port = 8080 // default
	}
	if cfg.Health.PublishIntervalS <= 0 {
		cfg.Health.PublishIntervalS = 30 // default
	}

	return nil
}

func validateCapture(c *CaptureConfig) error {
	if c.SampleRateHz <= 0 {
		c.SampleRateHz = 512 // default
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 512 // default
	}
	if c.WindowSize <= 0 {
		c.WindowSize = 512 // default
	}
	if c.WindowSize < 2 {
		return fmt.Errorf("capture.window_size must be at least 2, got %d", c.WindowSize)
	}
	if c.WindowSize > c.BufferSize {
		return fmt.Errorf("capture.window_size (%d) cannot exceed capture.buffer_size (%d)",
			c.WindowSize, c.BufferSize)
	}
	if c.ADCChannel <= 0 {
		c.ADCChannel = 1 // default
	}
	if c.AutoIntervalMS < 0 {
		return fmt.Errorf("capture.auto_interval_ms must be >= 0")
	}

	switch c.Source {
	case "":
		c.Source = SourceSynth // default
	case SourceSynth, SourceReplay:
	default:
		return fmt.Errorf("capture.source must be '%s' or '%s', got '%s'",
			SourceSynth, SourceReplay, c.Source)
	}

	if c.Source == SourceReplay && c.ReplayPath == "" {
		return fmt.Errorf("capture.replay_path is required for the replay source")
	}

	if c.Source == SourceSynth {
		if c.Synth.Amplitude <= 0 {
			c.Synth.Amplitude = 100 // default
		}
		if c.Synth.CenterFreqHz <= 0 {
			c.Synth.CenterFreqHz = 25 // default, inside the filter passband
		}
		if c.Synth.Noise <= 0 {
			c.Synth.Noise = 2 // default
		}
		if c.Synth.DriftHzPerMin < 0 {
			return fmt.Errorf("capture.synth.drift_hz_per_min must be >= 0")
		}
	}

	return nil
}

func validateFilters(f *FilterConfig, sampleRate int) error {
	if f.HighPassHz <= 0 {
		f.HighPassHz = 1 // default
	}
	if f.LowPassHz <= 0 {
		f.LowPassHz = 30 // default
	}
	if f.Order <= 0 {
		f.Order = 2 // default
	}

	if f.Order%2 != 0 {
		return fmt.Errorf("filters.order must be a multiple of 2, got %d", f.Order)
	}
	if f.HighPassHz >= f.LowPassHz {
		return fmt.Errorf("filters.highpass_hz (%v) must be below filters.lowpass_hz (%v)",
			f.HighPassHz, f.LowPassHz)
	}
	nyquist := float64(sampleRate) / 2
	if f.LowPassHz >= nyquist {
		return fmt.Errorf("filters.lowpass_hz (%v) must be below the Nyquist frequency (%v)",
			f.LowPassHz, nyquist)
	}

	return nil
}

func validateFatigue(f *FatigueConfig) error {
	if f.BaselineWindows <= 0 {
		f.BaselineWindows = 5 // default
	}
	if f.DropThreshold == 0 {
		f.DropThreshold = 0.15 // default
	}
	if f.ConsecutiveDeclines <= 0 {
		f.ConsecutiveDeclines = 3 // default
	}

	if f.DropThreshold <= 0 || f.DropThreshold >= 1 {
		return fmt.Errorf("fatigue.drop_threshold must be in (0, 1), got %v", f.DropThreshold)
	}

	return nil
}
