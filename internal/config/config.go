package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete sensor configuration
type Config struct {
	InstanceID       string         `yaml:"instance_id"`
	RoomID           string         `yaml:"room_id"`
	ShutdownTimeoutS int            `yaml:"shutdown_timeout_s"` // Graceful shutdown timeout in seconds (default: 5)
	Capture          CaptureConfig  `yaml:"capture"`
	Filters          FilterConfig   `yaml:"filters"`
	Fatigue          FatigueConfig  `yaml:"fatigue"`
	Emission         EmissionConfig `yaml:"emission"`
	MQTT             MQTTConfig     `yaml:"mqtt"`
	Health           HealthConfig   `yaml:"health"`
}

// CaptureConfig contains acquisition settings
type CaptureConfig struct {
	SampleRateHz   int         `yaml:"sample_rate_hz"`   // acquisition rate (default: 512)
	BufferSize     int         `yaml:"buffer_size"`      // ring capacity in samples (default: 512)
	WindowSize     int         `yaml:"window_size"`      // samples per processing window (default: 512)
	ADCChannel     int         `yaml:"adc_channel"`      // analog channel of the device build (default: 1)
	AutoIntervalMS int         `yaml:"auto_interval_ms"` // self-trigger period, 0 = manual 'R' only
	Source         string      `yaml:"source"`           // synth, replay
	ReplayPath     string      `yaml:"replay_path"`      // recording file for the replay source
	Synth          SynthConfig `yaml:"synth"`
}

// SynthConfig tunes the synthetic source
type SynthConfig struct {
	Amplitude     float64 `yaml:"amplitude"`        // peak scale (default: 100)
	CenterFreqHz  float64 `yaml:"center_freq_hz"`   // tone center inside the passband (default: 25)
	DriftHzPerMin float64 `yaml:"drift_hz_per_min"` // downward drift simulating fatigue (default: 0)
	Noise         float64 `yaml:"noise"`            // additive noise scale (default: 2)
}

// FilterConfig contains the band-limiting settings
type FilterConfig struct {
	HighPassHz float64 `yaml:"highpass_hz"` // baseline wander cutoff (default: 1)
	LowPassHz  float64 `yaml:"lowpass_hz"`  // upper band edge (default: 30)
	Order      int     `yaml:"order"`       // filter order, multiple of 2 (default: 2)
}

// FatigueConfig contains the decision parameters
type FatigueConfig struct {
	BaselineWindows     int     `yaml:"baseline_windows"`     // windows averaged into the reference (default: 5)
	DropThreshold       float64 `yaml:"drop_threshold"`       // qualifying relative decline (default: 0.15)
	ConsecutiveDeclines int     `yaml:"consecutive_declines"` // streak length confirming fatigue (default: 3)
}

// EmissionConfig paces the panel stream
type EmissionConfig struct {
	BinPacingMS int `yaml:"bin_pacing_ms"` // delay between spectrum bin messages (default: 5)
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Broker string          `yaml:"broker"`
	Topics MQTTTopics      `yaml:"topics"`
	QoS    map[string]byte `yaml:"qos"`
}

// MQTTTopics contains topic templates
type MQTTTopics struct {
	Control string `yaml:"control"`
	Panel   string `yaml:"panel"`
	Results string `yaml:"results"`
	Health  string `yaml:"health"`
}

// HealthConfig contains the HTTP endpoint and status publishing settings
type HealthConfig struct {
	Port             int `yaml:"port"`               // health/metrics HTTP port (default: 8080)
	PublishIntervalS int `yaml:"publish_interval_s"` // status publish period (default: 30)
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
