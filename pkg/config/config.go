package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate (wrapped) for any inconsistent setting.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration.
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Session SessionConfig `yaml:"session"`
	Filter  FilterConfig  `yaml:"filter"`
	Output  OutputConfig  `yaml:"output"`
	Mock    MockConfig    `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"` // Upper bound for a single line read
	SettleDelay time.Duration `yaml:"settle_delay"` // Wait after open before flushing buffers (0 = no flush)
}

// SessionConfig contains the acquisition protocol settings.
type SessionConfig struct {
	ReadyMarker    string        `yaml:"ready_marker"`
	StartCommand   string        `yaml:"start_command"`
	StartAck       string        `yaml:"start_ack"`
	CompleteMarker string        `yaml:"complete_marker"`
	EndMarker      string        `yaml:"end_marker"`
	ReadyTimeout   time.Duration `yaml:"ready_timeout"`
	StrictReady    bool          `yaml:"strict_ready_wait"` // Fail instead of proceeding when the ready marker never arrives
	DeviceDuration time.Duration `yaml:"device_duration"`   // Recording length programmed into the firmware
	MaxDuration    time.Duration `yaml:"max_duration"`      // Host-side deadline, must exceed DeviceDuration
	DrainTimeout   time.Duration `yaml:"drain_timeout"`     // Time allowed for trailing markers after completion
}

// FilterConfig contains low-pass filter parameters.
type FilterConfig struct {
	CutoffHz     float64  `yaml:"cutoff_hz"`
	Order        int      `yaml:"order"`
	SampleRateHz float64  `yaml:"sample_rate_hz"` // 0 = estimate from timestamps
	Channels     []string `yaml:"channels"`
}

// OutputConfig controls where captures and derived files go.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Prefix      string `yaml:"prefix"`
	Plot        bool   `yaml:"plot"`
	Overlap     bool   `yaml:"overlap"`
	MetricsFile string `yaml:"metrics_file"` // Prometheus textfile written after each recording ("" = off)
}

// MockConfig contains simulated device configuration.
type MockConfig struct {
	ReadyDelay        time.Duration `yaml:"ready_delay"`
	SampleInterval    time.Duration `yaml:"sample_interval"`
	RecordingDuration time.Duration `yaml:"recording_duration"`
	SignalHz          float64       `yaml:"signal_hz"`   // Frequency of the simulated signal
	NoiseLevel        float64       `yaml:"noise_level"` // Noise amplitude (V)
	NoiseLines        int           `yaml:"noise_lines"` // Emit a garbage line every N rows (0 = never)
}

// DefaultChannels are the analog inputs of the reference firmware.
var DefaultChannels = []string{"A0(V)", "A1(V)", "A2(V)", "A3(V)"}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyACM0",
			BaudRate:    115200,
			ReadTimeout: 100 * time.Millisecond,
		},
		Session: SessionConfig{
			ReadyMarker:    "ARDUINO_DAQ_READY",
			StartCommand:   "START",
			StartAck:       "RECORDING_STARTED",
			CompleteMarker: "RECORDING_COMPLETE",
			EndMarker:      "END_OF_DATA",
			ReadyTimeout:   10 * time.Second,
			StrictReady:    false,
			DeviceDuration: 5 * time.Second,
			MaxDuration:    10 * time.Second,
			DrainTimeout:   500 * time.Millisecond,
		},
		Filter: FilterConfig{
			CutoffHz:     2.0,
			Order:        4,
			SampleRateHz: 0,
			Channels:     append([]string(nil), DefaultChannels...),
		},
		Output: OutputConfig{
			Dir:    ".",
			Prefix: "arduino_daq_data",
			Plot:   true,
		},
		Mock: MockConfig{
			ReadyDelay:        200 * time.Millisecond,
			SampleInterval:    2 * time.Millisecond,
			RecordingDuration: 5 * time.Second,
			SignalHz:          0.5,
			NoiseLevel:        0.2,
			NoiseLines:        0,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values. The result is validated.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks settings that depend on each other. The host deadline must
// outlive the firmware recording, otherwise every session times out early.
func (c *Config) Validate() error {
	s := c.Session
	if s.MaxDuration <= s.DeviceDuration {
		return fmt.Errorf("%w: session.max_duration (%s) must exceed session.device_duration (%s)",
			ErrInvalid, s.MaxDuration, s.DeviceDuration)
	}
	if c.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("%w: serial.read_timeout must be positive", ErrInvalid)
	}
	if c.Serial.ReadTimeout >= s.MaxDuration {
		return fmt.Errorf("%w: serial.read_timeout (%s) must be shorter than session.max_duration (%s)",
			ErrInvalid, c.Serial.ReadTimeout, s.MaxDuration)
	}
	if s.ReadyMarker == "" || s.StartCommand == "" || s.CompleteMarker == "" {
		return fmt.Errorf("%w: session markers must not be empty", ErrInvalid)
	}

	f := c.Filter
	if f.CutoffHz <= 0 {
		return fmt.Errorf("%w: filter.cutoff_hz must be positive, got %g", ErrInvalid, f.CutoffHz)
	}
	if f.Order <= 0 {
		return fmt.Errorf("%w: filter.order must be positive, got %d", ErrInvalid, f.Order)
	}
	if f.SampleRateHz < 0 {
		return fmt.Errorf("%w: filter.sample_rate_hz must be >= 0, got %g", ErrInvalid, f.SampleRateHz)
	}
	if f.SampleRateHz > 0 && f.CutoffHz >= f.SampleRateHz/2 {
		return fmt.Errorf("%w: filter.cutoff_hz (%g) must be below Nyquist (%g)",
			ErrInvalid, f.CutoffHz, f.SampleRateHz/2)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Session.ReadyMarker == "" {
		c.Session.ReadyMarker = def.Session.ReadyMarker
	}
	if c.Session.StartCommand == "" {
		c.Session.StartCommand = def.Session.StartCommand
	}
	if c.Session.StartAck == "" {
		c.Session.StartAck = def.Session.StartAck
	}
	if c.Session.CompleteMarker == "" {
		c.Session.CompleteMarker = def.Session.CompleteMarker
	}
	if c.Session.EndMarker == "" {
		c.Session.EndMarker = def.Session.EndMarker
	}
	if c.Session.ReadyTimeout == 0 {
		c.Session.ReadyTimeout = def.Session.ReadyTimeout
	}
	if c.Session.DeviceDuration == 0 {
		c.Session.DeviceDuration = def.Session.DeviceDuration
	}
	if c.Session.MaxDuration == 0 {
		c.Session.MaxDuration = def.Session.MaxDuration
	}
	if c.Session.DrainTimeout == 0 {
		c.Session.DrainTimeout = def.Session.DrainTimeout
	}

	if c.Filter.CutoffHz == 0 {
		c.Filter.CutoffHz = def.Filter.CutoffHz
	}
	if c.Filter.Order == 0 {
		c.Filter.Order = def.Filter.Order
	}
	if len(c.Filter.Channels) == 0 {
		c.Filter.Channels = def.Filter.Channels
	}

	if c.Output.Dir == "" {
		c.Output.Dir = def.Output.Dir
	}
	if c.Output.Prefix == "" {
		c.Output.Prefix = def.Output.Prefix
	}

	if c.Mock.SampleInterval == 0 {
		c.Mock.SampleInterval = def.Mock.SampleInterval
	}
	if c.Mock.RecordingDuration == 0 {
		c.Mock.RecordingDuration = def.Mock.RecordingDuration
	}
	if c.Mock.SignalHz == 0 {
		c.Mock.SignalHz = def.Mock.SignalHz
	}
}
