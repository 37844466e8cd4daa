package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// APIKeyEnvVar names the environment variable holding the transcription API
// credential. It is read once at startup and threaded explicitly into the
// transcription client.
const APIKeyEnvVar = "OPENAI_API_KEY"

// Config represents the complete service configuration
type Config struct {
	Capture       CaptureConfig       `yaml:"capture"`
	Segmenter     SegmenterConfig     `yaml:"segmenter"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Delivery      DeliveryConfig      `yaml:"delivery"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// CaptureConfig contains audio capture parameters
type CaptureConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	QueueSize  int `yaml:"queue_size"` // Buffered blocks between capture and segmenter
}

// SegmenterConfig contains the utterance segmentation tuning constants
type SegmenterConfig struct {
	EnergyThreshold    float64 `yaml:"energy_threshold"`     // RMS amplitude separating speech from silence
	MinSpeechDuration  float64 `yaml:"min_speech_duration"`  // seconds
	SilenceDuration    float64 `yaml:"silence_duration"`     // seconds
	MaxSegmentDuration float64 `yaml:"max_segment_duration"` // seconds
	PollIntervalMs     int     `yaml:"poll_interval_ms"`     // idle tick interval
}

// TranscriptionConfig contains transcription API configuration
type TranscriptionConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// DeliveryConfig contains the downstream sink configuration
type DeliveryConfig struct {
	PipePath string `yaml:"pipe_path"`
}

// MonitoringConfig contains the optional metrics/health HTTP endpoint
type MonitoringConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration matching the tool's original
// tuning (threshold 300 RMS, 0.5s minimum speech, 0.3s silence boundary, 10s
// forced flush, 100ms idle poll).
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			SampleRate: 44100,
			Channels:   1,
			QueueSize:  256,
		},
		Segmenter: SegmenterConfig{
			EnergyThreshold:    300,
			MinSpeechDuration:  0.5,
			SilenceDuration:    0.3,
			MaxSegmentDuration: 10,
			PollIntervalMs:     100,
		},
		Transcription: TranscriptionConfig{
			Endpoint: "https://api.openai.com/v1/audio/transcriptions",
			Model:    "whisper-1",
			Timeout:  30,
		},
		Delivery: DeliveryConfig{
			PipePath: "/tmp/goose_pipe",
		},
		Monitoring: MonitoringConfig{
			Enabled: false,
			Address: "127.0.0.1:9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads the configuration file at path, layered over the defaults. An
// empty path returns the defaults unchanged. The result is always validated.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadAPIKey resolves the transcription credential from the environment.
// A missing or empty credential is a startup configuration error.
func LoadAPIKey() (string, error) {
	key := os.Getenv(APIKeyEnvVar)
	if key == "" {
		return "", fmt.Errorf("%s environment variable is not set", APIKeyEnvVar)
	}
	return key, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Segmenter.Validate(); err != nil {
		return fmt.Errorf("segmenter config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Delivery.Validate(); err != nil {
		return fmt.Errorf("delivery config: %w", err)
	}

	if err := c.Monitoring.Validate(); err != nil {
		return fmt.Errorf("monitoring config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}

	if c.Channels < 1 || c.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}

	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", c.QueueSize)
	}

	return nil
}

// Validate validates segmenter configuration
func (s *SegmenterConfig) Validate() error {
	if s.EnergyThreshold <= 0 {
		return fmt.Errorf("energy_threshold must be positive, got %f", s.EnergyThreshold)
	}

	if s.MinSpeechDuration <= 0 {
		return fmt.Errorf("min_speech_duration must be positive, got %f", s.MinSpeechDuration)
	}

	if s.SilenceDuration <= 0 {
		return fmt.Errorf("silence_duration must be positive, got %f", s.SilenceDuration)
	}

	if s.MaxSegmentDuration <= 0 {
		return fmt.Errorf("max_segment_duration must be positive, got %f", s.MaxSegmentDuration)
	}

	// The forced max-duration flush is still subject to the minimum speech
	// gate, so a minimum above the maximum would make every segment
	// undeliverable. Reject it up front.
	if s.MinSpeechDuration > s.MaxSegmentDuration {
		return fmt.Errorf("min_speech_duration (%f) must not exceed max_segment_duration (%f)",
			s.MinSpeechDuration, s.MaxSegmentDuration)
	}

	if s.PollIntervalMs < 1 {
		return fmt.Errorf("poll_interval_ms must be at least 1, got %d", s.PollIntervalMs)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	return nil
}

// Validate validates delivery configuration
func (d *DeliveryConfig) Validate() error {
	if d.PipePath == "" {
		return fmt.Errorf("pipe_path cannot be empty")
	}

	return nil
}

// Validate validates monitoring configuration
func (m *MonitoringConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address cannot be empty when monitoring is enabled")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetMinSpeechDuration returns the minimum speech duration as a time.Duration
func (s *SegmenterConfig) GetMinSpeechDuration() time.Duration {
	return time.Duration(s.MinSpeechDuration * float64(time.Second))
}

// GetSilenceDuration returns the silence boundary duration as a time.Duration
func (s *SegmenterConfig) GetSilenceDuration() time.Duration {
	return time.Duration(s.SilenceDuration * float64(time.Second))
}

// GetMaxSegmentDuration returns the forced flush bound as a time.Duration
func (s *SegmenterConfig) GetMaxSegmentDuration() time.Duration {
	return time.Duration(s.MaxSegmentDuration * float64(time.Second))
}

// GetPollInterval returns the idle tick interval as a time.Duration
func (s *SegmenterConfig) GetPollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}
