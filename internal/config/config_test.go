package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default configuration must validate, got: %v", err)
	}

	if cfg.Segmenter.EnergyThreshold != 300 {
		t.Errorf("Expected default energy threshold 300, got %f", cfg.Segmenter.EnergyThreshold)
	}

	if cfg.Delivery.PipePath != "/tmp/goose_pipe" {
		t.Errorf("Expected default pipe path /tmp/goose_pipe, got %s", cfg.Delivery.PipePath)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with empty path failed: %v", err)
	}

	want := Default()
	if cfg.Segmenter != want.Segmenter {
		t.Errorf("Expected default segmenter config, got %+v", cfg.Segmenter)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
segmenter:
  energy_threshold: 450
  min_speech_duration: 0.5
  silence_duration: 0.3
  max_segment_duration: 15
  poll_interval_ms: 100
delivery:
  pipe_path: /tmp/other_pipe
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Segmenter.EnergyThreshold != 450 {
		t.Errorf("Expected energy threshold 450, got %f", cfg.Segmenter.EnergyThreshold)
	}

	if cfg.Segmenter.MaxSegmentDuration != 15 {
		t.Errorf("Expected max segment duration 15, got %f", cfg.Segmenter.MaxSegmentDuration)
	}

	if cfg.Delivery.PipePath != "/tmp/other_pipe" {
		t.Errorf("Expected overridden pipe path, got %s", cfg.Delivery.PipePath)
	}

	// Sections not present in the file keep their defaults.
	if cfg.Transcription.Model != "whisper-1" {
		t.Errorf("Expected default model whisper-1, got %s", cfg.Transcription.Model)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestSegmenterValidation(t *testing.T) {
	valid := SegmenterConfig{
		EnergyThreshold:    300,
		MinSpeechDuration:  0.5,
		SilenceDuration:    0.3,
		MaxSegmentDuration: 10,
		PollIntervalMs:     100,
	}

	tests := []struct {
		name   string
		mutate func(*SegmenterConfig)
	}{
		{name: "zero threshold", mutate: func(s *SegmenterConfig) { s.EnergyThreshold = 0 }},
		{name: "negative threshold", mutate: func(s *SegmenterConfig) { s.EnergyThreshold = -1 }},
		{name: "zero min speech", mutate: func(s *SegmenterConfig) { s.MinSpeechDuration = 0 }},
		{name: "zero silence", mutate: func(s *SegmenterConfig) { s.SilenceDuration = 0 }},
		{name: "zero max segment", mutate: func(s *SegmenterConfig) { s.MaxSegmentDuration = 0 }},
		{name: "min exceeds max", mutate: func(s *SegmenterConfig) { s.MinSpeechDuration = 20 }},
		{name: "zero poll interval", mutate: func(s *SegmenterConfig) { s.PollIntervalMs = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error but got none")
			}
		})
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid config to pass, got: %v", err)
	}
}

func TestTranscriptionValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    TranscriptionConfig
		expectErr bool
	}{
		{
			name:      "valid",
			config:    TranscriptionConfig{Endpoint: "https://api.openai.com/v1/audio/transcriptions", Model: "whisper-1", Timeout: 30},
			expectErr: false,
		},
		{
			name:      "empty endpoint",
			config:    TranscriptionConfig{Model: "whisper-1", Timeout: 30},
			expectErr: true,
		},
		{
			name:      "empty model",
			config:    TranscriptionConfig{Endpoint: "https://example.com", Timeout: 30},
			expectErr: true,
		},
		{
			name:      "zero timeout",
			config:    TranscriptionConfig{Endpoint: "https://example.com", Model: "whisper-1"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestLoadAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "sk-test-key")

	key, err := LoadAPIKey()
	if err != nil {
		t.Fatalf("LoadAPIKey failed: %v", err)
	}

	if key != "sk-test-key" {
		t.Errorf("Expected sk-test-key, got %s", key)
	}
}

func TestLoadAPIKeyMissing(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")

	if _, err := LoadAPIKey(); err == nil {
		t.Error("Expected error when credential is missing")
	}
}

func TestDurationGetters(t *testing.T) {
	s := SegmenterConfig{
		MinSpeechDuration:  0.5,
		SilenceDuration:    0.3,
		MaxSegmentDuration: 10,
		PollIntervalMs:     100,
	}

	if got := s.GetMinSpeechDuration().Milliseconds(); got != 500 {
		t.Errorf("Expected 500ms min speech, got %dms", got)
	}

	if got := s.GetSilenceDuration().Milliseconds(); got != 300 {
		t.Errorf("Expected 300ms silence, got %dms", got)
	}

	if got := s.GetMaxSegmentDuration().Seconds(); got != 10 {
		t.Errorf("Expected 10s max segment, got %fs", got)
	}

	if got := s.GetPollInterval().Milliseconds(); got != 100 {
		t.Errorf("Expected 100ms poll interval, got %dms", got)
	}
}
