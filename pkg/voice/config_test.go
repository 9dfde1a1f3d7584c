package voice

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SampleRate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", cfg.SampleRate)
	}

	if cfg.FluxFactor != 1.75 {
		t.Errorf("expected flux factor 1.75, got %f", cfg.FluxFactor)
	}

	if cfg.QuietTime != 200*time.Millisecond {
		t.Errorf("expected quiet time 200ms, got %v", cfg.QuietTime)
	}

	if cfg.Language != "en" {
		t.Errorf("expected language en, got %s", cfg.Language)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "zero sample rate",
			mutate:  func(c *Config) { c.SampleRate = 0 },
			wantErr: true,
		},
		{
			name:    "flux factor not above one",
			mutate:  func(c *Config) { c.FluxFactor = 1 },
			wantErr: true,
		},
		{
			name:    "zero quiet time",
			mutate:  func(c *Config) { c.QuietTime = 0 },
			wantErr: true,
		},
		{
			name:    "negative pre-roll",
			mutate:  func(c *Config) { c.PreRoll = -time.Millisecond },
			wantErr: true,
		},
		{
			name:    "max utterance shorter than quiet time",
			mutate:  func(c *Config) { c.MaxUtterance = 100 * time.Millisecond },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigWithMethods(t *testing.T) {
	cfg := DefaultConfig()

	cfg = cfg.WithModel("models/tiny.bin")
	if cfg.Model != "models/tiny.bin" {
		t.Errorf("WithModel did not set model, got %s", cfg.Model)
	}

	cfg = cfg.WithEndpointing(2.0, 300*time.Millisecond)
	if cfg.FluxFactor != 2.0 || cfg.QuietTime != 300*time.Millisecond {
		t.Errorf("WithEndpointing did not set values, got %v %v", cfg.FluxFactor, cfg.QuietTime)
	}
}

func TestMetricsCollector(t *testing.T) {
	m := NewMetricsCollector()
	if m.Average() != 0 {
		t.Errorf("expected zero average before any utterance")
	}

	m.MarkSpeechEnd(16000)
	time.Sleep(5 * time.Millisecond)
	m.MarkTranscript()

	cur := m.Current()
	if cur.Samples != 16000 {
		t.Errorf("expected 16000 samples, got %d", cur.Samples)
	}
	if cur.ASRLatency < 5*time.Millisecond {
		t.Errorf("expected latency >= 5ms, got %v", cur.ASRLatency)
	}
	if m.Average() != cur.ASRLatency {
		t.Errorf("average %v != single latency %v", m.Average(), cur.ASRLatency)
	}
}
