package voice

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all tunable parameters for voice recognition.
type Config struct {
	// Recognizer
	Model    string `yaml:"model"`    // Path to the whisper ggml model
	Language string `yaml:"language"` // Language hint (default: "en")

	// Audio
	SampleRate int `yaml:"sample_rate"` // Recognizer input rate (default: 16000)

	// Endpointing
	FluxFactor   float64       `yaml:"flux_factor"`   // Onset/offset ratio (default: 1.75)
	QuietTime    time.Duration `yaml:"quiet_time"`    // Quiet needed to end an utterance (default: 200ms)
	PreRoll      time.Duration `yaml:"pre_roll"`      // Audio kept before the onset (default: 512ms)
	MaxUtterance time.Duration `yaml:"max_utterance"` // Hard cap on one utterance (default: 5s)

	// Listener
	RetryDelay time.Duration `yaml:"retry_delay"` // Pause after a failed recognition (default: 1s)
}

// DefaultConfig returns a Config tuned for short spoken commands.
func DefaultConfig() Config {
	return Config{
		Model:    "models/ggml-base.en.bin",
		Language: "en",

		SampleRate: 16000,

		FluxFactor:   1.75,
		QuietTime:    200 * time.Millisecond,
		PreRoll:      512 * time.Millisecond,
		MaxUtterance: 5 * time.Second,

		RetryDelay: time.Second,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("voice: sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.FluxFactor <= 1 {
		return errors.New("voice: flux_factor must be greater than 1")
	}
	if c.QuietTime <= 0 {
		return errors.New("voice: quiet_time must be positive")
	}
	if c.PreRoll < 0 {
		return errors.New("voice: pre_roll must not be negative")
	}
	if c.MaxUtterance <= c.QuietTime {
		return errors.New("voice: max_utterance must exceed quiet_time")
	}
	if c.RetryDelay < 0 {
		return errors.New("voice: retry_delay must not be negative")
	}
	return nil
}

// WithModel returns a copy with the model path set.
func (c Config) WithModel(path string) Config {
	c.Model = path
	return c
}

// WithEndpointing returns a copy with the flux ratio and quiet time set.
func (c Config) WithEndpointing(factor float64, quiet time.Duration) Config {
	c.FluxFactor = factor
	c.QuietTime = quiet
	return c
}

func (c Config) samples(d time.Duration) int {
	return int(int64(c.SampleRate) * int64(d) / int64(time.Second))
}
