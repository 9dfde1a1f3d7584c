// Package config assembles the turret's configuration from defaults, an
// optional YAML file and environment overrides. Flag parsing is done in
// cmd/turret; this package is data only.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/teslashibe/go-turret/pkg/audio"
	"github.com/teslashibe/go-turret/pkg/audioio"
	"github.com/teslashibe/go-turret/pkg/camera"
	"github.com/teslashibe/go-turret/pkg/robot"
	"github.com/teslashibe/go-turret/pkg/tracking/detection"
	"github.com/teslashibe/go-turret/pkg/turret"
	"github.com/teslashibe/go-turret/pkg/voice"
	"github.com/teslashibe/go-turret/pkg/web"
	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadEnv.
const (
	EnvSerialPort   = "TURRET_SERIAL_PORT"
	EnvCamera       = "TURRET_CAMERA"
	EnvAddr         = "TURRET_ADDR"
	EnvSounds       = "TURRET_SOUNDS"
	EnvWhisperModel = "TURRET_WHISPER_MODEL"
	EnvLogLevel     = "TURRET_LOG_LEVEL"
)

// Config holds all configuration for the turret application.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// MirrorInfo copies info records to the dashboard log box (-log).
	MirrorInfo bool `yaml:"mirror_info"`

	// MirrorErrors copies warnings and errors to the dashboard log box (-err).
	MirrorErrors bool `yaml:"mirror_errors"`

	// Voice disables the microphone listener when false.
	VoiceEnabled bool `yaml:"voice_enabled"`

	// CameraPreset names a camera.Presets entry used as the base for the
	// camera section; keys under camera still override it.
	CameraPreset string `yaml:"camera_preset"`

	Camera     camera.Config    `yaml:"camera"`
	Detection  detection.Config `yaml:"detection"`
	Turret     turret.Config    `yaml:"turret"`
	Audio      audio.Config     `yaml:"audio"`
	Microphone audioio.Config   `yaml:"microphone"`
	Voice      voice.Config     `yaml:"voice"`
	Serial     robot.Config     `yaml:"serial"`
	Web        web.Config       `yaml:"web"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		LogLevel:     "info",
		MirrorInfo:   true,
		MirrorErrors: true,
		VoiceEnabled: true,
		Camera:       camera.DefaultConfig(),
		Detection:    detection.DefaultConfig(),
		Turret:       turret.DefaultConfig(),
		Audio:        audio.DefaultConfig(),
		Microphone:   audioio.DefaultConfig(),
		Voice:        voice.DefaultConfig(),
		Serial:       robot.DefaultConfig(),
		Web:          web.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default value; unknown keys are an error.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	var head struct {
		CameraPreset string `yaml:"camera_preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if head.CameraPreset != "" {
		p := camera.GetPreset(head.CameraPreset)
		if p == nil {
			return cfg, &ConfigError{Field: "camera_preset", Message: fmt.Sprintf("unknown preset %q", head.CameraPreset)}
		}
		cfg.Camera = *p
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv applies environment overrides.
// Call this after Load and before flags.
func (c *Config) LoadEnv() error {
	if port := os.Getenv(EnvSerialPort); port != "" {
		c.Serial.Port = port
	}
	if idx := os.Getenv(EnvCamera); idx != "" {
		n, err := strconv.Atoi(idx)
		if err != nil {
			return &ConfigError{Field: "camera.index", Message: fmt.Sprintf("%s=%q is not a number", EnvCamera, idx)}
		}
		c.Camera.Index = n
	}
	if addr := os.Getenv(EnvAddr); addr != "" {
		c.Web.Addr = addr
	}
	if dir := os.Getenv(EnvSounds); dir != "" {
		c.Audio.Dir = dir
	}
	if model := os.Getenv(EnvWhisperModel); model != "" {
		c.Voice.Model = model
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.LogLevel = level
	}
	return nil
}

// Validate checks every section and returns the first problem as a *ConfigError.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "log_level", Message: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}

	if errs := c.Camera.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "camera", Message: strings.Join(errs, "; ")}
	}
	if c.Detection.HaarPath == "" || c.Detection.LBPPath == "" {
		return &ConfigError{Field: "detection", Message: "haar_path and lbp_path are required"}
	}

	sections := []struct {
		field    string
		validate func() error
	}{
		{"turret", c.Turret.Validate},
		{"audio", c.Audio.Validate},
		{"microphone", c.Microphone.Validate},
		{"voice", c.Voice.Validate},
		{"serial", c.Serial.Validate},
		{"web", c.Web.Validate},
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return &ConfigError{Field: s.field, Message: err.Error(), Err: err}
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	return "config: " + e.Field + ": " + e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
