// Package camera owns the capture device feeding the tracking loop.
// This follows the same pattern as pkg/tracking for tunable parameters.
package camera

import "fmt"

// DefaultIndex is the first external webcam; 0 is usually the built-in one.
const DefaultIndex = 1

// Config holds all camera configuration parameters.
type Config struct {
	Index     int `yaml:"index" json:"index"`         // Device index
	Width     int `yaml:"width" json:"width"`         // Requested frame width (0 = driver default)
	Height    int `yaml:"height" json:"height"`       // Requested frame height (0 = driver default)
	Framerate int `yaml:"framerate" json:"framerate"` // Requested FPS (0 = driver default)
	Quality   int `yaml:"quality" json:"quality"`     // JPEG quality 1-100 for display frames
}

// DefaultConfig returns the stock webcam configuration.
func DefaultConfig() Config {
	return Config{
		Index:     DefaultIndex,
		Width:     640,
		Height:    480,
		Framerate: 30,
		Quality:   80,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Index < 0 {
		errors = append(errors, fmt.Sprintf("index must not be negative, got %d", c.Index))
	}
	if c.Width != 0 && (c.Width < 160 || c.Width > 4096) {
		errors = append(errors, "width must be 0 or between 160 and 4096")
	}
	if c.Height != 0 && (c.Height < 120 || c.Height > 2160) {
		errors = append(errors, "height must be 0 or between 120 and 2160")
	}
	if c.Framerate < 0 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 0 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	return errors
}
