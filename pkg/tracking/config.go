package tracking

import (
	"fmt"
	"time"
)

// Config holds all tunable parameters for face tracking
type Config struct {
	// Timing
	Interval time.Duration `yaml:"interval"` // Capture/detect period

	// Detection
	FacePortion float64 `yaml:"face_portion"` // Minimum face height as a fraction of frame height

	// Coordinate filter
	Quantum   int `yaml:"quantum"`   // Pixels per actuator unit
	Tolerance int `yaml:"tolerance"` // Minimum change (actuator units) before a resend

	// Overlay
	GridSpacing int `yaml:"grid_spacing"` // Debug grid spacing in pixels
}

// DefaultConfig returns the turret's stock tracking parameters
func DefaultConfig() Config {
	return Config{
		Interval:    33 * time.Millisecond, // ~30 fps
		FacePortion: 0.2,
		Quantum:     10,
		Tolerance:   5,
		GridSpacing: 10,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return fmt.Errorf("tracking: interval must be positive, got %v", c.Interval)
	case c.FacePortion <= 0 || c.FacePortion > 1:
		return fmt.Errorf("tracking: face_portion must be in (0,1], got %v", c.FacePortion)
	case c.Quantum <= 0:
		return fmt.Errorf("tracking: quantum must be positive, got %d", c.Quantum)
	case c.Tolerance < 0:
		return fmt.Errorf("tracking: tolerance must not be negative, got %d", c.Tolerance)
	case c.GridSpacing <= 0:
		return fmt.Errorf("tracking: grid_spacing must be positive, got %d", c.GridSpacing)
	}
	return nil
}
