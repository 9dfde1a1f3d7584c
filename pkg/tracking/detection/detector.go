// Package detection provides face detection using computer vision
package detection

import (
	"fmt"

	"github.com/teslashibe/go-turret/pkg/tracking"
	"gocv.io/x/gocv"
)

// Detector is the interface for face detection backends
type Detector interface {
	// Detect finds faces in an equalized grayscale frame.
	// minSize is the smallest face edge in pixels (0 = no limit).
	Detect(gray gocv.Mat, minSize int) ([]tracking.Box, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	HaarPath     string  `yaml:"haar_path"`     // Haar cascade XML (variant A)
	LBPPath      string  `yaml:"lbp_path"`      // LBP cascade XML (variant B)
	ScaleFactor  float64 `yaml:"scale_factor"`  // Pyramid scale step
	MinNeighbors int     `yaml:"min_neighbors"` // Candidate merge threshold
}

// DefaultConfig returns production defaults for the cascade classifiers
func DefaultConfig() Config {
	return Config{
		HaarPath:     "haarcascades/haarcascade_frontalface_alt.xml",
		LBPPath:      "lbpcascades/lbpcascade_frontalface.xml",
		ScaleFactor:  1.1,
		MinNeighbors: 2,
	}
}

// Path returns the cascade file for a detecting mode.
func (c Config) Path(m tracking.Mode) (string, error) {
	switch m {
	case tracking.ModeVariantA:
		return c.HaarPath, nil
	case tracking.ModeVariantB:
		return c.LBPPath, nil
	default:
		return "", fmt.Errorf("detection: no cascade for %s", m)
	}
}
