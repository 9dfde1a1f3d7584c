package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-turret/internal/log"
	"github.com/teslashibe/go-turret/pkg/tracking"
	"gocv.io/x/gocv"
)

// CascadeDetector uses OpenCV's CascadeClassifier, reloadable between variants
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	config     Config
	mode       tracking.Mode
	mu         sync.Mutex // Protects classifier
}

// NewCascade creates an empty cascade detector; call Load before Detect.
func NewCascade(cfg Config) *CascadeDetector {
	return &CascadeDetector{
		classifier: gocv.NewCascadeClassifier(),
		config:     cfg,
	}
}

// Load swaps the classifier to the given mode's profile.
func (d *CascadeDetector) Load(m tracking.Mode) error {
	path, err := d.config.Path(m)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cascade file for %s: %w", m, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.classifier.Load(path) {
		return fmt.Errorf("load cascade %s", path)
	}
	d.mode = m
	log.Info("detector configured", "mode", m.String(), "path", path)
	return nil
}

// Mode returns the loaded profile (ModeDisabled when nothing is loaded).
func (d *CascadeDetector) Mode() tracking.Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Detect finds faces in the grayscale frame
func (d *CascadeDetector) Detect(gray gocv.Mat, minSize int) ([]tracking.Box, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.mode.Detecting() {
		return nil, fmt.Errorf("detect: no cascade loaded")
	}
	if gray.Empty() {
		return nil, fmt.Errorf("detect: empty image")
	}

	rects := d.classifier.DetectMultiScaleWithParams(
		gray,
		d.config.ScaleFactor,
		d.config.MinNeighbors,
		0,                          // CASCADE_SCALE_IMAGE is the default for new cascades
		image.Pt(minSize, minSize), // Minimum face size
		image.Pt(0, 0),             // No maximum
	)

	return FromRects(rects), nil
}

// Close releases the classifier
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}

// FromRects converts OpenCV rectangles to boxes, keeping their order.
func FromRects(rects []image.Rectangle) []tracking.Box {
	if len(rects) == 0 {
		return nil
	}
	boxes := make([]tracking.Box, len(rects))
	for i, r := range rects {
		boxes[i] = tracking.Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
	}
	return boxes
}
