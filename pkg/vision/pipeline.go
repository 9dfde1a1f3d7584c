// Package vision runs the per-tick capture/detect/annotate step.
package vision

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"github.com/teslashibe/go-turret/internal/log"
	"github.com/teslashibe/go-turret/pkg/tracking"
	"github.com/teslashibe/go-turret/pkg/tracking/detection"
	"gocv.io/x/gocv"
)

// Source produces raw BGR frames (camera.Device).
type Source interface {
	Open() error
	Read(m *gocv.Mat) (bool, error)
	Close() error
}

// Loader is a detector whose classifier profile can be swapped.
type Loader interface {
	detection.Detector
	Load(m tracking.Mode) error
}

// Pipeline captures a frame, runs detection when enabled, draws the overlay
// and encodes the result to JPEG. It implements tracking.Stage.
type Pipeline struct {
	source   Source
	detector Loader
	cfg      tracking.Config
	quality  int

	mu      sync.Mutex
	mode    tracking.Mode
	minFace int // cached per session, 0 = not computed
	frame   gocv.Mat
	gray    gocv.Mat
	last    []byte
}

// NewPipeline creates a pipeline with detection disabled.
func NewPipeline(source Source, detector Loader, cfg tracking.Config, quality int) *Pipeline {
	return &Pipeline{
		source:   source,
		detector: detector,
		cfg:      cfg,
		quality:  quality,
		frame:    gocv.NewMat(),
		gray:     gocv.NewMat(),
	}
}

// Open acquires the camera and starts a new session.
func (p *Pipeline) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.minFace = 0
	return p.source.Open()
}

// Close releases the camera.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source.Close()
}

// Configure switches detection mode. Callers must not have a session running.
func (p *Pipeline) Configure(mode tracking.Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if mode.Detecting() {
		if p.detector == nil {
			return fmt.Errorf("vision: no detector for %s", mode)
		}
		if err := p.detector.Load(mode); err != nil {
			return err
		}
	}
	p.mode = mode
	p.minFace = 0
	log.Debug("pipeline configured", "mode", mode.String())
	return nil
}

// Mode returns the current detection mode.
func (p *Pipeline) Mode() tracking.Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// Process implements tracking.Stage.
func (p *Pipeline) Process() (tracking.Observation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var obs tracking.Observation

	ok, err := p.source.Read(&p.frame)
	if err != nil {
		return obs, err
	}
	if !ok {
		return obs, tracking.ErrEmptyFrame
	}

	if p.mode.Detecting() {
		gocv.CvtColor(p.frame, &p.gray, gocv.ColorBGRToGray)
		gocv.EqualizeHist(p.gray, &p.gray)

		if p.minFace == 0 {
			if size := MinFaceSize(p.gray.Rows(), p.cfg.FacePortion); size > 0 {
				p.minFace = size
			}
		}

		boxes, err := p.detector.Detect(p.gray, p.minFace)
		if err != nil {
			return obs, fmt.Errorf("detect: %w", err)
		}
		obs.Boxes = boxes
		obs.Detected = true
		p.annotate(boxes)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, p.frame, []int{gocv.IMWriteJpegQuality, p.quality})
	if err != nil {
		return obs, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	obs.Frame = bytes.Clone(buf.GetBytes())
	p.last = obs.Frame
	return obs, nil
}

// CaptureFrame returns the most recently encoded frame.
func (p *Pipeline) CaptureFrame() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last == nil {
		return nil, ErrNoFrame
	}
	return p.last, nil
}

// Release frees the pipeline's Mats. The pipeline must not be used afterwards.
func (p *Pipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frame.Close()
	p.gray.Close()
}

func (p *Pipeline) annotate(boxes []tracking.Box) {
	spacing := p.cfg.GridSpacing
	for _, b := range boxes {
		gocv.Rectangle(&p.frame, SnapRect(b, spacing), BoxColor, 2)
		cx, cy := b.Center()
		gocv.Circle(&p.frame, image.Pt(cx, cy), 1, DotColor, 2)
	}
	for _, l := range GridLines(p.frame.Cols(), p.frame.Rows(), spacing) {
		gocv.Line(&p.frame, l.From, l.To, GridColor, 1)
	}
}
