package camera

import (
	"errors"
	"fmt"
	"sync"

	"github.com/teslashibe/go-turret/internal/log"
	"gocv.io/x/gocv"
)

// ErrAcquisition reports that the capture device is absent or busy.
var ErrAcquisition = errors.New("camera: acquisition failed")

// ErrClosed is returned by Read when the device is not open.
var ErrClosed = errors.New("camera: device not open")

// Device wraps an OpenCV VideoCapture with open/close lifecycle.
type Device struct {
	config Config
	mu     sync.Mutex
	vc     *gocv.VideoCapture
}

// NewDevice creates a closed device.
func NewDevice(cfg Config) *Device {
	return &Device{config: cfg}
}

// Config returns the device configuration.
func (d *Device) Config() Config {
	return d.config
}

// Open acquires the device. Opening an open device is a no-op.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc != nil {
		return nil
	}

	log.Info("connecting to camera", "index", d.config.Index)
	vc, err := gocv.OpenVideoCapture(d.config.Index)
	if err != nil {
		return fmt.Errorf("%w: index %d: %v", ErrAcquisition, d.config.Index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("%w: index %d not opened", ErrAcquisition, d.config.Index)
	}

	if d.config.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(d.config.Width))
	}
	if d.config.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(d.config.Height))
	}
	if d.config.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(d.config.Framerate))
	}

	d.vc = vc
	return nil
}

// Read grabs the next frame into m. It reports false when no frame was read.
func (d *Device) Read(m *gocv.Mat) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return false, ErrClosed
	}
	if ok := d.vc.Read(m); !ok || m.Empty() {
		return false, nil
	}
	return true, nil
}

// IsOpen reports whether the device is acquired.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vc != nil
}

// Close releases the device. Closing a closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil
	}
	err := d.vc.Close()
	d.vc = nil
	log.Info("camera released", "index", d.config.Index)
	return err
}
