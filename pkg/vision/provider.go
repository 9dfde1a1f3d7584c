package vision

import "errors"

// ErrNoFrame is returned by CaptureFrame before the first frame was encoded.
var ErrNoFrame = errors.New("vision: no frame captured yet")

// Provider interface for camera access.
type Provider interface {
	CaptureFrame() ([]byte, error) // Returns JPEG image data
}
