// Package tracking turns per-frame face detections into turret coordinates.
//
// It holds the pieces of the control loop that do not touch OpenCV: the
// detection and coordinate types, the debounce filter that decides when the
// turret needs a new command, and the fixed-period scheduler that drives a
// capture/detect Stage.
package tracking

import "fmt"

// Box is an axis-aligned face bounding box in frame pixels.
type Box struct {
	X, Y          int
	Width, Height int
}

// Center returns the center point of the box in pixels.
func (b Box) Center() (x, y int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Coordinate is a turret target in actuator units.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NoTarget is the sentinel coordinate meaning "nothing tracked, return to idle".
var NoTarget = Coordinate{X: -1, Y: -1}

// IsSentinel reports whether c is NoTarget.
func (c Coordinate) IsSentinel() bool {
	return c == NoTarget
}

// String renders the coordinate the way the turret firmware expects it.
func (c Coordinate) String() string {
	return fmt.Sprintf("X%dY%d", c.X, c.Y)
}

// Observation is the output of one capture/detect tick.
type Observation struct {
	// Session identifies the capture session that produced the observation.
	Session string

	// Frame is the JPEG-encoded frame for display (annotated when Detected).
	Frame []byte

	// Boxes are the detected faces in detector order.
	Boxes []Box

	// Detected is true when the detector ran on this frame.
	Detected bool
}

// Found reports whether at least one face was detected.
func (o Observation) Found() bool {
	return len(o.Boxes) > 0
}
