// Package turret owns the control state of the turret: detection mode,
// autopilot, camera lifecycle and the last coordinate sent to the actuator.
//
// All state lives on a single goroutine (Controller.Run). Commands, dashboard
// events and capture observations are posted to its inbox and applied one at
// a time, so the scheduler tick and command dispatch never interleave.
package turret

import (
	"fmt"

	"github.com/teslashibe/go-turret/pkg/audio"
	"github.com/teslashibe/go-turret/pkg/tracking"
)

// Capture is the camera plus detector stage driven by the scheduler.
type Capture interface {
	tracking.Stage

	// Open acquires the camera for a new session.
	Open() error
	// Close releases the camera.
	Close() error
	// Configure switches the detector profile. Never called while open.
	Configure(mode tracking.Mode) error
}

// Display receives what the operator sees.
type Display interface {
	ShowFrame(jpeg []byte)
	ShowIdle()
	UpdateStatus(s Status)
}

// Cues plays sound feedback.
type Cues interface {
	TriggerBank(b audio.Bank) error
	Play(name string) error
	SetVolume(v float64) float64
	Volume() float64
	Observe(found, autopilot bool)
	Stop()
}

// Recorder collects controller statistics. Implementations must be goroutine safe.
type Recorder interface {
	CommandHandled(name string)
	ObservationDropped()
}

// Config holds controller settings.
type Config struct {
	Tracking  tracking.Config `yaml:"tracking"`
	InboxSize int             `yaml:"inbox_size"` // Pending events before Post blocks
}

// DefaultConfig returns the stock controller settings.
func DefaultConfig() Config {
	return Config{
		Tracking:  tracking.DefaultConfig(),
		InboxSize: 16,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Tracking.Validate(); err != nil {
		return err
	}
	if c.InboxSize <= 0 {
		return fmt.Errorf("turret: inbox_size must be positive, got %d", c.InboxSize)
	}
	return nil
}

// Status is a snapshot of the control state.
type Status struct {
	Mode      string               `json:"mode"`
	Autopilot bool                 `json:"autopilot"`
	Camera    bool                 `json:"camera"`
	Session   string               `json:"session,omitempty"`
	Target    *tracking.Coordinate `json:"target"` // nil when nothing is tracked
	Actuator  bool                 `json:"actuator"`
	Volume    float64              `json:"volume"`
}

func (s Status) equal(o Status) bool {
	if (s.Target == nil) != (o.Target == nil) {
		return false
	}
	if s.Target != nil && *s.Target != *o.Target {
		return false
	}
	s.Target, o.Target = nil, nil
	return s == o
}
