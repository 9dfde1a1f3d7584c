package turret

import (
	"github.com/teslashibe/go-turret/pkg/command"
	"github.com/teslashibe/go-turret/pkg/tracking"
)

// Event is something the controller applies on its own goroutine.
type Event interface {
	apply(c *Controller)
}

// CommandEvent dispatches an operator command (voice or dashboard).
type CommandEvent struct {
	Command command.Command
}

func (e CommandEvent) apply(c *Controller) { c.dispatch(e.Command) }

// ToggleCameraEvent starts the camera when off and stops it when on.
type ToggleCameraEvent struct{}

func (ToggleCameraEvent) apply(c *Controller) {
	if c.cameraOn {
		c.stopCamera()
		return
	}
	_ = c.startCamera()
}

// PlaySoundEvent plays a clip picked by name.
type PlaySoundEvent struct {
	Name string
}

func (e PlaySoundEvent) apply(c *Controller) { _ = c.cues.Play(e.Name) }

// SetVolumeEvent moves the volume slider (0-100).
type SetVolumeEvent struct {
	Value float64
}

func (e SetVolumeEvent) apply(c *Controller) { c.cues.SetVolume(e.Value) }

type observationEvent struct {
	obs tracking.Observation
}

func (e observationEvent) apply(c *Controller) { c.observe(e.obs) }
