package turret

import (
	"github.com/teslashibe/go-turret/internal/log"
	"github.com/teslashibe/go-turret/pkg/audio"
	"github.com/teslashibe/go-turret/pkg/command"
	"github.com/teslashibe/go-turret/pkg/tracking"
)

type cameraAction int

const (
	cameraKeep cameraAction = iota
	cameraStart
	cameraStop
)

// transition is one row of the command table.
type transition struct {
	message         string
	cue             *audio.Bank
	camera          cameraAction
	mode            *tracking.Mode
	toggleAutopilot bool
}

func bank(b audio.Bank) *audio.Bank       { return &b }
func mode(m tracking.Mode) *tracking.Mode { return &m }

var transitions = map[command.Command]transition{
	command.SetModeA: {
		message: "beginning face tracking processes",
		cue:     bank(audio.BankAutoSearch),
		mode:    mode(tracking.ModeVariantA),
	},
	command.SetModeB: {
		message: "beginning face tracking processes",
		cue:     bank(audio.BankAutoSearch),
		mode:    mode(tracking.ModeVariantB),
	},
	command.Retire: {
		message: "halting face tracking processes",
		cue:     bank(audio.BankRetire),
		mode:    mode(tracking.ModeDisabled),
	},
	command.Activate: {
		message: "activating",
		cue:     bank(audio.BankAutoSearch),
		camera:  cameraStart,
	},
	command.Shutdown: {
		message: "shutting down",
		cue:     bank(audio.BankDisabled),
		camera:  cameraStop,
	},
	command.ToggleAutopilot: {
		toggleAutopilot: true,
	},
}

func (c *Controller) dispatch(cmd command.Command) {
	t, ok := transitions[cmd]
	if !ok {
		log.Debug("unknown command ignored", "command", int(cmd))
		return
	}
	if c.stats != nil {
		c.stats.CommandHandled(cmd.String())
	}

	if t.message != "" {
		log.Info(t.message, "command", cmd.String())
	}
	if t.cue != nil {
		_ = c.cues.TriggerBank(*t.cue)
	}

	switch t.camera {
	case cameraStart:
		_ = c.startCamera()
	case cameraStop:
		c.stopCamera()
	}

	if t.mode != nil {
		c.setMode(*t.mode)
	}

	if t.toggleAutopilot {
		c.autopilot = !c.autopilot
		if c.autopilot {
			log.Info("toggling autopilot on")
		} else {
			log.Info("toggling autopilot off")
		}
	}
}
