package turret

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/teslashibe/go-turret/internal/log"
	"github.com/teslashibe/go-turret/pkg/robot"
	"github.com/teslashibe/go-turret/pkg/tracking"
)

// ErrStopped is returned by Post once the controller has shut down.
var ErrStopped = errors.New("turret: controller stopped")

// Deps are the controller's collaborators.
type Deps struct {
	Capture Capture
	Sender  robot.Sender
	Cues    Cues
	Display Display

	// Actuator reports whether Sender reaches real hardware.
	Actuator bool

	// Stats receive tick and command counters; both may be nil.
	Ticks tracking.TickRecorder
	Stats Recorder
}

// Controller is the single owner of the turret's control state.
type Controller struct {
	capture  Capture
	sender   robot.Sender
	cues     Cues
	display  Display
	stats    Recorder
	actuator bool

	sched  *tracking.Scheduler
	filter *tracking.Filter

	inbox  chan Event
	done   chan struct{}
	runCtx context.Context

	// Owned by the Run goroutine.
	mode      tracking.Mode
	autopilot bool
	cameraOn  bool
	session   string
	target    *tracking.Coordinate

	mu     sync.RWMutex
	status Status
}

// New creates a controller. Call Run to start it.
func New(cfg Config, deps Deps) *Controller {
	c := &Controller{
		capture:  deps.Capture,
		sender:   deps.Sender,
		cues:     deps.Cues,
		display:  deps.Display,
		stats:    deps.Stats,
		actuator: deps.Actuator,
		sched:    tracking.NewScheduler(cfg.Tracking.Interval, deps.Ticks),
		filter:   tracking.NewFilter(cfg.Tracking),
		inbox:    make(chan Event, cfg.InboxSize),
		done:     make(chan struct{}),
	}
	c.status = c.snapshot()
	return c
}

// Run applies events until ctx is cancelled, then shuts the camera and
// audio down. It must be called exactly once.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	defer close(c.done)
	defer c.shutdown()

	c.display.ShowIdle()
	c.display.UpdateStatus(c.Status())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.inbox:
			ev.apply(c)
			c.publish()
		}
	}
}

// Post queues an event. It blocks while the inbox is full.
func (c *Controller) Post(ctx context.Context, ev Event) error {
	select {
	case c.inbox <- ev:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned and shutdown is complete.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Status returns the latest published state.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// emit forwards scheduler observations to the inbox. It gives up when the
// session is stopped, so Scheduler.Stop never waits on a full inbox.
func (c *Controller) emit(ctx context.Context, obs tracking.Observation) {
	select {
	case c.inbox <- observationEvent{obs: obs}:
	case <-ctx.Done():
	}
}

func (c *Controller) observe(obs tracking.Observation) {
	if !c.cameraOn || obs.Session != c.session {
		if c.stats != nil {
			c.stats.ObservationDropped()
		}
		return
	}

	c.display.ShowFrame(obs.Frame)
	if !obs.Detected {
		return
	}

	if coord, ok := c.filter.Next(obs.Boxes); ok {
		c.sender.Send(coord)
	}

	if obs.Found() {
		t := c.filter.Quantize(obs.Boxes[0].Center())
		c.target = &t
	} else {
		c.target = nil
	}

	c.cues.Observe(obs.Found(), c.autopilot)
}

func (c *Controller) startCamera() error {
	if c.cameraOn {
		return nil
	}

	log.Info("attempting to connect to camera")
	if err := c.capture.Open(); err != nil {
		log.Error("could not connect to camera", "error", err)
		return err
	}

	session := uuid.NewString()
	if err := c.sched.Start(c.runCtx, c.capture, session, c.emit); err != nil {
		_ = c.capture.Close()
		log.Error("could not start capture", "error", err)
		return err
	}

	c.session = session
	c.cameraOn = true
	return nil
}

func (c *Controller) stopCamera() {
	if !c.cameraOn {
		return
	}

	log.Info("stopping camera")
	c.sched.Stop()
	if err := c.capture.Close(); err != nil {
		log.Warn("camera release failed", "error", err)
	}

	c.cameraOn = false
	c.session = ""
	c.target = nil
	c.display.ShowIdle()
}

// setMode stops capture, reconfigures the detector, then restarts capture if
// it was running. The detector is never reconfigured mid-session.
func (c *Controller) setMode(target tracking.Mode) {
	log.Info("toggling face tracking processes", "mode", target.String())

	wasRunning := c.cameraOn
	if wasRunning {
		c.stopCamera()
	}

	if err := c.capture.Configure(target); err != nil {
		log.Error("detector configuration failed", "mode", target.String(), "error", err)
	} else {
		c.mode = target
	}
	if !c.mode.Detecting() {
		c.target = nil
	}

	if wasRunning {
		_ = c.startCamera()
	}
}

func (c *Controller) shutdown() {
	c.stopCamera()
	c.cues.Stop()
	c.publish()
	log.Info("controller stopped")
}

func (c *Controller) snapshot() Status {
	s := Status{
		Mode:      c.mode.String(),
		Autopilot: c.autopilot,
		Camera:    c.cameraOn,
		Session:   c.session,
		Actuator:  c.actuator,
	}
	if c.target != nil {
		t := *c.target
		s.Target = &t
	}
	if c.cues != nil {
		s.Volume = c.cues.Volume()
	}
	return s
}

func (c *Controller) publish() {
	s := c.snapshot()

	c.mu.Lock()
	changed := !s.equal(c.status)
	c.status = s
	c.mu.Unlock()

	if changed {
		c.display.UpdateStatus(s)
	}
}
