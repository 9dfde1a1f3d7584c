package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-turret/pkg/command"
	"github.com/teslashibe/go-turret/pkg/hub"
	"github.com/teslashibe/go-turret/pkg/turret"
	"github.com/teslashibe/go-turret/pkg/vision"
)

// post hands an event to the controller, bounded by PostTimeout.
func (s *Server) post(c *fiber.Ctx, ev turret.Event) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.cfg.PostTimeout)
	defer cancel()

	err := s.ctrl.Post(ctx, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
	default:
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
}

// handleStatus returns the turret's current state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Status())
}

// handleCommand dispatches a command by short name, button id or phrase
func (s *Server) handleCommand(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	cmd, ok := command.Lookup(name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown command: " + name,
		})
	}

	if err := s.post(c, turret.CommandEvent{Command: cmd}); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"command": cmd.String()})
}

// handleToggleCamera starts the camera when off and stops it when on
func (s *Server) handleToggleCamera(c *fiber.Ctx) error {
	if err := s.post(c, turret.ToggleCameraEvent{}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// handleFrame returns the last displayed frame as a JPEG
func (s *Server) handleFrame(c *fiber.Ctx) error {
	frame, err := s.CaptureFrame()
	if errors.Is(err, vision.ErrNoFrame) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(frame)
}

// handleListSounds returns the clips available to the sound picker
func (s *Server) handleListSounds(c *fiber.Ctx) error {
	names, err := s.sounds.Sounds()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(names)
}

// handlePlaySound plays a clip picked by name
func (s *Server) handlePlaySound(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := s.post(c, turret.PlaySoundEvent{Name: name}); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"sound": name})
}

// VolumeRequest is the request body for the volume slider
type VolumeRequest struct {
	Value *float64 `json:"value"`
}

// handleVolume moves the volume slider (0-100, clamped)
func (s *Server) handleVolume(c *fiber.Ctx) error {
	var req VolumeRequest
	if err := c.BodyParser(&req); err != nil || req.Value == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": `expected {"value": <0-100>}`,
		})
	}

	if err := s.post(c, turret.SetVolumeEvent{Value: *req.Value}); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"value": *req.Value})
}

// handleGetLogs returns recent log entries
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	return c.JSON(s.Logs())
}

// handleLogsWS streams the log box, starting with the buffered history
func (s *Server) handleLogsWS(c *websocket.Conn) {
	entries := s.Logs()
	history := make([]hub.Message, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		history = append(history, hub.Text(data))
	}
	hub.Serve(s.logHub, c, history...)
}

// handleCameraWS streams JPEG frames; the latest frame is replayed on connect
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.Serve(s.cameraHub, c)
}

// handleStatusWS streams status and playback progress, starting with the
// current status
func (s *Server) handleStatusWS(c *websocket.Conn) {
	st := s.ctrl.Status()
	data, err := json.Marshal(Update{Type: "status", Status: &st})
	if err != nil {
		hub.Serve(s.statusHub, c)
		return
	}
	hub.Serve(s.statusHub, c, hub.Text(data))
}
