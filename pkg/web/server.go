// Package web provides the turret's real-time dashboard: live camera feed,
// mode buttons, sound picker, volume slider and the mirrored log box.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-turret/internal/log"
	"github.com/teslashibe/go-turret/pkg/hub"
	"github.com/teslashibe/go-turret/pkg/turret"
	"github.com/teslashibe/go-turret/pkg/vision"
	"golang.org/x/time/rate"
)

// Controller is the part of turret.Controller the dashboard drives.
type Controller interface {
	Post(ctx context.Context, ev turret.Event) error
	Status() turret.Status
}

// SoundLister lists the clips the sound picker offers.
type SoundLister interface {
	Sounds() ([]string, error)
}

// Config holds dashboard settings.
type Config struct {
	Addr          string        `yaml:"addr"`           // Listen address
	StaticDir     string        `yaml:"static_dir"`     // Optional front-end assets
	AccessLog     bool          `yaml:"access_log"`     // Log every request
	LogHistory    int           `yaml:"log_history"`    // Entries kept for /api/logs
	PostTimeout   time.Duration `yaml:"post_timeout"`   // Max wait for the controller inbox
	ProgressEvery time.Duration `yaml:"progress_every"` // Playback progress update period
}

// DefaultConfig returns the stock dashboard settings.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		LogHistory:    500,
		PostTimeout:   2 * time.Second,
		ProgressEvery: 100 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("web: addr is required")
	case c.LogHistory <= 0:
		return fmt.Errorf("web: log_history must be positive, got %d", c.LogHistory)
	case c.PostTimeout <= 0:
		return fmt.Errorf("web: post_timeout must be positive, got %v", c.PostTimeout)
	case c.ProgressEvery <= 0:
		return fmt.Errorf("web: progress_every must be positive, got %v", c.ProgressEvery)
	}
	return nil
}

// LogEntry represents a log line for the dashboard
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, error
	Message string `json:"message"`
}

// Update is the envelope sent on /ws/status.
type Update struct {
	Type     string         `json:"type"` // status, progress
	Status   *turret.Status `json:"status,omitempty"`
	Progress *float64       `json:"progress,omitempty"`
}

// Server is the web dashboard server
type Server struct {
	app *fiber.App
	cfg Config

	ctrl   Controller
	sounds SoundLister

	// Last displayed frame, nil while the camera is idle
	frame   []byte
	frameMu sync.RWMutex

	// Log buffer
	logs   []LogEntry
	logsMu sync.RWMutex

	progress *rate.Sometimes

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	logHub    *hub.Hub
	cameraHub *hub.Hub
}

// NewServer creates the dashboard. metrics may be nil.
func NewServer(cfg Config, ctrl Controller, sounds SoundLister, metrics http.Handler) *Server {
	s := &Server{
		cfg:       cfg,
		ctrl:      ctrl,
		sounds:    sounds,
		logs:      make([]LogEntry, 0, cfg.LogHistory),
		progress:  &rate.Sometimes{},
		statusHub: hub.New("status"),
		logHub:    hub.New("logs"),
		cameraHub: hub.New("camera", hub.WithRetain()),
	}
	s.progress.Interval = cfg.ProgressEvery

	app := fiber.New(fiber.Config{
		AppName:               "Turret Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	// CORS for local development
	app.Use(cors.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
			Output: os.Stdout,
		}))
	}

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/commands/:name", s.handleCommand)
	api.Post("/camera/toggle", s.handleToggleCamera)
	api.Get("/camera/frame", s.handleFrame)
	api.Get("/sounds", s.handleListSounds)
	api.Post("/sounds/:name/play", s.handlePlaySound)
	api.Post("/volume", s.handleVolume)
	api.Get("/logs", s.handleGetLogs)

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves the dashboard until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go s.statusHub.Run(ctx)
	go s.logHub.Run(ctx)
	go s.cameraHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("web dashboard listening", "addr", s.cfg.Addr)
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web: listen %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Warn("web dashboard shutdown", "error", err)
	}
	<-errCh
	return nil
}

// ShowFrame implements turret.Display.
func (s *Server) ShowFrame(jpeg []byte) {
	s.frameMu.Lock()
	s.frame = jpeg
	s.frameMu.Unlock()

	s.cameraHub.BroadcastBinary(jpeg)
}

// ShowIdle implements turret.Display. Camera clients receive a JSON
// {"idle":true} message in place of a frame.
func (s *Server) ShowIdle() {
	s.frameMu.Lock()
	s.frame = nil
	s.frameMu.Unlock()

	s.cameraHub.Broadcast(hub.Text([]byte(`{"idle":true}`)))
}

// UpdateStatus implements turret.Display.
func (s *Server) UpdateStatus(st turret.Status) {
	if err := s.statusHub.BroadcastJSON(Update{Type: "status", Status: &st}); err != nil {
		log.Warn("status broadcast failed", "error", err)
	}
}

// UpdateProgress reports playback progress in [0,1]. Updates are throttled;
// the reset to 0 at the end of a clip is always sent.
func (s *Server) UpdateProgress(p float64) {
	send := func() {
		_ = s.statusHub.BroadcastJSON(Update{Type: "progress", Progress: &p})
	}
	if p == 0 {
		send()
		return
	}
	s.progress.Do(send)
}

// CaptureFrame implements vision.Provider with the last displayed frame.
func (s *Server) CaptureFrame() ([]byte, error) {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	if s.frame == nil {
		return nil, vision.ErrNoFrame
	}
	return s.frame, nil
}

// AddLog implements log.Sink: it keeps a log entry and broadcasts it to clients.
func (s *Server) AddLog(kind, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    kind,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > s.cfg.LogHistory {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	_ = s.logHub.BroadcastJSON(entry)
}

// Logs returns a copy of the buffered log entries.
func (s *Server) Logs() []LogEntry {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return append([]LogEntry(nil), s.logs...)
}

var (
	_ turret.Display  = (*Server)(nil)
	_ vision.Provider = (*Server)(nil)
	_ log.Sink        = (*Server)(nil)
)
