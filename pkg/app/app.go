// Package app wires the turret's components together and owns their
// lifecycle: camera and detector, cue engine, serial link, controller,
// dashboard and the optional voice listener.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/afero"
	"github.com/teslashibe/go-turret/internal/config"
	"github.com/teslashibe/go-turret/internal/log"
	"github.com/teslashibe/go-turret/pkg/audio"
	"github.com/teslashibe/go-turret/pkg/audioio"
	"github.com/teslashibe/go-turret/pkg/camera"
	"github.com/teslashibe/go-turret/pkg/command"
	"github.com/teslashibe/go-turret/pkg/metrics"
	"github.com/teslashibe/go-turret/pkg/robot"
	"github.com/teslashibe/go-turret/pkg/tracking/detection"
	"github.com/teslashibe/go-turret/pkg/turret"
	"github.com/teslashibe/go-turret/pkg/vision"
	"github.com/teslashibe/go-turret/pkg/voice"
	"github.com/teslashibe/go-turret/pkg/voice/whisper"
	"github.com/teslashibe/go-turret/pkg/web"
	"golang.org/x/sync/errgroup"
)

// App is the main turret application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config config.Config

	stats *metrics.Metrics

	// Vision
	camera   *camera.Device
	detector *detection.CascadeDetector
	pipeline *vision.Pipeline

	// Sound cues
	closeHost func() error
	engine    *audio.Engine

	// Actuator
	link       robot.Link
	linkCancel context.CancelFunc
	linkOnce   sync.Once

	controller *turret.Controller
	webServer  *web.Server

	// Voice control, nil when disabled or unavailable
	recognizer *whisper.Recognizer
	listener   *voice.Listener
}

// New creates a new turret application with the given configuration.
func New(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &App{config: cfg}, nil
}

// Init initializes all components.
// Call this after New() and before Run().
func (a *App) Init() error {
	cfg := a.config
	a.stats = metrics.New()

	// Cue engine and dashboard come first so the log box sees every record.
	player := audio.NewWAVPlayer(afero.NewOsFs(), cfg.Audio.Dir, audio.PortAudioOutput{})
	a.engine = audio.NewEngine(player, cfg.Audio, nil, a.stats)
	a.webServer = web.NewServer(cfg.Web, controllerRef{a}, a.engine, a.stats.Handler())
	a.engine.OnProgress = a.webServer.UpdateProgress

	log.Setup(log.Options{
		Level:        cfg.LogLevel,
		Mirror:       a.webServer,
		MirrorInfo:   cfg.MirrorInfo,
		MirrorErrors: cfg.MirrorErrors,
	})

	fmt.Println("🎯 Turret - camera-aimed sentry")
	fmt.Println("==============================")

	closeHost, err := audio.OpenHost()
	if err != nil {
		log.Warn("audio host unavailable, cues will fail", "error", err)
	} else {
		a.closeHost = closeHost
	}

	a.camera = camera.NewDevice(cfg.Camera)
	a.detector = detection.NewCascade(cfg.Detection)
	a.pipeline = vision.NewPipeline(a.camera, a.detector, cfg.Turret.Tracking, cfg.Camera.Quality)

	actuator := a.connectLink()

	a.controller = turret.New(cfg.Turret, turret.Deps{
		Capture:  a.pipeline,
		Sender:   a.link,
		Cues:     a.engine,
		Display:  a.webServer,
		Actuator: actuator,
		Ticks:    a.stats,
		Stats:    a.stats,
	})

	if cfg.VoiceEnabled {
		if err := a.initVoice(); err != nil {
			log.Warn("voice control disabled", "error", err)
		}
	}
	return nil
}

// connectLink opens the serial link, falling back to a discarding sender.
func (a *App) connectLink() bool {
	ctx, cancel := context.WithCancel(context.Background())
	a.linkCancel = cancel

	link, err := robot.Connect(ctx, a.config.Serial, a.stats, nil)
	a.link = link
	if err != nil {
		log.Error("serial link unavailable, running detection only", "error", err)
		if ports, perr := robot.Ports(); perr == nil && len(ports) > 0 {
			log.Info("serial ports present", "ports", ports)
		}
		return false
	}
	return true
}

// initVoice loads the speech model and builds the listener.
func (a *App) initVoice() error {
	log.Debug("audio backends", "available", audioio.AvailableBackends())
	mic, err := audioio.NewSource(a.config.Microphone, log.With("component", "microphone"))
	if err != nil {
		return fmt.Errorf("%w: microphone: %v", voice.ErrRecognizerInit, err)
	}

	rec, err := whisper.New(a.config.Voice, mic)
	if err != nil {
		_ = mic.Close()
		return err
	}
	latency := rec.Metrics()
	latency.OnUpdate(func(m voice.Metrics) {
		log.Debug("speech latency", "last", m.FormatLatency(), "average", latency.Average())
	})

	a.recognizer = rec
	a.listener = voice.NewListener(rec, a.handleCommand, a.stats)
	a.listener.SetRetryDelay(a.config.Voice.RetryDelay)
	return nil
}

// handleCommand posts a recognised voice command to the controller.
func (a *App) handleCommand(ctx context.Context, cmd command.Command) error {
	return a.controller.Post(ctx, turret.CommandEvent{Command: cmd})
}

// Run starts every component and blocks until ctx is cancelled or the
// dashboard fails. Components stop in order: controller (scheduler, camera,
// cues), voice listener, serial link, dashboard.
func (a *App) Run(ctx context.Context) error {
	log.Info("turret ready",
		"addr", a.config.Web.Addr,
		"camera", a.config.Camera.Index,
		"voice", a.listener != nil,
	)

	g, gctx := errgroup.WithContext(ctx)

	voiceCtx, stopVoice := context.WithCancel(context.Background())
	defer stopVoice()
	webCtx, stopWeb := context.WithCancel(context.Background())
	defer stopWeb()

	g.Go(func() error {
		return a.webServer.Run(webCtx)
	})

	if a.listener != nil {
		g.Go(func() error {
			if err := a.listener.Run(voiceCtx); err != nil {
				log.Warn("voice listener exited", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		err := a.controller.Run(gctx)
		stopVoice()
		a.closeLink()
		stopWeb()
		return err
	})

	return g.Wait()
}

func (a *App) closeLink() {
	a.linkOnce.Do(func() {
		if a.link != nil {
			if err := a.link.Close(); err != nil {
				log.Warn("serial link close failed", "error", err)
			}
		}
		if a.linkCancel != nil {
			a.linkCancel()
		}
	})
}

// Shutdown releases what Run leaves behind. Safe to call after a failed Init.
func (a *App) Shutdown() {
	a.closeLink()

	var errs []error
	if a.recognizer != nil {
		errs = append(errs, a.recognizer.Close())
	}
	if a.pipeline != nil {
		a.pipeline.Release()
	}
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	if a.closeHost != nil {
		errs = append(errs, a.closeHost())
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("shutdown", "error", err)
	}

	fmt.Println("\n👋 Turret retired")
}

// controllerRef lets the dashboard be built before the controller it drives.
type controllerRef struct{ app *App }

func (r controllerRef) Post(ctx context.Context, ev turret.Event) error {
	return r.app.controller.Post(ctx, ev)
}

func (r controllerRef) Status() turret.Status {
	return r.app.controller.Status()
}

var _ web.Controller = controllerRef{}
