package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/teslashibe/go-turret/internal/log"
)

// Scheduler errors.
var (
	ErrEmptyFrame = errors.New("tracking: empty frame")
	ErrRunning    = errors.New("tracking: scheduler already running")
)

// Stage performs one capture/detect step.
// Returning ErrEmptyFrame (or any other error) skips the tick.
type Stage interface {
	Process() (Observation, error)
}

// StageFunc adapts a function to Stage.
type StageFunc func() (Observation, error)

// Process implements Stage.
func (f StageFunc) Process() (Observation, error) { return f() }

// Emitter receives the observations of a running session.
// It should return promptly once ctx is cancelled.
type Emitter func(ctx context.Context, obs Observation)

// TickRecorder collects tick statistics. Implementations must be goroutine safe.
type TickRecorder interface {
	TickProcessed(detected bool)
	TickSkipped(reason string)
}

// Skip reasons reported to TickRecorder.
const (
	SkipOverrun = "overrun"
	SkipEmpty   = "empty"
	SkipError   = "error"
)

// Scheduler runs a Stage at a fixed period.
// Ticks never overlap: a tick that comes due while the previous one is still
// being processed is dropped, not queued.
type Scheduler struct {
	interval time.Duration
	stats    TickRecorder

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler ticking every interval.
func NewScheduler(interval time.Duration, stats TickRecorder) *Scheduler {
	return &Scheduler{interval: interval, stats: stats}
}

// Start begins a capture session. The first tick runs immediately.
func (s *Scheduler) Start(ctx context.Context, stage Stage, session string, emit Emitter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return ErrRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx, stage, session, emit, s.done)
	return nil
}

// Stop halts the session and waits for an in-flight tick to finish.
// It is safe to call Stop when the scheduler is not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a session is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

func (s *Scheduler) run(ctx context.Context, stage Stage, session string, emit Emitter, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Debug("capture session started", "session", session, "interval", s.interval)

	s.tick(ctx, stage, session, emit)
	busyUntil := time.Now()

	for {
		select {
		case <-ctx.Done():
			log.Debug("capture session stopped", "session", session)
			return

		case fired := <-ticker.C:
			// The ticker buffers one tick; if it fired while we were busy, drop it.
			if fired.Before(busyUntil) {
				s.skipped(SkipOverrun)
				continue
			}
			s.tick(ctx, stage, session, emit)
			busyUntil = time.Now()
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, stage Stage, session string, emit Emitter) {
	if ctx.Err() != nil {
		return
	}

	obs, err := stage.Process()
	if err != nil {
		if errors.Is(err, ErrEmptyFrame) {
			s.skipped(SkipEmpty)
		} else {
			log.Debug("capture tick failed", "session", session, "error", err)
			s.skipped(SkipError)
		}
		return
	}

	if s.stats != nil {
		s.stats.TickProcessed(obs.Detected)
	}

	obs.Session = session
	emit(ctx, obs)
}

func (s *Scheduler) skipped(reason string) {
	if s.stats != nil {
		s.stats.TickSkipped(reason)
	}
}
