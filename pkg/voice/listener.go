package voice

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/teslashibe/go-turret/internal/log"
	"github.com/teslashibe/go-turret/pkg/command"
)

// Handler receives recognised commands.
type Handler func(ctx context.Context, cmd command.Command) error

// Recorder collects listener statistics. Implementations must be goroutine safe.
type Recorder interface {
	UtteranceHeard(matched bool)
}

// Listener feeds recognizer output through the command matcher.
type Listener struct {
	rec        Recognizer
	handle     Handler
	stats      Recorder
	retryDelay time.Duration
}

// NewListener creates a listener. stats may be nil.
func NewListener(rec Recognizer, handle Handler, stats Recorder) *Listener {
	return &Listener{
		rec:        rec,
		handle:     handle,
		stats:      stats,
		retryDelay: DefaultConfig().RetryDelay,
	}
}

// SetRetryDelay sets the pause after a failed recognition.
func (l *Listener) SetRetryDelay(d time.Duration) {
	l.retryDelay = d
}

// Run listens until ctx is cancelled or the recognizer ends. It returns an
// error only when the recognizer failed to initialise.
func (l *Listener) Run(ctx context.Context) error {
	log.Info("voice listener started")
	defer log.Info("voice listener stopped")

	for {
		text, err := l.rec.Next(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil, errors.Is(err, io.EOF):
				return nil
			case errors.Is(err, ErrRecognizerInit):
				log.Error("speech recognizer unavailable", "error", err)
				return err
			}

			log.Warn("recognition failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.retryDelay):
			}
			continue
		}

		l.dispatch(ctx, text)
	}
}

func (l *Listener) dispatch(ctx context.Context, text string) {
	phrase := Normalize(text)
	cmd, ok := command.Parse(phrase)
	if l.stats != nil {
		l.stats.UtteranceHeard(ok)
	}
	if !ok {
		log.Debug("utterance ignored", "text", phrase)
		return
	}

	log.Info("voice command", "command", cmd.String(), "text", phrase)
	if err := l.handle(ctx, cmd); err != nil && ctx.Err() == nil {
		log.Warn("voice command not delivered", "command", cmd.String(), "error", err)
	}
}
