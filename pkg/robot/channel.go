package robot

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-turret/internal/log"
	"github.com/teslashibe/go-turret/pkg/tracking"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Channel owns a duplex byte stream to the board: a send loop draining a
// bounded queue and a receive loop logging telemetry.
type Channel struct {
	rw    io.ReadWriteCloser
	queue chan tracking.Coordinate
	stats Recorder
	errs  rate.Sometimes

	// OnTelemetry receives each non-empty line read from the board.
	// Set before Start.
	OnTelemetry func(line string)

	closed    atomic.Bool
	cancel    context.CancelFunc
	group     errgroup.Group
	closeOnce sync.Once
	closeErr  error
}

// NewChannel wraps an open stream. stats may be nil.
func NewChannel(rw io.ReadWriteCloser, cfg Config, stats Recorder) *Channel {
	c := &Channel{
		rw:    rw,
		queue: make(chan tracking.Coordinate, cfg.QueueSize),
		stats: stats,
	}
	if cfg.ErrorLogInterval > 0 {
		c.errs.First, c.errs.Interval = 1, cfg.ErrorLogInterval
	} else {
		c.errs.Every = 1
	}
	return c
}

// Start launches the send and receive loops.
func (c *Channel) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.group.Go(func() error { return c.sendLoop(ctx) })
	c.group.Go(func() error { return c.receiveLoop(ctx) })
}

// Send enqueues a command. It drops the command when the queue is full or the
// channel is closed.
func (c *Channel) Send(coord tracking.Coordinate) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.queue <- coord:
		return true
	default:
		if c.stats != nil {
			c.stats.SerialDropped()
		}
		log.Debug("serial queue full, command dropped", "command", coord.String())
		return false
	}
}

// Close stops both loops and releases the stream.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.cancel != nil {
			c.cancel()
		}
		// Closing the stream unblocks a pending Read.
		c.closeErr = c.rw.Close()
		if err := c.group.Wait(); err != nil && c.closeErr == nil {
			c.closeErr = err
		}
	})
	return c.closeErr
}

func (c *Channel) sendLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case coord := <-c.queue:
			c.write(coord)
		}
	}
}

func (c *Channel) write(coord tracking.Coordinate) {
	cmd := Encode(coord)
	if _, err := c.rw.Write(cmd); err != nil {
		if c.stats != nil {
			c.stats.SerialFailed()
		}
		c.errs.Do(func() {
			log.Warn("serial write failed", "command", string(cmd), "error", err)
		})
		return
	}
	if c.stats != nil {
		c.stats.SerialSent()
	}
	log.Debug("write", "command", string(cmd))
}

func (c *Channel) receiveLoop(ctx context.Context) error {
	scanner := bufio.NewScanner(c.rw)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		log.Info("telemetry", "line", line)
		if c.OnTelemetry != nil {
			c.OnTelemetry(line)
		}
	}

	// Read errors after Close are expected.
	if err := scanner.Err(); err != nil && ctx.Err() == nil && !c.closed.Load() {
		log.Warn("serial read failed", "error", err)
	}
	return nil
}
