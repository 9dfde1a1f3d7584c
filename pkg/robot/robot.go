// Package robot talks to the turret's actuator board over a serial link.
//
// Commands are ASCII "X<int>Y<int>" strings with no terminator; the board
// answers with free-form telemetry lines which are only logged.
package robot

import (
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-turret/pkg/tracking"
)

// ErrChannelOpen reports that the serial port is absent or busy.
var ErrChannelOpen = errors.New("robot: channel open failed")

// Sender delivers turret coordinates. Send never blocks; it reports whether
// the command was accepted for delivery.
type Sender interface {
	Send(c tracking.Coordinate) bool
}

// Link is a Sender with a lifecycle.
type Link interface {
	Sender
	Close() error
}

// Recorder collects channel statistics. Implementations must be goroutine safe.
type Recorder interface {
	SerialSent()
	SerialFailed()
	SerialDropped()
}

// Encode renders a coordinate in the wire format.
func Encode(c tracking.Coordinate) []byte {
	return []byte(c.String())
}

// Config holds serial link settings.
type Config struct {
	Port             string        `yaml:"port"`               // Device path, empty = no actuator
	Baud             int           `yaml:"baud"`               // Line speed (8N1)
	QueueSize        int           `yaml:"queue_size"`         // Pending commands before drops
	ErrorLogInterval time.Duration `yaml:"error_log_interval"` // Minimum spacing of write-failure logs
}

// DefaultConfig returns the board's stock settings.
func DefaultConfig() Config {
	return Config{
		Baud:             9600,
		QueueSize:        8,
		ErrorLogInterval: 5 * time.Second,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Baud <= 0:
		return fmt.Errorf("robot: baud must be positive, got %d", c.Baud)
	case c.QueueSize <= 0:
		return fmt.Errorf("robot: queue_size must be positive, got %d", c.QueueSize)
	case c.ErrorLogInterval < 0:
		return fmt.Errorf("robot: error_log_interval must not be negative, got %v", c.ErrorLogInterval)
	}
	return nil
}
