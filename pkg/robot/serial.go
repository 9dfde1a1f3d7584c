package robot

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-turret/internal/log"
	"github.com/teslashibe/go-turret/pkg/tracking"
	"go.bug.st/serial"
)

// OpenSerial opens the port at the configured speed, 8 data bits, no parity,
// one stop bit.
func OpenSerial(cfg Config) (serial.Port, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("%w: no port configured", ErrChannelOpen)
	}

	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrChannelOpen, cfg.Port, err)
	}
	return port, nil
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Connect opens the serial link and starts its loops. When the port cannot be
// opened it returns a Discard link together with the error, so callers can
// keep running without an actuator.
func Connect(ctx context.Context, cfg Config, stats Recorder, onTelemetry func(string)) (Link, error) {
	port, err := OpenSerial(cfg)
	if err != nil {
		return Discard{}, err
	}

	ch := NewChannel(port, cfg, stats)
	ch.OnTelemetry = onTelemetry
	ch.Start(ctx)
	log.Info("serial link open", "port", cfg.Port, "baud", cfg.Baud)
	return ch, nil
}

// Discard is the link used when no actuator is connected.
type Discard struct{}

// Send drops the command.
func (Discard) Send(c tracking.Coordinate) bool {
	log.Debug("no actuator, command dropped", "command", c.String())
	return false
}

// Close does nothing.
func (Discard) Close() error { return nil }

var (
	_ Link = (*Channel)(nil)
	_ Link = Discard{}
)
