// Package metrics exposes turret counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "turret"

// Metrics implements the recorder interfaces of the tracking, robot, audio,
// turret and voice packages on one registry. It is goroutine safe.
type Metrics struct {
	registry *prometheus.Registry

	ticks        *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	serial       *prometheus.CounterVec
	cues         *prometheus.CounterVec
	cueFailures  prometheus.Counter
	commands     *prometheus.CounterVec
	staleDropped prometheus.Counter
	utterances   *prometheus.CounterVec
}

// New creates the collectors and registers them with Go runtime metrics on a
// private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticks_total",
				Help:      "Capture ticks that produced a frame",
			},
			[]string{"detected"}, // true when the detector ran
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticks_skipped_total",
				Help:      "Capture ticks skipped",
			},
			[]string{"reason"},
		),
		serial: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "serial_commands_total",
				Help:      "Coordinates handed to the serial channel",
			},
			[]string{"status"}, // sent, failed, dropped
		),
		cues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cues_played_total",
				Help:      "Audio clips started",
			},
			[]string{"source"}, // bank name or manual
		),
		cueFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cue_failures_total",
				Help:      "Audio clips that failed to open or start",
			},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Operator commands dispatched",
			},
			[]string{"command"},
		),
		staleDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observations_dropped_total",
				Help:      "Observations from a stopped capture session",
			},
		),
		utterances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "utterances_total",
				Help:      "Recognised utterances",
			},
			[]string{"matched"},
		),
	}

	m.registry.MustRegister(
		m.ticks, m.skipped, m.serial, m.cues, m.cueFailures,
		m.commands, m.staleDropped, m.utterances,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func label(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// TickProcessed implements tracking.TickRecorder.
func (m *Metrics) TickProcessed(detected bool) { m.ticks.WithLabelValues(label(detected)).Inc() }

// TickSkipped implements tracking.TickRecorder.
func (m *Metrics) TickSkipped(reason string) { m.skipped.WithLabelValues(reason).Inc() }

// SerialSent implements robot.Recorder.
func (m *Metrics) SerialSent() { m.serial.WithLabelValues("sent").Inc() }

// SerialFailed implements robot.Recorder.
func (m *Metrics) SerialFailed() { m.serial.WithLabelValues("failed").Inc() }

// SerialDropped implements robot.Recorder.
func (m *Metrics) SerialDropped() { m.serial.WithLabelValues("dropped").Inc() }

// CuePlayed implements audio.Recorder.
func (m *Metrics) CuePlayed(source string) { m.cues.WithLabelValues(source).Inc() }

// CueFailed implements audio.Recorder.
func (m *Metrics) CueFailed() { m.cueFailures.Inc() }

// CommandHandled implements turret.Recorder.
func (m *Metrics) CommandHandled(name string) { m.commands.WithLabelValues(name).Inc() }

// ObservationDropped implements turret.Recorder.
func (m *Metrics) ObservationDropped() { m.staleDropped.Inc() }

// UtteranceHeard implements voice.Recorder.
func (m *Metrics) UtteranceHeard(matched bool) { m.utterances.WithLabelValues(label(matched)).Inc() }
