package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sink receives mirrored log lines. kind is "info" or "error".
type Sink interface {
	AddLog(kind, message string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(kind, message string)

// AddLog implements Sink.
func (f SinkFunc) AddLog(kind, message string) { f(kind, message) }

// MirrorHandler forwards every record to the wrapped handler and copies the
// selected ones to a Sink as a single formatted line.
type MirrorHandler struct {
	next   slog.Handler
	sink   Sink
	info   bool
	errors bool
	attrs  []slog.Attr
}

// NewMirrorHandler wraps next.
func NewMirrorHandler(next slog.Handler, sink Sink, info, errors bool) *MirrorHandler {
	return &MirrorHandler{next: next, sink: sink, info: info, errors: errors}
}

// Enabled implements slog.Handler.
func (h *MirrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *MirrorHandler) Handle(ctx context.Context, r slog.Record) error {
	isErr := r.Level >= slog.LevelWarn
	if (isErr && h.errors) || (!isErr && h.info) {
		kind := "info"
		if isErr {
			kind = "error"
		}
		h.sink.AddLog(kind, h.format(r))
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *MirrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.next = h.next.WithAttrs(attrs)
	c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &c
}

// WithGroup implements slog.Handler. Groups are flattened in mirrored lines.
func (h *MirrorHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.next = h.next.WithGroup(name)
	return &c
}

func (h *MirrorHandler) format(r slog.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", r.Level.String(), strings.ToUpper(r.Message))
	write := func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	return b.String()
}
