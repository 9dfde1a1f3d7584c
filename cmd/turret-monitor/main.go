// turret-monitor follows a running turret's dashboard from the terminal:
// status changes, playback progress and mirrored log lines.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-turret/internal/log"
	"github.com/teslashibe/go-turret/pkg/web"
	"golang.org/x/sync/errgroup"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "Turret dashboard address (host:port)")
	logs := flag.Bool("logs", true, "Follow the dashboard log box")
	progress := flag.Bool("progress", false, "Print playback progress updates")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := &monitor{out: os.Stdout, progress: *progress}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return follow(gctx, *addr, "/ws/status", m.status) })
	if *logs {
		g.Go(func() error { return follow(gctx, *addr, "/ws/logs", m.log) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// follow reads JSON messages from one dashboard websocket until ctx is done.
func follow(ctx context.Context, addr, path string, handle func([]byte) error) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: path}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	log.Debug("connected", "url", u.String())

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := handle(data); err != nil {
			log.Warn("undecodable message", "path", path, "error", err)
		}
	}
}

type monitor struct {
	out      io.Writer
	progress bool
}

func (m *monitor) status(data []byte) error {
	var u web.Update
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}

	switch {
	case u.Status != nil:
		s := u.Status
		target := "none"
		if s.Target != nil {
			target = s.Target.String()
		}
		fmt.Fprintf(m.out, "[status] mode=%s autopilot=%s camera=%s actuator=%s target=%s volume=%.0f\n",
			s.Mode, onOff(s.Autopilot), onOff(s.Camera), onOff(s.Actuator), target, s.Volume)
	case u.Progress != nil && m.progress:
		p := *u.Progress
		const width = 20
		filled := int(p * width)
		fmt.Fprintf(m.out, "[audio]  [%s%s] %3.0f%%\n",
			strings.Repeat("#", filled), strings.Repeat(".", width-filled), p*100)
	}
	return nil
}

func (m *monitor) log(data []byte) error {
	var e web.LogEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "[%s] %-5s %s\n", e.Time, e.Type, e.Message)
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
