package robot

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-turret/pkg/tracking"
)

type countingRecorder struct {
	mu                    sync.Mutex
	sent, failed, dropped int
}

func (r *countingRecorder) SerialSent()    { r.mu.Lock(); r.sent++; r.mu.Unlock() }
func (r *countingRecorder) SerialFailed()  { r.mu.Lock(); r.failed++; r.mu.Unlock() }
func (r *countingRecorder) SerialDropped() { r.mu.Lock(); r.dropped++; r.mu.Unlock() }

func (r *countingRecorder) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent, r.failed, r.dropped
}

func readExactly(t *testing.T, conn net.Conn, n int) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, n)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	return string(buf)
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "X12Y8", string(Encode(tracking.Coordinate{X: 12, Y: 8})))
	assert.Equal(t, "X-1Y-1", string(Encode(tracking.NoTarget)))
}

func TestChannel_WritesWireFormat(t *testing.T) {
	board, host := net.Pipe()
	defer board.Close()

	stats := &countingRecorder{}
	ch := NewChannel(host, DefaultConfig(), stats)
	ch.Start(context.Background())
	defer ch.Close()

	require.True(t, ch.Send(tracking.Coordinate{X: 12, Y: 8}))
	assert.Equal(t, "X12Y8", readExactly(t, board, 5))

	require.True(t, ch.Send(tracking.NoTarget))
	assert.Equal(t, "X-1Y-1", readExactly(t, board, 6))

	require.Eventually(t, func() bool { s, _, _ := stats.counts(); return s == 2 }, time.Second, time.Millisecond)
}

func TestChannel_Telemetry(t *testing.T) {
	board, host := net.Pipe()
	defer board.Close()

	lines := make(chan string, 4)
	ch := NewChannel(host, DefaultConfig(), nil)
	ch.OnTelemetry = func(line string) { lines <- line }
	ch.Start(context.Background())
	defer ch.Close()

	go board.Write([]byte("servo x=12\r\n\r\nservo y=8\n"))

	for _, want := range []string{"servo x=12", "servo y=8"} {
		select {
		case got := <-lines:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

// flakyPort fails the first write and records the rest.
type flakyPort struct {
	mu      sync.Mutex
	fails   int
	written []string
	closed  chan struct{}
	once    sync.Once
}

func newFlakyPort(fails int) *flakyPort {
	return &flakyPort{fails: fails, closed: make(chan struct{})}
}

func (p *flakyPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails > 0 {
		p.fails--
		return 0, errors.New("device unplugged")
	}
	p.written = append(p.written, string(b))
	return len(b), nil
}

func (p *flakyPort) Read(b []byte) (int, error) {
	<-p.closed
	return 0, io.EOF
}

func (p *flakyPort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *flakyPort) writes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.written...)
}

func TestChannel_FailedWriteKeepsLooping(t *testing.T) {
	port := newFlakyPort(1)
	stats := &countingRecorder{}
	ch := NewChannel(port, DefaultConfig(), stats)
	ch.Start(context.Background())

	ch.Send(tracking.Coordinate{X: 1, Y: 1})
	require.Eventually(t, func() bool { _, f, _ := stats.counts(); return f == 1 }, time.Second, time.Millisecond)

	ch.Send(tracking.Coordinate{X: 30, Y: 20})
	require.Eventually(t, func() bool { return len(port.writes()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"X30Y20"}, port.writes())

	require.NoError(t, ch.Close())
}

// stuckPort blocks every write until closed.
type stuckPort struct {
	closed chan struct{}
	once   sync.Once
}

func (p *stuckPort) Write(b []byte) (int, error) { <-p.closed; return 0, io.ErrClosedPipe }
func (p *stuckPort) Read(b []byte) (int, error)  { <-p.closed; return 0, io.EOF }
func (p *stuckPort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func TestChannel_SendNeverBlocks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueSize = 2
	stats := &countingRecorder{}
	ch := NewChannel(&stuckPort{closed: make(chan struct{})}, cfg, stats)
	ch.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			ch.Send(tracking.Coordinate{X: i, Y: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a stuck port")
	}

	_, _, dropped := stats.counts()
	assert.GreaterOrEqual(t, dropped, 7)

	require.NoError(t, ch.Close())
	assert.False(t, ch.Send(tracking.NoTarget), "send after close")
}

func TestOpenSerial_NoPort(t *testing.T) {
	_, err := OpenSerial(DefaultConfig())
	assert.ErrorIs(t, err, ErrChannelOpen)
}

func TestConnect_FallsBackToDiscard(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = "/dev/does-not-exist-turret"

	link, err := Connect(context.Background(), cfg, nil, nil)
	assert.ErrorIs(t, err, ErrChannelOpen)
	require.NotNil(t, link)
	assert.False(t, link.Send(tracking.Coordinate{X: 1, Y: 2}))
	assert.NoError(t, link.Close())
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Baud = 0
	assert.Error(t, cfg.Validate())
}
