package turret

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-turret/pkg/audio"
	"github.com/teslashibe/go-turret/pkg/command"
	"github.com/teslashibe/go-turret/pkg/tracking"
)

// recorder is a shared, ordered call log.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

type fakeCapture struct {
	log     *recorder
	openErr error
	cfgErr  error
}

func (f *fakeCapture) Open() error {
	if f.openErr != nil {
		return f.openErr
	}
	f.log.add("open")
	return nil
}

func (f *fakeCapture) Close() error {
	f.log.add("close")
	return nil
}

func (f *fakeCapture) Configure(m tracking.Mode) error {
	if f.cfgErr != nil {
		return f.cfgErr
	}
	f.log.add("configure:" + m.String())
	return nil
}

// Process never yields frames; tests inject observations directly.
func (f *fakeCapture) Process() (tracking.Observation, error) {
	return tracking.Observation{}, tracking.ErrEmptyFrame
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) Send(c tracking.Coordinate) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c.String())
	return true
}

func (f *fakeSender) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type observation struct{ found, autopilot bool }

type fakeCues struct {
	mu       sync.Mutex
	banks    []audio.Bank
	played   []string
	observed []observation
	volume   float64
	stopped  int
}

func (f *fakeCues) TriggerBank(b audio.Bank) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banks = append(f.banks, b)
	return nil
}

func (f *fakeCues) Play(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, name)
	return nil
}

func (f *fakeCues) SetVolume(v float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
	return v
}

func (f *fakeCues) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

func (f *fakeCues) Observe(found, autopilot bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, observation{found, autopilot})
}

func (f *fakeCues) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeCues) triggered() []audio.Bank {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]audio.Bank(nil), f.banks...)
}

type fakeDisplay struct {
	mu       sync.Mutex
	frames   int
	idle     int
	statuses []Status
}

func (f *fakeDisplay) ShowFrame(jpeg []byte) { f.mu.Lock(); f.frames++; f.mu.Unlock() }
func (f *fakeDisplay) ShowIdle()             { f.mu.Lock(); f.idle++; f.mu.Unlock() }

func (f *fakeDisplay) UpdateStatus(s Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, s)
}

func (f *fakeDisplay) counts() (frames, idle int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames, f.idle
}

// probe runs fn on the controller goroutine and signals completion.
type probe struct {
	fn   func(c *Controller)
	done chan struct{}
}

func (p probe) apply(c *Controller) {
	if p.fn != nil {
		p.fn(c)
	}
	close(p.done)
}

type harness struct {
	ctrl    *Controller
	log     *recorder
	capture *fakeCapture
	sender  *fakeSender
	cues    *fakeCues
	display *fakeDisplay
	cancel  context.CancelFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := &recorder{}
	h := &harness{
		log:     log,
		capture: &fakeCapture{log: log},
		sender:  &fakeSender{},
		cues:    &fakeCues{volume: 85},
		display: &fakeDisplay{},
	}
	h.ctrl = New(DefaultConfig(), Deps{
		Capture: h.capture,
		Sender:  h.sender,
		Cues:    h.cues,
		Display: h.display,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.ctrl.Run(ctx)

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.ctrl.Done():
		case <-time.After(2 * time.Second):
			t.Error("controller did not stop")
		}
	})
	return h
}

// post applies an event and waits until the controller has processed it.
func (h *harness) post(t *testing.T, ev Event) {
	t.Helper()
	require.NoError(t, h.ctrl.Post(context.Background(), ev))
	h.sync(t)
}

func (h *harness) command(t *testing.T, cmd command.Command) {
	t.Helper()
	h.post(t, CommandEvent{Command: cmd})
}

func (h *harness) sync(t *testing.T) {
	t.Helper()
	p := probe{done: make(chan struct{})}
	require.NoError(t, h.ctrl.Post(context.Background(), p))
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not process event")
	}
}

// observe injects a detection result for the current session.
func (h *harness) observe(t *testing.T, boxes ...tracking.Box) {
	t.Helper()
	h.post(t, observationEvent{obs: tracking.Observation{
		Session:  h.ctrl.Status().Session,
		Frame:    []byte{0xFF, 0xD8},
		Boxes:    boxes,
		Detected: true,
	}})
}

func face(cx, cy int) tracking.Box {
	return tracking.Box{X: cx - 20, Y: cy - 20, Width: 40, Height: 40}
}

func TestSearchOneWhileRunning(t *testing.T) {
	h := newHarness(t)

	h.command(t, command.Activate)
	require.True(t, h.ctrl.Status().Camera)
	first := h.ctrl.Status().Session
	h.log.reset()

	h.command(t, command.SetModeA)

	assert.Equal(t, []string{"close", "configure:variant-a", "open"}, h.log.list())
	st := h.ctrl.Status()
	assert.True(t, st.Camera)
	assert.Equal(t, "variant-a", st.Mode)
	assert.NotEqual(t, first, st.Session, "restart begins a new session")
	assert.Equal(t, []audio.Bank{audio.BankAutoSearch, audio.BankAutoSearch}, h.cues.triggered())
}

func TestModeChangeWhileStopped(t *testing.T) {
	h := newHarness(t)

	h.command(t, command.SetModeB)

	assert.Equal(t, []string{"configure:variant-b"}, h.log.list())
	assert.False(t, h.ctrl.Status().Camera)
	assert.Equal(t, "variant-b", h.ctrl.Status().Mode)
}

func TestReconfigureNeverWhileOpen(t *testing.T) {
	h := newHarness(t)

	h.command(t, command.Activate)
	h.command(t, command.SetModeA)
	h.command(t, command.SetModeB)
	h.command(t, command.Retire)

	open := false
	for _, call := range h.log.list() {
		switch call {
		case "open":
			open = true
		case "close":
			open = false
		default:
			assert.False(t, open, "%s while camera open", call)
		}
	}
	assert.Equal(t, "disabled", h.ctrl.Status().Mode)
}

func TestConfigureFailureKeepsMode(t *testing.T) {
	h := newHarness(t)
	h.command(t, command.SetModeA)

	h.capture.cfgErr = errors.New("missing cascade")
	h.command(t, command.SetModeB)

	assert.Equal(t, "variant-a", h.ctrl.Status().Mode)
}

func TestFilterScenario(t *testing.T) {
	h := newHarness(t)
	h.command(t, command.SetModeA)
	h.command(t, command.Activate)

	h.observe(t, face(120, 80))
	assert.Equal(t, []string{"X12Y8"}, h.sender.list())
	require.NotNil(t, h.ctrl.Status().Target)
	assert.Equal(t, tracking.Coordinate{X: 12, Y: 8}, *h.ctrl.Status().Target)

	h.observe(t, face(122, 81))
	assert.Equal(t, []string{"X12Y8"}, h.sender.list(), "sub-tolerance move")

	h.observe(t)
	assert.Equal(t, []string{"X12Y8", "X-1Y-1"}, h.sender.list())
	assert.Nil(t, h.ctrl.Status().Target)

	h.observe(t)
	h.observe(t)
	assert.Equal(t, []string{"X12Y8", "X-1Y-1"}, h.sender.list(), "one sentinel only")

	h.observe(t, face(400, 300))
	assert.Equal(t, []string{"X12Y8", "X-1Y-1", "X40Y30"}, h.sender.list())
}

func TestStaleObservationDropped(t *testing.T) {
	h := newHarness(t)
	h.command(t, command.SetModeA)
	h.command(t, command.Activate)

	h.post(t, observationEvent{obs: tracking.Observation{
		Session:  "previous-session",
		Frame:    []byte{1},
		Boxes:    []tracking.Box{face(120, 80)},
		Detected: true,
	}})

	frames, _ := h.display.counts()
	assert.Zero(t, frames)
	assert.Empty(t, h.sender.list())
}

func TestObservationWithoutDetection(t *testing.T) {
	h := newHarness(t)
	h.command(t, command.Activate)

	h.post(t, observationEvent{obs: tracking.Observation{
		Session: h.ctrl.Status().Session,
		Frame:   []byte{1},
	}})

	frames, _ := h.display.counts()
	assert.Equal(t, 1, frames)
	assert.Empty(t, h.sender.list())
	assert.Empty(t, h.cues.observed)
}

func TestToggleAutopilot(t *testing.T) {
	h := newHarness(t)
	require.False(t, h.ctrl.Status().Autopilot)

	h.command(t, command.ToggleAutopilot)
	assert.True(t, h.ctrl.Status().Autopilot)

	h.command(t, command.ToggleAutopilot)
	assert.False(t, h.ctrl.Status().Autopilot)

	assert.Empty(t, h.cues.triggered(), "autopilot toggle plays no cue")
}

func TestObserveForwardsAutopilot(t *testing.T) {
	h := newHarness(t)
	h.command(t, command.SetModeA)
	h.command(t, command.Activate)

	h.observe(t, face(120, 80))
	h.command(t, command.ToggleAutopilot)
	h.observe(t)

	assert.Equal(t, []observation{{true, false}, {false, true}}, h.cues.observed)
}

func TestActivateShutdownIdempotent(t *testing.T) {
	h := newHarness(t)

	h.command(t, command.Activate)
	h.command(t, command.Activate)
	assert.Equal(t, []string{"open"}, h.log.list())

	h.command(t, command.Shutdown)
	h.command(t, command.Shutdown)
	assert.Equal(t, []string{"open", "close"}, h.log.list())
	assert.False(t, h.ctrl.Status().Camera)

	assert.Equal(t, []audio.Bank{
		audio.BankAutoSearch, audio.BankAutoSearch,
		audio.BankDisabled, audio.BankDisabled,
	}, h.cues.triggered())
}

func TestRetireCue(t *testing.T) {
	h := newHarness(t)
	h.command(t, command.Retire)
	assert.Equal(t, []audio.Bank{audio.BankRetire}, h.cues.triggered())
}

func TestCameraOpenFailure(t *testing.T) {
	h := newHarness(t)
	h.capture.openErr = errors.New("device busy")

	h.command(t, command.Activate)

	assert.False(t, h.ctrl.Status().Camera)
	assert.Empty(t, h.log.list())
}

func TestDashboardEvents(t *testing.T) {
	h := newHarness(t)

	h.post(t, ToggleCameraEvent{})
	assert.True(t, h.ctrl.Status().Camera)
	h.post(t, ToggleCameraEvent{})
	assert.False(t, h.ctrl.Status().Camera)
	assert.Empty(t, h.cues.triggered())

	h.post(t, PlaySoundEvent{Name: "turret_fire_4x_02"})
	assert.Equal(t, []string{"turret_fire_4x_02"}, h.cues.played)

	h.post(t, SetVolumeEvent{Value: 40})
	assert.Equal(t, 40.0, h.ctrl.Status().Volume)
}

func TestShutdownOnCancel(t *testing.T) {
	h := newHarness(t)
	h.command(t, command.Activate)
	_, idleBefore := h.display.counts()

	h.cancel()
	select {
	case <-h.ctrl.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop")
	}

	assert.Equal(t, []string{"open", "close"}, h.log.list())
	assert.Equal(t, 1, h.cues.stopped)
	_, idleAfter := h.display.counts()
	assert.Equal(t, idleBefore+1, idleAfter)

	assert.ErrorIs(t, h.ctrl.Post(context.Background(), ToggleCameraEvent{}), ErrStopped)
}

func TestSchedulerDrivesCapture(t *testing.T) {
	log := &recorder{}
	capture := &stageCapture{fakeCapture: fakeCapture{log: log}}
	display := &fakeDisplay{}

	ctrl := New(DefaultConfig(), Deps{
		Capture: capture,
		Sender:  &fakeSender{},
		Cues:    &fakeCues{},
		Display: display,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		<-ctrl.Done()
	}()
	go ctrl.Run(ctx)

	require.NoError(t, ctrl.Post(ctx, CommandEvent{Command: command.Activate}))
	require.Eventually(t, func() bool { f, _ := display.counts(); return f >= 3 }, 2*time.Second, 5*time.Millisecond)
}

// stageCapture yields an undetected frame every tick.
type stageCapture struct {
	fakeCapture
}

func (s *stageCapture) Process() (tracking.Observation, error) {
	return tracking.Observation{Frame: []byte{0xFF, 0xD8}}, nil
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.InboxSize = 0
	assert.Error(t, cfg.Validate())
}
