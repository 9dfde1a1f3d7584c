package audio

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/teslashibe/go-turret/internal/log"
)

// ErrPlayback reports a missing or undecodable clip. The cue is skipped.
var ErrPlayback = errors.New("audio: playback failed")

// Clip is one opened sound.
type Clip interface {
	// Play starts playback from the beginning.
	Play() error
	// Stop halts playback; Done is closed afterwards. Safe to call twice.
	Stop() error
	// Position returns the number of frames played so far.
	Position() int64
	// Length returns the clip length in frames.
	Length() int64
	// Done is closed when playback stops, naturally or via Stop.
	Done() <-chan struct{}
}

// Player opens clips by name.
type Player interface {
	Open(name string, gainDB float64) (Clip, error)
	Sounds() ([]string, error)
}

// Recorder collects cue statistics. Implementations must be goroutine safe.
type Recorder interface {
	CuePlayed(source string)
	CueFailed()
}

// Config holds playback settings.
type Config struct {
	Dir          string        `yaml:"dir"`           // Directory holding <clip>.wav files
	MinVolume    float64       `yaml:"min_volume"`    // Gain (dB) at slider 0
	MaxVolume    float64       `yaml:"max_volume"`    // Gain (dB) at slider 100
	Volume       float64       `yaml:"volume"`        // Initial slider position, 0-100
	PollInterval time.Duration `yaml:"poll_interval"` // Progress reporting period
}

// DefaultConfig returns the stock playback settings.
func DefaultConfig() Config {
	return Config{
		Dir:          "sounds",
		MinVolume:    -80,
		MaxVolume:    6.0206,
		Volume:       85,
		PollInterval: 10 * time.Millisecond,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Dir == "":
		return fmt.Errorf("audio: dir is required")
	case c.MinVolume >= c.MaxVolume:
		return fmt.Errorf("audio: min_volume %v must be below max_volume %v", c.MinVolume, c.MaxVolume)
	case c.Volume < 0 || c.Volume > 100:
		return fmt.Errorf("audio: volume must be in [0,100], got %v", c.Volume)
	case c.PollInterval <= 0:
		return fmt.Errorf("audio: poll_interval must be positive, got %v", c.PollInterval)
	}
	return nil
}

// Engine plays cues with at most one clip active at a time.
type Engine struct {
	player Player
	cfg    Config
	stats  Recorder

	// OnProgress receives playback progress in [0, 1]; 0 after every stop.
	// It runs on the polling goroutine and must not call back into the Engine.
	OnProgress func(progress float64)

	mu       sync.Mutex
	rng      *rand.Rand
	volume   float64
	clip     Clip
	name     string
	cancel   context.CancelFunc
	pollDone chan struct{}
	found    bool
}

// NewEngine creates an engine. A nil rng is seeded from the clock; stats may be nil.
func NewEngine(player Player, cfg Config, rng *rand.Rand, stats Recorder) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		player: player,
		cfg:    cfg,
		stats:  stats,
		rng:    rng,
		volume: clampSlider(cfg.Volume),
	}
}

// TriggerBank plays a random clip of the bank, pre-empting any active clip.
func (e *Engine) TriggerBank(b Bank) error {
	if !b.valid() {
		return fmt.Errorf("%w: unknown bank %d", ErrPlayback, int(b))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playLocked(Cue{Bank: b, Index: PickVariant(e.rng, b)}.Name(), b.String())
}

// Trigger plays a specific cue, pre-empting any active clip.
func (e *Engine) Trigger(c Cue) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playLocked(c.Name(), c.Bank.String())
}

// Play plays a clip by name, pre-empting any active clip.
func (e *Engine) Play(name string) error {
	source := "manual"
	if b, ok := BankOf(name); ok {
		source = b.String()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playLocked(name, source)
}

// Observe feeds one detection result to the found/lost dispatcher.
// Only while autopilot is on and nothing is playing, a change of the found
// state triggers the active (found) or search (lost) bank.
func (e *Engine) Observe(found, autopilot bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !autopilot || e.activeLocked() {
		return
	}

	previous := e.found
	e.found = found
	if found == previous {
		return
	}

	bank := BankSearch
	if found {
		log.Info("face detected")
		bank = BankActive
	} else {
		log.Info("face lost")
	}
	_ = e.playLocked(Cue{Bank: bank, Index: PickVariant(e.rng, bank)}.Name(), bank.String())
}

// Active reports whether a clip is playing.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeLocked()
}

// Playing returns the name of the active clip, or "".
func (e *Engine) Playing() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.activeLocked() {
		return ""
	}
	return e.name
}

// Stop halts the active clip and its progress polling.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// SetVolume sets the slider position used for clips opened afterwards.
// The value is clamped to [0, 100] and returned.
func (e *Engine) SetVolume(v float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = clampSlider(v)
	return e.volume
}

// Volume returns the slider position.
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// Sounds lists the playable clip names.
func (e *Engine) Sounds() ([]string, error) {
	return e.player.Sounds()
}

func (e *Engine) activeLocked() bool {
	if e.clip == nil {
		return false
	}
	select {
	case <-e.clip.Done():
		return false
	default:
		return true
	}
}

func (e *Engine) playLocked(name, source string) error {
	e.stopLocked()

	gain := Gain(e.volume, e.cfg.MinVolume, e.cfg.MaxVolume)
	clip, err := e.player.Open(name, gain)
	if err == nil {
		err = clip.Play()
	}
	if err != nil {
		if e.stats != nil {
			e.stats.CueFailed()
		}
		log.Warn("sound skipped", "sound", name, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrPlayback, name, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.clip, e.name = clip, name
	e.cancel, e.pollDone = cancel, done
	go e.poll(ctx, clip, done)

	if e.stats != nil {
		e.stats.CuePlayed(source)
	}
	log.Info("playing "+name, "gain_db", gain)
	return nil
}

func (e *Engine) stopLocked() {
	if e.clip == nil {
		return
	}
	if err := e.clip.Stop(); err != nil {
		log.Debug("clip stop failed", "sound", e.name, "error", err)
	}
	e.cancel()
	<-e.pollDone

	e.clip, e.name = nil, ""
	e.cancel, e.pollDone = nil, nil
}

func (e *Engine) poll(ctx context.Context, clip Clip, done chan struct{}) {
	defer close(done)
	defer e.report(0)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	length := clip.Length()
	for {
		select {
		case <-ctx.Done():
			return
		case <-clip.Done():
			return
		case <-ticker.C:
			if length > 0 {
				e.report(float64(clip.Position()) / float64(length))
			}
		}
	}
}

func (e *Engine) report(progress float64) {
	if e.OnProgress != nil {
		e.OnProgress(progress)
	}
}
