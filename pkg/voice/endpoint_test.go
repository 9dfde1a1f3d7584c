package voice

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

const chunkLen = 1024 // 64ms at 16kHz

func noiseChunk(rng *rand.Rand) []int16 {
	c := make([]int16, chunkLen)
	for i := range c {
		c[i] = int16(rng.Intn(201) - 100)
	}
	return c
}

// toneChunk is a 500 Hz tone: exactly 32 cycles per chunk, so consecutive
// chunks have the same spectrum.
func toneChunk(rng *rand.Rand) []int16 {
	c := noiseChunk(rng)
	for i := range c {
		c[i] += int16(12000 * math.Sin(2*math.Pi*500*float64(i)/16000))
	}
	return c
}

func TestFluxMeter(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var m fluxMeter

	if f := m.Flux(noiseChunk(rng)); f != 0 {
		t.Errorf("first chunk flux = %f, want 0", f)
	}
	quiet := m.Flux(noiseChunk(rng))
	onset := m.Flux(toneChunk(rng))
	if onset < 10*quiet {
		t.Errorf("onset flux %f not well above noise flux %f", onset, quiet)
	}
	if f := m.Flux(nil); f != 0 {
		t.Errorf("empty chunk flux = %f, want 0", f)
	}
}

func TestEndpointer_Utterance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := DefaultConfig()
	cfg.PreRoll = 128 * time.Millisecond // two chunks
	ep := NewEndpointer(cfg)

	for i := 0; i < 6; i++ {
		if _, ok := ep.Feed(noiseChunk(rng)); ok {
			t.Fatalf("utterance ended during background noise (chunk %d)", i)
		}
	}
	if ep.Listening() {
		t.Fatal("listening before any speech")
	}

	if _, ok := ep.Feed(toneChunk(rng)); ok {
		t.Fatal("onset chunk ended the utterance")
	}
	if !ep.Listening() {
		t.Fatal("onset not detected")
	}

	var utterance []int16
	var fed int
	for fed = 1; fed <= 10; fed++ {
		if u, ok := ep.Feed(toneChunk(rng)); ok {
			utterance = u
			break
		}
	}
	if utterance == nil {
		t.Fatal("utterance never ended")
	}

	// Quiet counting starts on the second quiet chunk and must exceed 200ms.
	if fed != 5 {
		t.Errorf("utterance ended after %d chunks, want 5", fed)
	}
	want := 2*chunkLen + chunkLen + fed*chunkLen
	if len(utterance) != want {
		t.Errorf("utterance has %d samples, want %d (pre-roll + onset + tail)", len(utterance), want)
	}
	if ep.Listening() {
		t.Error("still listening after the utterance ended")
	}
}

func TestEndpointer_Silence(t *testing.T) {
	ep := NewEndpointer(DefaultConfig())
	for i := 0; i < 50; i++ {
		if _, ok := ep.Feed(make([]int16, chunkLen)); ok {
			t.Fatal("digital silence produced an utterance")
		}
	}
}

func TestEndpointer_MaxUtterance(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cfg := DefaultConfig()
	cfg.PreRoll = 0
	cfg.QuietTime = time.Hour
	cfg.MaxUtterance = 2 * time.Hour
	ep := NewEndpointer(cfg)
	ep.maxLen = 4 * chunkLen

	ep.Feed(noiseChunk(rng))
	ep.Feed(noiseChunk(rng))
	ep.Feed(toneChunk(rng))

	for i := 0; i < 3; i++ {
		if _, ok := ep.Feed(toneChunk(rng)); ok {
			if i != 2 {
				t.Fatalf("capped after %d chunks", i+1)
			}
			return
		}
	}
	t.Fatal("utterance was not capped")
}

func TestRing(t *testing.T) {
	r := newRing(4)
	r.Add([]int16{1, 2})
	if got := r.Read(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("partial ring = %v", got)
	}

	r.Add([]int16{3, 4, 5})
	got := r.Read()
	want := []int16{2, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ring = %v, want %v", got, want)
		}
	}

	r.Reset()
	if len(r.Read()) != 0 {
		t.Error("ring not empty after reset")
	}

	empty := newRing(0)
	empty.Add([]int16{1})
	if len(empty.Read()) != 0 {
		t.Error("zero-size ring kept samples")
	}
}
