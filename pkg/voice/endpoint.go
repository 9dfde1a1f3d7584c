package voice

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// fluxMeter measures the positive spectral change between consecutive chunks.
type fluxMeter struct {
	prev []float64
}

// Flux returns the summed magnitude increase over the previous chunk's
// spectrum. The first chunk, or one of a different length, yields 0.
func (m *fluxMeter) Flux(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	x := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = float64(s) / 32768
	}
	window.Apply(x, window.Hamming)

	spec := fft.FFTReal(x)
	mags := make([]float64, len(spec)/2+1)
	for i := range mags {
		mags[i] = cmplx.Abs(spec[i])
	}

	var flux float64
	if len(m.prev) == len(mags) {
		for i, v := range mags {
			if d := v - m.prev[i]; d > 0 {
				flux += d
			}
		}
	}
	m.prev = mags
	return flux
}

// ring keeps the most recent samples, oldest first on read.
type ring struct {
	buf  []int16
	head int
	full bool
}

func newRing(size int) *ring {
	return &ring{buf: make([]int16, size)}
}

func (r *ring) Add(samples []int16) {
	if len(r.buf) == 0 {
		return
	}
	for _, s := range samples {
		r.buf[r.head] = s
		r.head = (r.head + 1) % len(r.buf)
		if r.head == 0 {
			r.full = true
		}
	}
}

func (r *ring) Read() []int16 {
	if !r.full {
		return append([]int16(nil), r.buf[:r.head]...)
	}
	out := make([]int16, 0, len(r.buf))
	out = append(out, r.buf[r.head:]...)
	return append(out, r.buf[:r.head]...)
}

func (r *ring) Reset() {
	r.head = 0
	r.full = false
}

// Endpointer cuts utterances out of a continuous mono stream.
// It is not goroutine safe.
type Endpointer struct {
	factor    float64
	quietMax  int
	maxLen    int
	meter     fluxMeter
	preroll   *ring
	utterance []int16

	heard    bool
	quiet    bool
	quietLen int
	lastFlux float64
}

// NewEndpointer creates an endpointer for audio at cfg.SampleRate.
func NewEndpointer(cfg Config) *Endpointer {
	return &Endpointer{
		factor:   cfg.FluxFactor,
		quietMax: cfg.samples(cfg.QuietTime),
		maxLen:   cfg.samples(cfg.MaxUtterance),
		preroll:  newRing(cfg.samples(cfg.PreRoll)),
	}
}

// Feed consumes one chunk. It returns the finished utterance, including the
// pre-roll, once the speaker has been quiet long enough or the utterance
// reached its maximum length.
func (e *Endpointer) Feed(chunk []int16) ([]int16, bool) {
	flux := e.meter.Flux(chunk)

	if !e.heard {
		switch {
		case e.lastFlux == 0:
		case flux >= e.lastFlux*e.factor:
			e.heard = true
			e.utterance = append(e.preroll.Read(), chunk...)
			e.lastFlux = flux
			return nil, false
		}
		e.preroll.Add(chunk)
		e.lastFlux = flux
		return nil, false
	}

	e.utterance = append(e.utterance, chunk...)
	if len(e.utterance) >= e.maxLen {
		return e.finish(), true
	}

	if flux*e.factor <= e.lastFlux {
		if e.quiet {
			e.quietLen += len(chunk)
			if e.quietLen > e.quietMax {
				return e.finish(), true
			}
		}
		e.quiet = true
	} else {
		e.quiet = false
		e.quietLen = 0
		e.lastFlux = flux
	}
	return nil, false
}

// Listening reports whether an utterance is in progress.
func (e *Endpointer) Listening() bool {
	return e.heard
}

// Reset drops any partial utterance.
func (e *Endpointer) Reset() {
	e.heard = false
	e.quiet = false
	e.quietLen = 0
	e.lastFlux = 0
	e.utterance = nil
	e.preroll.Reset()
}

func (e *Endpointer) finish() []int16 {
	out := e.utterance
	e.Reset()
	return out
}
