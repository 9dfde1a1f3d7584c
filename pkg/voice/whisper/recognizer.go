// Package whisper implements voice.Recognizer with whisper.cpp, fed from an
// audioio microphone source and endpointed by spectral flux.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	wh "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/teslashibe/go-turret/internal/log"
	"github.com/teslashibe/go-turret/pkg/audioio"
	"github.com/teslashibe/go-turret/pkg/voice"
)

// Recognizer decodes utterances with a local whisper model.
type Recognizer struct {
	cfg     voice.Config
	model   wh.Model
	source  audioio.Source
	ep      *voice.Endpointer
	metrics *voice.MetricsCollector

	mu      sync.Mutex
	started bool
	closed  bool
}

// New loads the model. The source is started on the first call to Next.
func New(cfg voice.Config, source audioio.Source) (*Recognizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", voice.ErrRecognizerInit, err)
	}

	model, err := wh.New(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: load model %s: %v", voice.ErrRecognizerInit, cfg.Model, err)
	}
	log.Info("speech model loaded", "model", cfg.Model, "multilingual", model.IsMultilingual())

	return &Recognizer{
		cfg:     cfg,
		model:   model,
		source:  source,
		ep:      voice.NewEndpointer(cfg),
		metrics: voice.NewMetricsCollector(),
	}, nil
}

// Metrics returns the recognizer's latency collector.
func (r *Recognizer) Metrics() *voice.MetricsCollector {
	return r.metrics
}

// Next blocks until an utterance has been captured and decoded to non-empty
// text. Capture is bound to the ctx of the first call.
func (r *Recognizer) Next(ctx context.Context) (string, error) {
	if err := r.start(ctx); err != nil {
		return "", err
	}

	for {
		chunk, err := r.source.Read(ctx)
		if err != nil {
			return "", err
		}

		samples := chunk.Mono()
		if chunk.SampleRate != r.cfg.SampleRate {
			samples = audioio.Resample(samples, chunk.SampleRate, r.cfg.SampleRate)
		}

		utterance, ok := r.ep.Feed(samples)
		if !ok {
			continue
		}

		log.Debug("utterance captured", "samples", len(utterance), "rms", audioio.CalculateRMS(utterance))
		r.metrics.MarkSpeechEnd(len(utterance))
		text, err := r.transcribe(utterance)
		if err != nil {
			return "", err
		}
		r.metrics.MarkTranscript()

		m := r.metrics.Current()
		log.Debug("utterance decoded", "text", text, "latency", m.FormatLatency(), "samples", m.Samples)
		if text != "" {
			return text, nil
		}
	}
}

func (r *Recognizer) start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return io.EOF
	}
	if r.started {
		return nil
	}
	if err := r.source.Start(ctx); err != nil {
		return fmt.Errorf("%w: start %s capture: %v", voice.ErrRecognizerInit, r.source.Name(), err)
	}
	r.started = true
	log.Info("listening for commands", "backend", r.source.Name())
	return nil
}

func (r *Recognizer) transcribe(samples []int16) (string, error) {
	wctx, err := r.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper context: %w", err)
	}
	if r.cfg.Language != "" {
		if err := wctx.SetLanguage(r.cfg.Language); err != nil {
			return "", fmt.Errorf("whisper language %q: %w", r.cfg.Language, err)
		}
	}

	if err := wctx.Process(audioio.ToFloat32(samples), nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	var segments []string
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}
	return voice.Transcript(segments), nil
}

// Close stops capture and frees the model.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if err := r.source.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := r.model.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
