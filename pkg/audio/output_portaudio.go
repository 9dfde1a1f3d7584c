//go:build cgo

package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// PortAudioOutput plays clips on the default output device.
// portaudio.Initialize must have been called by the process.
type PortAudioOutput struct{}

// Prepare wraps decoded audio in a clip; no stream is opened until Play.
func (PortAudioOutput) Prepare(pcm *PCM) (Clip, error) {
	return &streamClip{pcm: pcm, done: make(chan struct{})}, nil
}

type streamClip struct {
	pcm *PCM
	pos atomic.Int64

	mu     sync.Mutex
	stream *portaudio.Stream

	once sync.Once
	done chan struct{}
}

func (c *streamClip) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stream, err := portaudio.OpenDefaultStream(0, c.pcm.Channels, float64(c.pcm.SampleRate), 0, c.fill)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start output stream: %w", err)
	}
	c.stream = stream
	return nil
}

// fill is the PortAudio callback.
func (c *streamClip) fill(out []float32) {
	ch := c.pcm.Channels
	start := min(int(c.pos.Load())*ch, len(c.pcm.Samples))

	n := copy(out, c.pcm.Samples[start:])
	clear(out[n:])
	c.pos.Add(int64(n / ch))

	if n < len(out) {
		// The stream cannot be stopped from inside its own callback.
		go c.finish()
	}
}

func (c *streamClip) finish() {
	c.once.Do(func() {
		c.mu.Lock()
		if c.stream != nil {
			c.stream.Stop()
			c.stream.Close()
			c.stream = nil
		}
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *streamClip) Stop() error {
	c.finish()
	return nil
}

func (c *streamClip) Position() int64 {
	return min(c.pos.Load(), c.pcm.Frames())
}

func (c *streamClip) Length() int64 {
	return c.pcm.Frames()
}

func (c *streamClip) Done() <-chan struct{} {
	return c.done
}
