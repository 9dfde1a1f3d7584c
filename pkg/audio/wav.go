package audio

import (
	"fmt"
	"io"
	"math"
	"path"
	"strings"

	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

const clipExt = ".wav"

// PCM is a decoded clip: interleaved float samples in [-1, 1].
type PCM struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// Frames returns the clip length in frames.
func (p *PCM) Frames() int64 {
	if p.Channels == 0 {
		return 0
	}
	return int64(len(p.Samples) / p.Channels)
}

// Decode reads a PCM WAV stream and applies the gain.
func Decode(r io.ReadSeeker, gainDB float64) (*PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a PCM wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil, fmt.Errorf("wav has no channels")
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth < 8 || depth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", depth)
	}

	full := float64(int64(1) << (depth - 1))
	amp := Amplitude(gainDB)

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(math.Max(-1, math.Min(1, float64(v)/full*amp)))
	}

	return &PCM{
		Samples:    samples,
		Channels:   buf.Format.NumChannels,
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// Output turns decoded audio into a playable clip.
type Output interface {
	Prepare(pcm *PCM) (Clip, error)
}

// WAVPlayer opens <dir>/<name>.wav clips from a filesystem.
type WAVPlayer struct {
	fs  afero.Fs
	dir string
	out Output
}

// NewWAVPlayer creates a player reading from fs.
func NewWAVPlayer(fs afero.Fs, dir string, out Output) *WAVPlayer {
	return &WAVPlayer{fs: fs, dir: dir, out: out}
}

// Open decodes a clip and prepares it for playback.
func (p *WAVPlayer) Open(name string, gainDB float64) (Clip, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid sound name %q", name)
	}

	f, err := p.fs.Open(path.Join(p.dir, name+clipExt))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pcm, err := Decode(f, gainDB)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p.out.Prepare(pcm)
}

// Sounds lists the clip names in the sound directory, sorted.
func (p *WAVPlayer) Sounds() ([]string, error) {
	entries, err := afero.ReadDir(p.fs, p.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), clipExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), clipExt))
	}
	return names, nil
}
