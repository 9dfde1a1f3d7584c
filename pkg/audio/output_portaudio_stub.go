//go:build !cgo

package audio

import "fmt"

// PortAudioOutput is unavailable in builds without cgo.
type PortAudioOutput struct{}

// Prepare always fails without cgo.
func (PortAudioOutput) Prepare(pcm *PCM) (Clip, error) {
	return nil, fmt.Errorf("PortAudio requires cgo")
}
