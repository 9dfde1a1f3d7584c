//go:build cgo

package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// OpenHost initialises PortAudio for the process. The returned func
// terminates it and must be called once every stream is closed.
func OpenHost() (func() error, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: portaudio init: %v", ErrPlayback, err)
	}
	return portaudio.Terminate, nil
}
