//go:build !cgo

package audio

import "fmt"

// OpenHost always fails without cgo.
func OpenHost() (func() error, error) {
	return nil, fmt.Errorf("%w: PortAudio requires cgo", ErrPlayback)
}
