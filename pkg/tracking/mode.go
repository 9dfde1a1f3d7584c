package tracking

import "fmt"

// Mode selects whether, and with which classifier profile, faces are detected.
type Mode int

const (
	// ModeDisabled shows the camera feed without detection.
	ModeDisabled Mode = iota
	// ModeVariantA detects with the Haar frontal-face profile.
	ModeVariantA
	// ModeVariantB detects with the LBP frontal-face profile.
	ModeVariantB
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeVariantA:
		return "variant-a"
	case ModeVariantB:
		return "variant-b"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Detecting reports whether the detector runs in this mode.
func (m Mode) Detecting() bool {
	return m == ModeVariantA || m == ModeVariantB
}
