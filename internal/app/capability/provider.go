// Package capability abstracts device features the controllers drive but do
// not depend on: screen, orientation, navigation, haptics and audio.
package capability

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ErrUnsupported is returned by providers lacking a capability.
var ErrUnsupported = errors.New("capability not supported")

// Provider is implemented by the presentation layer.
type Provider interface {
	RequestFullscreen() error
	ExitFullscreen() error
	LockOrientation() error
	UnlockOrientation() error

	// GuardNavigation suppresses back navigation and page unload.
	GuardNavigation() error
	ReleaseNavigation() error

	// Vibrate plays an on/off pattern, starting with "on".
	Vibrate(pattern []time.Duration) error
	StopVibration() error

	PlayTone(frequencyHz float64, d time.Duration) error
	StopTone() error
}

// Nop is a Provider where every capability is unavailable.
type Nop struct{}

var _ Provider = Nop{}

func (Nop) RequestFullscreen() error { return ErrUnsupported }
func (Nop) ExitFullscreen() error { return nil }
func (Nop) LockOrientation() error { return ErrUnsupported }
func (Nop) UnlockOrientation() error { return nil }
func (Nop) GuardNavigation() error { return ErrUnsupported }
func (Nop) ReleaseNavigation() error { return nil }
func (Nop) Vibrate([]time.Duration) error { return ErrUnsupported }
func (Nop) StopVibration() error { return nil }
func (Nop) PlayTone(float64, time.Duration) error { return ErrUnsupported }
func (Nop) StopTone() error { return nil }

// Pattern converts milliseconds into a vibration pattern.
func Pattern(ms ...int) []time.Duration {
	out := make([]time.Duration, len(ms))
	for i, v := range ms {
		out[i] = time.Duration(v) * time.Millisecond
	}
	return out
}
