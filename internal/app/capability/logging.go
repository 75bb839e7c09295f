package capability

import (
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Logging is a Provider that records every request in the log. It stands in
// for a handset when the controllers run inside the server.
type Logging struct {
	Device string
}

var _ Provider = Logging{}

func (l Logging) RequestFullscreen() error {
	zlog.Info().Msgf("device: fullscreen on device=%s", l.Device)
	return nil
}

func (l Logging) ExitFullscreen() error {
	zlog.Info().Msgf("device: fullscreen off device=%s", l.Device)
	return nil
}

func (l Logging) LockOrientation() error {
	zlog.Info().Msgf("device: orientation locked device=%s", l.Device)
	return nil
}

func (l Logging) UnlockOrientation() error {
	zlog.Info().Msgf("device: orientation unlocked device=%s", l.Device)
	return nil
}

func (l Logging) GuardNavigation() error {
	zlog.Info().Msgf("device: navigation guarded device=%s", l.Device)
	return nil
}

func (l Logging) ReleaseNavigation() error {
	zlog.Info().Msgf("device: navigation released device=%s", l.Device)
	return nil
}

func (l Logging) Vibrate(pattern []time.Duration) error {
	zlog.Debug().Msgf("device: vibrate device=%s pattern=%v", l.Device, pattern)
	return nil
}

func (l Logging) StopVibration() error {
	zlog.Debug().Msgf("device: vibration stopped device=%s", l.Device)
	return nil
}

func (l Logging) PlayTone(frequencyHz float64, d time.Duration) error {
	zlog.Debug().Msgf("device: tone device=%s hz=%.0f duration=%v", l.Device, frequencyHz, d)
	return nil
}

func (l Logging) StopTone() error {
	zlog.Debug().Msgf("device: tone stopped device=%s", l.Device)
	return nil
}
