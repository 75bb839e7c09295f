package decoy

import (
	"time"

	"github.com/osa030/durga/internal/app/capability"
	"github.com/osa030/durga/internal/app/timed"
)

// Ringtone: two sine tones, the second one a third higher.
const (
	firstToneHz     = 440.0
	secondToneHz    = 554.0
	toneLength      = 500 * time.Millisecond
	secondToneDelay = 200 * time.Millisecond
)

var ringPattern = capability.Pattern(500, 200, 500, 200, 500)

// startRinging runs on entering StateIncoming. The ring repeats until the
// state is exited; every timer it schedules belongs to the state.
func (c *Controller) startRinging(from, to timed.State) {
	capability.Call("guard_navigation", c.caps.GuardNavigation)
	c.ringing = true
	c.ringLocked()
	c.machine.Every(c.config.RingInterval, c.ringLocked)
}

func (c *Controller) ringLocked() {
	capability.Call("play_tone", func() error { return c.caps.PlayTone(firstToneHz, toneLength) })
	c.machine.After(secondToneDelay, func() {
		capability.Call("play_tone", func() error { return c.caps.PlayTone(secondToneHz, toneLength) })
	})
	capability.Call("vibrate", func() error { return c.caps.Vibrate(ringPattern) })
	c.sendEventLocked(EventRing)
}

// stopRinging runs on every exit from StateIncoming, whatever the trigger.
func (c *Controller) stopRinging(from, to timed.State) {
	c.ringing = false
	capability.Call("stop_tone", c.caps.StopTone)
	capability.Call("stop_vibration", c.caps.StopVibration)
	capability.Call("release_navigation", c.caps.ReleaseNavigation)
}
