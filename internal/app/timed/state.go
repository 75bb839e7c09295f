// Package timed provides a finite state machine whose states may carry a
// one-second countdown or stopwatch, with timers scoped to the current state.
package timed

// State identifies a machine state.
type State string

// Trigger identifies an event that may cause a transition.
type Trigger string

// String returns the state identifier.
func (s State) String() string { return string(s) }

// String returns the trigger identifier.
func (t Trigger) String() string { return string(t) }

// TickSource selects who drives the one-second tick.
type TickSource int

const (
	TickAuto     TickSource = iota // Machine arms its own one-second clock timer
	TickExternal                   // Owner calls Tick once per elapsed second
)

// String returns the string representation of the tick source.
func (t TickSource) String() string {
	switch t {
	case TickAuto:
		return "auto"
	case TickExternal:
		return "external"
	default:
		return "unknown"
	}
}

type tickMode int

const (
	modeNone tickMode = iota
	modeCountdown
	modeStopwatch
)
