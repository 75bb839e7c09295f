package decoy

// EventType represents a decoy call event type.
type EventType int

const (
	EventStateChanged    EventType = iota // Any state entry
	EventWaitTick                         // Wait countdown decremented
	EventCallTick                         // Call timer incremented
	EventRing                             // Ringer cycle started
	EventControlsChanged                  // Mute, speaker or keypad changed
	EventCallEnded                        // Call declined or hung up
	EventClosed                           // Hand control back to the caller
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventWaitTick:
		return "wait_tick"
	case EventCallTick:
		return "call_tick"
	case EventRing:
		return "ring"
	case EventControlsChanged:
		return "controls_changed"
	case EventCallEnded:
		return "call_ended"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event represents a decoy call event.
type Event struct {
	Type     EventType
	Snapshot Snapshot
}
