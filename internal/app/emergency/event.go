package emergency

import "github.com/osa030/durga/internal/domain/dispatch"

// EventType represents an emergency event type.
type EventType int

const (
	EventSessionCreated   EventType = iota // SOS triggered, countdown started
	EventCountdownTick                     // Countdown decremented
	EventActivated                         // Alert sent
	EventStageChanged                      // Dispatch stage progressed
	EventChallengeChanged                  // PIN pad opened, typed into, failed or reset
	EventMessage                           // Ops feed message appended
	EventSessionDiscarded                  // PIN matched, session gone; navigate away
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventSessionCreated:
		return "session_created"
	case EventCountdownTick:
		return "countdown_tick"
	case EventActivated:
		return "activated"
	case EventStageChanged:
		return "stage_changed"
	case EventChallengeChanged:
		return "challenge_changed"
	case EventMessage:
		return "message"
	case EventSessionDiscarded:
		return "session_discarded"
	default:
		return "unknown"
	}
}

// Event represents an emergency event.
type Event struct {
	Type     EventType
	Snapshot Snapshot        // Controller state after the event
	Stage    *dispatch.Stage // Changed stage (EventStageChanged only)
	Message  *Message        // New message (EventMessage only)
}
