package notification

import "time"

// Type identifies a notification.
type Type string

const (
	TypeInitialState     Type = "initial_state"     // First notification of a stream
	TypeSOSBroadcast     Type = "sos_broadcast"     // A device went into SOS
	TypeSOSCancelled     Type = "sos_cancelled"     // A device disarmed its SOS
	TypeSessionState     Type = "session_state"     // Emergency session state or countdown changed
	TypeStageChanged     Type = "stage_changed"     // Dispatch stage progressed
	TypeChallengeChanged Type = "challenge_changed" // PIN pad changed
	TypeOpsMessage       Type = "ops_message"       // Ops feed message
	TypeCallState        Type = "call_state"        // Decoy call state changed
	TypeCallClosed       Type = "call_closed"       // Decoy call screen should close
	TypeAnnouncement     Type = "announcement"      // Admin broadcast
)

// Notification is one event pushed to subscribers.
type Notification struct {
	SequenceNo uint64    `json:"sequence_no"`
	Type       Type      `json:"type"`
	DeviceID   string    `json:"device_id,omitempty"` // Empty for broadcasts
	At         time.Time `json:"at"`
	Payload    any       `json:"payload,omitempty"`
}
