package emergency

import (
	"time"

	"github.com/osa030/durga/internal/app/timed"
	"github.com/osa030/durga/internal/domain/dispatch"
)

// MessageKind identifies the author of an ops feed message.
type MessageKind int

const (
	MessageSystem   MessageKind = iota // Generated by the session
	MessageUser                        // Typed by the user
	MessageGuardian                    // Reply from a guardian
)

// String returns the string representation of the message kind.
func (k MessageKind) String() string {
	switch k {
	case MessageSystem:
		return "system"
	case MessageUser:
		return "user"
	case MessageGuardian:
		return "guardian"
	default:
		return "unknown"
	}
}

// Message is one entry of the ops feed.
type Message struct {
	ID     int
	Kind   MessageKind
	Sender string // Guardian name, empty otherwise
	Text   string
	At     time.Time
}

// Session is one SOS episode, from trigger to disarm.
type Session struct {
	ID          string
	CreatedAt   time.Time
	ActivatedAt *time.Time

	board    *dispatch.Board
	messages []Message
}

func (s *Session) appendMessage(kind MessageKind, sender, text string, at time.Time) Message {
	m := Message{
		ID:     len(s.messages) + 1,
		Kind:   kind,
		Sender: sender,
		Text:   text,
		At:     at,
	}
	s.messages = append(s.messages, m)
	return m
}

// ChallengeStatus is the visible state of the PIN pad.
type ChallengeStatus struct {
	Open    bool
	Entered int
	Error   bool
}

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	State           timed.State
	SessionID       string
	Remaining       int
	CreatedAt       time.Time
	ActivatedAt     *time.Time
	Stages          []dispatch.Stage
	Challenge       ChallengeStatus
	GestureProgress float64
	Messages        []Message
}

// Live reports whether a session exists.
func (s Snapshot) Live() bool {
	return s.State == StateCountingDown || s.State == StateActive
}

// Stage returns the stage of kind k, if the snapshot has a session.
func (s Snapshot) Stage(k dispatch.Kind) (dispatch.Stage, bool) {
	for _, st := range s.Stages {
		if st.Kind == k {
			return st, true
		}
	}
	return dispatch.Stage{}, false
}
