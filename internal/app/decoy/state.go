// Package decoy implements the fake incoming call used as a social escape.
//
// A call is configured on the setup screen, optionally waits for a delay,
// rings, and is either answered or declined. The ended state is terminal:
// the owner creates a new controller for the next call.
package decoy

import "github.com/osa030/durga/internal/app/timed"

// States
const (
	StateSetup    timed.State = "setup"
	StateWaiting  timed.State = "waiting"
	StateIncoming timed.State = "incoming"
	StateActive   timed.State = "active"
	StateEnded    timed.State = "ended"
)

// Triggers
const (
	TriggerRingNow  timed.Trigger = "ring_now"
	TriggerSchedule timed.Trigger = "schedule"
	TriggerExpired  timed.Trigger = "countdown_expired"
	TriggerCancel   timed.Trigger = "cancel"
	TriggerAnswer   timed.Trigger = "answer"
	TriggerHangUp   timed.Trigger = "hang_up"
)
