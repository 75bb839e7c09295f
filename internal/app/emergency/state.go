// Package emergency provides the SOS session controller: countdown,
// irreversible activation, staged dispatch and PIN-gated cancellation.
package emergency

import "github.com/osa030/durga/internal/app/timed"

// Session states.
const (
	StateIdle         timed.State = "idle"          // No session
	StateCountingDown timed.State = "counting_down" // Countdown before the alert is sent
	StateActive       timed.State = "active"        // Alert sent, dispatch running
)

// Triggers.
const (
	TriggerSOS     timed.Trigger = "sos"
	TriggerExpired timed.Trigger = "countdown_expired"
	TriggerDisarm  timed.Trigger = "disarm"
)
