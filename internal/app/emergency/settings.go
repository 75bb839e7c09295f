package emergency

import (
	"github.com/osa030/durga/internal/infra/config"
)

// ConfigFrom maps the emergency section of the application config.
// Clock, capabilities and responses are left for the caller.
func ConfigFrom(ec config.EmergencyConfig) Config {
	return Config{
		CountdownSec:     ec.CountdownSec,
		PINHash:          ec.PINHash,
		PINErrorDisplay:  config.Ms(ec.PINErrorDisplayMs),
		GestureThreshold: ec.GestureThreshold,
		Guardians:        append([]string(nil), ec.Guardians...),
		ReplyDelay:       config.Ms(ec.ReplyDelayMs),
		CallbackDelay:    config.Ms(ec.CallbackDelayMs),
		Policy: SimulatedPolicy{
			GuardianCount:    ec.GuardianCount,
			GuardianInterval: config.Ms(ec.GuardianIntervalMs),
			AuthoritiesDelay: config.Ms(ec.AuthoritiesDelayMs),
			EvidenceDelay:    config.Ms(ec.EvidenceDelayMs),
			AuthoritiesDone:  config.Ms(ec.AuthoritiesDoneMs),
			EvidenceDone:     config.Ms(ec.EvidenceDoneMs),
		},
	}
}
