package decoy

import (
	"github.com/osa030/durga/internal/infra/config"
)

// ConfigFrom maps the decoy section of the application config.
func ConfigFrom(dc config.DecoyConfig) Config {
	return Config{
		DefaultCaller:   dc.DefaultCaller,
		Avatars:         append([]string(nil), dc.Avatars...),
		AnswerThreshold: dc.AnswerThreshold,
		DeclineClose:    config.Ms(dc.DeclineCloseMs),
		EndedClose:      config.Ms(dc.EndedCloseMs),
		RingInterval:    config.Ms(dc.RingIntervalMs),
	}
}
