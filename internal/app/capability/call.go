package capability

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/infra/metrics"
)

// Call runs one capability request and swallows any failure, including a
// panic, so callers can continue their transition. It reports success.
func Call(name string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Warn().Msgf("capability: %s panicked: %v", name, r)
			metrics.IncCapabilityFailure(name)
			ok = false
		}
	}()

	if err := fn(); err != nil {
		if errors.Is(err, ErrUnsupported) {
			zlog.Debug().Msgf("capability: %s unsupported", name)
		} else {
			zlog.Debug().Msgf("capability: %s failed: %v", name, err)
		}
		metrics.IncCapabilityFailure(name)
		return false
	}
	return true
}

