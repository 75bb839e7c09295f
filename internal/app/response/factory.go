package response

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/infra/config"
)

// NewProvider creates a single provider from its configuration.
func NewProvider(pcfg config.ProviderConfig) (Provider, error) {
	switch pcfg.Type {
	case "rotating":
		return NewRotatingProvider(pcfg.Settings)
	case "random":
		return NewRandomProvider(pcfg.Settings)
	case "static":
		return NewStaticProvider(pcfg.Settings)
	case "relay":
		return NewRelayProvider(pcfg.Settings)
	default:
		return nil, errors.Newf("unsupported provider type: %s", pcfg.Type)
	}
}

// NewChainFromConfig creates a provider chain from configuration. With no
// providers configured the chain rotates through the default replies.
func NewChainFromConfig(cfg config.ResponsesConfig) (*Chain, error) {
	if len(cfg.Providers) == 0 {
		p, err := NewRotatingProvider(nil)
		if err != nil {
			return nil, err
		}
		zlog.Info().Msg("response: no providers configured, using default replies")
		return NewChain([]ProviderWithMetadata{{Provider: p, DisplayName: "default"}}), nil
	}

	var providers []ProviderWithMetadata
	for i, pcfg := range cfg.Providers {
		zlog.Debug().Msgf("response: creating provider: index=%d type=%s settings=%+v", i+1, pcfg.Type, pcfg.Settings)

		provider, err := NewProvider(pcfg)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: pcfg.DisplayName,
		})
		zlog.Info().Msgf("response: registered provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewChain(providers), nil
}
