package response

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// Chain asks providers in order and returns the first non-empty reply.
type Chain struct {
	providers []ProviderWithMetadata
}

var _ Provider = (*Chain)(nil)

// NewChain creates a new provider chain.
func NewChain(providers []ProviderWithMetadata) *Chain {
	return &Chain{providers: providers}
}

// Reply returns the first reply any provider gives.
func (c *Chain) Reply(ctx context.Context, req Request) (string, error) {
	for i, pm := range c.providers {
		if err := ctx.Err(); err != nil {
			return "", errors.Wrap(err, "reply cancelled")
		}

		text, err := pm.Provider.Reply(ctx, req)
		if err != nil {
			zlog.Warn().Msgf("response: provider failed, trying next: index=%d provider=%s error=%v", i+1, pm.DisplayName, err)
			continue
		}
		if text == "" {
			zlog.Debug().Msgf("response: provider returned no reply: provider=%s", pm.DisplayName)
			continue
		}
		return text, nil
	}
	return "", ErrNoReply
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "provider_chain"
}

// Len returns the number of providers.
func (c *Chain) Len() int {
	return len(c.providers)
}
