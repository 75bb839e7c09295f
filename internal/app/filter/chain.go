package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/infra/config"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig creates a chain of every enabled filter, in name order.
func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	c := NewChain()
	for _, name := range Names() {
		if !cfg.IsFilterEnabled(name) {
			continue
		}
		f := registry[name]()
		if ca, ok := f.(configAware); ok {
			ca.UseConfig(cfg)
		}
		if err := f.ValidateConfig(cfg.FilterSettings(name)); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		c.Add(f)
		zlog.Info().Msgf("filter: enabled name=%s", name)
	}
	return c, nil
}

// ValidateConfig checks the settings of every enabled filter.
func ValidateConfig(cfg *config.Config) error {
	for name, fc := range cfg.Filters {
		if !fc.Enabled {
			continue
		}
		factory, ok := registry[name]
		if !ok {
			return errors.Newf("unknown filter %q", name)
		}
		if err := factory().ValidateConfig(fc.Settings); err != nil {
			return errors.Wrapf(err, "filter %s", name)
		}
	}
	return nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the request.
func (c *Chain) Execute(ctx context.Context, req CallRequest, state DeviceState) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, req, state)
		if !result.Accepted {
			zlog.Debug().Msgf("filter: rejected filter=%s code=%s device_id=%s", f.Name(), result.Code, req.DeviceID)
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
