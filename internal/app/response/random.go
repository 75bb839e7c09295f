package response

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// RandomProviderConfig adds an optional seed to the phrase settings.
type RandomProviderConfig struct {
	Seed uint64 `mapstructure:"seed"`
}

// RandomProvider picks a phrase at random. A non-zero seed makes the
// sequence reproducible.
type RandomProvider struct {
	mu     sync.Mutex
	config *PhraseConfig
	rng    *rand.Rand
}

// NewRandomProvider creates a new RandomProvider.
func NewRandomProvider(settings map[string]any) (*RandomProvider, error) {
	config, err := decodePhrases(settings)
	if err != nil {
		return nil, err
	}

	var seedCfg RandomProviderConfig
	if err := mapstructure.WeakDecode(settings, &seedCfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode seed")
	}

	seed := seedCfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &RandomProvider{
		config: config,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Reply returns a random phrase.
func (p *RandomProvider) Reply(ctx context.Context, req Request) (string, error) {
	if req.Kind == KindCallback {
		return p.config.Callback, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config.Messages[p.rng.IntN(len(p.config.Messages))], nil
}

// Name returns the provider name.
func (p *RandomProvider) Name() string {
	return "random"
}
