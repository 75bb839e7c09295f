package response

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// PhraseConfig holds the phrases shared by the rotating and random providers.
type PhraseConfig struct {
	Messages []string `mapstructure:"messages" validate:"min=1,dive,required"`
	Callback string   `mapstructure:"callback" default:"📞 Calling you now..." validate:"required"`
}

func decodePhrases(settings map[string]any) (*PhraseConfig, error) {
	var config PhraseConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if len(config.Messages) == 0 {
		config.Messages = append([]string(nil), DefaultMessageReplies...)
	}
	zlog.Debug().Msgf("response provider config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &config, nil
}

// RotatingProvider cycles through its phrases in order.
type RotatingProvider struct {
	mu     sync.Mutex
	config *PhraseConfig
	next   int
}

// NewRotatingProvider creates a new RotatingProvider.
func NewRotatingProvider(settings map[string]any) (*RotatingProvider, error) {
	config, err := decodePhrases(settings)
	if err != nil {
		return nil, err
	}
	return &RotatingProvider{config: config}, nil
}

// Reply returns the next phrase.
func (p *RotatingProvider) Reply(ctx context.Context, req Request) (string, error) {
	if req.Kind == KindCallback {
		return p.config.Callback, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	text := p.config.Messages[p.next%len(p.config.Messages)]
	p.next++
	return text, nil
}

// Name returns the provider name.
func (p *RotatingProvider) Name() string {
	return "rotating"
}
