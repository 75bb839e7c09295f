package response

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// StaticProviderConfig holds the single reply.
type StaticProviderConfig struct {
	Text     string `mapstructure:"text" validate:"required"`
	Callback string `mapstructure:"callback" default:"📞 Calling you now..."`
}

// StaticProvider always gives the same reply.
type StaticProvider struct {
	config *StaticProviderConfig
}

// NewStaticProvider creates a new StaticProvider.
func NewStaticProvider(settings map[string]any) (*StaticProvider, error) {
	var config StaticProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &StaticProvider{config: &config}, nil
}

// Static returns a provider replying text to every message.
func Static(text string) *StaticProvider {
	return &StaticProvider{config: &StaticProviderConfig{Text: text, Callback: DefaultCallbackReply}}
}

// Reply returns the configured text.
func (p *StaticProvider) Reply(ctx context.Context, req Request) (string, error) {
	if req.Kind == KindCallback {
		return p.config.Callback, nil
	}
	return p.config.Text, nil
}

// Name returns the provider name.
func (p *StaticProvider) Name() string {
	return "static"
}
