package response

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/durga/internal/infra/relay"
)

// RelayProviderConfig configures the HTTP guardian relay.
type RelayProviderConfig struct {
	BaseURL   string `mapstructure:"base_url" validate:"required,url"`
	APIKey    string `mapstructure:"api_key" validate:"required"`
	TimeoutMs int    `mapstructure:"timeout_ms" default:"1500" validate:"min=100"`
}

// RelayProvider asks a remote relay for the guardian's reply.
type RelayProvider struct {
	client *relay.Client
}

// NewRelayProvider creates a new RelayProvider.
func NewRelayProvider(settings map[string]any) (*RelayProvider, error) {
	var config RelayProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	client, err := relay.New(relay.Config{
		BaseURL: config.BaseURL,
		APIKey:  config.APIKey,
		Timeout: time.Duration(config.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create relay client")
	}
	return &RelayProvider{client: client}, nil
}

// Reply forwards req to the relay.
func (p *RelayProvider) Reply(ctx context.Context, req Request) (string, error) {
	if req.Kind == KindCallback {
		return p.client.Callback(ctx, req.SessionID, req.Guardian)
	}
	return p.client.Reply(ctx, req.SessionID, req.Guardian, req.Text)
}

// Name returns the provider name.
func (p *RelayProvider) Name() string {
	return "relay"
}
