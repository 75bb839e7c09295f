package filter

import (
	"context"
	"strings"
	"unicode/utf8"

	zlog "github.com/rs/zerolog/log"
)

// CallerNameConfig represents the configuration for CallerNameFilter.
type CallerNameConfig struct {
	MaxLength int      `yaml:"max_length" mapstructure:"max_length" default:"40" validate:"gte=1,lte=40"`
	Blocked   []string `yaml:"blocked" mapstructure:"blocked" validate:"dive,required"`
}

// CallerNameFilter checks the caller name shown on the fake call.
type CallerNameFilter struct {
	config *CallerNameConfig
}

// NewCallerNameFilter creates a new caller name filter.
func NewCallerNameFilter() *CallerNameFilter {
	return &CallerNameFilter{}
}

func (f *CallerNameFilter) Name() string {
	return "caller_name"
}

func (f *CallerNameFilter) Description() string {
	return "Checks the caller name length and refuses blocked names"
}

func (f *CallerNameFilter) ReturnCodes() []string {
	return []string{"caller_name"}
}

func (f *CallerNameFilter) ValidateConfig(settings map[string]any) error {
	var config CallerNameConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.config = &config
	zlog.Info().Msgf("caller name filter config: %+v", config)
	return nil
}

func (f *CallerNameFilter) Check(ctx context.Context, req CallRequest, state DeviceState) Result {
	name := strings.TrimSpace(req.CallerName)
	if name == "" {
		return Reject("caller_name")
	}

	// If config is not set, only the empty check applies
	if f.config == nil {
		return Accept()
	}

	if utf8.RuneCountInString(name) > f.config.MaxLength {
		return Reject("caller_name")
	}
	for _, b := range f.config.Blocked {
		if strings.EqualFold(name, strings.TrimSpace(b)) {
			return Reject("caller_name")
		}
	}
	return Accept()
}

func init() {
	Register("caller_name", func() Filter {
		return &CallerNameFilter{}
	})
}
