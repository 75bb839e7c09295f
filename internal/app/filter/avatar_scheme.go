package filter

import (
	"context"
	"net/url"
	"slices"
	"strings"

	zlog "github.com/rs/zerolog/log"
)

// AvatarSchemeConfig represents the configuration for AvatarSchemeFilter.
type AvatarSchemeConfig struct {
	Schemes []string `yaml:"schemes" mapstructure:"schemes" default:"[\"https\",\"data\"]" validate:"min=1,dive,oneof=http https data"`
}

// AvatarSchemeFilter restricts where caller pictures may be loaded from.
type AvatarSchemeFilter struct {
	config *AvatarSchemeConfig
}

// NewAvatarSchemeFilter creates a new avatar scheme filter.
func NewAvatarSchemeFilter() *AvatarSchemeFilter {
	return &AvatarSchemeFilter{}
}

func (f *AvatarSchemeFilter) Name() string {
	return "avatar_scheme"
}

func (f *AvatarSchemeFilter) Description() string {
	return "Checks the caller picture URL scheme"
}

func (f *AvatarSchemeFilter) ReturnCodes() []string {
	return []string{"avatar_scheme"}
}

func (f *AvatarSchemeFilter) ValidateConfig(settings map[string]any) error {
	var config AvatarSchemeConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.config = &config
	zlog.Info().Msgf("avatar scheme filter config: %+v", config)
	return nil
}

func (f *AvatarSchemeFilter) Check(ctx context.Context, req CallRequest, state DeviceState) Result {
	// Empty avatar falls back to a default picture
	if req.CallerAvatar == "" || f.config == nil {
		return Accept()
	}
	if !slices.Contains(f.config.Schemes, avatarScheme(req.CallerAvatar)) {
		return Reject("avatar_scheme")
	}
	return Accept()
}

func avatarScheme(s string) string {
	if strings.HasPrefix(s, "data:") {
		return "data"
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

func init() {
	Register("avatar_scheme", func() Filter {
		return &AvatarSchemeFilter{}
	})
}
