package filter

import (
	"context"
	"slices"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/infra/config"
)

// DelayOptionConfig represents the configuration for DelayOptionFilter.
type DelayOptionConfig struct {
	Allowed []int `yaml:"allowed" mapstructure:"allowed" validate:"dive,gte=0,lte=3600"`
}

// DelayOptionFilter limits the delays a device may pick to the allowed
// list, or to the offered decoy delay options when the list is empty.
type DelayOptionFilter struct {
	config  *DelayOptionConfig
	offered []int
}

// NewDelayOptionFilter creates a new delay option filter.
func NewDelayOptionFilter() *DelayOptionFilter {
	return &DelayOptionFilter{}
}

func (f *DelayOptionFilter) Name() string {
	return "delay_option"
}

func (f *DelayOptionFilter) Description() string {
	return "Checks the call delay against an allowed list"
}

func (f *DelayOptionFilter) ReturnCodes() []string {
	return []string{"delay_option"}
}

// UseConfig reads the delay options offered on the setup screen.
func (f *DelayOptionFilter) UseConfig(cfg *config.Config) {
	f.offered = append([]int(nil), cfg.Decoy.DelayOptions...)
}

func (f *DelayOptionFilter) ValidateConfig(settings map[string]any) error {
	var config DelayOptionConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.config = &config
	zlog.Info().Msgf("delay option filter config: %+v", config)
	return nil
}

func (f *DelayOptionFilter) Check(ctx context.Context, req CallRequest, state DeviceState) Result {
	if req.DelaySeconds < 0 {
		return Reject("delay_option")
	}
	allowed := f.offered
	if f.config != nil && len(f.config.Allowed) > 0 {
		allowed = f.config.Allowed
	}
	if len(allowed) == 0 {
		return Accept()
	}
	if !slices.Contains(allowed, req.DelaySeconds) {
		return Reject("delay_option")
	}
	return Accept()
}

func init() {
	Register("delay_option", func() Filter {
		return &DelayOptionFilter{}
	})
}
