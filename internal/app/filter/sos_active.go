package filter

import (
	"context"
)

// SOSActiveFilter refuses decoy calls while an emergency session is live.
type SOSActiveFilter struct{}

func (f *SOSActiveFilter) Name() string {
	return "sos_active"
}

func (f *SOSActiveFilter) Description() string {
	return "Refuses decoy calls during an SOS session"
}

func (f *SOSActiveFilter) ReturnCodes() []string {
	return []string{"sos_active"}
}

func (f *SOSActiveFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *SOSActiveFilter) Check(ctx context.Context, req CallRequest, state DeviceState) Result {
	if state.SOSActive {
		return Reject("sos_active")
	}
	return Accept()
}

func init() {
	Register("sos_active", func() Filter {
		return &SOSActiveFilter{}
	})
}
