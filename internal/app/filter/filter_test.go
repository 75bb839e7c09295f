package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/durga/internal/infra/config"
)

func TestCallerNameFilter_Check(t *testing.T) {
	tests := []struct {
		name         string
		settings     map[string]any
		callerName   string
		wantAccepted bool
	}{
		{
			name:         "default settings",
			settings:     nil,
			callerName:   "Mom",
			wantAccepted: true,
		},
		{
			name:         "blank name",
			settings:     nil,
			callerName:   "   ",
			wantAccepted: false,
		},
		{
			name:         "shorter max length",
			settings:     map[string]any{"max_length": 5},
			callerName:   "Grandma",
			wantAccepted: false,
		},
		{
			name:         "multibyte name within limit",
			settings:     map[string]any{"max_length": 3},
			callerName:   "お母さ",
			wantAccepted: true,
		},
		{
			name:         "blocked name ignores case",
			settings:     map[string]any{"blocked": []string{"Police"}},
			callerName:   " police ",
			wantAccepted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewCallerNameFilter()
			require.NoError(t, f.ValidateConfig(tt.settings))

			result := f.Check(context.Background(), CallRequest{CallerName: tt.callerName}, DeviceState{})
			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "caller_name", result.Code)
			}
		})
	}
}

func TestCallerNameFilter_ValidateConfig(t *testing.T) {
	f := NewCallerNameFilter()
	assert.Error(t, f.ValidateConfig(map[string]any{"max_length": 41}))
	assert.Error(t, f.ValidateConfig(map[string]any{"max_length": "many"}))
}

func TestDelayOptionFilter_Check(t *testing.T) {
	tests := []struct {
		name         string
		allowed      []int
		delay        int
		wantAccepted bool
	}{
		{name: "no list", allowed: nil, delay: 300, wantAccepted: true},
		{name: "allowed", allowed: []int{0, 10}, delay: 10, wantAccepted: true},
		{name: "not allowed", allowed: []int{0, 10}, delay: 60, wantAccepted: false},
		{name: "negative", allowed: nil, delay: -1, wantAccepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDelayOptionFilter()
			require.NoError(t, f.ValidateConfig(map[string]any{"allowed": tt.allowed}))

			result := f.Check(context.Background(), CallRequest{DelaySeconds: tt.delay}, DeviceState{})
			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "delay_option", result.Code)
			}
		})
	}
}

func TestAvatarSchemeFilter_Check(t *testing.T) {
	tests := []struct {
		name         string
		settings     map[string]any
		avatar       string
		wantAccepted bool
	}{
		{name: "empty avatar", avatar: "", wantAccepted: true},
		{name: "https by default", avatar: "https://images.example.com/a.jpg", wantAccepted: true},
		{name: "data by default", avatar: "data:image/png;base64,AAAA", wantAccepted: true},
		{name: "http refused by default", avatar: "http://images.example.com/a.jpg", wantAccepted: false},
		{
			name:         "http allowed",
			settings:     map[string]any{"schemes": []string{"http", "https"}},
			avatar:       "http://images.example.com/a.jpg",
			wantAccepted: true,
		},
		{name: "javascript", avatar: "javascript:alert(1)", wantAccepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewAvatarSchemeFilter()
			require.NoError(t, f.ValidateConfig(tt.settings))

			result := f.Check(context.Background(), CallRequest{CallerAvatar: tt.avatar}, DeviceState{})
			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "avatar_scheme", result.Code)
			}
		})
	}
}

func TestAvatarSchemeFilter_ValidateConfig(t *testing.T) {
	f := NewAvatarSchemeFilter()
	assert.Error(t, f.ValidateConfig(map[string]any{"schemes": []string{"ftp"}}))
}

func TestSOSActiveFilter_Check(t *testing.T) {
	f := &SOSActiveFilter{}
	req := CallRequest{CallerName: "Mom"}

	assert.True(t, f.Check(context.Background(), req, DeviceState{}).Accepted)

	result := f.Check(context.Background(), req, DeviceState{SOSActive: true})
	assert.False(t, result.Accepted)
	assert.Equal(t, "sos_active", result.Code)
}

func TestChain_Execute(t *testing.T) {
	c := NewChain()
	c.Add(&SOSActiveFilter{})
	c.Add(NewCallerNameFilter())

	req := CallRequest{DeviceID: "dev-1", CallerName: ""}

	// The first rejection wins.
	result := c.Execute(context.Background(), req, DeviceState{SOSActive: true})
	assert.Equal(t, "sos_active", result.Code)

	result = c.Execute(context.Background(), req, DeviceState{})
	assert.Equal(t, "caller_name", result.Code)

	req.CallerName = "Mom"
	assert.True(t, c.Execute(context.Background(), req, DeviceState{}).Accepted)
	assert.Len(t, c.Filters(), 2)
}

func TestNewChainFromConfig(t *testing.T) {
	cfg := &config.Config{
		Filters: map[string]config.FilterConfig{
			"sos_active":   {Enabled: true},
			"delay_option": {Enabled: true, Settings: map[string]any{"allowed": []int{0, 10}}},
			"caller_name":  {Enabled: false},
		},
	}

	chain, err := NewChainFromConfig(cfg)
	require.NoError(t, err)

	names := make([]string, 0)
	for _, f := range chain.Filters() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"delay_option", "sos_active"}, names)

	result := chain.Execute(context.Background(), CallRequest{CallerName: "Mom", DelaySeconds: 30}, DeviceState{})
	assert.Equal(t, "delay_option", result.Code)
}

func TestNewChainFromConfig_OfferedDelays(t *testing.T) {
	cfg := &config.Config{
		Decoy:   config.DecoyConfig{DelayOptions: []int{0, 10, 30, 60, 300}},
		Filters: map[string]config.FilterConfig{"delay_option": {Enabled: true}},
	}

	chain, err := NewChainFromConfig(cfg)
	require.NoError(t, err)

	req := CallRequest{CallerName: "Mom", DelaySeconds: 30}
	assert.True(t, chain.Execute(context.Background(), req, DeviceState{}).Accepted)

	req.DelaySeconds = 5
	assert.Equal(t, "delay_option", chain.Execute(context.Background(), req, DeviceState{}).Code)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		filters map[string]config.FilterConfig
		wantErr bool
	}{
		{
			name:    "valid",
			filters: map[string]config.FilterConfig{"caller_name": {Enabled: true, Settings: map[string]any{"max_length": 20}}},
		},
		{
			name:    "unknown filter",
			filters: map[string]config.FilterConfig{"market_filter": {Enabled: true}},
			wantErr: true,
		},
		{
			name:    "disabled unknown filter",
			filters: map[string]config.FilterConfig{"market_filter": {Enabled: false}},
		},
		{
			name:    "bad settings",
			filters: map[string]config.FilterConfig{"avatar_scheme": {Enabled: true, Settings: map[string]any{"schemes": []string{"ftp"}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(&config.Config{Filters: tt.filters})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"avatar_scheme", "caller_name", "delay_option", "sos_active"}, Names())
	for name, factory := range GetRegistered() {
		f := factory()
		assert.Equal(t, name, f.Name())
		assert.NotEmpty(t, f.Description())
		assert.Equal(t, []string{name}, f.ReturnCodes())
	}
}
