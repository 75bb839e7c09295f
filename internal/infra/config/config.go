// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig            `yaml:"server"`
	Admin     AdminConfig             `yaml:"admin"`
	Emergency EmergencyConfig         `yaml:"emergency"`
	Decoy     DecoyConfig             `yaml:"decoy"`
	Responses ResponsesConfig         `yaml:"responses"`
	Filters   map[string]FilterConfig `yaml:"filters"`
	Timer     TimerConfig             `yaml:"timer"`
	Messages  MessagesConfig          `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr        string      `yaml:"addr" default:":8080"`
	MetricsPath string      `yaml:"metrics_path" default:"/metrics"`
	Hooks       HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// EmergencyConfig represents the SOS session configuration.
type EmergencyConfig struct {
	CountdownSec       int      `yaml:"countdown_sec" default:"5" validate:"gte=1,lte=60"`
	PINHash            string   `yaml:"pin_hash" validate:"required"`
	PINErrorDisplayMs  int      `yaml:"pin_error_display_ms" default:"1000" validate:"gte=0,lte=10000"`
	GestureThreshold   float64  `yaml:"gesture_threshold" default:"0.9" validate:"gt=0,lt=1"`
	Guardians          []string `yaml:"guardians" default:"[\"Dad\",\"Mom\"]" validate:"min=1,dive,required"`
	GuardianCount      int      `yaml:"guardian_count" default:"5" validate:"gte=1,lte=50"`
	GuardianIntervalMs int      `yaml:"guardian_interval_ms" default:"300" validate:"gte=1"`
	AuthoritiesDelayMs int      `yaml:"authorities_delay_ms" default:"2000" validate:"gte=0"`
	EvidenceDelayMs    int      `yaml:"evidence_delay_ms" default:"1500" validate:"gte=0"`
	AuthoritiesDoneMs  int      `yaml:"authorities_done_ms" validate:"gte=0"`
	EvidenceDoneMs     int      `yaml:"evidence_done_ms" validate:"gte=0"`
	ReplyDelayMs       int      `yaml:"reply_delay_ms" default:"2000" validate:"gte=0"`
	CallbackDelayMs    int      `yaml:"callback_delay_ms" default:"1500" validate:"gte=0"`
}

// DecoyConfig represents the decoy call configuration.
type DecoyConfig struct {
	DelayOptions    []int    `yaml:"delay_options" default:"[0,10,30,60,300]" validate:"min=1,dive,gte=0"`
	DefaultCaller   string   `yaml:"default_caller" default:"Mom" validate:"required"`
	Avatars         []string `yaml:"avatars" validate:"dive,url"`
	AnswerThreshold float64  `yaml:"answer_threshold" default:"0.9" validate:"gt=0,lt=1"`
	DeclineCloseMs  int      `yaml:"decline_close_ms" default:"500" validate:"gte=0"`
	EndedCloseMs    int      `yaml:"ended_close_ms" default:"2000" validate:"gte=0"`
	RingIntervalMs  int      `yaml:"ring_interval_ms" default:"2000" validate:"gte=500"`
}

// ResponsesConfig represents guardian reply provider configuration.
type ResponsesConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig represents a single response provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// TimerConfig represents wall-clock timer configuration.
type TimerConfig struct {
	ResolutionMs int `yaml:"resolution_ms" default:"50" validate:"gte=1,lte=1000"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Success          string `yaml:"success" default:"OK"`
	DefaultError     string `yaml:"default_error" default:"Request failed"`
	InvalidState     string `yaml:"invalid_state" default:"Not available right now"`
	InvalidDevice    string `yaml:"invalid_device" default:"Unknown device"`
	CallerName       string `yaml:"caller_name" default:"Enter a caller name"`
	DelayOption      string `yaml:"delay_option" default:"Pick one of the offered delays"`
	AvatarScheme     string `yaml:"avatar_scheme" default:"Caller picture must be a web or data URL"`
	SOSActive        string `yaml:"sos_active" default:"Decoy calls are unavailable during an SOS"`
	InvalidPINDigit  string `yaml:"invalid_pin_digit" default:"PIN digits must be 0-9"`
	ChallengeClosed  string `yaml:"challenge_closed" default:"Slide to cancel first"`
	IncorrectPIN     string `yaml:"incorrect_pin" default:"Incorrect PIN"`
	SessionCancelled string `yaml:"session_cancelled" default:"SOS cancelled"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("DURGA_PIN_HASH"); v != "" {
		c.Emergency.PINHash = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("DURGA_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "invalid_state":
		return c.Messages.InvalidState
	case "invalid_device":
		return c.Messages.InvalidDevice
	case "caller_name":
		return c.Messages.CallerName
	case "delay_option":
		return c.Messages.DelayOption
	case "avatar_scheme":
		return c.Messages.AvatarScheme
	case "sos_active":
		return c.Messages.SOSActive
	case "invalid_pin_digit":
		return c.Messages.InvalidPINDigit
	case "challenge_closed":
		return c.Messages.ChallengeClosed
	case "incorrect_pin":
		return c.Messages.IncorrectPIN
	case "session_cancelled":
		return c.Messages.SessionCancelled
	default:
		return c.Messages.DefaultError
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if _, err := bcrypt.Cost([]byte(c.Emergency.PINHash)); err != nil {
		return errors.Wrap(err, "emergency.pin_hash is not a bcrypt hash")
	}

	if !slices.Contains(c.Decoy.DelayOptions, 0) {
		return errors.New("decoy.delay_options must offer an immediate call (0)")
	}

	return nil
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// FilterSettings returns the settings for a filter.
func (c *Config) FilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}

// Ms converts a millisecond setting to a duration.
func Ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
