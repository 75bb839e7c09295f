// Package call provides the decoy call configuration entity.
package call

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// MaxCallerNameLength is the longest caller name shown on the incoming screen.
const MaxCallerNameLength = 40

// DefaultCallerName is used when the setup screen is left untouched.
const DefaultCallerName = "Mom"

// Errors
var (
	ErrEmptyCallerName = errors.New("caller name is empty")
	ErrCallerNameLong  = errors.New("caller name is too long")
	ErrInvalidDelay    = errors.New("delay is negative or not an offered option")
	ErrInvalidAvatar   = errors.New("caller avatar must be an http(s) or data URL")
)

// DelayOption is one choice on the setup screen.
type DelayOption struct {
	Label   string // Button label
	Seconds int    // Delay before ringing
}

// DefaultDelayOptions are the delays offered when none are configured.
var DefaultDelayOptions = []DelayOption{
	{Label: "Now", Seconds: 0},
	{Label: "10s", Seconds: 10},
	{Label: "30s", Seconds: 30},
	{Label: "1m", Seconds: 60},
	{Label: "5m", Seconds: 300},
}

// DefaultAvatars are the stock caller pictures.
var DefaultAvatars = []string{
	"https://images.unsplash.com/photo-1544005313-94ddf0286df2?w=200&h=200&fit=crop&crop=faces",
	"https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=200&h=200&fit=crop&crop=faces",
	"https://images.unsplash.com/photo-1438761681033-6461ffad8d80?w=200&h=200&fit=crop&crop=faces",
	"https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=200&h=200&fit=crop&crop=faces",
}

// Config is what the user submits on the setup screen.
type Config struct {
	CallerName   string // Name shown on the incoming screen
	CallerAvatar string // Picture URL, empty for the first default
	DelaySeconds int    // 0 rings immediately
}

// Normalize trims the caller name and fills in the default avatar.
func (c *Config) Normalize(avatars []string) {
	c.CallerName = strings.TrimSpace(c.CallerName)
	if c.CallerAvatar == "" && len(avatars) > 0 {
		c.CallerAvatar = avatars[0]
	}
}

// Validate checks the configuration. With no offered delays any
// non-negative delay is accepted.
func (c *Config) Validate(delays []int) error {
	if c.CallerName == "" {
		return ErrEmptyCallerName
	}
	if utf8.RuneCountInString(c.CallerName) > MaxCallerNameLength {
		return errors.Wrapf(ErrCallerNameLong, "%d runes", utf8.RuneCountInString(c.CallerName))
	}
	if c.DelaySeconds < 0 || (len(delays) > 0 && !slices.Contains(delays, c.DelaySeconds)) {
		return errors.Wrapf(ErrInvalidDelay, "%ds", c.DelaySeconds)
	}
	if c.CallerAvatar != "" && !ValidAvatar(c.CallerAvatar) {
		return ErrInvalidAvatar
	}
	return nil
}

// Delayed reports whether the call waits before ringing.
func (c *Config) Delayed() bool {
	return c.DelaySeconds > 0
}

// ValidAvatar reports whether s is an http(s) or data URL.
func ValidAvatar(s string) bool {
	if strings.HasPrefix(s, "data:image/") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DelaySeconds returns the seconds of each option.
func DelaySeconds(options []DelayOption) []int {
	out := make([]int, len(options))
	for i, o := range options {
		out[i] = o.Seconds
	}
	return out
}

// FormatDuration renders seconds as MM:SS, as shown during an active call.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
