// Package gesture provides the slide-to-confirm gesture entity.
package gesture

import (
	"github.com/cockroachdb/errors"
)

// DefaultThreshold is the progress a slider must reach to confirm.
const DefaultThreshold = 0.9

// ErrInvalidThreshold is returned for thresholds outside (0,1).
var ErrInvalidThreshold = errors.New("threshold must be between 0 and 1 exclusive")

// Confirmation tracks one drag control. Crossing the threshold is reported
// once per drag; Release starts a new drag.
type Confirmation struct {
	threshold float64
	progress  float64
	crossed   bool
}

// New creates a confirmation with the given threshold.
func New(threshold float64) (*Confirmation, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, errors.Wrapf(ErrInvalidThreshold, "got %v", threshold)
	}
	return &Confirmation{threshold: threshold}, nil
}

// Update records the drag position and reports whether this update crossed
// the threshold. Updates after a crossing are ignored until Release.
func (c *Confirmation) Update(progress float64) bool {
	if c.crossed {
		return false
	}
	c.progress = clamp(progress)
	if c.progress >= c.threshold {
		c.crossed = true
		return true
	}
	return false
}

// Release ends the drag and snaps progress back to 0.
func (c *Confirmation) Release() {
	c.progress = 0
	c.crossed = false
}

// Progress returns the current position in [0,1].
func (c *Confirmation) Progress() float64 {
	return c.progress
}

// Crossed reports whether the current drag already confirmed.
func (c *Confirmation) Crossed() bool {
	return c.crossed
}

// Threshold returns the confirmation threshold.
func (c *Confirmation) Threshold() float64 {
	return c.threshold
}

func clamp(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
