// Package dispatch provides the staged dispatch model of an emergency session.
package dispatch

import (
	"github.com/cockroachdb/errors"
)

// ErrBackwards is returned when a stage would move to an earlier status.
var ErrBackwards = errors.New("stage status cannot move backwards")

// Kind identifies a dispatch stage.
type Kind int

const (
	KindGuardians   Kind = iota // Guardian circle notification
	KindAuthorities             // Police dispatch
	KindEvidence                // Audio/video evidence upload
)

// Kinds lists every stage in dispatch order.
var Kinds = []Kind{KindGuardians, KindAuthorities, KindEvidence}

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindGuardians:
		return "guardians"
	case KindAuthorities:
		return "authorities"
	case KindEvidence:
		return "evidence"
	default:
		return "unknown"
	}
}

// Status is the progress of a stage.
type Status int

const (
	StatusPending    Status = iota // Not started
	StatusInProgress               // Started, not confirmed
	StatusDone                     // Completed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in_progress"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// Stage is one dispatch sub-process.
type Stage struct {
	Kind   Kind
	Status Status
	Label  string // Display label, e.g. "dispatching"
	Count  int    // Units completed (guardians notified)
	Total  int    // Units expected, 0 when not counted
}

// Advance moves the stage to status with a new label. Moving to the same
// status updates the label only.
func (s *Stage) Advance(status Status, label string) error {
	if status < s.Status {
		return errors.Wrapf(ErrBackwards, "%s: %s -> %s", s.Kind, s.Status, status)
	}
	s.Status = status
	if label != "" {
		s.Label = label
	}
	return nil
}

// Increment counts one more completed unit, up to Total.
func (s *Stage) Increment() bool {
	if s.Total > 0 && s.Count >= s.Total {
		return false
	}
	s.Count++
	return true
}

// Board holds the stages of one session.
type Board struct {
	stages [3]Stage
}

// NewBoard creates a board with every stage pending.
func NewBoard(guardians int) *Board {
	b := &Board{}
	for i, k := range Kinds {
		b.stages[i] = Stage{Kind: k, Status: StatusPending, Label: "pending"}
	}
	b.stages[KindGuardians].Total = guardians
	return b
}

// Stage returns a pointer to the stage of kind k.
func (b *Board) Stage(k Kind) *Stage {
	return &b.stages[k]
}

// Snapshot returns a copy of all stages in dispatch order.
func (b *Board) Snapshot() []Stage {
	out := make([]Stage, len(b.stages))
	copy(out, b.stages[:])
	return out
}

// Done reports whether every stage has completed.
func (b *Board) Done() bool {
	for _, s := range b.stages {
		if s.Status != StatusDone {
			return false
		}
	}
	return true
}
