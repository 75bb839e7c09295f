package emergency

import (
	"time"

	"github.com/osa030/durga/internal/domain/dispatch"
)

// Step is one scheduled change to a dispatch stage, relative to activation.
type Step struct {
	At        time.Duration
	Kind      dispatch.Kind
	Status    dispatch.Status
	Label     string
	Increment bool // Count one more unit before applying Status
}

// Plan is the full dispatch schedule of a session.
type Plan struct {
	Guardians int
	Steps     []Step
}

// DispatchPolicy decides how dispatch stages progress after activation.
// A policy backed by real services would replace the fixed schedule with
// request/response handling per stage.
type DispatchPolicy interface {
	Plan() Plan
}

// SimulatedPolicy progresses every stage on fixed delays.
type SimulatedPolicy struct {
	GuardianCount    int
	GuardianInterval time.Duration
	AuthoritiesDelay time.Duration // After activation
	EvidenceDelay    time.Duration // After authorities started
	AuthoritiesDone  time.Duration // After authorities started, 0 = never
	EvidenceDone     time.Duration // After evidence started, 0 = never
}

// DefaultPolicy returns the stock simulated timings.
func DefaultPolicy() SimulatedPolicy {
	return SimulatedPolicy{
		GuardianCount:    5,
		GuardianInterval: 300 * time.Millisecond,
		AuthoritiesDelay: 2 * time.Second,
		EvidenceDelay:    1500 * time.Millisecond,
	}
}

// Plan returns the schedule.
func (p SimulatedPolicy) Plan() Plan {
	steps := []Step{
		{At: 0, Kind: dispatch.KindGuardians, Status: dispatch.StatusInProgress, Label: "notifying"},
	}
	for i := 1; i <= p.GuardianCount; i++ {
		step := Step{
			At:        time.Duration(i) * p.GuardianInterval,
			Kind:      dispatch.KindGuardians,
			Status:    dispatch.StatusInProgress,
			Label:     "notifying",
			Increment: true,
		}
		if i == p.GuardianCount {
			step.Status = dispatch.StatusDone
			step.Label = "sent"
		}
		steps = append(steps, step)
	}

	authorities := p.AuthoritiesDelay
	evidence := authorities + p.EvidenceDelay
	steps = append(steps,
		Step{At: authorities, Kind: dispatch.KindAuthorities, Status: dispatch.StatusInProgress, Label: "dispatching"},
		Step{At: evidence, Kind: dispatch.KindEvidence, Status: dispatch.StatusInProgress, Label: "uploading"},
	)
	if p.AuthoritiesDone > 0 {
		steps = append(steps, Step{At: authorities + p.AuthoritiesDone, Kind: dispatch.KindAuthorities, Status: dispatch.StatusDone, Label: "dispatched"})
	}
	if p.EvidenceDone > 0 {
		steps = append(steps, Step{At: evidence + p.EvidenceDone, Kind: dispatch.KindEvidence, Status: dispatch.StatusDone, Label: "uploaded"})
	}

	return Plan{Guardians: p.GuardianCount, Steps: steps}
}
