package timed

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrUnknownState   = errors.New("unknown state")
	ErrDuplicateRule  = errors.New("duplicate transition rule")
	ErrDuplicateState = errors.New("duplicate state")
	ErrNoExpiryRule   = errors.New("countdown expiry has no transition rule")
)

// Hook is called when a state is entered or exited.
type Hook func(from, to State)

// StateOption configures a state.
type StateOption func(*stateDef)

// TransitionOption configures a transition rule.
type TransitionOption func(*Rule)

type stateDef struct {
	id        State
	countdown func() int
	expiry    Trigger
	stopwatch bool
	onEnter   []Hook
	onExit    []Hook
}

// Rule is a (from, trigger) -> to transition.
type Rule struct {
	From    State
	Trigger Trigger
	To      State

	guard  func() bool
	action func()
}

type ruleKey struct {
	from    State
	trigger Trigger
}

// Definition is the static description of a machine: its states and transition table.
type Definition struct {
	name   string
	states map[State]*stateDef
	order  []State
	rules  map[ruleKey]*Rule
	err    error
}

// NewDefinition creates an empty definition.
func NewDefinition(name string) *Definition {
	return &Definition{
		name:   name,
		states: make(map[State]*stateDef),
		rules:  make(map[ruleKey]*Rule),
	}
}

// WithCountdown starts a countdown of n seconds on entry and fires expiry when it reaches zero.
func WithCountdown(n int, expiry Trigger) StateOption {
	return WithCountdownFunc(func() int { return n }, expiry)
}

// WithCountdownFunc is like WithCountdown, but the length is read on every entry.
func WithCountdownFunc(fn func() int, expiry Trigger) StateOption {
	return func(s *stateDef) {
		s.countdown = fn
		s.expiry = expiry
		s.stopwatch = false
	}
}

// WithStopwatch counts elapsed seconds up from zero while the state is current.
func WithStopwatch() StateOption {
	return func(s *stateDef) {
		s.stopwatch = true
		s.countdown = nil
	}
}

// WithOnEnter registers a hook run after the state becomes current.
func WithOnEnter(h Hook) StateOption {
	return func(s *stateDef) { s.onEnter = append(s.onEnter, h) }
}

// WithOnExit registers a hook run after the state's timers are cancelled.
func WithOnExit(h Hook) StateOption {
	return func(s *stateDef) { s.onExit = append(s.onExit, h) }
}

// WithGuard makes the rule apply only while guard returns true.
func WithGuard(guard func() bool) TransitionOption {
	return func(r *Rule) { r.guard = guard }
}

// WithAction runs fn between leaving the source and entering the target.
func WithAction(fn func()) TransitionOption {
	return func(r *Rule) { r.action = fn }
}

// State declares a state.
func (d *Definition) State(id State, opts ...StateOption) *Definition {
	if _, exists := d.states[id]; exists {
		d.setErr(errors.Wrapf(ErrDuplicateState, "%s: %s", d.name, id))
		return d
	}
	s := &stateDef{id: id}
	for _, opt := range opts {
		opt(s)
	}
	d.states[id] = s
	d.order = append(d.order, id)
	return d
}

// Transition declares the rule (from, trigger) -> to.
func (d *Definition) Transition(from State, trigger Trigger, to State, opts ...TransitionOption) *Definition {
	key := ruleKey{from: from, trigger: trigger}
	if _, exists := d.rules[key]; exists {
		d.setErr(errors.Wrapf(ErrDuplicateRule, "%s: %s --%s-->", d.name, from, trigger))
		return d
	}
	r := &Rule{From: from, Trigger: trigger, To: to}
	for _, opt := range opts {
		opt(r)
	}
	d.rules[key] = r
	return d
}

// Validate reports the first problem with the definition.
func (d *Definition) Validate() error {
	if d.err != nil {
		return d.err
	}
	for _, r := range d.sortedRules() {
		if _, ok := d.states[r.From]; !ok {
			return errors.Wrapf(ErrUnknownState, "%s: rule source %s", d.name, r.From)
		}
		if _, ok := d.states[r.To]; !ok {
			return errors.Wrapf(ErrUnknownState, "%s: rule target %s", d.name, r.To)
		}
	}
	for _, id := range d.order {
		s := d.states[id]
		if s.countdown == nil {
			continue
		}
		if _, ok := d.rules[ruleKey{from: id, trigger: s.expiry}]; !ok {
			return errors.Wrapf(ErrNoExpiryRule, "%s: %s --%s-->", d.name, id, s.expiry)
		}
	}
	return nil
}

// Name returns the machine name.
func (d *Definition) Name() string {
	return d.name
}

// States returns the declared states in declaration order.
func (d *Definition) States() []State {
	out := make([]State, len(d.order))
	copy(out, d.order)
	return out
}

// Triggers returns every trigger used by a rule, sorted.
func (d *Definition) Triggers() []Trigger {
	seen := make(map[Trigger]struct{})
	var out []Trigger
	for key := range d.rules {
		if _, ok := seen[key.trigger]; ok {
			continue
		}
		seen[key.trigger] = struct{}{}
		out = append(out, key.trigger)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Lookup returns the rule for (from, trigger).
func (d *Definition) Lookup(from State, trigger Trigger) (Rule, bool) {
	r, ok := d.rules[ruleKey{from: from, trigger: trigger}]
	if !ok {
		return Rule{}, false
	}
	return *r, true
}

func (d *Definition) has(id State) bool {
	_, ok := d.states[id]
	return ok
}

func (d *Definition) sortedRules() []*Rule {
	out := make([]*Rule, 0, len(d.rules))
	for _, r := range d.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].Trigger < out[j].Trigger
	})
	return out
}

func (d *Definition) setErr(err error) {
	if d.err == nil {
		d.err = err
	}
}
