package timed

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/infra/metrics"
)

// TickInterval is the fixed length of one countdown or stopwatch tick.
const TickInterval = time.Second

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("machine closed")

// Config holds machine configuration.
type Config struct {
	Clock      Clock       // Timer source (default: wall clock)
	Guard      sync.Locker // Held while timer callbacks run (default: private mutex)
	TickSource TickSource  // Who drives the one-second tick

	// OnTick is called after every applied tick with the new remaining
	// (countdown) or elapsed (stopwatch) seconds.
	OnTick func(state State, seconds int)
}

// Machine executes a Definition.
//
// Machine does no locking of its own: every method must be called with
// Config.Guard held, and timer callbacks acquire the same guard before
// touching the machine. Owners share one guard between their public methods
// and the machine so all events are processed one at a time.
type Machine struct {
	def *Definition
	cfg Config

	state   State
	started bool
	closed  bool

	// epoch changes on every state entry; timer callbacks from an older
	// epoch are discarded.
	epoch uint64

	mode      tickMode
	remaining int
	elapsed   int
	expiry    Trigger
	tickTimer Timer

	nextTimerID uint64
	timers      map[uint64]Timer
}

// NewMachine creates a machine for def. The machine is idle until Start.
func NewMachine(def *Definition, cfg Config) (*Machine, error) {
	if err := def.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid machine definition")
	}
	if cfg.Clock == nil {
		cfg.Clock = NewWallClock(DefaultResolution)
	}
	if cfg.Guard == nil {
		cfg.Guard = &sync.Mutex{}
	}
	return &Machine{
		def:    def,
		cfg:    cfg,
		timers: make(map[uint64]Timer),
	}, nil
}

// Start resets the machine to initial. A countdown given here replaces the
// state's own countdown length for this entry.
func (m *Machine) Start(initial State, countdownSeconds ...int) error {
	if m.closed {
		return ErrClosed
	}
	if !m.def.has(initial) {
		return errors.Wrapf(ErrUnknownState, "%s: start %s", m.def.name, initial)
	}

	from := m.state
	if m.started {
		m.leaveLocked(initial)
	}
	m.started = true

	override := -1
	if len(countdownSeconds) > 0 {
		override = countdownSeconds[0]
	}
	zlog.Debug().Msgf("timed: start machine=%s state=%s", m.def.name, initial)
	m.enterLocked(from, initial, override)
	return nil
}

// Fire executes the rule for (current state, trigger). It returns false and
// leaves the machine untouched when no rule exists or its guard refuses.
func (m *Machine) Fire(trigger Trigger) bool {
	if !m.started || m.closed {
		return false
	}

	r, ok := m.def.rules[ruleKey{from: m.state, trigger: trigger}]
	if !ok {
		zlog.Debug().Msgf("timed: ignored trigger machine=%s state=%s trigger=%s", m.def.name, m.state, trigger)
		return false
	}
	if r.guard != nil && !r.guard() {
		zlog.Debug().Msgf("timed: guard refused machine=%s state=%s trigger=%s", m.def.name, m.state, trigger)
		return false
	}

	from := m.state
	m.leaveLocked(r.To)
	if r.action != nil {
		r.action()
	}

	zlog.Debug().Msgf("timed: transition machine=%s from=%s trigger=%s to=%s", m.def.name, from, trigger, r.To)
	metrics.ObserveTransition(m.def.name, string(from), string(r.To))

	m.enterLocked(from, r.To, -1)
	return true
}

// Tick applies one elapsed second to the active countdown or stopwatch.
// It is a no-op when neither is running.
func (m *Machine) Tick() {
	if !m.started || m.closed {
		return
	}
	m.tickLocked(m.epoch)
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Is reports whether the machine is currently in s.
func (m *Machine) Is(s State) bool {
	return m.started && !m.closed && m.state == s
}

// Remaining returns the seconds left on the countdown, 0 when none is running.
func (m *Machine) Remaining() int {
	if m.mode != modeCountdown {
		return 0
	}
	return m.remaining
}

// Elapsed returns the stopwatch value of the current state.
func (m *Machine) Elapsed() int {
	return m.elapsed
}

// Counting reports whether a countdown is in progress.
func (m *Machine) Counting() bool {
	return m.mode == modeCountdown
}

// Now returns the machine clock's time.
func (m *Machine) Now() time.Time {
	return m.cfg.Clock.Now()
}

// After runs fn once after d, unless the current state is exited or the
// returned timer is stopped first. fn runs with the guard held, and Stop
// must be called with the guard held.
func (m *Machine) After(d time.Duration, fn func()) Timer {
	if !m.started || m.closed {
		return nopTimer{}
	}
	epoch := m.epoch
	m.nextTimerID++
	id := m.nextTimerID

	m.timers[id] = m.cfg.Clock.AfterFunc(d, func() {
		m.cfg.Guard.Lock()
		defer m.cfg.Guard.Unlock()

		if m.closed || epoch != m.epoch {
			return
		}
		if _, ok := m.timers[id]; !ok {
			return
		}
		delete(m.timers, id)
		fn()
	})
	return &stateTimer{machine: m, id: id}
}

// stateTimer cancels one After callback.
type stateTimer struct {
	machine *Machine
	id      uint64
}

func (t *stateTimer) Stop() {
	if timer, ok := t.machine.timers[t.id]; ok {
		timer.Stop()
		delete(t.machine.timers, t.id)
	}
}

type nopTimer struct{}

func (nopTimer) Stop() {}

// Every runs fn every d until the current state is exited.
func (m *Machine) Every(d time.Duration, fn func()) {
	epoch := m.epoch
	var loop func()
	loop = func() {
		fn()
		if epoch == m.epoch {
			m.After(d, loop)
		}
	}
	m.After(d, loop)
}

// Close cancels every timer. The machine ignores all calls afterwards.
func (m *Machine) Close() {
	if m.closed {
		return
	}
	m.stopTimersLocked()
	m.closed = true
	m.epoch++
}

func (m *Machine) enterLocked(from, to State, countdownOverride int) {
	m.epoch++
	m.state = to
	m.elapsed = 0
	m.remaining = 0
	m.mode = modeNone

	def := m.def.states[to]
	epoch := m.epoch

	switch {
	case def.countdown != nil:
		n := def.countdown()
		if countdownOverride >= 0 {
			n = countdownOverride
		}
		m.mode = modeCountdown
		m.remaining = max(n, 0)
		m.expiry = def.expiry
		m.armTickLocked()
	case countdownOverride > 0:
		zlog.Warn().Msgf("timed: countdown given for state without expiry machine=%s state=%s", m.def.name, to)
	case def.stopwatch:
		m.mode = modeStopwatch
		m.armTickLocked()
	}

	for _, h := range def.onEnter {
		h(from, to)
		if epoch != m.epoch {
			// The hook moved the machine on.
			return
		}
	}

	if m.mode == modeCountdown && m.remaining == 0 {
		m.expireLocked()
	}
}

func (m *Machine) leaveLocked(to State) {
	from := m.state
	m.stopTimersLocked()
	m.mode = modeNone

	for _, h := range m.def.states[from].onExit {
		h(from, to)
	}
}

func (m *Machine) tickLocked(epoch uint64) {
	if epoch != m.epoch {
		return
	}

	switch m.mode {
	case modeCountdown:
		if m.remaining <= 0 {
			return
		}
		m.remaining--
		if m.cfg.OnTick != nil {
			m.cfg.OnTick(m.state, m.remaining)
		}
		if epoch != m.epoch {
			return
		}
		if m.remaining == 0 {
			m.expireLocked()
			return
		}
	case modeStopwatch:
		m.elapsed++
		if m.cfg.OnTick != nil {
			m.cfg.OnTick(m.state, m.elapsed)
		}
		if epoch != m.epoch {
			return
		}
	default:
		return
	}

	m.armTickLocked()
}

func (m *Machine) expireLocked() {
	m.stopTickLocked()
	m.mode = modeNone
	zlog.Debug().Msgf("timed: countdown expired machine=%s state=%s", m.def.name, m.state)
	m.Fire(m.expiry)
}

func (m *Machine) armTickLocked() {
	m.stopTickLocked()
	if m.cfg.TickSource != TickAuto {
		return
	}

	epoch := m.epoch
	m.tickTimer = m.cfg.Clock.AfterFunc(TickInterval, func() {
		m.cfg.Guard.Lock()
		defer m.cfg.Guard.Unlock()

		if m.closed {
			return
		}
		m.tickLocked(epoch)
	})
}

func (m *Machine) stopTickLocked() {
	if m.tickTimer != nil {
		m.tickTimer.Stop()
		m.tickTimer = nil
	}
}

func (m *Machine) stopTimersLocked() {
	m.stopTickLocked()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}
