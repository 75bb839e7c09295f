package timed

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stIdle    State = "idle"
	stArmed   State = "armed"
	stFiring  State = "firing"
	stRunning State = "running"

	trArm     Trigger = "arm"
	trDisarm  Trigger = "disarm"
	trExpired Trigger = "expired"
	trRun     Trigger = "run"
	trStop    Trigger = "stop"
)

var epoch0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testDefinition() *Definition {
	return NewDefinition("test").
		State(stIdle).
		State(stArmed, WithCountdown(3, trExpired)).
		State(stFiring).
		State(stRunning, WithStopwatch()).
		Transition(stIdle, trArm, stArmed).
		Transition(stArmed, trDisarm, stIdle).
		Transition(stArmed, trExpired, stFiring).
		Transition(stFiring, trRun, stRunning).
		Transition(stRunning, trStop, stIdle)
}

func newTestMachine(t *testing.T, def *Definition) (*Machine, *ManualClock, *sync.Mutex) {
	t.Helper()
	clock := NewManualClock(epoch0)
	guard := &sync.Mutex{}
	m, err := NewMachine(def, Config{Clock: clock, Guard: guard})
	require.NoError(t, err)
	return m, clock, guard
}

func TestMachine_TransitionTable(t *testing.T) {
	def := testDefinition()
	require.NoError(t, def.Validate())

	for _, from := range def.States() {
		for _, trigger := range def.Triggers() {
			t.Run(string(from)+"/"+string(trigger), func(t *testing.T) {
				m, _, _ := newTestMachine(t, testDefinition())
				require.NoError(t, m.Start(from))

				rule, defined := def.Lookup(from, trigger)
				fired := m.Fire(trigger)

				assert.Equal(t, defined, fired)
				if defined {
					assert.Equal(t, rule.To, m.State())
				} else {
					assert.Equal(t, from, m.State())
				}
			})
		}
	}
}

func TestMachine_UnknownTriggerIsNoop(t *testing.T) {
	m, _, _ := newTestMachine(t, testDefinition())
	require.NoError(t, m.Start(stIdle))

	assert.False(t, m.Fire("unknown"))
	assert.False(t, m.Fire(trStop))
	assert.Equal(t, stIdle, m.State())
}

func TestMachine_FireBeforeStart(t *testing.T) {
	m, _, _ := newTestMachine(t, testDefinition())

	assert.False(t, m.Fire(trArm))
	assert.Equal(t, State(""), m.State())
}

func TestMachine_CountdownExpiresOnce(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
	}{
		{name: "one second", seconds: 1},
		{name: "five seconds", seconds: 5},
		{name: "ten seconds", seconds: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expired := 0
			def := NewDefinition("countdown").
				State(stArmed, WithCountdown(tt.seconds, trExpired)).
				State(stFiring, WithOnEnter(func(from, to State) { expired++ })).
				Transition(stArmed, trExpired, stFiring)

			var seen []int
			clock := NewManualClock(epoch0)
			m, err := NewMachine(def, Config{
				Clock:      clock,
				TickSource: TickExternal,
				OnTick:     func(_ State, n int) { seen = append(seen, n) },
			})
			require.NoError(t, err)
			require.NoError(t, m.Start(stArmed))
			assert.Equal(t, tt.seconds, m.Remaining())

			for i := 1; i < tt.seconds; i++ {
				m.Tick()
				assert.Equal(t, stArmed, m.State())
				assert.Equal(t, tt.seconds-i, m.Remaining())
			}
			assert.Equal(t, 0, expired)

			m.Tick()
			assert.Equal(t, stFiring, m.State())
			assert.Equal(t, 1, expired)

			for i := 0; i < 3; i++ {
				m.Tick()
			}
			assert.Equal(t, 1, expired)
			assert.Equal(t, 0, m.Remaining())

			require.Len(t, seen, tt.seconds)
			for _, n := range seen {
				assert.GreaterOrEqual(t, n, 0)
			}
		})
	}
}

func TestMachine_AutoTickWithClock(t *testing.T) {
	m, clock, _ := newTestMachine(t, testDefinition())
	require.NoError(t, m.Start(stIdle))
	require.True(t, m.Fire(trArm))
	assert.Equal(t, 3, m.Remaining())

	clock.Advance(2 * time.Second)
	assert.Equal(t, stArmed, m.State())
	assert.Equal(t, 1, m.Remaining())

	clock.Advance(time.Second)
	assert.Equal(t, stFiring, m.State())
	assert.Equal(t, 0, clock.Pending())
}

func TestMachine_StaleTickDiscarded(t *testing.T) {
	m, clock, guard := newTestMachine(t, testDefinition())
	require.NoError(t, m.Start(stIdle))
	require.True(t, m.Fire(trArm))

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, 2, m.Remaining())

	guard.Lock()
	require.True(t, m.Fire(trDisarm))
	guard.Unlock()

	clock.Advance(10 * time.Second)
	assert.Equal(t, stIdle, m.State())
	assert.Equal(t, 0, m.Remaining())
}

func TestMachine_ReentryRestartsCountdown(t *testing.T) {
	m, clock, _ := newTestMachine(t, testDefinition())
	require.NoError(t, m.Start(stIdle))

	require.True(t, m.Fire(trArm))
	clock.Advance(2 * time.Second)
	require.True(t, m.Fire(trDisarm))
	require.True(t, m.Fire(trArm))
	assert.Equal(t, 3, m.Remaining())

	clock.Advance(2 * time.Second)
	assert.Equal(t, stArmed, m.State())
	clock.Advance(time.Second)
	assert.Equal(t, stFiring, m.State())
}

func TestMachine_StartWithCountdownOverride(t *testing.T) {
	tests := []struct {
		name      string
		override  int
		wantState State
	}{
		{name: "longer countdown", override: 7, wantState: stArmed},
		{name: "zero expires immediately", override: 0, wantState: stFiring},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestMachine(t, testDefinition())
			require.NoError(t, m.Start(stArmed, tt.override))
			assert.Equal(t, tt.wantState, m.State())
			if tt.wantState == stArmed {
				assert.Equal(t, tt.override, m.Remaining())
			}
		})
	}
}

func TestMachine_StartUnknownState(t *testing.T) {
	m, _, _ := newTestMachine(t, testDefinition())
	err := m.Start("nowhere")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestMachine_Stopwatch(t *testing.T) {
	m, clock, guard := newTestMachine(t, testDefinition())
	require.NoError(t, m.Start(stFiring))
	require.True(t, m.Fire(trRun))

	clock.Advance(65 * time.Second)
	assert.Equal(t, 65, m.Elapsed())
	assert.False(t, m.Counting())

	guard.Lock()
	require.True(t, m.Fire(trStop))
	guard.Unlock()

	clock.Advance(5 * time.Second)
	assert.Equal(t, 0, m.Elapsed())
}

func TestMachine_GuardRefuses(t *testing.T) {
	allow := false
	def := NewDefinition("guarded").
		State(stIdle).
		State(stArmed).
		Transition(stIdle, trArm, stArmed, WithGuard(func() bool { return allow }))

	m, _, _ := newTestMachine(t, def)
	require.NoError(t, m.Start(stIdle))

	assert.False(t, m.Fire(trArm))
	assert.Equal(t, stIdle, m.State())

	allow = true
	assert.True(t, m.Fire(trArm))
	assert.Equal(t, stArmed, m.State())
}

func TestMachine_HookOrder(t *testing.T) {
	var calls []string
	def := NewDefinition("hooks").
		State(stIdle, WithOnExit(func(from, to State) { calls = append(calls, "exit:"+string(from)+">"+string(to)) })).
		State(stArmed, WithOnEnter(func(from, to State) { calls = append(calls, "enter:"+string(from)+">"+string(to)) })).
		Transition(stIdle, trArm, stArmed, WithAction(func() { calls = append(calls, "action") }))

	m, _, _ := newTestMachine(t, def)
	require.NoError(t, m.Start(stIdle))
	require.True(t, m.Fire(trArm))

	assert.Equal(t, []string{"exit:idle>armed", "action", "enter:idle>armed"}, calls)
}

func TestMachine_StateScopedTimers(t *testing.T) {
	m, clock, guard := newTestMachine(t, testDefinition())
	require.NoError(t, m.Start(stFiring))

	oneShot := 0
	repeats := 0
	m.After(500*time.Millisecond, func() { oneShot++ })
	m.Every(time.Second, func() { repeats++ })

	clock.Advance(3 * time.Second)
	assert.Equal(t, 1, oneShot)
	assert.Equal(t, 3, repeats)

	m.After(500*time.Millisecond, func() { oneShot++ })
	guard.Lock()
	require.True(t, m.Fire(trRun))
	guard.Unlock()

	clock.Advance(5 * time.Second)
	assert.Equal(t, 1, oneShot)
	assert.Equal(t, 3, repeats)
}

func TestMachine_StoppedTimer(t *testing.T) {
	m, clock, guard := newTestMachine(t, testDefinition())
	require.NoError(t, m.Start(stFiring))

	var fired []string
	first := m.After(time.Second, func() { fired = append(fired, "first") })
	m.After(2*time.Second, func() { fired = append(fired, "second") })

	guard.Lock()
	first.Stop()
	first.Stop()
	guard.Unlock()

	clock.Advance(3 * time.Second)
	assert.Equal(t, []string{"second"}, fired)
	assert.Equal(t, 0, clock.Pending())
}

func TestMachine_StopAfterDueIsHonored(t *testing.T) {
	m, clock, guard := newTestMachine(t, testDefinition())
	require.NoError(t, m.Start(stFiring))

	fired := false
	var timer Timer
	m.After(time.Second, func() { timer.Stop() })
	timer = m.After(time.Second, func() { fired = true })

	clock.Advance(time.Second)
	assert.False(t, fired)

	guard.Lock()
	defer guard.Unlock()
	m.Close()
	assert.NotPanics(t, func() { m.After(time.Second, func() {}).Stop() })
}

func TestMachine_TimerMayTransition(t *testing.T) {
	m, clock, _ := newTestMachine(t, testDefinition())
	require.NoError(t, m.Start(stFiring))

	m.After(time.Second, func() { m.Fire(trRun) })
	clock.Advance(time.Second)
	assert.Equal(t, stRunning, m.State())
}

func TestMachine_Close(t *testing.T) {
	m, clock, _ := newTestMachine(t, testDefinition())
	require.NoError(t, m.Start(stArmed))

	fired := false
	m.After(time.Second, func() { fired = true })
	m.Close()

	clock.Advance(10 * time.Second)
	assert.False(t, fired)
	assert.Equal(t, stArmed, m.State())
	assert.False(t, m.Fire(trDisarm))
	assert.ErrorIs(t, m.Start(stIdle), ErrClosed)
	assert.Equal(t, 0, clock.Pending())
}

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     *Definition
		wantErr error
	}{
		{
			name:    "valid",
			def:     testDefinition(),
			wantErr: nil,
		},
		{
			name: "unknown target",
			def: NewDefinition("bad").
				State(stIdle).
				Transition(stIdle, trArm, stArmed),
			wantErr: ErrUnknownState,
		},
		{
			name: "duplicate rule",
			def: NewDefinition("bad").
				State(stIdle).
				State(stArmed).
				Transition(stIdle, trArm, stArmed).
				Transition(stIdle, trArm, stIdle),
			wantErr: ErrDuplicateRule,
		},
		{
			name: "duplicate state",
			def: NewDefinition("bad").
				State(stIdle).
				State(stIdle),
			wantErr: ErrDuplicateState,
		},
		{
			name: "countdown without expiry rule",
			def: NewDefinition("bad").
				State(stArmed, WithCountdown(3, trExpired)),
			wantErr: ErrNoExpiryRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = NewMachine(tt.def, Config{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestManualClock_Order(t *testing.T) {
	clock := NewManualClock(epoch0)
	var order []string

	clock.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	clock.AfterFunc(time.Second, func() {
		order = append(order, "a")
		clock.AfterFunc(500*time.Millisecond, func() { order = append(order, "a2") })
	})
	stopped := clock.AfterFunc(1500*time.Millisecond, func() { order = append(order, "never") })
	stopped.Stop()

	clock.Advance(3 * time.Second)
	assert.Equal(t, []string{"a", "a2", "b"}, order)
	assert.Equal(t, epoch0.Add(3*time.Second), clock.Now())
}

func TestWallClock_AfterFunc(t *testing.T) {
	clock := NewWallClock(5 * time.Millisecond)

	done := make(chan struct{})
	clock.AfterFunc(20*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	cancelled := make(chan struct{})
	timer := clock.AfterFunc(50*time.Millisecond, func() { close(cancelled) })
	timer.Stop()

	select {
	case <-cancelled:
		t.Fatal("stopped timer fired")
	case <-time.After(150 * time.Millisecond):
	}
}
