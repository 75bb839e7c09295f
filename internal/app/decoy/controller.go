package decoy

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/app/capability"
	"github.com/osa030/durga/internal/app/timed"
	"github.com/osa030/durga/internal/domain/call"
	"github.com/osa030/durga/internal/domain/gesture"
	"github.com/osa030/durga/internal/infra/metrics"
)

// ErrInvalidKey is returned for a keypad key other than 0-9, * and #.
var ErrInvalidKey = errors.New("invalid keypad key")

var keyPattern = capability.Pattern(30)

// Defaults for zero Config durations.
const (
	DefaultDeclineClose = 500 * time.Millisecond
	DefaultEndedClose   = 2 * time.Second
)

// Config holds controller configuration.
type Config struct {
	DefaultCaller   string        // Caller name prefilled on setup
	Avatars         []string      // Caller pictures offered on setup; the first is the default
	AnswerThreshold float64       // Slide-to-answer threshold
	DeclineClose    time.Duration // Close delay after a declined call
	EndedClose      time.Duration // Close delay after an answered call ends
	RingInterval    time.Duration // Ringer repeat interval

	Capabilities capability.Provider
	Clock        timed.Clock
	TickSource   timed.TickSource
}

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	State           timed.State
	CallerName      string
	CallerAvatar    string
	DelaySeconds    int
	Remaining       int    // Seconds until the call rings (waiting)
	Elapsed         int    // Call duration in seconds (active)
	Duration        string // Elapsed as MM:SS
	Ringing         bool
	Muted           bool
	Speaker         bool
	Keypad          string
	GestureProgress float64
	Closed          bool // Closed event emitted
}

// Controller owns the lifecycle of one decoy call.
type Controller struct {
	mu sync.RWMutex

	config  Config
	machine *timed.Machine
	caps    capability.Provider
	gesture *gesture.Confirmation

	call    call.Config
	ringing bool
	muted   bool
	speaker bool
	keypad  []rune

	// duration of the answered call, kept after hang-up
	duration int

	dismissed bool
	closed    bool
	eventCh   chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a controller in StateSetup.
func NewController(config Config) (*Controller, error) {
	if config.DefaultCaller == "" {
		config.DefaultCaller = call.DefaultCallerName
	}
	if len(config.Avatars) == 0 {
		config.Avatars = call.DefaultAvatars
	}
	if config.AnswerThreshold == 0 {
		config.AnswerThreshold = gesture.DefaultThreshold
	}
	if config.DeclineClose <= 0 {
		config.DeclineClose = DefaultDeclineClose
	}
	if config.EndedClose <= 0 {
		config.EndedClose = DefaultEndedClose
	}
	if config.RingInterval <= 0 {
		config.RingInterval = 2 * time.Second
	}
	if config.Capabilities == nil {
		config.Capabilities = capability.Nop{}
	}

	g, err := gesture.New(config.AnswerThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create answer gesture")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		config:  config,
		caps:    config.Capabilities,
		gesture: g,
		call:    call.Config{CallerName: config.DefaultCaller, CallerAvatar: config.Avatars[0]},
		eventCh: make(chan Event, 64),
		ctx:     ctx,
		cancel:  cancel,
	}

	def := timed.NewDefinition("decoy").
		State(StateSetup, timed.WithOnEnter(c.onStateChanged)).
		State(StateWaiting,
			timed.WithCountdownFunc(func() int { return c.call.DelaySeconds }, TriggerExpired),
			timed.WithOnEnter(c.onStateChanged)).
		State(StateIncoming,
			timed.WithOnEnter(c.onStateChanged),
			timed.WithOnEnter(c.startRinging),
			timed.WithOnExit(c.stopRinging)).
		State(StateActive,
			timed.WithStopwatch(),
			timed.WithOnEnter(c.onAnswered),
			timed.WithOnExit(c.onHangUp)).
		State(StateEnded, timed.WithOnEnter(c.onEnded)).
		Transition(StateSetup, TriggerRingNow, StateIncoming).
		Transition(StateSetup, TriggerSchedule, StateWaiting).
		Transition(StateWaiting, TriggerExpired, StateIncoming).
		Transition(StateWaiting, TriggerCancel, StateSetup).
		Transition(StateIncoming, TriggerAnswer, StateActive).
		Transition(StateIncoming, TriggerHangUp, StateEnded).
		Transition(StateActive, TriggerHangUp, StateEnded)

	c.machine, err = timed.NewMachine(def, timed.Config{
		Clock:      config.Clock,
		Guard:      &c.mu,
		TickSource: config.TickSource,
		OnTick:     c.onTick,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.machine.Start(StateSetup); err != nil {
		cancel()
		return nil, err
	}
	return c, nil
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Configure stores the call configuration and schedules the call. A zero
// delay rings immediately, any positive delay waits. It reports false
// outside StateSetup.
func (c *Controller) Configure(callerName, callerAvatar string, delaySeconds int) (bool, error) {
	cfg := call.Config{
		CallerName:   callerName,
		CallerAvatar: callerAvatar,
		DelaySeconds: delaySeconds,
	}
	cfg.Normalize(c.config.Avatars)
	if err := cfg.Validate(nil); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Is(StateSetup) {
		return false, nil
	}

	c.call = cfg
	metrics.IncCall(metrics.CallConfigured)
	zlog.Info().Msgf("decoy: call configured caller=%q delay=%d", cfg.CallerName, cfg.DelaySeconds)

	if cfg.Delayed() {
		return c.machine.Fire(TriggerSchedule), nil
	}
	return c.machine.Fire(TriggerRingNow), nil
}

// CancelWaiting returns a scheduled call to setup. The configuration is kept
// so the form stays filled in.
func (c *Controller) CancelWaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Fire(TriggerCancel) {
		return false
	}
	metrics.IncCall(metrics.CallCancelled)
	return true
}

// Answer picks up the ringing call.
func (c *Controller) Answer() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Fire(TriggerAnswer)
}

// Decline hangs up. It is the same trigger as EndCall; the close delay
// depends on whether the call was answered.
func (c *Controller) Decline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Fire(TriggerHangUp)
}

// EndCall hangs up.
func (c *Controller) EndCall() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Fire(TriggerHangUp)
}

// Dismiss leaves the setup screen without placing a call.
func (c *Controller) Dismiss() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Is(StateSetup) || c.dismissed {
		return false
	}
	c.dismissed = true
	c.sendEventLocked(EventClosed)
	return true
}

// UpdateAnswerGesture records the slide-to-answer position. Crossing the
// threshold answers the call.
func (c *Controller) UpdateAnswerGesture(progress float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Is(StateIncoming) {
		return false
	}
	if !c.gesture.Update(progress) {
		return false
	}
	return c.machine.Fire(TriggerAnswer)
}

// ReleaseAnswerGesture ends the drag.
func (c *Controller) ReleaseAnswerGesture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gesture.Release()
}

// ToggleMute flips the mute button. It reports the new value and whether the
// call is active.
func (c *Controller) ToggleMute() (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Is(StateActive) {
		return c.muted, false
	}
	c.muted = !c.muted
	c.sendEventLocked(EventControlsChanged)
	return c.muted, true
}

// ToggleSpeaker flips the speaker button.
func (c *Controller) ToggleSpeaker() (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Is(StateActive) {
		return c.speaker, false
	}
	c.speaker = !c.speaker
	c.sendEventLocked(EventControlsChanged)
	return c.speaker, true
}

// PressKey presses a keypad key with a short haptic tap.
func (c *Controller) PressKey(key rune) (bool, error) {
	if !validKey(key) {
		return false, errors.Wrapf(ErrInvalidKey, "%q", key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Is(StateActive) {
		return false, nil
	}
	capability.Call("vibrate", func() error { return c.caps.Vibrate(keyPattern) })
	c.keypad = append(c.keypad, key)
	c.sendEventLocked(EventControlsChanged)
	return true, nil
}

// Tick applies one elapsed second when the controller uses an external tick source.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.machine.Tick()
}

// State returns the current state.
func (c *Controller) State() timed.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.machine.State()
}

// Snapshot returns a copy of the controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	elapsed := c.duration
	if c.machine.State() == StateActive {
		elapsed = c.machine.Elapsed()
	}
	return Snapshot{
		State:           c.machine.State(),
		CallerName:      c.call.CallerName,
		CallerAvatar:    c.call.CallerAvatar,
		DelaySeconds:    c.call.DelaySeconds,
		Remaining:       c.machine.Remaining(),
		Elapsed:         elapsed,
		Duration:        call.FormatDuration(elapsed),
		Ringing:         c.ringing,
		Muted:           c.muted,
		Speaker:         c.speaker,
		Keypad:          string(c.keypad),
		GestureProgress: c.gesture.Progress(),
		Closed:          c.dismissed,
	}
}

// Close cancels every timer and silences the ringer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.ringing {
		c.stopRinging(c.machine.State(), "")
	}
	c.machine.Close()
	c.cancel()
	c.closed = true
	close(c.eventCh)
}

func (c *Controller) onStateChanged(from, to timed.State) {
	zlog.Debug().Msgf("decoy: state changed from=%s to=%s", from, to)
	c.sendEventLocked(EventStateChanged)
}

func (c *Controller) onTick(state timed.State, seconds int) {
	switch state {
	case StateWaiting:
		c.sendEventLocked(EventWaitTick)
	case StateActive:
		c.sendEventLocked(EventCallTick)
	}
}

func (c *Controller) onAnswered(from, to timed.State) {
	c.gesture.Release()
	c.muted = false
	c.speaker = false
	c.keypad = nil
	metrics.IncCall(metrics.CallAnswered)
	zlog.Info().Msgf("decoy: call answered caller=%q", c.call.CallerName)
	c.sendEventLocked(EventStateChanged)
}

func (c *Controller) onHangUp(from, to timed.State) {
	c.duration = c.machine.Elapsed()
}

func (c *Controller) onEnded(from, to timed.State) {
	delay := c.config.EndedClose
	outcome := metrics.CallEnded
	if from == StateIncoming {
		delay = c.config.DeclineClose
		outcome = metrics.CallDeclined
	}
	c.gesture.Release()
	metrics.IncCall(outcome)
	zlog.Info().Msgf("decoy: call %s caller=%q duration=%s", outcome, c.call.CallerName, call.FormatDuration(c.duration))

	c.sendEventLocked(EventStateChanged)
	c.sendEventLocked(EventCallEnded)
	c.machine.After(delay, func() {
		c.dismissed = true
		c.sendEventLocked(EventClosed)
	})
}

// sendEventLocked sends an event. Events are dropped when the channel is full.
func (c *Controller) sendEventLocked(t EventType) {
	if c.closed {
		return
	}
	e := Event{Type: t, Snapshot: c.snapshotLocked()}
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		zlog.Warn().Msgf("decoy: event dropped type=%s", t)
	}
}

func validKey(r rune) bool {
	return (r >= '0' && r <= '9') || r == '*' || r == '#'
}
