package emergency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/app/capability"
	"github.com/osa030/durga/internal/app/response"
	"github.com/osa030/durga/internal/app/timed"
	"github.com/osa030/durga/internal/domain/challenge"
	"github.com/osa030/durga/internal/domain/dispatch"
	"github.com/osa030/durga/internal/domain/gesture"
	"github.com/osa030/durga/internal/infra/metrics"
)

// Vibration patterns.
var (
	alertPattern    = capability.Pattern(200, 100, 200)
	pulsePattern    = capability.Pattern(100)
	activePattern   = capability.Pattern(500, 100, 500)
	sendPattern     = capability.Pattern(50)
	callbackPattern = capability.Pattern(100, 50, 100)
)

// Defaults for zero Config durations.
const (
	DefaultPINErrorDisplay = time.Second
	DefaultReplyDelay      = 2 * time.Second
	DefaultCallbackDelay   = 1500 * time.Millisecond
)

// Config holds controller configuration.
type Config struct {
	CountdownSec     int           // Seconds before the alert is sent
	PINHash          string        // bcrypt hash of the disarm PIN
	PINErrorDisplay  time.Duration // How long a mismatch stays flagged
	GestureThreshold float64       // Slide-to-cancel threshold
	Guardians        []string      // Guardian names; the first one answers the feed
	ReplyDelay       time.Duration // Delay before a guardian answers a message
	CallbackDelay    time.Duration // Delay before a guardian answers a call-back request

	Policy       DispatchPolicy
	Capabilities capability.Provider
	Responses    response.Provider
	Clock        timed.Clock
	TickSource   timed.TickSource
}

// Controller owns the emergency session lifecycle of one device.
type Controller struct {
	mu sync.RWMutex

	config    Config
	machine   *timed.Machine
	caps      capability.Provider
	screen    *capability.Screen
	challenge *challenge.Challenge
	gesture   *gesture.Confirmation

	session *Session

	// disarming is true only while a PIN match fires TriggerDisarm.
	disarming bool

	// errorReset clears the challenge error flag; one per live mismatch.
	errorReset timed.Timer

	eventCh chan Event
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a controller in StateIdle.
func NewController(config Config) (*Controller, error) {
	if config.CountdownSec <= 0 {
		config.CountdownSec = 5
	}
	if config.GestureThreshold == 0 {
		config.GestureThreshold = gesture.DefaultThreshold
	}
	if config.PINErrorDisplay <= 0 {
		config.PINErrorDisplay = DefaultPINErrorDisplay
	}
	if config.ReplyDelay <= 0 {
		config.ReplyDelay = DefaultReplyDelay
	}
	if config.CallbackDelay <= 0 {
		config.CallbackDelay = DefaultCallbackDelay
	}
	if len(config.Guardians) == 0 {
		config.Guardians = []string{"Dad", "Mom"}
	}
	if config.Policy == nil {
		config.Policy = DefaultPolicy()
	}
	if config.Capabilities == nil {
		config.Capabilities = capability.Nop{}
	}
	if config.Responses == nil {
		rp, err := response.NewRotatingProvider(nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create default responses")
		}
		config.Responses = rp
	}

	ch, err := challenge.New(config.PINHash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pin challenge")
	}
	g, err := gesture.New(config.GestureThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cancel gesture")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		config:    config,
		caps:      config.Capabilities,
		screen:    capability.NewScreen(config.Capabilities),
		challenge: ch,
		gesture:   g,
		eventCh:   make(chan Event, 64),
		ctx:       ctx,
		cancel:    cancel,
	}

	def := timed.NewDefinition("emergency").
		State(StateIdle, timed.WithOnEnter(c.onIdle)).
		State(StateCountingDown,
			timed.WithCountdownFunc(func() int { return c.config.CountdownSec }, TriggerExpired),
			timed.WithOnEnter(c.onCountingDown)).
		State(StateActive, timed.WithOnEnter(c.onActive)).
		Transition(StateIdle, TriggerSOS, StateCountingDown, timed.WithAction(c.createSessionLocked)).
		Transition(StateCountingDown, TriggerExpired, StateActive).
		Transition(StateCountingDown, TriggerDisarm, StateIdle, timed.WithGuard(c.canDisarm)).
		Transition(StateActive, TriggerDisarm, StateIdle, timed.WithGuard(c.canDisarm))

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
	if err := c.machine.Start(StateIdle); err != nil {
		cancel()
		return nil, err
	}
	return c, nil
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Trigger starts a new session in StateCountingDown. It is a no-op while a
// session exists.
func (c *Controller) Trigger() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Fire(TriggerSOS)
}

// Tick applies one elapsed second when the controller uses an external tick source.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.machine.Tick()
}

// RequestCancel opens the PIN challenge. The session state does not change.
func (c *Controller) RequestCancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestCancelLocked()
}

func (c *Controller) requestCancelLocked() bool {
	if c.session == nil || c.closed {
		return false
	}
	if c.challenge.IsOpen() {
		return true
	}
	c.challenge.Open()
	zlog.Info().Msgf("emergency: cancel requested session_id=%s state=%s", c.session.ID, c.machine.State())
	c.sendEventLocked(Event{Type: EventChallengeChanged})
	return true
}

// SubmitPinDigit enters one PIN digit. The fourth digit is compared: a match
// discards the session, a mismatch flags an error for PINErrorDisplay.
func (c *Controller) SubmitPinDigit(d rune) (challenge.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.closed {
		return challenge.OutcomeIgnored, nil
	}

	start := time.Now()
	outcome, err := c.challenge.PushDigit(d)
	if err != nil {
		return outcome, err
	}
	c.handleOutcomeLocked(outcome, time.Since(start))
	return outcome, nil
}

// SubmitPin enters a whole code digit by digit.
func (c *Controller) SubmitPin(code string) (challenge.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.closed {
		return challenge.OutcomeIgnored, nil
	}

	start := time.Now()
	outcome, err := c.challenge.Submit(code)
	if err != nil {
		return outcome, err
	}
	c.handleOutcomeLocked(outcome, time.Since(start))
	return outcome, nil
}

func (c *Controller) handleOutcomeLocked(outcome challenge.Outcome, took time.Duration) {
	switch outcome {
	case challenge.OutcomePending:
		c.sendEventLocked(Event{Type: EventChallengeChanged})

	case challenge.OutcomeMismatch:
		metrics.ObservePINAttempt(metrics.PINMismatch, took)
		zlog.Warn().Msgf("emergency: incorrect pin session_id=%s", c.session.ID)
		c.sendEventLocked(Event{Type: EventChallengeChanged})
		c.scheduleErrorResetLocked()

	case challenge.OutcomeMatch:
		metrics.ObservePINAttempt(metrics.PINMatch, took)
		c.disarming = true
		fired := c.machine.Fire(TriggerDisarm)
		c.disarming = false
		if !fired {
			zlog.Error().Msgf("emergency: pin matched but disarm refused state=%s", c.machine.State())
		}
	}
}

// scheduleErrorResetLocked restarts the error display; an earlier pending
// reset is dropped so each mismatch is shown for the full interval.
func (c *Controller) scheduleErrorResetLocked() {
	if c.errorReset != nil {
		c.errorReset.Stop()
	}
	c.errorReset = c.machine.After(c.config.PINErrorDisplay, func() {
		c.errorReset = nil
		if !c.challenge.ErrorFlag() {
			return
		}
		c.challenge.ClearError()
		c.sendEventLocked(Event{Type: EventChallengeChanged})
	})
}

// UpdateCancelGesture records the slide-to-cancel position. Crossing the
// threshold opens the PIN challenge, once per drag.
func (c *Controller) UpdateCancelGesture(progress float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.closed {
		return false
	}
	if !c.gesture.Update(progress) {
		return false
	}
	return c.requestCancelLocked()
}

// ReleaseCancelGesture ends the drag; the slider snaps back to 0.
func (c *Controller) ReleaseCancelGesture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gesture.Release()
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
	s := Snapshot{
		State:     c.machine.State(),
		Remaining: c.machine.Remaining(),
		Challenge: ChallengeStatus{
			Open:    c.challenge.IsOpen(),
			Entered: c.challenge.Entered(),
			Error:   c.challenge.ErrorFlag(),
		},
		GestureProgress: c.gesture.Progress(),
	}
	if c.session != nil {
		s.SessionID = c.session.ID
		s.CreatedAt = c.session.CreatedAt
		if c.session.ActivatedAt != nil {
			at := *c.session.ActivatedAt
			s.ActivatedAt = &at
		}
		s.Stages = c.session.board.Snapshot()
		s.Messages = make([]Message, len(c.session.messages))
		copy(s.Messages, c.session.messages)
	}
	return s
}

// Close cancels every timer and releases the screen if a session is live.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.session != nil {
		zlog.Info().Msgf("emergency: closing with live session session_id=%s", c.session.ID)
		c.teardownLocked()
		metrics.IncSession(metrics.SessionAbandoned)
	}
	c.machine.Close()
	c.cancel()
	c.closed = true
	close(c.eventCh)
}

func (c *Controller) canDisarm() bool {
	return c.disarming
}

func (c *Controller) createSessionLocked() {
	now := c.machine.Now()
	c.session = &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		board:     dispatch.NewBoard(c.config.Policy.Plan().Guardians),
	}
	metrics.IncSession(metrics.SessionTriggered)
	zlog.Info().Msgf("emergency: session created session_id=%s countdown=%d", c.session.ID, c.config.CountdownSec)
}

func (c *Controller) onCountingDown(from, to timed.State) {
	c.screen.Acquire()
	capability.Call("vibrate", func() error { return c.caps.Vibrate(alertPattern) })
	c.sendEventLocked(Event{Type: EventSessionCreated})
}

func (c *Controller) onTick(state timed.State, remaining int) {
	if state != StateCountingDown {
		return
	}
	if remaining > 0 {
		capability.Call("vibrate", func() error { return c.caps.Vibrate(pulsePattern) })
	}
	c.sendEventLocked(Event{Type: EventCountdownTick})
}

func (c *Controller) onActive(from, to timed.State) {
	now := c.machine.Now()
	c.session.ActivatedAt = &now
	metrics.IncSession(metrics.SessionActivated)
	zlog.Info().Msgf("emergency: phase changed: phase=ACTIVE session_id=%s", c.session.ID)

	capability.Call("vibrate", func() error { return c.caps.Vibrate(activePattern) })
	c.sendEventLocked(Event{Type: EventActivated})

	plan := c.config.Policy.Plan()
	c.appendMessageLocked(MessageSystem, "", "CRITICAL: SOS ACTIVATED.\nAlert sent to Guardians & DURGA Ops.")
	c.appendMessageLocked(MessageSystem, "", fmt.Sprintf("Real-time location shared with %d Guardians & DURGA Ops.", len(c.config.Guardians)))

	// The challenge error timer belonged to the countdown.
	if c.challenge.ErrorFlag() {
		c.scheduleErrorResetLocked()
	}

	for _, step := range plan.Steps {
		c.machine.After(step.At, func() { c.applyStepLocked(step) })
	}
}

func (c *Controller) applyStepLocked(step Step) {
	stage := c.session.board.Stage(step.Kind)
	if step.Increment {
		stage.Increment()
	}
	if err := stage.Advance(step.Status, step.Label); err != nil {
		zlog.Debug().Msgf("emergency: stage step skipped: %v", err)
		return
	}
	zlog.Debug().Msgf("emergency: stage changed session_id=%s stage=%s status=%s label=%s count=%d",
		c.session.ID, stage.Kind, stage.Status, stage.Label, stage.Count)

	changed := *stage
	c.sendEventLocked(Event{Type: EventStageChanged, Stage: &changed})
}

func (c *Controller) onIdle(from, to timed.State) {
	if from == "" || c.session == nil {
		return
	}

	id := c.session.ID
	c.teardownLocked()
	metrics.IncSession(metrics.SessionDisarmed)
	zlog.Info().Msgf("emergency: session discarded session_id=%s from=%s", id, from)

	snap := c.snapshotLocked()
	snap.SessionID = id
	c.sendEventLocked(Event{Type: EventSessionDiscarded, Snapshot: snap})
}

// teardownLocked releases every resource of the live session.
func (c *Controller) teardownLocked() {
	capability.Call("stop_vibration", c.caps.StopVibration)
	c.screen.Release()
	c.challenge.Close()
	c.gesture.Release()
	c.errorReset = nil
	c.session = nil
}

// sendEventLocked sends an event, filling in the snapshot when missing.
// Events are dropped when the channel is full.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	if e.Snapshot.State == "" {
		e.Snapshot = c.snapshotLocked()
	}
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		zlog.Warn().Msgf("emergency: event dropped type=%s", e.Type)
	}
}
