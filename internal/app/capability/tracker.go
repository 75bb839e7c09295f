package capability

import (
	"sync"
	"time"
)

// Tracker wraps a Provider and remembers which capabilities are engaged.
// Requests are recorded even when the inner provider fails.
type Tracker struct {
	mu    sync.Mutex
	inner Provider
	fail  map[string]error
	calls []string

	fullscreen  bool
	orientation bool
	navigation  bool
	vibrating   bool
	toning      bool
	lastPattern []time.Duration
	tones       []float64
}

var _ Provider = (*Tracker)(nil)

// NewTracker creates a tracker around inner, which may be nil.
func NewTracker(inner Provider) *Tracker {
	if inner == nil {
		inner = Nop{}
	}
	return &Tracker{inner: inner, fail: make(map[string]error)}
}

// Fail makes the named capability return err instead of reaching the inner provider.
func (t *Tracker) Fail(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fail[name] = err
}

func (t *Tracker) record(name string, fn func() error) error {
	t.calls = append(t.calls, name)
	if err, ok := t.fail[name]; ok {
		return err
	}
	return fn()
}

func (t *Tracker) RequestFullscreen() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fullscreen = true
	return t.record("request_fullscreen", t.inner.RequestFullscreen)
}

func (t *Tracker) ExitFullscreen() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fullscreen = false
	return t.record("exit_fullscreen", t.inner.ExitFullscreen)
}

func (t *Tracker) LockOrientation() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.orientation = true
	return t.record("lock_orientation", t.inner.LockOrientation)
}

func (t *Tracker) UnlockOrientation() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.orientation = false
	return t.record("unlock_orientation", t.inner.UnlockOrientation)
}

func (t *Tracker) GuardNavigation() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.navigation = true
	return t.record("guard_navigation", t.inner.GuardNavigation)
}

func (t *Tracker) ReleaseNavigation() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.navigation = false
	return t.record("release_navigation", t.inner.ReleaseNavigation)
}

func (t *Tracker) Vibrate(pattern []time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vibrating = true
	t.lastPattern = pattern
	return t.record("vibrate", func() error { return t.inner.Vibrate(pattern) })
}

func (t *Tracker) StopVibration() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vibrating = false
	return t.record("stop_vibration", t.inner.StopVibration)
}

func (t *Tracker) PlayTone(frequencyHz float64, d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.toning = true
	t.tones = append(t.tones, frequencyHz)
	return t.record("play_tone", func() error { return t.inner.PlayTone(frequencyHz, d) })
}

func (t *Tracker) StopTone() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.toning = false
	return t.record("stop_tone", t.inner.StopTone)
}

// Status is a snapshot of engaged capabilities.
type Status struct {
	Fullscreen  bool
	Orientation bool
	Navigation  bool
	Vibrating   bool
	Toning      bool
}

// Status returns which capabilities are currently engaged.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		Fullscreen:  t.fullscreen,
		Orientation: t.orientation,
		Navigation:  t.navigation,
		Vibrating:   t.vibrating,
		Toning:      t.toning,
	}
}

// Calls returns the names of every request so far.
func (t *Tracker) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.calls))
	copy(out, t.calls)
	return out
}

// Count returns how often the named capability was requested.
func (t *Tracker) Count(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Tones returns every requested frequency in order.
func (t *Tracker) Tones() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]float64, len(t.tones))
	copy(out, t.tones)
	return out
}

// LastPattern returns the most recent vibration pattern.
func (t *Tracker) LastPattern() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPattern
}
