package capability

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

type panickyProvider struct{ Nop }

func (panickyProvider) Vibrate([]time.Duration) error { panic("no vibration motor") }

func TestCall(t *testing.T) {
	tests := []struct {
		name   string
		fn     func() error
		wantOK bool
	}{
		{name: "success", fn: func() error { return nil }, wantOK: true},
		{name: "unsupported", fn: func() error { return ErrUnsupported }, wantOK: false},
		{name: "failure", fn: func() error { return errors.New("denied") }, wantOK: false},
		{name: "panic", fn: func() error { panic("boom") }, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantOK, Call(tt.name, tt.fn))
		})
	}
}

func TestCall_PanickingProvider(t *testing.T) {
	var p Provider = panickyProvider{}
	assert.NotPanics(t, func() {
		ok := Call("vibrate", func() error { return p.Vibrate(Pattern(100)) })
		assert.False(t, ok)
	})
}

func TestScreen_ReleaseIsUnconditional(t *testing.T) {
	tests := []struct {
		name    string
		failing []string
	}{
		{name: "all granted", failing: nil},
		{name: "fullscreen denied", failing: []string{"request_fullscreen"}},
		{name: "everything denied", failing: []string{"request_fullscreen", "lock_orientation", "guard_navigation"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(nil)
			tracker.Fail("request_fullscreen", nil)
			for _, name := range tt.failing {
				tracker.Fail(name, ErrUnsupported)
			}

			s := NewScreen(tracker)
			s.Acquire()
			assert.True(t, s.Held())

			s.Release()
			assert.False(t, s.Held())
			assert.Equal(t, 1, tracker.Count("release_navigation"))
			assert.Equal(t, 1, tracker.Count("unlock_orientation"))
			assert.Equal(t, 1, tracker.Count("exit_fullscreen"))
			assert.Equal(t, Status{}, tracker.Status())
		})
	}
}

func TestScreen_AcquireRecordsResults(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Fail("request_fullscreen", nil)
	tracker.Fail("lock_orientation", nil)
	tracker.Fail("guard_navigation", nil)

	s := NewScreen(tracker)
	s.Acquire()

	assert.True(t, s.Fullscreen)
	assert.True(t, s.Orientation)
	assert.True(t, s.Navigation)
}

func TestNop(t *testing.T) {
	var p Provider = Nop{}
	assert.ErrorIs(t, p.Vibrate(Pattern(200)), ErrUnsupported)
	assert.NoError(t, p.StopVibration())
	assert.NoError(t, p.StopTone())
}

func TestPattern(t *testing.T) {
	assert.Equal(t,
		[]time.Duration{500 * time.Millisecond, 200 * time.Millisecond},
		Pattern(500, 200),
	)
}
