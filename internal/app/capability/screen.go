package capability

// Screen holds the environment-wide resources of an emergency session.
type Screen struct {
	provider Provider
	held     bool

	// Results of the last Acquire, for display only.
	Fullscreen  bool
	Orientation bool
	Navigation  bool
}

// NewScreen creates a screen lock over p.
func NewScreen(p Provider) *Screen {
	if p == nil {
		p = Nop{}
	}
	return &Screen{provider: p}
}

// Acquire requests fullscreen, orientation lock and navigation suppression.
// Each is best-effort.
func (s *Screen) Acquire() {
	s.held = true
	s.Fullscreen = Call("request_fullscreen", s.provider.RequestFullscreen)
	s.Orientation = Call("lock_orientation", s.provider.LockOrientation)
	s.Navigation = Call("guard_navigation", s.provider.GuardNavigation)
}

// Release gives back every resource, whether or not Acquire obtained it.
func (s *Screen) Release() {
	Call("release_navigation", s.provider.ReleaseNavigation)
	Call("unlock_orientation", s.provider.UnlockOrientation)
	Call("exit_fullscreen", s.provider.ExitFullscreen)
	s.held = false
	s.Fullscreen = false
	s.Orientation = false
	s.Navigation = false
}

// Held reports whether Acquire was called without a matching Release.
func (s *Screen) Held() bool {
	return s.held
}
