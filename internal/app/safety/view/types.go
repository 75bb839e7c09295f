// Package view provides the current screen of a device.
package view

// View represents the screen a device shows.
type View int

const (
	ViewDashboard View = iota // Home screen with the SOS button
	ViewSOS                   // Emergency session
	ViewDecoyCall             // Fake call flow
)

// String returns the string representation of the view.
func (v View) String() string {
	switch v {
	case ViewDashboard:
		return "dashboard"
	case ViewSOS:
		return "sos"
	case ViewDecoyCall:
		return "decoy_call"
	default:
		return "unknown"
	}
}

// ShowsNavigation reports whether the bottom navigation is visible.
func (v View) ShowsNavigation() bool {
	return v == ViewDashboard
}
