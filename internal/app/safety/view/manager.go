package view

import (
	"sync"
	"time"
)

// Manager manages the current view with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	current  View
	previous View
	since    time.Time
}

// New creates a view manager on the dashboard.
func New() *Manager {
	return &Manager{
		current:  ViewDashboard,
		previous: ViewDashboard,
		since:    time.Now(),
	}
}

// Get returns the current view.
func (m *Manager) Get() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Set switches to v. It reports whether the view changed.
func (m *Manager) Set(v View) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == v {
		return false
	}
	m.previous = m.current
	m.current = v
	m.since = time.Now()
	return true
}

// SetIf switches to v only while the current view is from.
func (m *Manager) SetIf(from, v View) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != from || m.current == v {
		return false
	}
	m.previous = m.current
	m.current = v
	m.since = time.Now()
	return true
}

// Previous returns the view shown before the current one.
func (m *Manager) Previous() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.previous
}

// Since returns when the current view was entered.
func (m *Manager) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// ShowsNavigation reports whether the bottom navigation is visible.
func (m *Manager) ShowsNavigation() bool {
	return m.Get().ShowsNavigation()
}
