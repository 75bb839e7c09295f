// Package device provides the Device domain entity.
package device

import "time"

// Device represents a phone connected to the server.
type Device struct {
	ID             string     // UUID
	DisplayName    string     // Owner display name
	ExternalUserID string     // External user ID (optional)
	JoinedAt       time.Time  // Join time
	SOSCount       int        // Emergency sessions triggered
	DisarmCount    int        // Emergency sessions disarmed with the PIN
	CallCount      int        // Decoy calls configured
	LastSOSAt      *time.Time // Last SOS trigger time
}

// NewDevice creates a new device.
func NewDevice(id, displayName, externalUserID string) *Device {
	return &Device{
		ID:             id,
		DisplayName:    displayName,
		ExternalUserID: externalUserID,
		JoinedAt:       time.Now(),
	}
}

// RecordSOS counts a triggered emergency session.
func (d *Device) RecordSOS(at time.Time) {
	d.SOSCount++
	d.LastSOSAt = &at
}

// RecordDisarm counts a session cancelled with the PIN.
func (d *Device) RecordDisarm() {
	d.DisarmCount++
}

// RecordCall counts a configured decoy call.
func (d *Device) RecordCall() {
	d.CallCount++
}

// Clone returns a copy safe to hand out of a lock.
func (d *Device) Clone() *Device {
	c := *d
	if d.LastSOSAt != nil {
		at := *d.LastSOSAt
		c.LastSOSAt = &at
	}
	return &c
}
