// Package registry provides the connected device registry.
package registry

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/osa030/durga/internal/domain/device"
)

var ErrInvalidDevice = errors.New("invalid device")

// DeviceRegistry manages joined devices with thread-safe access.
type DeviceRegistry struct {
	mu      sync.RWMutex
	devices map[string]*device.Device
}

// NewDeviceRegistry creates a new device registry.
func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{
		devices: make(map[string]*device.Device),
	}
}

// Join adds a new device and returns its ID. Joining again with the same
// external user ID returns the existing device.
func (r *DeviceRegistry) Join(displayName, externalUserID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check if already joined (by external ID)
	if externalUserID != "" {
		for _, d := range r.devices {
			if d.ExternalUserID == externalUserID {
				return d.ID, false
			}
		}
	}

	id := uuid.New().String()
	r.devices[id] = device.NewDevice(id, displayName, externalUserID)
	return id, true
}

// Get retrieves a copy of a device by ID.
func (r *DeviceRegistry) Get(deviceID string) (*device.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return nil, ErrInvalidDevice
	}
	return d.Clone(), nil
}

// Validate checks if a device exists.
func (r *DeviceRegistry) Validate(deviceID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.devices[deviceID]; !ok {
		return ErrInvalidDevice
	}
	return nil
}

// Update applies fn to the stored device.
func (r *DeviceRegistry) Update(deviceID string, fn func(*device.Device)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return ErrInvalidDevice
	}
	fn(d)
	return nil
}

// Leave removes a device.
func (r *DeviceRegistry) Leave(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[deviceID]; !ok {
		return ErrInvalidDevice
	}
	delete(r.devices, deviceID)
	return nil
}

// List returns copies of all devices, oldest first.
func (r *DeviceRegistry) List() []*device.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*device.Device, 0, len(r.devices))
	for _, d := range r.devices {
		result = append(result, d.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].JoinedAt.Equal(result[j].JoinedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].JoinedAt.Before(result[j].JoinedAt)
	})
	return result
}

// Count returns the number of devices.
func (r *DeviceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
