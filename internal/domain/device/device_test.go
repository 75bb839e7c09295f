package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDevice(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		displayName    string
		externalUserID string
	}{
		{name: "with external id", id: "device-1", displayName: "Asha", externalUserID: "ext-1"},
		{name: "without external id", id: "device-2", displayName: "Ravi", externalUserID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDevice(tt.id, tt.displayName, tt.externalUserID)

			assert.Equal(t, tt.id, d.ID)
			assert.Equal(t, tt.displayName, d.DisplayName)
			assert.Equal(t, tt.externalUserID, d.ExternalUserID)
			assert.Equal(t, 0, d.SOSCount)
			assert.Equal(t, 0, d.CallCount)
			assert.Nil(t, d.LastSOSAt)
			assert.False(t, d.JoinedAt.IsZero())
		})
	}
}

func TestDevice_Counters(t *testing.T) {
	d := NewDevice("device-1", "Asha", "")
	at := time.Date(2026, 3, 1, 22, 15, 0, 0, time.UTC)

	d.RecordSOS(at)
	d.RecordSOS(at.Add(time.Minute))
	d.RecordDisarm()
	d.RecordCall()

	assert.Equal(t, 2, d.SOSCount)
	assert.Equal(t, 1, d.DisarmCount)
	assert.Equal(t, 1, d.CallCount)
	assert.Equal(t, at.Add(time.Minute), *d.LastSOSAt)
}

func TestDevice_Clone(t *testing.T) {
	d := NewDevice("device-1", "Asha", "")
	d.RecordSOS(time.Now())

	c := d.Clone()
	c.SOSCount = 10
	*c.LastSOSAt = time.Time{}

	assert.Equal(t, 1, d.SOSCount)
	assert.False(t, d.LastSOSAt.IsZero())
}
