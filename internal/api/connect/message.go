package connect

import (
	"github.com/osa030/durga/internal/app/safety"
)

// DeviceRequest identifies the device for requests without further fields.
type DeviceRequest struct {
	DeviceID string `json:"device_id"`
}

// JoinRequest registers a device.
type JoinRequest struct {
	DisplayName    string `json:"display_name"`
	ExternalUserID string `json:"external_user_id,omitempty"`
}

// JoinResponse returns the device ID.
type JoinResponse struct {
	DeviceID string `json:"device_id"`
}

// Result is the common outcome of a user action.
type Result struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// LeaveResponse is the result of Leave.
type LeaveResponse struct {
	Result
}

// PinDigitRequest enters one PIN digit.
type PinDigitRequest struct {
	DeviceID string `json:"device_id"`
	Digit    string `json:"digit"`
}

// PinRequest enters a whole PIN.
type PinRequest struct {
	DeviceID string `json:"device_id"`
	PIN      string `json:"pin"`
}

// GestureRequest reports a slider position between 0 and 1.
type GestureRequest struct {
	DeviceID string  `json:"device_id"`
	Progress float64 `json:"progress"`
}

// MessageRequest posts to the ops feed.
type MessageRequest struct {
	DeviceID string `json:"device_id"`
	Text     string `json:"text"`
}

// EvidenceRequest records captured evidence.
type EvidenceRequest struct {
	DeviceID string `json:"device_id"`
	Kind     string `json:"kind"` // photo, audio or video
}

// EmergencyResponse is the result of an emergency action with the state after it.
type EmergencyResponse struct {
	Result
	Outcome string                `json:"outcome,omitempty"` // PIN outcome
	Session safety.SessionPayload `json:"session"`
}

// ConfigureCallRequest schedules a decoy call.
type ConfigureCallRequest struct {
	DeviceID     string `json:"device_id"`
	CallerName   string `json:"caller_name"`
	CallerAvatar string `json:"caller_avatar,omitempty"`
	DelaySeconds int    `json:"delay_seconds"`
}

// KeyRequest presses a keypad key.
type KeyRequest struct {
	DeviceID string `json:"device_id"`
	Key      string `json:"key"`
}

// CallResponse is the result of a decoy action with the state after it.
type CallResponse struct {
	Result
	Value *bool               `json:"value,omitempty"` // New toggle value
	Call  *safety.CallPayload `json:"call,omitempty"`
}

// ListDevicesRequest lists joined devices.
type ListDevicesRequest struct{}

// ListDevicesResponse returns devices and activated alerts.
type ListDevicesResponse struct {
	Devices []safety.DevicePayload `json:"devices"`
	Alerts  []safety.AlertPayload  `json:"alerts"`
}

// GetDeviceResponse returns one device with its controller states.
type GetDeviceResponse struct {
	Device  safety.DevicePayload  `json:"device"`
	Session safety.SessionPayload `json:"session"`
	Call    *safety.CallPayload   `json:"call,omitempty"`
}

// BroadcastRequest sends an announcement to every subscriber.
type BroadcastRequest struct {
	Text string `json:"text"`
}

// BroadcastResponse is the result of Broadcast.
type BroadcastResponse struct {
	Result
}

// InitialState is the payload of the first notification of a stream.
type InitialState struct {
	Device  safety.DevicePayload  `json:"device"`
	Session safety.SessionPayload `json:"session"`
	Call    *safety.CallPayload   `json:"call,omitempty"`
}
