package safety

import (
	"time"

	"github.com/osa030/durga/internal/app/decoy"
	"github.com/osa030/durga/internal/app/emergency"
	"github.com/osa030/durga/internal/domain/device"
	"github.com/osa030/durga/internal/domain/dispatch"
)

// StagePayload is one dispatch stage as pushed to devices.
type StagePayload struct {
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Total  int    `json:"total"`
}

// MessagePayload is one ops feed entry.
type MessagePayload struct {
	ID     int       `json:"id"`
	Kind   string    `json:"kind"`
	Sender string    `json:"sender,omitempty"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// ChallengePayload is the visible state of the PIN pad.
type ChallengePayload struct {
	Open    bool `json:"open"`
	Entered int  `json:"entered"`
	Error   bool `json:"error"`
}

// SessionPayload is the emergency controller state.
type SessionPayload struct {
	State           string           `json:"state"`
	SessionID       string           `json:"session_id,omitempty"`
	Remaining       int              `json:"remaining"`
	CreatedAt       *time.Time       `json:"created_at,omitempty"`
	ActivatedAt     *time.Time       `json:"activated_at,omitempty"`
	Stages          []StagePayload   `json:"stages,omitempty"`
	Challenge       ChallengePayload `json:"challenge"`
	GestureProgress float64          `json:"gesture_progress"`
	Messages        []MessagePayload `json:"messages,omitempty"`
}

// CallPayload is the decoy controller state.
type CallPayload struct {
	State           string  `json:"state"`
	CallerName      string  `json:"caller_name"`
	CallerAvatar    string  `json:"caller_avatar"`
	DelaySeconds    int     `json:"delay_seconds"`
	Remaining       int     `json:"remaining"`
	Elapsed         int     `json:"elapsed"`
	Duration        string  `json:"duration"`
	Ringing         bool    `json:"ringing"`
	Muted           bool    `json:"muted"`
	Speaker         bool    `json:"speaker"`
	Keypad          string  `json:"keypad"`
	GestureProgress float64 `json:"gesture_progress"`
	Closed          bool    `json:"closed"`
}

// AlertPayload is the sos_broadcast body.
type AlertPayload struct {
	AlertID     string    `json:"alert_id"`
	DeviceID    string    `json:"device_id"`
	DisplayName string    `json:"display_name"`
	Status      string    `json:"status"`
	At          time.Time `json:"at"`
}

// CancelledPayload is the sos_cancelled body.
type CancelledPayload struct {
	AlertID  string `json:"alert_id"`
	DeviceID string `json:"device_id"`
}

// DevicePayload is a device as listed to admins.
type DevicePayload struct {
	DeviceID       string     `json:"device_id"`
	DisplayName    string     `json:"display_name"`
	ExternalUserID string     `json:"external_user_id,omitempty"`
	JoinedAt       time.Time  `json:"joined_at"`
	SOSCount       int        `json:"sos_count"`
	DisarmCount    int        `json:"disarm_count"`
	CallCount      int        `json:"call_count"`
	LastSOSAt      *time.Time `json:"last_sos_at,omitempty"`
	View           string     `json:"view"`
	EmergencyState string     `json:"emergency_state"`
	CallState      string     `json:"call_state,omitempty"`
}

// NewStagePayload converts a dispatch stage.
func NewStagePayload(s dispatch.Stage) StagePayload {
	return StagePayload{
		Kind:   s.Kind.String(),
		Status: s.Status.String(),
		Label:  s.Label,
		Count:  s.Count,
		Total:  s.Total,
	}
}

// NewMessagePayload converts an ops feed message.
func NewMessagePayload(m emergency.Message) MessagePayload {
	return MessagePayload{
		ID:     m.ID,
		Kind:   m.Kind.String(),
		Sender: m.Sender,
		Text:   m.Text,
		At:     m.At,
	}
}

// NewSessionPayload converts an emergency snapshot.
func NewSessionPayload(s emergency.Snapshot) SessionPayload {
	p := SessionPayload{
		State:     string(s.State),
		SessionID: s.SessionID,
		Remaining: s.Remaining,
		Challenge: ChallengePayload{
			Open:    s.Challenge.Open,
			Entered: s.Challenge.Entered,
			Error:   s.Challenge.Error,
		},
		GestureProgress: s.GestureProgress,
		ActivatedAt:     s.ActivatedAt,
	}
	if !s.CreatedAt.IsZero() {
		at := s.CreatedAt
		p.CreatedAt = &at
	}
	for _, st := range s.Stages {
		p.Stages = append(p.Stages, NewStagePayload(st))
	}
	for _, m := range s.Messages {
		p.Messages = append(p.Messages, NewMessagePayload(m))
	}
	return p
}

// NewCallPayload converts a decoy snapshot.
func NewCallPayload(s decoy.Snapshot) CallPayload {
	return CallPayload{
		State:           string(s.State),
		CallerName:      s.CallerName,
		CallerAvatar:    s.CallerAvatar,
		DelaySeconds:    s.DelaySeconds,
		Remaining:       s.Remaining,
		Elapsed:         s.Elapsed,
		Duration:        s.Duration,
		Ringing:         s.Ringing,
		Muted:           s.Muted,
		Speaker:         s.Speaker,
		Keypad:          s.Keypad,
		GestureProgress: s.GestureProgress,
		Closed:          s.Closed,
	}
}

func newDevicePayload(d *device.Device) DevicePayload {
	return DevicePayload{
		DeviceID:       d.ID,
		DisplayName:    d.DisplayName,
		ExternalUserID: d.ExternalUserID,
		JoinedAt:       d.JoinedAt,
		SOSCount:       d.SOSCount,
		DisarmCount:    d.DisarmCount,
		CallCount:      d.CallCount,
		LastSOSAt:      d.LastSOSAt,
	}
}
