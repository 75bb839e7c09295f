package safety

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/app/decoy"
	"github.com/osa030/durga/internal/app/emergency"
	"github.com/osa030/durga/internal/app/notification"
	"github.com/osa030/durga/internal/app/safety/view"
	"github.com/osa030/durga/internal/domain/device"
)

// handleEmergencyEvent forwards an emergency event to the device's
// subscribers and keeps the view, counters and alert list in step.
func (m *Manager) handleEmergencyEvent(deviceID string, e emergency.Event) {
	zlog.Debug().Msgf("safety: emergency event device_id=%s type=%s state=%s", deviceID, e.Type, e.Snapshot.State)

	switch e.Type {
	case emergency.EventSessionCreated:
		m.setView(deviceID, view.ViewSOS)
		at := e.Snapshot.CreatedAt
		if err := m.registry.Update(deviceID, func(d *device.Device) { d.RecordSOS(at) }); err != nil {
			zlog.Warn().Msgf("safety: failed to count sos device_id=%s: %v", deviceID, err)
		}
		m.publish(deviceID, notification.TypeSessionState, NewSessionPayload(e.Snapshot))

	case emergency.EventCountdownTick:
		m.publish(deviceID, notification.TypeSessionState, NewSessionPayload(e.Snapshot))

	case emergency.EventActivated:
		m.publish(deviceID, notification.TypeSessionState, NewSessionPayload(e.Snapshot))
		m.broadcastAlert(deviceID, e.Snapshot)

	case emergency.EventStageChanged:
		if e.Stage != nil {
			m.publish(deviceID, notification.TypeStageChanged, NewStagePayload(*e.Stage))
		}

	case emergency.EventChallengeChanged:
		m.publish(deviceID, notification.TypeChallengeChanged, ChallengePayload{
			Open:    e.Snapshot.Challenge.Open,
			Entered: e.Snapshot.Challenge.Entered,
			Error:   e.Snapshot.Challenge.Error,
		})

	case emergency.EventMessage:
		if e.Message != nil {
			m.publish(deviceID, notification.TypeOpsMessage, NewMessagePayload(*e.Message))
		}

	case emergency.EventSessionDiscarded:
		m.setViewIf(deviceID, view.ViewSOS, view.ViewDashboard)
		if err := m.registry.Update(deviceID, (*device.Device).RecordDisarm); err != nil {
			zlog.Warn().Msgf("safety: failed to count disarm device_id=%s: %v", deviceID, err)
		}
		m.publish(deviceID, notification.TypeSessionState, NewSessionPayload(e.Snapshot))
		m.cancelAlert(deviceID, e.Snapshot.SessionID)
	}
}

// handleCallEvent forwards a decoy event. Once the call screen closes the
// controller is released and the device returns to the dashboard.
func (m *Manager) handleCallEvent(deviceID string, dc *decoy.Controller, e decoy.Event) {
	zlog.Debug().Msgf("safety: call event device_id=%s type=%s state=%s", deviceID, e.Type, e.Snapshot.State)

	if e.Type != decoy.EventClosed {
		m.publish(deviceID, notification.TypeCallState, NewCallPayload(e.Snapshot))
		return
	}

	m.publish(deviceID, notification.TypeCallClosed, NewCallPayload(e.Snapshot))

	m.mu.Lock()
	ds, ok := m.devices[deviceID]
	if !ok || ds.call != dc {
		m.mu.Unlock()
		return
	}
	ds.call = nil
	ds.view.SetIf(view.ViewDecoyCall, view.ViewDashboard)
	m.mu.Unlock()

	dc.Close()
}

func (m *Manager) broadcastAlert(deviceID string, s emergency.Snapshot) {
	name := ""
	if d, err := m.registry.Get(deviceID); err == nil {
		name = d.DisplayName
	}
	at := s.CreatedAt
	if s.ActivatedAt != nil {
		at = *s.ActivatedAt
	}
	alert := AlertPayload{
		AlertID:     s.SessionID,
		DeviceID:    deviceID,
		DisplayName: name,
		Status:      "ACTIVE",
		At:          at,
	}

	m.mu.Lock()
	m.alerts[deviceID] = alert
	m.mu.Unlock()

	zlog.Info().Msgf("safety: sos broadcast device_id=%s alert_id=%s", deviceID, alert.AlertID)
	m.notification.Broadcast(&notification.Notification{
		Type:     notification.TypeSOSBroadcast,
		DeviceID: deviceID,
		Payload:  alert,
	})
}

// cancelAlert broadcasts sos_cancelled for an activated session. Sessions
// disarmed during the countdown were never broadcast.
func (m *Manager) cancelAlert(deviceID, sessionID string) {
	m.mu.Lock()
	alert, ok := m.alerts[deviceID]
	if ok && alert.AlertID == sessionID {
		delete(m.alerts, deviceID)
	}
	m.mu.Unlock()

	if !ok || alert.AlertID != sessionID {
		return
	}

	zlog.Info().Msgf("safety: sos cancelled device_id=%s alert_id=%s", deviceID, sessionID)
	m.notification.Broadcast(&notification.Notification{
		Type:     notification.TypeSOSCancelled,
		DeviceID: deviceID,
		Payload:  CancelledPayload{AlertID: sessionID, DeviceID: deviceID},
	})
}

func (m *Manager) publish(deviceID string, t notification.Type, payload any) {
	m.notification.Publish(&notification.Notification{
		Type:     t,
		DeviceID: deviceID,
		Payload:  payload,
	})
}

func (m *Manager) setView(deviceID string, v view.View) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ds, ok := m.devices[deviceID]; ok && ds.view.Set(v) {
		zlog.Debug().Msgf("safety: view changed device_id=%s view=%s", deviceID, v)
	}
}

func (m *Manager) setViewIf(deviceID string, from, v view.View) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ds, ok := m.devices[deviceID]; ok && ds.view.SetIf(from, v) {
		zlog.Debug().Msgf("safety: view changed device_id=%s view=%s", deviceID, v)
	}
}
