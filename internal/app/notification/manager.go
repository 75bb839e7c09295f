// Package notification provides the notification manager for pushing events to device streams.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/infra/metrics"
)

// sendTimeout bounds a single stream send.
const sendTimeout = 500 * time.Millisecond

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id       string
	deviceID string // Empty receives broadcasts only
	stream   Stream
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
// The subscriber receives broadcasts and notifications for deviceID.
func (m *Manager) Subscribe(deviceID string, stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:       id,
		deviceID: deviceID,
		stream:   stream,
	}
	metrics.SetNotificationStreams(len(m.subscriptions))
	return id
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
	metrics.SetNotificationStreams(len(m.subscriptions))
}

// Broadcast sends a notification to all subscribers.
func (m *Manager) Broadcast(n *Notification) {
	m.stamp(n)
	m.fanOut(n, m.matching(func(*subscription) bool { return true }))
}

// Publish sends a device notification to the subscribers of that device.
// A notification without a device is broadcast.
func (m *Manager) Publish(n *Notification) {
	if n.DeviceID == "" {
		m.Broadcast(n)
		return
	}
	m.stamp(n)
	m.fanOut(n, m.matching(func(s *subscription) bool { return s.deviceID == n.DeviceID }))
}

// Send sends a notification to a specific subscriber.
func (m *Manager) Send(subscriptionID string, n *Notification) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	m.stamp(n)
	return sub.stream.Send(n)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
	metrics.SetNotificationStreams(0)
}

func (m *Manager) stamp(n *Notification) {
	n.SequenceNo = m.NextSequenceNo()
	if n.At.IsZero() {
		n.At = time.Now()
	}
}

func (m *Manager) matching(keep func(*subscription) bool) []*subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		if keep(sub) {
			subs = append(subs, sub)
		}
	}
	return subs
}

// fanOut sends to each subscriber in parallel. A slow subscriber is
// skipped after sendTimeout.
func (m *Manager) fanOut(n *Notification, subs []*subscription) {
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(n)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("notification: send failed subscription_id=%s type=%s: %v", s.id, n.Type, err)
				}
			case <-ctx.Done():
				zlog.Warn().Msgf("notification: send timed out subscription_id=%s type=%s", s.id, n.Type)
			}
		}(sub)
	}

	// Wait for all sends to complete or timeout
	wg.Wait()
}
