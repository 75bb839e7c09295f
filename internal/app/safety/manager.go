// Package safety provides the device session manager. It owns the emergency
// and decoy controllers of every joined device and turns their events into
// notifications.
package safety

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/app/capability"
	"github.com/osa030/durga/internal/app/decoy"
	"github.com/osa030/durga/internal/app/emergency"
	"github.com/osa030/durga/internal/app/filter"
	"github.com/osa030/durga/internal/app/notification"
	"github.com/osa030/durga/internal/app/response"
	"github.com/osa030/durga/internal/app/safety/registry"
	"github.com/osa030/durga/internal/app/safety/view"
	"github.com/osa030/durga/internal/app/timed"
	"github.com/osa030/durga/internal/domain/call"
	"github.com/osa030/durga/internal/domain/device"
	"github.com/osa030/durga/internal/infra/config"
)

var (
	ErrClosed        = errors.New("safety manager closed")
	ErrNoCall        = errors.New("no decoy call")
	ErrInvalidDevice = registry.ErrInvalidDevice
)

// Options are the runtime collaborators of the manager. Zero values fall
// back to the configured defaults.
type Options struct {
	Clock        timed.Clock                               // Shared by every controller
	Capabilities func(deviceID string) capability.Provider // Per-device capabilities
	Responses    response.Provider                         // Guardian replies
}

// deviceSession holds the controllers of one device.
type deviceSession struct {
	caps      capability.Provider
	view      *view.Manager
	emergency *emergency.Controller
	call      *decoy.Controller // nil until a call is configured
}

// Manager manages device sessions.
type Manager struct {
	mu sync.RWMutex

	config *config.Config
	opts   Options

	registry     *registry.DeviceRegistry
	notification *notification.Manager
	filterChain  *filter.Chain

	devices map[string]*deviceSession
	alerts  map[string]AlertPayload // Activated sessions by device ID

	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewManager creates a new safety manager.
func NewManager(cfg *config.Config, opts Options) (*Manager, error) {
	chain, err := filter.NewChainFromConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create filter chain")
	}

	if opts.Clock == nil {
		opts.Clock = timed.NewWallClock(config.Ms(cfg.Timer.ResolutionMs))
	}
	if opts.Capabilities == nil {
		opts.Capabilities = func(deviceID string) capability.Provider {
			return capability.Logging{Device: deviceID}
		}
	}
	if opts.Responses == nil {
		rc, err := response.NewChainFromConfig(cfg.Responses)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create response providers")
		}
		opts.Responses = rc
	}

	return &Manager{
		config:       cfg,
		opts:         opts,
		registry:     registry.NewDeviceRegistry(),
		notification: notification.NewManager(),
		filterChain:  chain,
		devices:      make(map[string]*deviceSession),
		alerts:       make(map[string]AlertPayload),
		done:         make(chan struct{}),
	}, nil
}

// Join registers a device and creates its emergency controller. Joining
// again with the same external user ID returns the existing device.
func (m *Manager) Join(displayName, externalUserID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrClosed
	}

	id, created := m.registry.Join(displayName, externalUserID)
	if !created {
		zlog.Info().Msgf("safety: device rejoined device_id=%s", id)
		return id, nil
	}

	caps := m.opts.Capabilities(id)
	ecfg := emergency.ConfigFrom(m.config.Emergency)
	ecfg.Capabilities = caps
	ecfg.Responses = m.opts.Responses
	ecfg.Clock = m.opts.Clock

	ec, err := emergency.NewController(ecfg)
	if err != nil {
		_ = m.registry.Leave(id)
		return "", errors.Wrap(err, "failed to create emergency controller")
	}

	m.devices[id] = &deviceSession{
		caps:      caps,
		view:      view.New(),
		emergency: ec,
	}
	m.wg.Add(1)
	go m.runLoop("emergency", id, func() bool {
		return drain(ec.Events(), func(e emergency.Event) { m.handleEmergencyEvent(id, e) })
	})

	zlog.Info().Msgf("safety: device joined device_id=%s display_name=%s", id, displayName)
	return id, nil
}

// Leave removes a device and tears down its controllers.
func (m *Manager) Leave(deviceID string) error {
	m.mu.Lock()
	ds, ok := m.devices[deviceID]
	if !ok {
		m.mu.Unlock()
		return ErrInvalidDevice
	}
	delete(m.devices, deviceID)
	delete(m.alerts, deviceID)
	m.mu.Unlock()

	ds.close()
	if err := m.registry.Leave(deviceID); err != nil {
		return err
	}
	zlog.Info().Msgf("safety: device left device_id=%s", deviceID)
	return nil
}

// GetDevice returns a copy of a device.
func (m *Manager) GetDevice(deviceID string) (*device.Device, error) {
	return m.registry.Get(deviceID)
}

// ListDevices returns every joined device with its current state.
func (m *Manager) ListDevices() []DevicePayload {
	devices := m.registry.List()
	result := make([]DevicePayload, 0, len(devices))
	for _, d := range devices {
		result = append(result, m.describe(d))
	}
	return result
}

// Status returns a device with its current state.
func (m *Manager) Status(deviceID string) (DevicePayload, error) {
	d, err := m.registry.Get(deviceID)
	if err != nil {
		return DevicePayload{}, err
	}
	return m.describe(d), nil
}

// DeviceCount returns the number of joined devices.
func (m *Manager) DeviceCount() int {
	return m.registry.Count()
}

// Emergency returns the emergency controller of a device.
func (m *Manager) Emergency(deviceID string) (*emergency.Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.devices[deviceID]
	if !ok {
		return nil, ErrInvalidDevice
	}
	return ds.emergency, nil
}

// Call returns the decoy call of a device.
func (m *Manager) Call(deviceID string) (*decoy.Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.devices[deviceID]
	if !ok {
		return nil, ErrInvalidDevice
	}
	if ds.call == nil {
		return nil, ErrNoCall
	}
	return ds.call, nil
}

// View returns the current view of a device.
func (m *Manager) View(deviceID string) (view.View, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.devices[deviceID]
	if !ok {
		return view.ViewDashboard, ErrInvalidDevice
	}
	return ds.view.Get(), nil
}

// ConfigureCall runs the filter chain and schedules a decoy call. A call
// still in setup is reused; an ended call is replaced by a fresh one.
func (m *Manager) ConfigureCall(ctx context.Context, req filter.CallRequest) (filter.Result, error) {
	ec, err := m.Emergency(req.DeviceID)
	if err != nil {
		return filter.Result{}, err
	}

	state := filter.DeviceState{SOSActive: ec.Snapshot().Live()}
	if result := m.filterChain.Execute(ctx, req, state); !result.Accepted {
		zlog.Info().Msgf("safety: call rejected device_id=%s code=%s", req.DeviceID, result.Code)
		return result, nil
	}

	dc, err := m.callForSetup(req.DeviceID)
	if err != nil {
		return filter.Result{}, err
	}
	if dc == nil {
		return filter.Reject("invalid_state"), nil
	}

	ok, err := dc.Configure(req.CallerName, req.CallerAvatar, req.DelaySeconds)
	if err != nil {
		code := callRejectCode(err)
		zlog.Info().Msgf("safety: call rejected device_id=%s code=%s: %v", req.DeviceID, code, err)
		return filter.Reject(code), nil
	}
	if !ok {
		return filter.Reject("invalid_state"), nil
	}

	if err := m.registry.Update(req.DeviceID, (*device.Device).RecordCall); err != nil {
		zlog.Warn().Msgf("safety: failed to count call device_id=%s: %v", req.DeviceID, err)
	}
	return filter.Accept(), nil
}

// callForSetup returns a call in StateSetup, creating one if needed. It
// returns nil while a call is in progress.
func (m *Manager) callForSetup(deviceID string) (*decoy.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ds, ok := m.devices[deviceID]
	if !ok {
		return nil, ErrInvalidDevice
	}

	if ds.call != nil {
		switch ds.call.State() {
		case decoy.StateSetup:
			return ds.call, nil
		case decoy.StateEnded:
			ds.call.Close()
			ds.call = nil
		default:
			return nil, nil
		}
	}

	dcfg := decoy.ConfigFrom(m.config.Decoy)
	dcfg.Capabilities = ds.caps
	dcfg.Clock = m.opts.Clock

	dc, err := decoy.NewController(dcfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decoy controller")
	}
	ds.call = dc
	ds.view.Set(view.ViewDecoyCall)

	m.wg.Add(1)
	go m.runLoop("decoy", deviceID, func() bool {
		return drain(dc.Events(), func(e decoy.Event) { m.handleCallEvent(deviceID, dc, e) })
	})
	return dc, nil
}

// ActiveAlerts returns the activated SOS sessions, oldest first.
func (m *Manager) ActiveAlerts() []AlertPayload {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]AlertPayload, 0, len(m.alerts))
	for _, a := range m.alerts {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].At.Before(result[j].At)
	})
	return result
}

// Announce broadcasts an admin message to every subscriber.
func (m *Manager) Announce(text string) {
	m.notification.Broadcast(&notification.Notification{
		Type:    notification.TypeAnnouncement,
		Payload: map[string]string{"text": text},
	})
}

// Done is closed when the manager is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Notifications returns the notification manager.
func (m *Manager) Notifications() *notification.Manager {
	return m.notification
}

// Filters returns the configured filter chain.
func (m *Manager) Filters() *filter.Chain {
	return m.filterChain
}

// Close tears down every device session.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.done)
	sessions := make([]*deviceSession, 0, len(m.devices))
	for _, ds := range m.devices {
		sessions = append(sessions, ds)
	}
	m.devices = make(map[string]*deviceSession)
	m.mu.Unlock()

	for _, ds := range sessions {
		ds.close()
	}

	drained := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		zlog.Warn().Msg("safety: event loops did not drain")
	}

	m.notification.Close()
	zlog.Info().Msgf("safety: closed devices=%d", len(sessions))
}

func (m *Manager) describe(d *device.Device) DevicePayload {
	p := newDevicePayload(d)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.devices[d.ID]
	if !ok {
		return p
	}
	p.View = ds.view.Get().String()
	p.EmergencyState = string(ds.emergency.State())
	if ds.call != nil {
		p.CallState = string(ds.call.State())
	}
	return p
}

func (ds *deviceSession) close() {
	if ds.call != nil {
		ds.call.Close()
	}
	ds.emergency.Close()
}

// runLoop runs an event loop, restarting it after a panic until the event
// channel is closed.
func (m *Manager) runLoop(name, deviceID string, loop func() bool) {
	defer m.wg.Done()

	for !runRecovering(name, deviceID, loop) {
		zlog.Info().Msgf("safety: restarting %s loop device_id=%s", name, deviceID)
	}
}

func runRecovering(name, deviceID string, loop func() bool) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("safety: %s loop panicked device_id=%s: %v", name, deviceID, r)
			done = false
		}
	}()
	return loop()
}

// drain hands every event to handle and reports true once the channel closes.
func drain[E any](events <-chan E, handle func(E)) bool {
	for e := range events {
		handle(e)
	}
	return true
}

func callRejectCode(err error) string {
	switch {
	case errors.Is(err, call.ErrEmptyCallerName), errors.Is(err, call.ErrCallerNameLong):
		return "caller_name"
	case errors.Is(err, call.ErrInvalidDelay):
		return "delay_option"
	case errors.Is(err, call.ErrInvalidAvatar):
		return "avatar_scheme"
	default:
		return "invalid_state"
	}
}
