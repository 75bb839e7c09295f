package connect

import (
	"context"
	"strings"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/app/notification"
	"github.com/osa030/durga/internal/app/safety"
	"github.com/osa030/durga/internal/infra/config"
)

// DeviceService implements the DeviceService RPC.
type DeviceService struct {
	safety *safety.Manager
	config *config.Config
}

// NewDeviceService creates a new DeviceService.
func NewDeviceService(mgr *safety.Manager, cfg *config.Config) *DeviceService {
	return &DeviceService{
		safety: mgr,
		config: cfg,
	}
}

// Join handles device join requests.
func (s *DeviceService) Join(
	ctx context.Context,
	req *connect.Request[JoinRequest],
) (*connect.Response[JoinResponse], error) {
	name := strings.TrimSpace(req.Msg.DisplayName)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("display_name is required"))
	}

	deviceID, err := s.safety.Join(name, req.Msg.ExternalUserID)
	if err != nil {
		return nil, deviceError(err)
	}

	return connect.NewResponse(&JoinResponse{
		DeviceID: deviceID,
	}), nil
}

// Leave removes a device.
func (s *DeviceService) Leave(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[LeaveResponse], error) {
	if err := s.safety.Leave(req.Msg.DeviceID); err != nil {
		return nil, deviceError(err)
	}
	return connect.NewResponse(&LeaveResponse{Result: result(s.config, true, "")}), nil
}

// Subscribe streams notifications for a device, starting with its current state.
func (s *DeviceService) Subscribe(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
	stream *connect.ServerStream[notification.Notification],
) error {
	deviceID := req.Msg.DeviceID
	state, err := initialState(s.safety, deviceID)
	if err != nil {
		return deviceError(err)
	}

	notifManager := s.safety.Notifications()
	initial := &notification.Notification{
		SequenceNo: notifManager.NextSequenceNo(),
		Type:       notification.TypeInitialState,
		DeviceID:   deviceID,
		Payload:    state,
	}
	if err := stream.Send(initial); err != nil {
		return err
	}

	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := notifManager.Subscribe(deviceID, adapter)
	zlog.Debug().Msgf("api: subscribed device_id=%s subscription_id=%s", deviceID, subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.safety.Done():
	}

	notifManager.Unsubscribe(subscriptionID)
	return nil
}

func initialState(mgr *safety.Manager, deviceID string) (*InitialState, error) {
	device, err := mgr.Status(deviceID)
	if err != nil {
		return nil, err
	}
	ec, err := mgr.Emergency(deviceID)
	if err != nil {
		return nil, err
	}

	state := &InitialState{
		Device:  device,
		Session: safety.NewSessionPayload(ec.Snapshot()),
	}
	if dc, err := mgr.Call(deviceID); err == nil {
		p := safety.NewCallPayload(dc.Snapshot())
		state.Call = &p
	}
	return state, nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends are serialized since notifications fan out from several goroutines.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[notification.Notification]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(n)
}
