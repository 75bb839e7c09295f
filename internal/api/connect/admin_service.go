package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/app/safety"
	"github.com/osa030/durga/internal/infra/config"
)

// AdminService implements the AdminService RPC.
type AdminService struct {
	safety *safety.Manager
	config *config.Config
}

// NewAdminService creates a new AdminService.
func NewAdminService(mgr *safety.Manager, cfg *config.Config) *AdminService {
	return &AdminService{
		safety: mgr,
		config: cfg,
	}
}

// ListDevices returns every joined device and the activated alerts.
func (s *AdminService) ListDevices(
	ctx context.Context,
	req *connect.Request[ListDevicesRequest],
) (*connect.Response[ListDevicesResponse], error) {
	return connect.NewResponse(&ListDevicesResponse{
		Devices: s.safety.ListDevices(),
		Alerts:  s.safety.ActiveAlerts(),
	}), nil
}

// GetDevice returns one device with its controller states.
func (s *AdminService) GetDevice(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[GetDeviceResponse], error) {
	state, err := initialState(s.safety, req.Msg.DeviceID)
	if err != nil {
		return nil, deviceError(err)
	}
	return connect.NewResponse(&GetDeviceResponse{
		Device:  state.Device,
		Session: state.Session,
		Call:    state.Call,
	}), nil
}

// Broadcast sends an announcement to every subscriber.
func (s *AdminService) Broadcast(
	ctx context.Context,
	req *connect.Request[BroadcastRequest],
) (*connect.Response[BroadcastResponse], error) {
	text := strings.TrimSpace(req.Msg.Text)
	if text == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("text is required"))
	}

	s.safety.Announce(text)
	zlog.Info().Msgf("api: admin broadcast subscribers=%d", s.safety.Notifications().SubscriberCount())

	return connect.NewResponse(&BroadcastResponse{
		Result: result(s.config, true, ""),
	}), nil
}
