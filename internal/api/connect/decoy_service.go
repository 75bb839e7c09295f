package connect

import (
	"context"
	"unicode/utf8"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/durga/internal/app/decoy"
	"github.com/osa030/durga/internal/app/filter"
	"github.com/osa030/durga/internal/app/safety"
	"github.com/osa030/durga/internal/infra/config"
)

// DecoyService implements the DecoyService RPC.
type DecoyService struct {
	safety *safety.Manager
	config *config.Config
}

// NewDecoyService creates a new DecoyService.
func NewDecoyService(mgr *safety.Manager, cfg *config.Config) *DecoyService {
	return &DecoyService{
		safety: mgr,
		config: cfg,
	}
}

// Configure runs the request filters and schedules a decoy call.
func (s *DecoyService) Configure(
	ctx context.Context,
	req *connect.Request[ConfigureCallRequest],
) (*connect.Response[CallResponse], error) {
	res, err := s.safety.ConfigureCall(ctx, filter.CallRequest{
		DeviceID:     req.Msg.DeviceID,
		CallerName:   req.Msg.CallerName,
		CallerAvatar: req.Msg.CallerAvatar,
		DelaySeconds: req.Msg.DelaySeconds,
	})
	if err != nil {
		return nil, deviceError(err)
	}
	return s.respond(req.Msg.DeviceID, res.Accepted, res.Code, nil)
}

// CancelWaiting returns a scheduled call to setup.
func (s *DecoyService) CancelWaiting(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[CallResponse], error) {
	return s.do(req.Msg.DeviceID, (*decoy.Controller).CancelWaiting)
}

// Answer picks up the ringing call.
func (s *DecoyService) Answer(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[CallResponse], error) {
	return s.do(req.Msg.DeviceID, (*decoy.Controller).Answer)
}

// Decline rejects the ringing call.
func (s *DecoyService) Decline(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[CallResponse], error) {
	return s.do(req.Msg.DeviceID, (*decoy.Controller).Decline)
}

// EndCall hangs up the answered call.
func (s *DecoyService) EndCall(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[CallResponse], error) {
	return s.do(req.Msg.DeviceID, (*decoy.Controller).EndCall)
}

// Dismiss leaves the setup screen.
func (s *DecoyService) Dismiss(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[CallResponse], error) {
	return s.do(req.Msg.DeviceID, (*decoy.Controller).Dismiss)
}

// UpdateAnswerGesture records the slide-to-answer position.
func (s *DecoyService) UpdateAnswerGesture(
	ctx context.Context,
	req *connect.Request[GestureRequest],
) (*connect.Response[CallResponse], error) {
	return s.do(req.Msg.DeviceID, func(dc *decoy.Controller) bool {
		return dc.UpdateAnswerGesture(req.Msg.Progress)
	})
}

// ReleaseAnswerGesture ends the slide-to-answer drag.
func (s *DecoyService) ReleaseAnswerGesture(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[CallResponse], error) {
	return s.do(req.Msg.DeviceID, func(dc *decoy.Controller) bool {
		dc.ReleaseAnswerGesture()
		return true
	})
}

// ToggleMute flips the mute button.
func (s *DecoyService) ToggleMute(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[CallResponse], error) {
	return s.toggle(req.Msg.DeviceID, (*decoy.Controller).ToggleMute)
}

// ToggleSpeaker flips the speaker button.
func (s *DecoyService) ToggleSpeaker(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[CallResponse], error) {
	return s.toggle(req.Msg.DeviceID, (*decoy.Controller).ToggleSpeaker)
}

// PressKey presses a keypad key.
func (s *DecoyService) PressKey(
	ctx context.Context,
	req *connect.Request[KeyRequest],
) (*connect.Response[CallResponse], error) {
	key, size := utf8.DecodeRuneInString(req.Msg.Key)
	if size == 0 || size != len(req.Msg.Key) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.Wrapf(decoy.ErrInvalidKey, "%q", req.Msg.Key))
	}

	dc, err := s.call(req.Msg.DeviceID)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return s.respond(req.Msg.DeviceID, false, "", nil)
	}
	ok, err := dc.PressKey(key)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return s.respond(req.Msg.DeviceID, ok, "", nil)
}

// GetStatus returns the decoy call state. Without a call the result is an
// invalid-state no-op.
func (s *DecoyService) GetStatus(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[CallResponse], error) {
	return s.do(req.Msg.DeviceID, func(*decoy.Controller) bool { return true })
}

func (s *DecoyService) do(deviceID string, fn func(*decoy.Controller) bool) (*connect.Response[CallResponse], error) {
	dc, err := s.call(deviceID)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return s.respond(deviceID, false, "", nil)
	}
	return s.respond(deviceID, fn(dc), "", nil)
}

func (s *DecoyService) toggle(deviceID string, fn func(*decoy.Controller) (bool, bool)) (*connect.Response[CallResponse], error) {
	dc, err := s.call(deviceID)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return s.respond(deviceID, false, "", nil)
	}
	value, ok := fn(dc)
	return s.respond(deviceID, ok, "", &value)
}

// call returns the device's call, or nil when it has none.
func (s *DecoyService) call(deviceID string) (*decoy.Controller, error) {
	dc, err := s.safety.Call(deviceID)
	if errors.Is(err, safety.ErrNoCall) {
		return nil, nil
	}
	if err != nil {
		return nil, deviceError(err)
	}
	return dc, nil
}

func (s *DecoyService) respond(deviceID string, ok bool, code string, value *bool) (*connect.Response[CallResponse], error) {
	res := &CallResponse{
		Result: result(s.config, ok, code),
		Value:  value,
	}
	if dc, err := s.safety.Call(deviceID); err == nil {
		p := safety.NewCallPayload(dc.Snapshot())
		res.Call = &p
	}
	return connect.NewResponse(res), nil
}
