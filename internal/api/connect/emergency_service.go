package connect

import (
	"context"
	"unicode/utf8"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/durga/internal/app/emergency"
	"github.com/osa030/durga/internal/app/safety"
	"github.com/osa030/durga/internal/domain/challenge"
	"github.com/osa030/durga/internal/infra/config"
)

// EmergencyService implements the EmergencyService RPC.
type EmergencyService struct {
	safety *safety.Manager
	config *config.Config
}

// NewEmergencyService creates a new EmergencyService.
func NewEmergencyService(mgr *safety.Manager, cfg *config.Config) *EmergencyService {
	return &EmergencyService{
		safety: mgr,
		config: cfg,
	}
}

// Trigger starts the SOS countdown.
func (s *EmergencyService) Trigger(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[EmergencyResponse], error) {
	return s.do(req.Msg.DeviceID, func(ec *emergency.Controller) (bool, string) {
		return ec.Trigger(), ""
	})
}

// RequestCancel opens the PIN pad.
func (s *EmergencyService) RequestCancel(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[EmergencyResponse], error) {
	return s.do(req.Msg.DeviceID, func(ec *emergency.Controller) (bool, string) {
		return ec.RequestCancel(), ""
	})
}

// SubmitPinDigit enters one PIN digit.
func (s *EmergencyService) SubmitPinDigit(
	ctx context.Context,
	req *connect.Request[PinDigitRequest],
) (*connect.Response[EmergencyResponse], error) {
	ec, err := s.safety.Emergency(req.Msg.DeviceID)
	if err != nil {
		return nil, deviceError(err)
	}

	digit, size := utf8.DecodeRuneInString(req.Msg.Digit)
	if size == 0 || size != len(req.Msg.Digit) {
		return s.respond(ec, false, "invalid_pin_digit", ""), nil
	}
	outcome, err := ec.SubmitPinDigit(digit)
	return s.pinResponse(ec, outcome, err)
}

// SubmitPin enters a whole PIN.
func (s *EmergencyService) SubmitPin(
	ctx context.Context,
	req *connect.Request[PinRequest],
) (*connect.Response[EmergencyResponse], error) {
	ec, err := s.safety.Emergency(req.Msg.DeviceID)
	if err != nil {
		return nil, deviceError(err)
	}
	outcome, err := ec.SubmitPin(req.Msg.PIN)
	return s.pinResponse(ec, outcome, err)
}

// UpdateCancelGesture records the slide-to-cancel position.
func (s *EmergencyService) UpdateCancelGesture(
	ctx context.Context,
	req *connect.Request[GestureRequest],
) (*connect.Response[EmergencyResponse], error) {
	return s.do(req.Msg.DeviceID, func(ec *emergency.Controller) (bool, string) {
		return ec.UpdateCancelGesture(req.Msg.Progress), ""
	})
}

// ReleaseCancelGesture ends the slide-to-cancel drag.
func (s *EmergencyService) ReleaseCancelGesture(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[EmergencyResponse], error) {
	return s.do(req.Msg.DeviceID, func(ec *emergency.Controller) (bool, string) {
		ec.ReleaseCancelGesture()
		return true, ""
	})
}

// SendMessage posts a message to the ops feed.
func (s *EmergencyService) SendMessage(
	ctx context.Context,
	req *connect.Request[MessageRequest],
) (*connect.Response[EmergencyResponse], error) {
	return s.do(req.Msg.DeviceID, func(ec *emergency.Controller) (bool, string) {
		return ec.SendMessage(req.Msg.Text), ""
	})
}

// RequestCallback asks the guardians to call back.
func (s *EmergencyService) RequestCallback(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[EmergencyResponse], error) {
	return s.do(req.Msg.DeviceID, func(ec *emergency.Controller) (bool, string) {
		return ec.RequestCallback(), ""
	})
}

// CaptureEvidence records captured evidence.
func (s *EmergencyService) CaptureEvidence(
	ctx context.Context,
	req *connect.Request[EvidenceRequest],
) (*connect.Response[EmergencyResponse], error) {
	ec, err := s.safety.Emergency(req.Msg.DeviceID)
	if err != nil {
		return nil, deviceError(err)
	}
	ok, err := ec.CaptureEvidence(emergency.EvidenceKind(req.Msg.Kind))
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return s.respond(ec, ok, "", ""), nil
}

// GetStatus returns the emergency state.
func (s *EmergencyService) GetStatus(
	ctx context.Context,
	req *connect.Request[DeviceRequest],
) (*connect.Response[EmergencyResponse], error) {
	return s.do(req.Msg.DeviceID, func(*emergency.Controller) (bool, string) {
		return true, ""
	})
}

func (s *EmergencyService) do(
	deviceID string,
	fn func(*emergency.Controller) (bool, string),
) (*connect.Response[EmergencyResponse], error) {
	ec, err := s.safety.Emergency(deviceID)
	if err != nil {
		return nil, deviceError(err)
	}
	ok, code := fn(ec)
	return s.respond(ec, ok, code, ""), nil
}

func (s *EmergencyService) pinResponse(
	ec *emergency.Controller,
	outcome challenge.Outcome,
	err error,
) (*connect.Response[EmergencyResponse], error) {
	if err != nil {
		if errors.Is(err, challenge.ErrInvalidDigit) {
			return s.respond(ec, false, "invalid_pin_digit", outcome.String()), nil
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	switch outcome {
	case challenge.OutcomeIgnored:
		return s.respond(ec, false, "challenge_closed", outcome.String()), nil
	case challenge.OutcomeMismatch:
		return s.respond(ec, false, "incorrect_pin", outcome.String()), nil
	case challenge.OutcomeMatch:
		return s.respond(ec, true, "session_cancelled", outcome.String()), nil
	default:
		return s.respond(ec, true, "", outcome.String()), nil
	}
}

func (s *EmergencyService) respond(ec *emergency.Controller, ok bool, code, outcome string) *connect.Response[EmergencyResponse] {
	return connect.NewResponse(&EmergencyResponse{
		Result:  result(s.config, ok, code),
		Outcome: outcome,
		Session: safety.NewSessionPayload(ec.Snapshot()),
	})
}
