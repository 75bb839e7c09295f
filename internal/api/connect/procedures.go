package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// Service names.
const (
	DeviceServiceName    = "durga.v1.DeviceService"
	EmergencyServiceName = "durga.v1.EmergencyService"
	DecoyServiceName     = "durga.v1.DecoyService"
	AdminServiceName     = "durga.v1.AdminService"
)

// Procedure paths.
const (
	DeviceServiceJoinProcedure      = "/" + DeviceServiceName + "/Join"
	DeviceServiceLeaveProcedure     = "/" + DeviceServiceName + "/Leave"
	DeviceServiceSubscribeProcedure = "/" + DeviceServiceName + "/Subscribe"

	EmergencyServiceTriggerProcedure              = "/" + EmergencyServiceName + "/Trigger"
	EmergencyServiceRequestCancelProcedure        = "/" + EmergencyServiceName + "/RequestCancel"
	EmergencyServiceSubmitPinDigitProcedure       = "/" + EmergencyServiceName + "/SubmitPinDigit"
	EmergencyServiceSubmitPinProcedure            = "/" + EmergencyServiceName + "/SubmitPin"
	EmergencyServiceUpdateCancelGestureProcedure  = "/" + EmergencyServiceName + "/UpdateCancelGesture"
	EmergencyServiceReleaseCancelGestureProcedure = "/" + EmergencyServiceName + "/ReleaseCancelGesture"
	EmergencyServiceSendMessageProcedure          = "/" + EmergencyServiceName + "/SendMessage"
	EmergencyServiceRequestCallbackProcedure      = "/" + EmergencyServiceName + "/RequestCallback"
	EmergencyServiceCaptureEvidenceProcedure      = "/" + EmergencyServiceName + "/CaptureEvidence"
	EmergencyServiceGetStatusProcedure            = "/" + EmergencyServiceName + "/GetStatus"

	DecoyServiceConfigureProcedure            = "/" + DecoyServiceName + "/Configure"
	DecoyServiceCancelWaitingProcedure        = "/" + DecoyServiceName + "/CancelWaiting"
	DecoyServiceAnswerProcedure               = "/" + DecoyServiceName + "/Answer"
	DecoyServiceDeclineProcedure              = "/" + DecoyServiceName + "/Decline"
	DecoyServiceEndCallProcedure              = "/" + DecoyServiceName + "/EndCall"
	DecoyServiceDismissProcedure              = "/" + DecoyServiceName + "/Dismiss"
	DecoyServiceUpdateAnswerGestureProcedure  = "/" + DecoyServiceName + "/UpdateAnswerGesture"
	DecoyServiceReleaseAnswerGestureProcedure = "/" + DecoyServiceName + "/ReleaseAnswerGesture"
	DecoyServiceToggleMuteProcedure           = "/" + DecoyServiceName + "/ToggleMute"
	DecoyServiceToggleSpeakerProcedure        = "/" + DecoyServiceName + "/ToggleSpeaker"
	DecoyServicePressKeyProcedure             = "/" + DecoyServiceName + "/PressKey"
	DecoyServiceGetStatusProcedure            = "/" + DecoyServiceName + "/GetStatus"

	AdminServiceListDevicesProcedure = "/" + AdminServiceName + "/ListDevices"
	AdminServiceGetDeviceProcedure   = "/" + AdminServiceName + "/GetDevice"
	AdminServiceBroadcastProcedure   = "/" + AdminServiceName + "/Broadcast"
)

// NewDeviceServiceHandler builds an HTTP handler for DeviceService.
func NewDeviceServiceHandler(svc *DeviceService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	mux := http.NewServeMux()
	unary(mux, DeviceServiceJoinProcedure, svc.Join, opts)
	unary(mux, DeviceServiceLeaveProcedure, svc.Leave, opts)
	mux.Handle(DeviceServiceSubscribeProcedure, connect.NewServerStreamHandler(DeviceServiceSubscribeProcedure, svc.Subscribe, opts...))
	return "/" + DeviceServiceName + "/", mux
}

// NewEmergencyServiceHandler builds an HTTP handler for EmergencyService.
func NewEmergencyServiceHandler(svc *EmergencyService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	mux := http.NewServeMux()
	unary(mux, EmergencyServiceTriggerProcedure, svc.Trigger, opts)
	unary(mux, EmergencyServiceRequestCancelProcedure, svc.RequestCancel, opts)
	unary(mux, EmergencyServiceSubmitPinDigitProcedure, svc.SubmitPinDigit, opts)
	unary(mux, EmergencyServiceSubmitPinProcedure, svc.SubmitPin, opts)
	unary(mux, EmergencyServiceUpdateCancelGestureProcedure, svc.UpdateCancelGesture, opts)
	unary(mux, EmergencyServiceReleaseCancelGestureProcedure, svc.ReleaseCancelGesture, opts)
	unary(mux, EmergencyServiceSendMessageProcedure, svc.SendMessage, opts)
	unary(mux, EmergencyServiceRequestCallbackProcedure, svc.RequestCallback, opts)
	unary(mux, EmergencyServiceCaptureEvidenceProcedure, svc.CaptureEvidence, opts)
	unary(mux, EmergencyServiceGetStatusProcedure, svc.GetStatus, opts)
	return "/" + EmergencyServiceName + "/", mux
}

// NewDecoyServiceHandler builds an HTTP handler for DecoyService.
func NewDecoyServiceHandler(svc *DecoyService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	mux := http.NewServeMux()
	unary(mux, DecoyServiceConfigureProcedure, svc.Configure, opts)
	unary(mux, DecoyServiceCancelWaitingProcedure, svc.CancelWaiting, opts)
	unary(mux, DecoyServiceAnswerProcedure, svc.Answer, opts)
	unary(mux, DecoyServiceDeclineProcedure, svc.Decline, opts)
	unary(mux, DecoyServiceEndCallProcedure, svc.EndCall, opts)
	unary(mux, DecoyServiceDismissProcedure, svc.Dismiss, opts)
	unary(mux, DecoyServiceUpdateAnswerGestureProcedure, svc.UpdateAnswerGesture, opts)
	unary(mux, DecoyServiceReleaseAnswerGestureProcedure, svc.ReleaseAnswerGesture, opts)
	unary(mux, DecoyServiceToggleMuteProcedure, svc.ToggleMute, opts)
	unary(mux, DecoyServiceToggleSpeakerProcedure, svc.ToggleSpeaker, opts)
	unary(mux, DecoyServicePressKeyProcedure, svc.PressKey, opts)
	unary(mux, DecoyServiceGetStatusProcedure, svc.GetStatus, opts)
	return "/" + DecoyServiceName + "/", mux
}

// NewAdminServiceHandler builds an HTTP handler for AdminService.
func NewAdminServiceHandler(svc *AdminService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	mux := http.NewServeMux()
	unary(mux, AdminServiceListDevicesProcedure, svc.ListDevices, opts)
	unary(mux, AdminServiceGetDeviceProcedure, svc.GetDevice, opts)
	unary(mux, AdminServiceBroadcastProcedure, svc.Broadcast, opts)
	return "/" + AdminServiceName + "/", mux
}

// Call performs one unary call against baseURL.
func Call[Req, Res any](
	ctx context.Context,
	httpClient connect.HTTPClient,
	baseURL, procedure string,
	msg *Req,
	header http.Header,
) (*Res, error) {
	client := connect.NewClient[Req, Res](httpClient, baseURL+procedure, connect.WithCodec(Codec{}))
	req := connect.NewRequest(msg)
	for k, vs := range header {
		for _, v := range vs {
			req.Header().Add(k, v)
		}
	}
	res, err := client.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// Stream opens a server stream against baseURL.
func Stream[Req, Res any](
	ctx context.Context,
	httpClient connect.HTTPClient,
	baseURL, procedure string,
	msg *Req,
) (*connect.ServerStreamForClient[Res], error) {
	client := connect.NewClient[Req, Res](httpClient, baseURL+procedure, connect.WithCodec(Codec{}))
	return client.CallServerStream(ctx, connect.NewRequest(msg))
}

func unary[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

func withCodec(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}
