package connect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/osa030/durga/internal/app/capability"
	"github.com/osa030/durga/internal/app/notification"
	"github.com/osa030/durga/internal/app/response"
	"github.com/osa030/durga/internal/app/safety"
	"github.com/osa030/durga/internal/app/timed"
	"github.com/osa030/durga/internal/domain/challenge"
	"github.com/osa030/durga/internal/infra/config"
)

type testServer struct {
	url    string
	client *http.Client
	clock  *timed.ManualClock
	mgr    *safety.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	hash, err := challenge.HashPIN("1234", bcrypt.MinCost)
	require.NoError(t, err)
	cfg, err := config.Parse([]byte(fmt.Sprintf(`admin:
  token: secret
emergency:
  pin_hash: %q
filters:
  sos_active:
    enabled: true
`, hash)))
	require.NoError(t, err)

	clock := timed.NewManualClock(time.Date(2026, 3, 8, 21, 30, 0, 0, time.UTC))
	mgr, err := safety.NewManager(cfg, safety.Options{
		Clock:        clock,
		Capabilities: func(string) capability.Provider { return capability.Nop{} },
		Responses:    response.Static("On our way"),
	})
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle(NewDeviceServiceHandler(NewDeviceService(mgr, cfg)))
	mux.Handle(NewEmergencyServiceHandler(NewEmergencyService(mgr, cfg)))
	mux.Handle(NewDecoyServiceHandler(NewDecoyService(mgr, cfg)))
	mux.Handle(NewAdminServiceHandler(
		NewAdminService(mgr, cfg),
		connect.WithInterceptors(NewAdminAuthInterceptor(cfg)),
	))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(mgr.Close)

	return &testServer{url: srv.URL, client: srv.Client(), clock: clock, mgr: mgr}
}

func call[Req, Res any](t *testing.T, ts *testServer, procedure string, msg *Req) (*Res, error) {
	t.Helper()
	return Call[Req, Res](context.Background(), ts.client, ts.url, procedure, msg, nil)
}

func (ts *testServer) join(t *testing.T) string {
	t.Helper()
	res, err := call[JoinRequest, JoinResponse](t, ts, DeviceServiceJoinProcedure, &JoinRequest{DisplayName: "Asha"})
	require.NoError(t, err)
	require.NotEmpty(t, res.DeviceID)
	return res.DeviceID
}

func TestDeviceService_Join(t *testing.T) {
	ts := newTestServer(t)
	ts.join(t)

	_, err := call[JoinRequest, JoinResponse](t, ts, DeviceServiceJoinProcedure, &JoinRequest{DisplayName: "  "})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestDeviceService_Leave(t *testing.T) {
	ts := newTestServer(t)
	id := ts.join(t)

	res, err := call[DeviceRequest, LeaveResponse](t, ts, DeviceServiceLeaveProcedure, &DeviceRequest{DeviceID: id})
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = call[DeviceRequest, LeaveResponse](t, ts, DeviceServiceLeaveProcedure, &DeviceRequest{DeviceID: id})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestDeviceService_SubscribeStartsWithInitialState(t *testing.T) {
	ts := newTestServer(t)
	id := ts.join(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := Stream[DeviceRequest, notification.Notification](ctx, ts.client, ts.url, DeviceServiceSubscribeProcedure, &DeviceRequest{DeviceID: id})
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive())
	first := stream.Msg()
	assert.Equal(t, notification.TypeInitialState, first.Type)
	assert.Equal(t, id, first.DeviceID)

	payload, ok := first.Payload.(map[string]any)
	require.True(t, ok)
	session, ok := payload["session"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "idle", session["state"])

	assert.Eventually(t, func() bool { return ts.mgr.Notifications().SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	_, err = call[DeviceRequest, EmergencyResponse](t, ts, EmergencyServiceTriggerProcedure, &DeviceRequest{DeviceID: id})
	require.NoError(t, err)

	require.True(t, stream.Receive())
	assert.Equal(t, notification.TypeSessionState, stream.Msg().Type)
}

func TestEmergencyService_Flow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.join(t)
	dev := &DeviceRequest{DeviceID: id}

	res, err := call[DeviceRequest, EmergencyResponse](t, ts, EmergencyServiceTriggerProcedure, dev)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "counting_down", res.Session.State)
	assert.Equal(t, 5, res.Session.Remaining)

	// A second trigger is a no-op.
	res, err = call[DeviceRequest, EmergencyResponse](t, ts, EmergencyServiceTriggerProcedure, dev)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "invalid_state", res.Code)
	assert.Equal(t, "Not available right now", res.Message)

	res, err = call[PinRequest, EmergencyResponse](t, ts, EmergencyServiceSubmitPinProcedure, &PinRequest{DeviceID: id, PIN: "1234"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "challenge_closed", res.Code)

	ts.clock.Advance(5 * time.Second)

	msg, err := call[MessageRequest, EmergencyResponse](t, ts, EmergencyServiceSendMessageProcedure, &MessageRequest{DeviceID: id, Text: "I'm near the station"})
	require.NoError(t, err)
	assert.True(t, msg.Success)
	assert.Equal(t, "active", msg.Session.State)
	assert.Len(t, msg.Session.Messages, 3)

	_, err = call[EvidenceRequest, EmergencyResponse](t, ts, EmergencyServiceCaptureEvidenceProcedure, &EvidenceRequest{DeviceID: id, Kind: "hologram"})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	res, err = call[DeviceRequest, EmergencyResponse](t, ts, EmergencyServiceRequestCancelProcedure, dev)
	require.NoError(t, err)
	assert.True(t, res.Session.Challenge.Open)

	res, err = call[PinDigitRequest, EmergencyResponse](t, ts, EmergencyServiceSubmitPinDigitProcedure, &PinDigitRequest{DeviceID: id, Digit: "x"})
	require.NoError(t, err)
	assert.Equal(t, "invalid_pin_digit", res.Code)

	res, err = call[PinRequest, EmergencyResponse](t, ts, EmergencyServiceSubmitPinProcedure, &PinRequest{DeviceID: id, PIN: "0000"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "incorrect_pin", res.Code)
	assert.Equal(t, "Incorrect PIN", res.Message)
	assert.Equal(t, "mismatch", res.Outcome)

	res, err = call[PinRequest, EmergencyResponse](t, ts, EmergencyServiceSubmitPinProcedure, &PinRequest{DeviceID: id, PIN: "1234"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "SOS cancelled", res.Message)
	assert.Equal(t, "idle", res.Session.State)
}

func TestEmergencyService_UnknownDevice(t *testing.T) {
	ts := newTestServer(t)

	_, err := call[DeviceRequest, EmergencyResponse](t, ts, EmergencyServiceGetStatusProcedure, &DeviceRequest{DeviceID: "missing"})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestDecoyService_Flow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.join(t)
	dev := &DeviceRequest{DeviceID: id}

	res, err := call[DeviceRequest, CallResponse](t, ts, DecoyServiceGetStatusProcedure, dev)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Nil(t, res.Call)

	res, err = call[ConfigureCallRequest, CallResponse](t, ts, DecoyServiceConfigureProcedure, &ConfigureCallRequest{DeviceID: id, CallerName: "Mom"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.Call)
	assert.Equal(t, "incoming", res.Call.State)
	assert.True(t, res.Call.Ringing)

	res, err = call[DeviceRequest, CallResponse](t, ts, DecoyServiceAnswerProcedure, dev)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "active", res.Call.State)

	res, err = call[DeviceRequest, CallResponse](t, ts, DecoyServiceToggleMuteProcedure, dev)
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	assert.True(t, *res.Value)
	assert.True(t, res.Call.Muted)

	res, err = call[KeyRequest, CallResponse](t, ts, DecoyServicePressKeyProcedure, &KeyRequest{DeviceID: id, Key: "#"})
	require.NoError(t, err)
	assert.Equal(t, "#", res.Call.Keypad)

	_, err = call[KeyRequest, CallResponse](t, ts, DecoyServicePressKeyProcedure, &KeyRequest{DeviceID: id, Key: "A"})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	ts.clock.Advance(75 * time.Second)
	res, err = call[DeviceRequest, CallResponse](t, ts, DecoyServiceEndCallProcedure, dev)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "ended", res.Call.State)
	assert.Equal(t, "01:15", res.Call.Duration)
}

func TestDecoyService_ConfigureRejected(t *testing.T) {
	ts := newTestServer(t)
	id := ts.join(t)

	_, err := call[DeviceRequest, EmergencyResponse](t, ts, EmergencyServiceTriggerProcedure, &DeviceRequest{DeviceID: id})
	require.NoError(t, err)

	res, err := call[ConfigureCallRequest, CallResponse](t, ts, DecoyServiceConfigureProcedure, &ConfigureCallRequest{DeviceID: id, CallerName: "Mom"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "sos_active", res.Code)
	assert.Equal(t, "Decoy calls are unavailable during an SOS", res.Message)

	_, err = call[ConfigureCallRequest, CallResponse](t, ts, DecoyServiceConfigureProcedure, &ConfigureCallRequest{DeviceID: "missing", CallerName: "Mom"})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestAdminService_RequiresToken(t *testing.T) {
	ts := newTestServer(t)
	id := ts.join(t)

	tests := []struct {
		name  string
		token string
		code  connect.Code
	}{
		{name: "missing token", token: "", code: connect.CodeUnauthenticated},
		{name: "wrong token", token: "nope", code: connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.token != "" {
				header.Set(AdminTokenHeader, tt.token)
			}
			_, err := Call[ListDevicesRequest, ListDevicesResponse](context.Background(), ts.client, ts.url, AdminServiceListDevicesProcedure, &ListDevicesRequest{}, header)
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}

	header := http.Header{}
	header.Set(AdminTokenHeader, "secret")
	list, err := Call[ListDevicesRequest, ListDevicesResponse](context.Background(), ts.client, ts.url, AdminServiceListDevicesProcedure, &ListDevicesRequest{}, header)
	require.NoError(t, err)
	require.Len(t, list.Devices, 1)
	assert.Equal(t, id, list.Devices[0].DeviceID)
	assert.Equal(t, "dashboard", list.Devices[0].View)

	got, err := Call[DeviceRequest, GetDeviceResponse](context.Background(), ts.client, ts.url, AdminServiceGetDeviceProcedure, &DeviceRequest{DeviceID: id}, header)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Device.DisplayName)
	assert.Equal(t, "idle", got.Session.State)

	_, err = Call[BroadcastRequest, BroadcastResponse](context.Background(), ts.client, ts.url, AdminServiceBroadcastProcedure, &BroadcastRequest{}, header)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestCodec(t *testing.T) {
	var c Codec
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&JoinRequest{DisplayName: "Asha"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"display_name":"Asha"}`, string(data))

	var req JoinRequest
	require.NoError(t, c.Unmarshal(nil, &req))
	assert.Empty(t, req.DisplayName)
	assert.Error(t, c.Unmarshal([]byte("{"), &req))
}
