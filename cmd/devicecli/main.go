// Package main provides the device CLI entry point for testing.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/durga/internal/api/connect"
	"github.com/osa030/durga/internal/app/notification"
)

var (
	app    = kingpin.New("durga-devicecli", "durga device client for testing")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()

	// join command
	joinCmd        = app.Command("join", "Join as a device")
	joinName       = joinCmd.Arg("name", "Display name").Required().String()
	joinExternalID = joinCmd.Arg("external-id", "External user ID (optional)").String()

	// leave command
	leaveCmd    = app.Command("leave", "Leave")
	leaveDevice = leaveCmd.Arg("device-id", "Device ID (UUID)").Required().String()

	// subscribe command
	subscribeCmd    = app.Command("subscribe", "Subscribe to notifications")
	subscribeDevice = subscribeCmd.Arg("device-id", "Device ID (UUID)").Required().String()

	// sos commands
	sosCmd        = app.Command("sos", "Emergency session")
	sosDevice     = sosCmd.Flag("device", "Device ID (UUID)").Short('d').Required().String()
	sosTrigger    = sosCmd.Command("trigger", "Trigger SOS")
	sosCancel     = sosCmd.Command("cancel", "Open the PIN pad")
	sosPin        = sosCmd.Command("pin", "Enter the disarm PIN")
	sosPinCode    = sosPin.Arg("pin", "4-digit PIN").Required().String()
	sosMessage    = sosCmd.Command("message", "Send a message to the ops feed")
	sosMessageTxt = sosMessage.Arg("text", "Message").Required().String()
	sosCallback   = sosCmd.Command("callback", "Ask guardians to call back")
	sosEvidence   = sosCmd.Command("evidence", "Capture evidence")
	sosEvidenceK  = sosEvidence.Arg("kind", "photo, audio or video").Required().Enum("photo", "audio", "video")
	sosStatus     = sosCmd.Command("status", "Show the emergency state")

	// call commands
	callCmd       = app.Command("call", "Decoy call")
	callDevice    = callCmd.Flag("device", "Device ID (UUID)").Short('d').Required().String()
	callConfigure = callCmd.Command("configure", "Schedule a decoy call")
	callCaller    = callConfigure.Flag("caller", "Caller name").Default("Mom").String()
	callAvatar    = callConfigure.Flag("avatar", "Caller picture URL").String()
	callDelay     = callConfigure.Flag("delay", "Delay in seconds").Default("0").Int()
	callCancel    = callCmd.Command("cancel", "Cancel a scheduled call")
	callAnswer    = callCmd.Command("answer", "Answer the ringing call")
	callDecline   = callCmd.Command("decline", "Decline the ringing call")
	callEnd       = callCmd.Command("end", "End the call")
	callMute      = callCmd.Command("mute", "Toggle mute")
	callSpeaker   = callCmd.Command("speaker", "Toggle speaker")
	callKey       = callCmd.Command("key", "Press a keypad key")
	callKeyValue  = callKey.Arg("key", "0-9, * or #").Required().String()
	callStatus    = callCmd.Command("status", "Show the call state")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	ctx := context.Background()

	switch command {
	case joinCmd.FullCommand():
		res := call[apiconnect.JoinRequest, apiconnect.JoinResponse](ctx, apiconnect.DeviceServiceJoinProcedure, &apiconnect.JoinRequest{
			DisplayName:    *joinName,
			ExternalUserID: *joinExternalID,
		})
		fmt.Printf("Joined! Your device ID: %s\n", res.DeviceID)
	case leaveCmd.FullCommand():
		res := call[apiconnect.DeviceRequest, apiconnect.LeaveResponse](ctx, apiconnect.DeviceServiceLeaveProcedure, &apiconnect.DeviceRequest{DeviceID: *leaveDevice})
		printResult(res.Result, nil)
	case subscribeCmd.FullCommand():
		subscribe(ctx, *subscribeDevice)

	case sosTrigger.FullCommand():
		emergency(ctx, apiconnect.EmergencyServiceTriggerProcedure, &apiconnect.DeviceRequest{DeviceID: *sosDevice})
	case sosCancel.FullCommand():
		emergency(ctx, apiconnect.EmergencyServiceRequestCancelProcedure, &apiconnect.DeviceRequest{DeviceID: *sosDevice})
	case sosPin.FullCommand():
		emergency(ctx, apiconnect.EmergencyServiceSubmitPinProcedure, &apiconnect.PinRequest{DeviceID: *sosDevice, PIN: *sosPinCode})
	case sosMessage.FullCommand():
		emergency(ctx, apiconnect.EmergencyServiceSendMessageProcedure, &apiconnect.MessageRequest{DeviceID: *sosDevice, Text: *sosMessageTxt})
	case sosCallback.FullCommand():
		emergency(ctx, apiconnect.EmergencyServiceRequestCallbackProcedure, &apiconnect.DeviceRequest{DeviceID: *sosDevice})
	case sosEvidence.FullCommand():
		emergency(ctx, apiconnect.EmergencyServiceCaptureEvidenceProcedure, &apiconnect.EvidenceRequest{DeviceID: *sosDevice, Kind: *sosEvidenceK})
	case sosStatus.FullCommand():
		emergency(ctx, apiconnect.EmergencyServiceGetStatusProcedure, &apiconnect.DeviceRequest{DeviceID: *sosDevice})

	case callConfigure.FullCommand():
		decoy(ctx, apiconnect.DecoyServiceConfigureProcedure, &apiconnect.ConfigureCallRequest{
			DeviceID:     *callDevice,
			CallerName:   *callCaller,
			CallerAvatar: *callAvatar,
			DelaySeconds: *callDelay,
		})
	case callCancel.FullCommand():
		decoy(ctx, apiconnect.DecoyServiceCancelWaitingProcedure, &apiconnect.DeviceRequest{DeviceID: *callDevice})
	case callAnswer.FullCommand():
		decoy(ctx, apiconnect.DecoyServiceAnswerProcedure, &apiconnect.DeviceRequest{DeviceID: *callDevice})
	case callDecline.FullCommand():
		decoy(ctx, apiconnect.DecoyServiceDeclineProcedure, &apiconnect.DeviceRequest{DeviceID: *callDevice})
	case callEnd.FullCommand():
		decoy(ctx, apiconnect.DecoyServiceEndCallProcedure, &apiconnect.DeviceRequest{DeviceID: *callDevice})
	case callMute.FullCommand():
		decoy(ctx, apiconnect.DecoyServiceToggleMuteProcedure, &apiconnect.DeviceRequest{DeviceID: *callDevice})
	case callSpeaker.FullCommand():
		decoy(ctx, apiconnect.DecoyServiceToggleSpeakerProcedure, &apiconnect.DeviceRequest{DeviceID: *callDevice})
	case callKey.FullCommand():
		decoy(ctx, apiconnect.DecoyServicePressKeyProcedure, &apiconnect.KeyRequest{DeviceID: *callDevice, Key: *callKeyValue})
	case callStatus.FullCommand():
		decoy(ctx, apiconnect.DecoyServiceGetStatusProcedure, &apiconnect.DeviceRequest{DeviceID: *callDevice})
	}
}

func call[Req, Res any](ctx context.Context, procedure string, msg *Req) *Res {
	res, err := apiconnect.Call[Req, Res](ctx, http.DefaultClient, *server, procedure, msg, nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return res
}

func emergency[Req any](ctx context.Context, procedure string, msg *Req) {
	res := call[Req, apiconnect.EmergencyResponse](ctx, procedure, msg)
	printResult(res.Result, res.Session)
}

func decoy[Req any](ctx context.Context, procedure string, msg *Req) {
	res := call[Req, apiconnect.CallResponse](ctx, procedure, msg)
	if res.Call == nil {
		printResult(res.Result, nil)
		return
	}
	printResult(res.Result, res.Call)
}

func printResult(r apiconnect.Result, state any) {
	if r.Success {
		fmt.Printf("Success: %s\n", r.Message)
	} else {
		fmt.Printf("Rejected [%s]: %s\n", r.Code, r.Message)
	}
	if state != nil {
		printJSON(state)
	}
}

func subscribe(ctx context.Context, deviceID string) {
	stream, err := apiconnect.Stream[apiconnect.DeviceRequest, notification.Notification](
		ctx, http.DefaultClient, *server, apiconnect.DeviceServiceSubscribeProcedure,
		&apiconnect.DeviceRequest{DeviceID: deviceID},
	)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		os.Exit(0)
	}()

	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printNotification(n *notification.Notification) {
	fmt.Printf("\n[Sequence: %d] ", n.SequenceNo)

	switch n.Type {
	case notification.TypeInitialState:
		fmt.Println("=== INITIAL STATE ===")
	case notification.TypeSOSBroadcast:
		fmt.Println("=== SOS BROADCAST ===")
	case notification.TypeSOSCancelled:
		fmt.Println("=== SOS CANCELLED ===")
	case notification.TypeAnnouncement:
		fmt.Println("=== ANNOUNCEMENT ===")
	default:
		fmt.Printf("=== %s ===\n", n.Type)
	}
	printJSON(n.Payload)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(data))
}
