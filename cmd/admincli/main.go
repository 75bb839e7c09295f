// Package main provides the admin CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/durga/internal/api/connect"
	"github.com/osa030/durga/internal/app/safety"
)

var (
	app    = kingpin.New("durga-admincli", "durga admin client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// list-devices command
	listCmd = app.Command("list-devices", "List joined devices and active alerts").Alias("list")

	// device command
	deviceCmd = app.Command("device", "Show one device")
	deviceID  = deviceCmd.Arg("device-id", "Device ID (UUID)").Required().String()

	// broadcast command
	broadcastCmd  = app.Command("broadcast", "Send an announcement to every device")
	broadcastText = broadcastCmd.Arg("text", "Announcement").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Check admin token
	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}

	ctx := context.Background()

	// Execute command
	switch command {
	case listCmd.FullCommand():
		listDevices(ctx)
	case deviceCmd.FullCommand():
		showDevice(ctx, *deviceID)
	case broadcastCmd.FullCommand():
		broadcast(ctx, *broadcastText)
	}
}

func call[Req, Res any](ctx context.Context, procedure string, msg *Req) *Res {
	header := http.Header{}
	header.Set(apiconnect.AdminTokenHeader, *token)
	res, err := apiconnect.Call[Req, Res](ctx, http.DefaultClient, *server, procedure, msg, header)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return res
}

func listDevices(ctx context.Context) {
	res := call[apiconnect.ListDevicesRequest, apiconnect.ListDevicesResponse](ctx, apiconnect.AdminServiceListDevicesProcedure, &apiconnect.ListDevicesRequest{})

	fmt.Printf("\n=== DEVICES (%d) ===\n", len(res.Devices))
	for _, d := range res.Devices {
		printDevice(d)
	}

	fmt.Printf("\n=== ACTIVE ALERTS (%d) ===\n", len(res.Alerts))
	for _, a := range res.Alerts {
		fmt.Printf("  %s  %s (%s) since %s\n", a.AlertID, a.DisplayName, a.DeviceID, a.At.Format("15:04:05"))
	}
	fmt.Println()
}

func showDevice(ctx context.Context, id string) {
	res := call[apiconnect.DeviceRequest, apiconnect.GetDeviceResponse](ctx, apiconnect.AdminServiceGetDeviceProcedure, &apiconnect.DeviceRequest{DeviceID: id})

	printDevice(res.Device)

	s := res.Session
	fmt.Println("\nEmergency:")
	fmt.Printf("  State: %s\n", formatEmergencyState(s.State))
	if s.SessionID != "" {
		fmt.Printf("  Session ID: %s\n", s.SessionID)
		fmt.Printf("  Remaining: %d seconds\n", s.Remaining)
		for _, st := range s.Stages {
			fmt.Printf("  %-12s %-12s %s\n", st.Kind, st.Status, st.Label)
		}
		for _, m := range s.Messages {
			fmt.Printf("  [%s] %s %s\n", m.At.Format("15:04:05"), m.Sender, m.Text)
		}
	}

	if c := res.Call; c != nil {
		fmt.Println("\nDecoy Call:")
		fmt.Printf("  State: %s\n", c.State)
		fmt.Printf("  Caller: %s\n", c.CallerName)
		fmt.Printf("  Duration: %s\n", c.Duration)
	}
	fmt.Println()
}

func broadcast(ctx context.Context, text string) {
	res := call[apiconnect.BroadcastRequest, apiconnect.BroadcastResponse](ctx, apiconnect.AdminServiceBroadcastProcedure, &apiconnect.BroadcastRequest{Text: text})
	fmt.Printf("Success: %s\n", res.Message)
}

func printDevice(d safety.DevicePayload) {
	fmt.Printf("\n%s (%s)\n", d.DisplayName, d.DeviceID)
	if d.ExternalUserID != "" {
		fmt.Printf("  External User ID: %s\n", d.ExternalUserID)
	}
	fmt.Printf("  Joined: %s\n", d.JoinedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  View: %s\n", d.View)
	fmt.Printf("  Emergency: %s\n", formatEmergencyState(d.EmergencyState))
	if d.CallState != "" {
		fmt.Printf("  Call: %s\n", d.CallState)
	}
	fmt.Printf("  SOS: %d  Disarmed: %d  Calls: %d\n", d.SOSCount, d.DisarmCount, d.CallCount)
	if d.LastSOSAt != nil {
		fmt.Printf("  Last SOS: %s\n", d.LastSOSAt.Format("2006-01-02 15:04:05"))
	}
}

func formatEmergencyState(state string) string {
	switch state {
	case "idle":
		return "Idle"
	case "counting_down":
		return "⏳ Counting down"
	case "active":
		return "🚨 SOS active"
	default:
		return "❓ Unknown"
	}
}
