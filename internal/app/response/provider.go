// Package response provides guardian reply strategies for the emergency ops feed.
package response

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrNoReply is returned when no provider produced a reply.
var ErrNoReply = errors.New("no provider produced a reply")

// Kind identifies what the guardian is replying to.
type Kind int

const (
	KindMessage  Kind = iota // User sent a chat message
	KindCallback             // User asked guardians to call back
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Request describes what triggered the reply.
type Request struct {
	Kind      Kind
	SessionID string
	Guardian  string // Guardian expected to answer
	Text      string // User message, empty for callbacks
}

// Provider produces guardian replies.
type Provider interface {
	// Reply returns the reply text for req.
	Reply(ctx context.Context, req Request) (string, error)

	// Name returns the provider type (used in config).
	Name() string
}

// DefaultMessageReplies are the canned replies to user messages.
var DefaultMessageReplies = []string{
	"Stay calm, we're on our way!",
	"Keep sharing your location. Help is coming.",
	"We can see you're moving. Stay in well-lit areas.",
	"Police have been notified. ETA 5 minutes.",
}

// DefaultCallbackReply answers a call-back request.
const DefaultCallbackReply = "📞 Calling you now..."
