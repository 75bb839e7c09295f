package emergency

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/durga/internal/app/capability"
	"github.com/osa030/durga/internal/app/response"
)

// replyTimeout bounds a single guardian reply.
const replyTimeout = 2 * time.Second

// ErrUnknownEvidence is returned for an evidence kind the ops feed does not know.
var ErrUnknownEvidence = errors.New("unknown evidence kind")

// EvidenceKind identifies captured evidence.
type EvidenceKind string

const (
	EvidencePhoto EvidenceKind = "photo"
	EvidenceAudio EvidenceKind = "audio"
	EvidenceVideo EvidenceKind = "video"
)

var evidenceText = map[EvidenceKind]string{
	EvidencePhoto: "EVIDENCE: Photo captured and uploaded to secure servers.",
	EvidenceAudio: "EVIDENCE: Audio clip recorded and uploaded to secure servers.",
	EvidenceVideo: "EVIDENCE: Video captured and uploaded to secure servers.",
}

// SendMessage posts a user message to the ops feed. The first guardian
// answers after ReplyDelay. Only allowed while active.
func (c *Controller) SendMessage(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	text = strings.TrimSpace(text)
	if text == "" || !c.machine.Is(StateActive) {
		return false
	}

	capability.Call("vibrate", func() error { return c.caps.Vibrate(sendPattern) })
	c.appendMessageLocked(MessageUser, "", text)
	c.scheduleReplyLocked(c.config.ReplyDelay, response.Request{
		Kind:      response.KindMessage,
		SessionID: c.session.ID,
		Guardian:  c.config.Guardians[0],
		Text:      text,
	})
	return true
}

// RequestCallback asks every guardian to call the user back.
func (c *Controller) RequestCallback() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Is(StateActive) {
		return false
	}

	capability.Call("vibrate", func() error { return c.caps.Vibrate(callbackPattern) })
	c.appendMessageLocked(MessageSystem, "", "CALL REQUEST sent to all Guardians. Awaiting response...")
	c.scheduleReplyLocked(c.config.CallbackDelay, response.Request{
		Kind:      response.KindCallback,
		SessionID: c.session.ID,
		Guardian:  c.config.Guardians[0],
	})
	return true
}

// CaptureEvidence records that evidence was captured and uploaded.
func (c *Controller) CaptureEvidence(kind EvidenceKind) (bool, error) {
	text, ok := evidenceText[kind]
	if !ok {
		return false, errors.Wrapf(ErrUnknownEvidence, "%q", kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Is(StateActive) {
		return false, nil
	}

	capability.Call("vibrate", func() error { return c.caps.Vibrate(sendPattern) })
	c.appendMessageLocked(MessageSystem, "", text)
	return true, nil
}

// Messages returns a copy of the ops feed.
func (c *Controller) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return nil
	}
	out := make([]Message, len(c.session.messages))
	copy(out, c.session.messages)
	return out
}

// scheduleReplyLocked asks for a guardian reply after d. The provider runs
// without the controller lock; the reply is dropped if the session ends or
// leaves StateActive before it arrives.
func (c *Controller) scheduleReplyLocked(d time.Duration, req response.Request) {
	c.machine.After(d, func() {
		go c.fetchReply(req)
	})
}

func (c *Controller) fetchReply(req response.Request) {
	ctx, cancel := context.WithTimeout(c.ctx, replyTimeout)
	defer cancel()

	text, err := c.config.Responses.Reply(ctx, req)
	if err != nil {
		zlog.Warn().Msgf("emergency: guardian reply failed session_id=%s kind=%s: %v", req.SessionID, req.Kind, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.session == nil || c.session.ID != req.SessionID || !c.machine.Is(StateActive) {
		zlog.Debug().Msgf("emergency: guardian reply dropped session_id=%s kind=%s", req.SessionID, req.Kind)
		return
	}
	c.appendMessageLocked(MessageGuardian, req.Guardian, text)
}

func (c *Controller) appendMessageLocked(kind MessageKind, sender, text string) {
	if c.session == nil {
		return
	}
	m := c.session.appendMessage(kind, sender, text, c.machine.Now())
	zlog.Debug().Msgf("emergency: message session_id=%s kind=%s id=%d", c.session.ID, kind, m.ID)
	c.sendEventLocked(Event{Type: EventMessage, Message: &m})
}
