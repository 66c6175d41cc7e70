package chathub

import (
	"encoding/json"
	"time"

	"anonchat/backend/internal/alert"
	"anonchat/backend/internal/config"
	"anonchat/backend/internal/logger"
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/moderation"
	"anonchat/backend/internal/ratelimit"
	"anonchat/backend/internal/stats"
	"anonchat/backend/internal/storage"

	"github.com/google/uuid"
)

// Rate-limit action keys.
const (
	ActionConnection = "connection"
	ActionMessage    = "message"
)

// Router drives one session's state machine: it consumes that session's
// inbound frames, runs the message pipeline and fans traffic to the partner
// through the registry. HandleFrame is never called concurrently for the
// same session (the read pump is serial).
type Router struct {
	session   *Session
	reg       *Registry
	matcher   *Matcher
	limiter   *ratelimit.Limiter
	moderator *moderation.Moderator
	storage   storage.Storage
	counters  *stats.Counters
	alerts    alert.Notifier

	lastTypingForward time.Time

	now func() time.Time
}

// NewRouter builds the router for one registered session.
func NewRouter(
	sess *Session,
	reg *Registry,
	matcher *Matcher,
	limiter *ratelimit.Limiter,
	moderator *moderation.Moderator,
	s storage.Storage,
	counters *stats.Counters,
	alerts alert.Notifier,
) *Router {
	return &Router{
		session:   sess,
		reg:       reg,
		matcher:   matcher,
		limiter:   limiter,
		moderator: moderator,
		storage:   s,
		counters:  counters,
		alerts:    alerts,
		now:       time.Now,
	}
}

// HandleFrame dispatches one inbound frame. Malformed JSON is ignored with
// a warning; unknown event types get an in-band error. The connection stays
// open either way.
func (rt *Router) HandleFrame(raw []byte) {
	var frame models.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		logger.Log.Warnf("Malformed frame from session %s: %v", rt.session.ID, err)
		return
	}

	switch frame.Type {
	case models.EvJoinQueue:
		rt.handleJoinQueue()
	case models.EvLeaveQueue:
		rt.handleLeaveQueue()
	case models.EvSendMessage:
		rt.handleSendMessage(frame.Data)
	case models.EvSendMedia:
		rt.handleSendMedia(frame.Data)
	case models.EvTyping:
		rt.handleTyping()
	case models.EvStopTyping:
		rt.handleStopTyping()
	case models.EvDisconnectChat:
		rt.handleDisconnectChat()
	default:
		rt.sendError("Unknown event type")
	}
}

// Shutdown runs the disconnect sequence for channel close or a fatal
// transport error. Idempotent via the registry.
func (rt *Router) Shutdown() {
	rt.reg.Unregister(rt.session.ID)
}

func (rt *Router) sendError(message string) {
	rt.reg.Send(rt.session.ID, models.EvError, models.ErrorPayload{Message: message})
}

func (rt *Router) handleJoinQueue() {
	state, ok := rt.reg.StateOf(rt.session.ID)
	if !ok || state != StateIdle {
		rt.sendError("Already in queue")
		return
	}
	if err := rt.matcher.Enqueue(rt.session); err != nil {
		rt.sendError("Already in queue")
		return
	}
	rt.reg.Send(rt.session.ID, models.EvQueueJoined, struct{}{})
	rt.matcher.Match()
}

func (rt *Router) handleLeaveQueue() {
	state, ok := rt.reg.StateOf(rt.session.ID)
	if !ok || state != StateWaiting {
		rt.sendError("Not in queue")
		return
	}
	rt.matcher.Remove(rt.session.ID)
	rt.reg.SetIdle(rt.session.ID)
}

// handleSendMessage runs the message pipeline: gate, rate limit, sanitize,
// schema, spam, profanity, relay, counters. Steps execute in this order in
// the sender's router task.
func (rt *Router) handleSendMessage(data json.RawMessage) {
	partnerID, roomID, paired := rt.reg.PairInfo(rt.session.ID)
	if !paired {
		rt.sendError("Not connected to a partner")
		return
	}

	if !rt.limiter.Check(rt.session.Source, ActionMessage, config.MessageLimit, config.MessageWindow) {
		rt.reg.Send(rt.session.ID, models.EvRateLimited, models.ErrorPayload{
			Message: "You are sending messages too quickly. Please slow down.",
		})
		return
	}

	var payload models.SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		rt.sendError("Invalid message")
		return
	}
	content := moderation.Sanitize(payload.Content)
	if content == "" {
		rt.sendError("Invalid message")
		return
	}

	if rt.moderator.IsSpam(content) {
		rt.flagMessage(roomID, content, models.FlagReasonSpam)
		return
	}

	verdict := rt.moderator.Check(content)
	switch verdict.Severity {
	case moderation.SeverityBlocked:
		rt.flagMessage(roomID, content, models.FlagReasonProfanity)
		return
	case moderation.SeverityWarning:
		content = rt.moderator.Mask(content)
	}

	msg := models.WireMessage{
		ID:        uuid.New().String(),
		Content:   content,
		SenderID:  rt.session.ID,
		Timestamp: rt.now().UnixMilli(),
		Type:      models.MessageTypeUser,
	}
	rt.reg.Send(partnerID, models.EvMessageReceived, models.MessageEnvelope{Message: msg})

	rt.reg.BumpRoom(roomID)
	rt.counters.MessageSent()
	count, windowStart := rt.limiter.Increment(rt.session.Source, ActionMessage, config.MessageWindow)
	if err := rt.storage.TouchRateLimit(rt.session.Source, ActionMessage, count, windowStart.Unix()); err != nil {
		logger.Log.Warnf("Failed to mirror rate window: %v", err)
	}
	if err := rt.storage.LogMessage(&models.ChatMessageLog{
		RoomID:   roomID,
		SenderIP: rt.session.Source,
		Content:  content,
		SentAt:   rt.now().Unix(),
	}); err != nil {
		logger.Log.Warnf("Failed to log message: %v", err)
	}
}

// flagMessage notifies the sender, logs the row as flagged and alerts the
// operators. Flagged content is never relayed.
func (rt *Router) flagMessage(roomID, content, reason string) {
	rt.reg.Send(rt.session.ID, models.EvMessageFlagged, models.ErrorPayload{
		Message: "Your message was blocked by moderation.",
	})
	if err := rt.storage.LogMessage(&models.ChatMessageLog{
		RoomID:     roomID,
		SenderIP:   rt.session.Source,
		Content:    content,
		SentAt:     rt.now().Unix(),
		Flagged:    1,
		FlagReason: reason,
	}); err != nil {
		logger.Log.Warnf("Failed to log flagged message: %v", err)
	}
	rt.alerts.FlaggedMessage(roomID, rt.session.Source, reason, content)
}

func (rt *Router) handleSendMedia(data json.RawMessage) {
	partnerID, roomID, paired := rt.reg.PairInfo(rt.session.ID)
	if !paired {
		rt.sendError("Not connected to a partner")
		return
	}

	var payload models.SendMediaPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		rt.sendError("Invalid media")
		return
	}
	if payload.URL == "" || (payload.Kind != "image" && payload.Kind != "video") {
		rt.sendError("Invalid media")
		return
	}

	msg := models.WireMessage{
		ID:        uuid.New().String(),
		SenderID:  rt.session.ID,
		Timestamp: rt.now().UnixMilli(),
		Type:      models.MessageTypeUser,
		MediaURL:  payload.URL,
		MediaKind: payload.Kind,
		FileName:  payload.Name,
		FileSize:  payload.Size,
	}
	rt.reg.Send(partnerID, models.EvMediaReceived, models.MessageEnvelope{Message: msg})

	rt.reg.BumpRoom(roomID)
	// Media URLs are logged as-is; the URL body is not moderated.
	if err := rt.storage.LogMessage(&models.ChatMessageLog{
		RoomID:   roomID,
		SenderIP: rt.session.Source,
		Content:  payload.URL,
		SentAt:   rt.now().Unix(),
	}); err != nil {
		logger.Log.Warnf("Failed to log media message: %v", err)
	}
}

func (rt *Router) handleTyping() {
	partnerID, _, paired := rt.reg.PairInfo(rt.session.ID)
	if !paired {
		return
	}
	// Coalesce: at most one forwarded typing frame per interval.
	if rt.now().Sub(rt.lastTypingForward) < config.TypingInterval {
		return
	}
	rt.lastTypingForward = rt.now()
	rt.reg.Send(partnerID, models.EvPartnerTyping, struct{}{})
}

func (rt *Router) handleStopTyping() {
	partnerID, _, paired := rt.reg.PairInfo(rt.session.ID)
	if !paired {
		return
	}
	rt.reg.Send(partnerID, models.EvPartnerStoppedTyping, struct{}{})
}

func (rt *Router) handleDisconnectChat() {
	partnerID, room, ok := rt.reg.EndPairing(rt.session.ID)
	if !ok {
		rt.sendError("Not connected to a partner")
		return
	}
	rt.reg.Send(partnerID, models.EvPartnerDisconnected, struct{}{})
	if err := rt.storage.CloseChatSession(room.ID, rt.now().Unix(), room.MessageCount); err != nil {
		logger.Log.Warnf("Failed to close chat session %s: %v", room.ID, err)
	}
}
