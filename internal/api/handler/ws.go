package handler

import (
	"net/http"

	"anonchat/backend/internal/chathub"
	"anonchat/backend/internal/config"
	"anonchat/backend/internal/logger"
	"anonchat/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Anonymous clients connect from anywhere.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket admits a new connection: upgrade, ban gate, connection
// rate limit, then register and start the session's pumps. Policy refusals
// are delivered as a single in-band frame before the channel closes.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	source := SourceAddr(c.Request)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warnf("Upgrade failed for %s: %v", source, err)
		return
	}

	banned, err := h.Gate.IsBanned(source)
	if err != nil {
		// Authoritative read failed: fail closed.
		logger.Log.Errorf("Ban check failed for %s: %v", source, err)
		conn.WriteJSON(models.OutFrame{Type: models.EvError, Data: models.ErrorPayload{Message: "service unavailable"}})
		conn.Close()
		return
	}
	if banned {
		conn.WriteJSON(models.OutFrame{Type: models.EvBanned, Data: struct{}{}})
		conn.Close()
		return
	}

	if !h.Limiter.Check(source, chathub.ActionConnection, config.ConnectionLimit, config.ConnectionWindow) {
		conn.WriteJSON(models.OutFrame{Type: models.EvRateLimited, Data: models.ErrorPayload{
			Message: "Too many connections. Please wait a minute.",
		}})
		conn.Close()
		return
	}
	count, windowStart := h.Limiter.Increment(source, chathub.ActionConnection, config.ConnectionWindow)
	if err := h.Storage.TouchRateLimit(source, chathub.ActionConnection, count, windowStart.Unix()); err != nil {
		logger.Log.Warnf("Failed to mirror connection rate window: %v", err)
	}

	client := chathub.NewWSClient(conn)
	sess := h.Reg.Register(source, client)
	router := chathub.NewRouter(sess, h.Reg, h.Matcher, h.Limiter, h.Moderator, h.Storage, h.Counters, h.Alerts)
	client.Run(router.HandleFrame, router.Shutdown)
}
