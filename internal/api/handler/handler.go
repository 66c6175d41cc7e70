package handler

import (
	"anonchat/backend/internal/alert"
	"anonchat/backend/internal/appeal"
	"anonchat/backend/internal/bangate"
	"anonchat/backend/internal/chathub"
	"anonchat/backend/internal/moderation"
	"anonchat/backend/internal/ratelimit"
	"anonchat/backend/internal/stats"
	"anonchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Handler carries the wired components behind the HTTP surface.
type Handler struct {
	Reg       *chathub.Registry
	Matcher   *chathub.Matcher
	Gate      *bangate.Gate
	Limiter   *ratelimit.Limiter
	Moderator *moderation.Moderator
	Storage   storage.Storage
	Counters  *stats.Counters
	Appeals   *appeal.Service
	Alerts    alert.Notifier

	JWTSecret     []byte
	AdminPassword string
}

// Routes registers every endpoint on the engine.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/ws", h.ServeWebSocket)

	r.GET("/api/check-ban", h.CheckBan)
	r.POST("/api/appeals", h.SubmitAppeal)

	r.POST("/api/admin/login", h.AdminLogin)
	admin := r.Group("/api/admin", h.AdminAuth())
	{
		admin.GET("/stats", h.AdminStats)
		admin.GET("/chats", h.AdminChats)
		admin.GET("/queue", h.AdminQueue)
		admin.GET("/bans", h.AdminListBans)
		admin.POST("/bans", h.AdminCreateBan)
		admin.DELETE("/bans/:id", h.AdminDeleteBan)
		admin.GET("/appeals", h.AdminListAppeals)
		admin.PATCH("/appeals/:id", h.AdminResolveAppeal)
	}
}
