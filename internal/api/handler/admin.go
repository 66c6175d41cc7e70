package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"anonchat/backend/internal/appeal"
	"anonchat/backend/internal/logger"
	"anonchat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// AdminStats returns the live operational counters.
func (h *Handler) AdminStats(c *gin.Context) {
	totalBans, err := h.Storage.CountBans()
	if err != nil {
		logger.Log.Errorf("Failed to count bans: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"activeRooms":     h.Reg.RoomCount(),
		"waitingSessions": h.Matcher.Len(),
		"totalBans":       totalBans,
		"messagesToday":   h.Counters.MessagesToday(),
	})
}

// AdminChats returns active rooms, newest first.
func (h *Handler) AdminChats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Reg.SnapshotRooms())
}

// AdminQueue returns the waiting queue in enqueue order.
func (h *Handler) AdminQueue(c *gin.Context) {
	c.JSON(http.StatusOK, h.Matcher.Snapshot())
}

func (h *Handler) AdminListBans(c *gin.Context) {
	bans, err := h.Storage.ListBans()
	if err != nil {
		logger.Log.Errorf("Failed to list bans: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bans"})
		return
	}
	c.JSON(http.StatusOK, bans)
}

func (h *Handler) AdminCreateBan(c *gin.Context) {
	var body struct {
		IP     string `json:"ip"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.IP == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "IP address is required"})
		return
	}

	existing, err := h.Storage.GetBanByIP(body.IP)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Address is already banned"})
		return
	}

	ban := &models.BanRecord{
		IP:       body.IP,
		Reason:   body.Reason,
		BannedAt: time.Now().Unix(),
		BannedBy: "admin",
	}
	if err := h.Storage.CreateBan(ban); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.Gate.Invalidate(body.IP)
	if err := h.Storage.PublishBanUpdate(body.IP); err != nil {
		logger.Log.Warnf("Failed to publish ban update: %v", err)
	}
	h.Alerts.BanCreated(body.IP, body.Reason)
	c.JSON(http.StatusCreated, ban)
}

func (h *Handler) AdminDeleteBan(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ban id"})
		return
	}

	ban, err := h.Storage.GetBanByID(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ban == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ban not found"})
		return
	}
	if err := h.Storage.DeleteBan(uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.Gate.Invalidate(ban.IP)
	if err := h.Storage.PublishBanUpdate(ban.IP); err != nil {
		logger.Log.Warnf("Failed to publish ban update: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) AdminListAppeals(c *gin.Context) {
	appeals, err := h.Storage.ListAppeals(c.Query("status"))
	if err != nil {
		logger.Log.Errorf("Failed to list appeals: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load appeals"})
		return
	}
	c.JSON(http.StatusOK, appeals)
}

func (h *Handler) AdminResolveAppeal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appeal id"})
		return
	}
	var body struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	resolved, err := h.Appeals.Resolve(uint(id), body.Status, body.Notes, "admin")
	switch {
	case errors.Is(err, appeal.ErrBadStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, appeal.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, appeal.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, resolved)
	}
}
