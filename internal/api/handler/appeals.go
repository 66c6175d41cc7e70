package handler

import (
	"errors"
	"net/http"

	"anonchat/backend/internal/appeal"

	"github.com/gin-gonic/gin"
)

// CheckBan tells the caller whether their own source address is banned.
func (h *Handler) CheckBan(c *gin.Context) {
	source := SourceAddr(c.Request)
	banned, err := h.Gate.IsBanned(source)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"banned": banned, "ip": source})
}

// SubmitAppeal files a ban appeal from the end-user side.
func (h *Handler) SubmitAppeal(c *gin.Context) {
	var body struct {
		IP     string `json:"ip"`
		Email  string `json:"email"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Email == "" || body.Reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and reason are required"})
		return
	}
	if body.IP == "" {
		body.IP = SourceAddr(c.Request)
	}

	submitted, err := h.Appeals.Submit(body.IP, body.Email, body.Reason)
	switch {
	case errors.Is(err, appeal.ErrNoActiveBan), errors.Is(err, appeal.ErrAlreadyPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		h.Alerts.AppealSubmitted(body.IP)
		c.JSON(http.StatusCreated, submitted)
	}
}
