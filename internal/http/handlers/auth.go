package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskfi_backend/internal/domain"
	"taskfi_backend/internal/service"
)

type ConnectRequest struct {
	Address string `json:"address"`
}

// Connect is the session entry point: it upserts the record for the wallet
// address, applies the daily login rule and hands back a JWT.
func (h *Handler) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if !domain.ValidAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}

	ctx := c.Request.Context()
	user, created, err := h.Ledger.Connect(ctx, req.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to connect"})
		return
	}

	login, err := h.Ledger.ApplyDailyLogin(ctx, user.Address, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply daily login"})
		return
	}

	token, err := service.GenerateJWT(user.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	user, err = h.Users.GetByAddress(ctx, user.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"new_user":    created,
		"daily_login": login,
		"user":        user,
	})
}
