package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskfi_backend/internal/service"
)

// LeetcodeChallenge issues the token the user pastes into their LeetCode
// profile summary to prove account ownership.
func (h *Handler) LeetcodeChallenge(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, err := h.Tasks.RequestLeetcodeVerification(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue verification token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":        token,
		"instructions": "Add this token to your LeetCode profile summary, then call verify",
	})
}

type LeetcodeVerifyRequest struct {
	Username string `json:"username"`
}

func (h *Handler) LeetcodeVerify(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req LeetcodeVerifyRequest
	if err := c.BindJSON(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}

	if err := h.Tasks.ConfirmLeetcodeVerification(c.Request.Context(), address, req.Username); err != nil {
		if errors.Is(err, service.ErrOracleRejected) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "account verification failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": true, "username": req.Username})
}
