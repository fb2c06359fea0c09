package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetLeaderboard returns the top users by lifetime tokens earned.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	top, err := h.Leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}

// GetMyRank returns the caller's position in the token leaderboard.
func (h *Handler) GetMyRank(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rank, tokens, err := h.Leaderboard.Rank(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"rank": 0, "tokens_earned": 0})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rank": rank, "tokens_earned": tokens})
}
