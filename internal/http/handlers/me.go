package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskfi_backend/internal/domain"
)

func (h *Handler) Me(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.Users.GetByAddress(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// MyProgress returns the derived level/stage view.
func (h *Handler) MyProgress(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	progress, err := h.Ledger.GetProgress(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load progress"})
		return
	}

	c.JSON(http.StatusOK, progress)
}

type UpdateUsernameRequest struct {
	Username string `json:"username"`
}

func (h *Handler) UpdateUsername(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req UpdateUsernameRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || len(req.Username) > 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must be 1-32 characters"})
		return
	}

	if err := h.Users.UpdateUsername(c.Request.Context(), address, req.Username); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update username"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": req.Username})
}

// MyRewards returns the recent reward journal entries.
func (h *Handler) MyRewards(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	entries, err := h.Rewards.ListByAddress(c.Request.Context(), address, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rewards"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards": entries})
}

// MyQuizzes returns recent quiz attempts.
func (h *Handler) MyQuizzes(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attempts, err := h.Quizzes.ListByAddress(c.Request.Context(), address, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load quiz attempts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}
