package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskfi_backend/internal/domain"
	"taskfi_backend/internal/service"
)

type CreateTaskRequest struct {
	Kind        domain.TaskKind `json:"kind"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Complexity  int             `json:"complexity"`
	Difficulty  string          `json:"difficulty"`
	ExternalRef string          `json:"external_ref"`
}

func (h *Handler) CreateTask(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateTaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if req.Complexity == 0 {
		req.Complexity = 1
	}

	task, err := h.Tasks.CreateTask(c.Request.Context(), address, req.Kind, req.Title, req.Description, req.Complexity, req.Difficulty, req.ExternalRef)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, task)
}

func (h *Handler) ListTasks(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tasks, err := h.Tasks.ListTasks(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *Handler) CompleteTask(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	task, err := h.Tasks.CompleteTask(c.Request.Context(), address, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *Handler) VerifyTask(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	task, err := h.Tasks.VerifyTask(c.Request.Context(), address, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		case errors.Is(err, service.ErrTaskNotCompleted):
			c.JSON(http.StatusConflict, gin.H{"error": "task must be completed first"})
		case errors.Is(err, service.ErrLeetcodeUnlinked):
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": "verify your leetcode account first"})
		case errors.Is(err, service.ErrOracleRejected):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		}
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *Handler) DeleteTask(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.Tasks.DeleteTask(c.Request.Context(), address, c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found or not pending"})
		return
	}

	c.Status(http.StatusNoContent)
}

type SubmitQuizRequest struct {
	QuizID  string `json:"quiz_id"`
	Answers []int  `json:"answers"`
}

func (h *Handler) SubmitQuiz(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req SubmitQuizRequest
	if err := c.BindJSON(&req); err != nil || req.QuizID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	attempt, err := h.Tasks.SubmitQuiz(c.Request.Context(), address, req.QuizID, req.Answers)
	if err != nil {
		if errors.Is(err, service.ErrOracleRejected) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "quiz verification failed"})
		return
	}

	c.JSON(http.StatusOK, attempt)
}
