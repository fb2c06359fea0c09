package http

import (
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taskfi_backend/internal/http/handlers"
	"taskfi_backend/internal/http/middleware"
)

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// RegisterRoutes wires the HTTP surface onto the gin engine.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler) {
	apiRateLimit := envInt("API_RATE_LIMIT", 60)
	apiRateWindow := time.Duration(envInt("API_RATE_WINDOW_SECONDS", 60)) * time.Second
	authRateLimit := envInt("AUTH_RATE_LIMIT", 10)
	authRateWindow := time.Duration(envInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second
	verifyRateLimit := envInt("VERIFY_RATE_LIMIT", 10)
	verifyRateWindow := time.Duration(envInt("VERIFY_RATE_WINDOW_SECONDS", 60)) * time.Second

	// Health checks and metrics (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))

	// Auth
	api.POST("/auth/connect", middleware.RedisRateLimit(authRateLimit, authRateWindow), h.Connect)

	// Profile and progression
	api.GET("/me", middleware.JWT(), h.Me)
	api.GET("/me/progress", middleware.JWT(), h.MyProgress)
	api.PATCH("/me/username", middleware.JWT(), h.UpdateUsername)
	api.GET("/me/rewards", middleware.JWT(), h.MyRewards)
	api.GET("/me/quizzes", middleware.JWT(), h.MyQuizzes)

	// Verification attempts hit the oracle or the chain, keep them per-address limited
	verifyRL := middleware.VerifyRateLimit(verifyRateLimit, verifyRateWindow)

	// Wallet proof and airdrop
	api.POST("/wallet/challenge", middleware.JWT(), h.WalletChallenge)
	api.POST("/wallet/verify", middleware.JWT(), verifyRL, h.WalletVerify)
	api.GET("/wallet/balance", middleware.JWT(), h.WalletBalance)

	// Tasks
	api.GET("/tasks", middleware.JWT(), h.ListTasks)
	api.POST("/tasks", middleware.JWT(), h.CreateTask)
	api.PATCH("/tasks/:id/complete", middleware.JWT(), h.CompleteTask)
	api.POST("/tasks/:id/verify", middleware.JWT(), verifyRL, h.VerifyTask)
	api.DELETE("/tasks/:id", middleware.JWT(), h.DeleteTask)

	// Quizzes
	api.POST("/quiz/submit", middleware.JWT(), verifyRL, h.SubmitQuiz)

	// LeetCode account linking
	api.POST("/leetcode/challenge", middleware.JWT(), h.LeetcodeChallenge)
	api.POST("/leetcode/verify", middleware.JWT(), verifyRL, h.LeetcodeVerify)

	// Leaderboard
	api.GET("/leaderboard", h.GetLeaderboard)
	api.GET("/leaderboard/rank", middleware.JWT(), h.GetMyRank)

	// Progression event stream. In-process limiter: the upgrade happens
	// before redis is consulted, keep dial storms off the hub.
	r.GET("/ws", middleware.SimpleRateLimit(30, time.Minute), h.WS)
}
