package handlers

import (
	"github.com/gin-gonic/gin"

	"taskfi_backend/internal/repository"
	"taskfi_backend/internal/service"
	"taskfi_backend/internal/wallet"
	"taskfi_backend/internal/ws"
)

// Handler bundles the services the HTTP surface dispatches into.
type Handler struct {
	Ledger      *service.Ledger
	Tasks       *service.TaskService
	Balance     *service.BalanceService
	Leaderboard *service.LeaderboardService
	Users       *repository.UserRepository
	Rewards     *repository.RewardRepository
	Quizzes     *repository.QuizRepository
	Challenges  *wallet.ChallengeStore
	Hub         *ws.Hub
}

func getAddress(c *gin.Context) (string, bool) {
	v, ok := c.Get("address")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
