package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskfi_backend/internal/logger"
	"taskfi_backend/internal/repository"
)

const (
	leaderboardKey = "leaderboard:top"
	leaderboardTTL = 30 * time.Second
)

// LeaderboardService serves the token leaderboard with a short redis cache
// in front of the ranking query.
type LeaderboardService struct {
	users *repository.UserRepository
	rdb   *redis.Client
}

func NewLeaderboardService(users *repository.UserRepository, rdb *redis.Client) *LeaderboardService {
	return &LeaderboardService{users: users, rdb: rdb}
}

func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]repository.TopEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	if cached, err := s.rdb.Get(ctx, leaderboardKey).Result(); err == nil {
		var entries []repository.TopEntry
		if json.Unmarshal([]byte(cached), &entries) == nil && len(entries) >= limit {
			return entries[:limit], nil
		}
	}

	entries, err := s.users.GetTopByTokens(ctx, 100)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(entries); err == nil {
		if err := s.rdb.Set(ctx, leaderboardKey, raw, leaderboardTTL).Err(); err != nil {
			logger.Warn("leaderboard cache write failed", "err", err)
		}
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Rank is always read fresh, the window query is cheap for a single row.
func (s *LeaderboardService) Rank(ctx context.Context, address string) (int, int64, error) {
	return s.users.GetUserRank(ctx, address)
}
