package service

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"taskfi_backend/internal/domain"
	"taskfi_backend/internal/logger"
)

const (
	balanceTTL      = 60 * time.Second
	refreshInterval = 30 * time.Second
)

// BalanceService caches on-chain token balances in redis so the API does not
// hit JSON-RPC on every page load. A background refresher re-reads the chain
// for recently active addresses.
type BalanceService struct {
	chain ChainGateway
	rdb   *redis.Client
}

func NewBalanceService(chain ChainGateway, rdb *redis.Client) *BalanceService {
	return &BalanceService{chain: chain, rdb: rdb}
}

func balanceKey(address string) string {
	return "balance:" + domain.NormalizeAddress(address)
}

const activeSetKey = "balance:active"

// GetBalance returns the cached balance, falling back to the chain on a
// miss. Redis being down degrades to a direct chain read, not an error.
func (s *BalanceService) GetBalance(ctx context.Context, address string) (int64, error) {
	address = domain.NormalizeAddress(address)

	if cached, err := s.rdb.Get(ctx, balanceKey(address)).Result(); err == nil {
		if v, err := strconv.ParseInt(cached, 10, 64); err == nil {
			s.touch(ctx, address)
			return v, nil
		}
	} else if err != redis.Nil {
		logger.Warn("balance cache read failed", "err", err)
	}

	balance, err := s.chain.BalanceOf(ctx, address)
	if err != nil {
		return 0, err
	}
	s.store(ctx, address, balance)
	s.touch(ctx, address)
	return balance, nil
}

// Invalidate drops the cached value after a transfer so the next read sees
// the new balance.
func (s *BalanceService) Invalidate(ctx context.Context, address string) {
	if err := s.rdb.Del(ctx, balanceKey(address)).Err(); err != nil {
		logger.Warn("balance cache invalidate failed", "address", address, "err", err)
	}
}

func (s *BalanceService) store(ctx context.Context, address string, balance int64) {
	if err := s.rdb.Set(ctx, balanceKey(address), strconv.FormatInt(balance, 10), balanceTTL).Err(); err != nil {
		logger.Warn("balance cache write failed", "address", address, "err", err)
	}
}

func (s *BalanceService) touch(ctx context.Context, address string) {
	s.rdb.ZAdd(ctx, activeSetKey, redis.Z{Score: float64(time.Now().Unix()), Member: address})
}

// RunRefresher polls the chain every 30 seconds for addresses that were read
// in the last five minutes. Blocks until ctx is cancelled.
func (s *BalanceService) RunRefresher(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshActive(ctx)
		}
	}
}

func (s *BalanceService) refreshActive(ctx context.Context) {
	cutoff := strconv.FormatInt(time.Now().Add(-5*time.Minute).Unix(), 10)
	s.rdb.ZRemRangeByScore(ctx, activeSetKey, "0", "("+cutoff)

	addrs, err := s.rdb.ZRange(ctx, activeSetKey, 0, 199).Result()
	if err != nil {
		logger.Warn("balance refresher list failed", "err", err)
		return
	}
	for _, addr := range addrs {
		balance, err := s.chain.BalanceOf(ctx, addr)
		if err != nil {
			logger.Warn("balance refresh failed", "address", addr, "err", err)
			continue
		}
		s.store(ctx, addr, balance)
	}
}
