package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taskfi_backend/internal/domain"
)

const challengeTTL = 5 * time.Minute

// ChallengeStore hands out one-shot signing nonces backed by redis.
type ChallengeStore struct {
	rdb *redis.Client
}

func NewChallengeStore(rdb *redis.Client) *ChallengeStore {
	return &ChallengeStore{rdb: rdb}
}

func challengeKey(address string) string {
	return "wallet:challenge:" + domain.NormalizeAddress(address)
}

// Issue creates a fresh nonce for the address, replacing any previous one.
func (s *ChallengeStore) Issue(ctx context.Context, address string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(buf)
	if err := s.rdb.Set(ctx, challengeKey(address), nonce, challengeTTL).Err(); err != nil {
		return "", fmt.Errorf("store nonce: %w", err)
	}
	return nonce, nil
}

// Consume checks and deletes the nonce. A nonce verifies at most once.
func (s *ChallengeStore) Consume(ctx context.Context, address, nonce string) error {
	key := challengeKey(address)
	stored, err := s.rdb.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("no active challenge for %s", address)
	}
	if err != nil {
		return fmt.Errorf("load nonce: %w", err)
	}
	if stored != nonce {
		return fmt.Errorf("nonce mismatch for %s", address)
	}
	return nil
}
