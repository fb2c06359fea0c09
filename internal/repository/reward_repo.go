package repository

import (
	"context"
	"fmt"

	"taskfi_backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type RewardRepository struct {
	db *pgxpool.Pool
}

func NewRewardRepository(db *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) Append(ctx context.Context, e *domain.RewardEntry) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO reward_entries (address, source, ref, tokens, xp, tx_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		e.Address, e.Source, e.Ref, e.Tokens, e.XP, e.TxHash,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *RewardRepository) ListByAddress(ctx context.Context, address string, limit int) ([]*domain.RewardEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, address, source, COALESCE(ref, ''), tokens, xp, COALESCE(tx_hash, ''), created_at
		 FROM reward_entries
		 WHERE address = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		domain.NormalizeAddress(address), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var res []*domain.RewardEntry
	for rows.Next() {
		var e domain.RewardEntry
		if err := rows.Scan(&e.ID, &e.Address, &e.Source, &e.Ref, &e.Tokens, &e.XP, &e.TxHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		res = append(res, &e)
	}
	return res, rows.Err()
}

// HasEntry reports whether a reward with this source and ref was already
// journaled for the address. Used as the replay guard for daily logins.
func (r *RewardRepository) HasEntry(ctx context.Context, address string, source domain.RewardSource, ref string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reward_entries WHERE address = $1 AND source = $2 AND ref = $3)`,
		domain.NormalizeAddress(address), source, ref,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return exists, nil
}
