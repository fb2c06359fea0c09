package repository

import (
	"context"
	"errors"
	"fmt"

	"taskfi_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `address, COALESCE(username, ''), COALESCE(avatar_url, ''), xp, level, stage,
	 tokens_earned, tasks_completed, time_saved, login_streak, COALESCE(last_login, ''),
	 signature_verified, leetcode_verified, COALESCE(leetcode_username, ''),
	 COALESCE(verification_token, ''), version, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.Address,
		&u.Username,
		&u.AvatarURL,
		&u.XP,
		&u.Level,
		&u.Stage,
		&u.TokensEarned,
		&u.TasksCompleted,
		&u.TimeSaved,
		&u.LoginStreak,
		&u.LastLogin,
		&u.SignatureVerified,
		&u.LeetcodeVerified,
		&u.LeetcodeUsername,
		&u.VerificationToken,
		&u.Version,
		&u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return &u, nil
}

func (r *UserRepository) GetByAddress(ctx context.Context, address string) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE address = $1`,
		domain.NormalizeAddress(address),
	)
	return scanUser(row)
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	u.Address = domain.NormalizeAddress(u.Address)
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (address, username, xp, level, stage, login_streak, last_login)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING version, created_at`,
		u.Address, u.Username, u.XP, u.Level, u.Stage, u.LoginStreak, u.LastLogin,
	).Scan(&u.Version, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

// UpdateProgress writes the progression fields guarded by the version the
// caller read. A concurrent writer bumps version first and this update
// matches zero rows.
func (r *UserRepository) UpdateProgress(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx,
		`UPDATE users
		 SET xp = $1, level = $2, stage = $3, tokens_earned = $4, tasks_completed = $5,
		     time_saved = $6, login_streak = $7, last_login = $8, version = version + 1
		 WHERE address = $9 AND version = $10
		 RETURNING version`,
		u.XP, u.Level, u.Stage, u.TokensEarned, u.TasksCompleted,
		u.TimeSaved, u.LoginStreak, u.LastLogin, u.Address, u.Version,
	).Scan(&u.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *UserRepository) UpdateUsername(ctx context.Context, address, username string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET username = $1 WHERE address = $2`,
		username, domain.NormalizeAddress(address),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkSignatureVerified flips the airdrop guard exactly once. The conditional
// WHERE makes the claim idempotent: a second call matches zero rows.
func (r *UserRepository) MarkSignatureVerified(ctx context.Context, address string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET signature_verified = TRUE
		 WHERE address = $1 AND signature_verified = FALSE`,
		domain.NormalizeAddress(address),
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *UserRepository) MarkLeetcodeVerified(ctx context.Context, address, leetcodeUsername string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET leetcode_verified = TRUE, leetcode_username = $1, verification_token = ''
		 WHERE address = $2`,
		leetcodeUsername, domain.NormalizeAddress(address),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetVerificationToken(ctx context.Context, address, token string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET verification_token = $1 WHERE address = $2`,
		token, domain.NormalizeAddress(address),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TopEntry is one leaderboard row.
type TopEntry struct {
	Rank         int    `json:"rank"`
	Address      string `json:"address"`
	Username     string `json:"username,omitempty"`
	Level        int    `json:"level"`
	Stage        string `json:"stage"`
	XP           int64  `json:"xp"`
	TokensEarned int64  `json:"tokens_earned"`
}

// GetTopByTokens returns users ordered by lifetime tokens earned.
func (r *UserRepository) GetTopByTokens(ctx context.Context, limit int) ([]TopEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT address, COALESCE(username, ''), level, stage, xp, tokens_earned
		FROM users
		ORDER BY tokens_earned DESC, xp DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var res []TopEntry
	rank := 1
	for rows.Next() {
		var e TopEntry
		if err := rows.Scan(&e.Address, &e.Username, &e.Level, &e.Stage, &e.XP, &e.TokensEarned); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		e.Rank = rank
		res = append(res, e)
		rank++
	}
	return res, rows.Err()
}

// GetUserRank returns the user's position in the token leaderboard.
func (r *UserRepository) GetUserRank(ctx context.Context, address string) (int, int64, error) {
	var rank int
	var tokens int64
	err := r.db.QueryRow(ctx, `
		WITH ranked AS (
			SELECT address, tokens_earned,
			       RANK() OVER (ORDER BY tokens_earned DESC, xp DESC) AS rank
			FROM users
		)
		SELECT rank, tokens_earned FROM ranked WHERE address = $1
	`, domain.NormalizeAddress(address)).Scan(&rank, &tokens)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, domain.ErrNotFound
		}
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return rank, tokens, nil
}
