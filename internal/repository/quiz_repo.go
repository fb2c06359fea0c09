package repository

import (
	"context"
	"fmt"

	"taskfi_backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type QuizRepository struct {
	db *pgxpool.Pool
}

func NewQuizRepository(db *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) Record(ctx context.Context, a *domain.QuizAttempt) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO quiz_attempts (address, quiz_id, score, total_questions, passed, reward)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		a.Address, a.QuizID, a.Score, a.TotalQuestions, a.Passed, a.Reward,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

// HasPassed reports whether the user already passed this quiz. Passed quizzes
// pay out once.
func (r *QuizRepository) HasPassed(ctx context.Context, address, quizID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quiz_attempts WHERE address = $1 AND quiz_id = $2 AND passed)`,
		domain.NormalizeAddress(address), quizID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return exists, nil
}

// DeleteAttempt removes a recorded attempt. Used to release the payout
// guard when the grant behind a passed attempt failed.
func (r *QuizRepository) DeleteAttempt(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM quiz_attempts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *QuizRepository) ListByAddress(ctx context.Context, address string, limit int) ([]*domain.QuizAttempt, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, address, quiz_id, score, total_questions, passed, reward, created_at
		 FROM quiz_attempts
		 WHERE address = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		domain.NormalizeAddress(address), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var res []*domain.QuizAttempt
	for rows.Next() {
		var a domain.QuizAttempt
		if err := rows.Scan(&a.ID, &a.Address, &a.QuizID, &a.Score, &a.TotalQuestions, &a.Passed, &a.Reward, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		res = append(res, &a)
	}
	return res, rows.Err()
}
