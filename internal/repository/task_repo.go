package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskfi_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, address, kind, title, COALESCE(description, ''), status, complexity,
	 COALESCE(difficulty, ''), COALESCE(external_ref, ''), tokens, xp, created_at, completed_at, verified_at`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	if err := row.Scan(
		&t.ID, &t.Address, &t.Kind, &t.Title, &t.Description, &t.Status, &t.Complexity,
		&t.Difficulty, &t.ExternalRef, &t.Tokens, &t.XP, &t.CreatedAt, &t.CompletedAt, &t.VerifiedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return &t, nil
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO tasks (id, address, kind, title, description, status, complexity, difficulty, external_ref, tokens, xp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		t.ID, t.Address, t.Kind, t.Title, t.Description, t.Status,
		t.Complexity, t.Difficulty, t.ExternalRef, t.Tokens, t.XP,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (r *TaskRepository) ListByAddress(ctx context.Context, address string) ([]*domain.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE address = $1 ORDER BY created_at DESC LIMIT 200`,
		domain.NormalizeAddress(address),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var res []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// Transition moves a task from one status to the next. The WHERE on the old
// status makes each hop at most once: a replay matches zero rows.
func (r *TaskRepository) Transition(ctx context.Context, id string, from, to domain.TaskStatus, at time.Time) (bool, error) {
	col := "completed_at"
	if to == domain.TaskVerified {
		col = "verified_at"
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE tasks SET status = $1, `+col+` = $2 WHERE id = $3 AND status = $4`,
		to, at, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetReward overrides the server-computed payout with what the oracle
// actually scored. Only meaningful before the task is verified.
func (r *TaskRepository) SetReward(ctx context.Context, id string, tokens, xp int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE tasks SET tokens = $1, xp = $2 WHERE id = $3 AND status <> 'verified'`,
		tokens, xp, id,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id, address string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM tasks WHERE id = $1 AND address = $2 AND status = 'pending'`,
		id, domain.NormalizeAddress(address),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
