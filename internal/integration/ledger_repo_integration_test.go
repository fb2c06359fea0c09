package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"taskfi_backend/internal/domain"
	"taskfi_backend/internal/repository"
)

// Integration tests run only against a real database: set DATABASE_URL.

func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	dbp, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(dbp.Close)
	applyMigrations(t, dbp)
	return dbp
}

func applyMigrations(t *testing.T, dbp *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := dbp.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", f.Name(), err)
		}
	}
}

func testAddress() string {
	return fmt.Sprintf("0x%040x", time.Now().UnixNano())
}

func TestUserRepoRoundtrip(t *testing.T) {
	dbp := openPool(t)
	repo := repository.NewUserRepository(dbp)
	ctx := context.Background()

	addr := testAddress()
	u := &domain.User{Address: addr, Username: "itester", Level: 1, Stage: "Spark"}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByAddress(ctx, addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Username != "itester" || got.Level != 1 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}

	got.XP = 250
	got.Level = 2
	got.LoginStreak = 1
	got.LastLogin = "2025-01-02"
	if err := repo.UpdateProgress(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	again, err := repo.GetByAddress(ctx, addr)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.XP != 250 || again.Version != got.Version {
		t.Fatalf("update not persisted: %+v", again)
	}
}

func TestUserRepoVersionConflict(t *testing.T) {
	dbp := openPool(t)
	repo := repository.NewUserRepository(dbp)
	ctx := context.Background()

	addr := testAddress()
	if err := repo.Create(ctx, &domain.User{Address: addr, Level: 1, Stage: "Spark"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	a, _ := repo.GetByAddress(ctx, addr)
	b, _ := repo.GetByAddress(ctx, addr)

	a.XP = 100
	if err := repo.UpdateProgress(ctx, a); err != nil {
		t.Fatalf("first writer: %v", err)
	}

	b.XP = 999
	err := repo.UpdateProgress(ctx, b)
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("stale writer err = %v, want ErrVersionConflict", err)
	}

	got, _ := repo.GetByAddress(ctx, addr)
	if got.XP != 100 {
		t.Fatalf("lost update: xp=%d", got.XP)
	}
}

func TestMarkSignatureVerifiedOnce(t *testing.T) {
	dbp := openPool(t)
	repo := repository.NewUserRepository(dbp)
	ctx := context.Background()

	addr := testAddress()
	if err := repo.Create(ctx, &domain.User{Address: addr, Level: 1, Stage: "Spark"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := repo.MarkSignatureVerified(ctx, addr)
	if err != nil || !first {
		t.Fatalf("first claim: first=%v err=%v", first, err)
	}
	second, err := repo.MarkSignatureVerified(ctx, addr)
	if err != nil || second {
		t.Fatalf("second claim: first=%v err=%v", second, err)
	}
}

func TestTaskRepoTransitions(t *testing.T) {
	dbp := openPool(t)
	users := repository.NewUserRepository(dbp)
	tasks := repository.NewTaskRepository(dbp)
	ctx := context.Background()

	addr := testAddress()
	if err := users.Create(ctx, &domain.User{Address: addr, Level: 1, Stage: "Spark"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	task := &domain.Task{
		ID:      "task_it_" + addr[2:10],
		Address: addr,
		Kind:    domain.TaskVideo,
		Title:   "Watch lecture",
		Status:  domain.TaskPending,
		Complexity: 1,
		Tokens:  5,
		XP:      80,
	}
	if err := tasks.Create(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	now := time.Now().UTC()
	moved, err := tasks.Transition(ctx, task.ID, domain.TaskPending, domain.TaskCompleted, now)
	if err != nil || !moved {
		t.Fatalf("pending->completed: moved=%v err=%v", moved, err)
	}

	// replaying the same hop matches zero rows
	moved, err = tasks.Transition(ctx, task.ID, domain.TaskPending, domain.TaskCompleted, now)
	if err != nil || moved {
		t.Fatalf("replay hop: moved=%v err=%v", moved, err)
	}

	moved, err = tasks.Transition(ctx, task.ID, domain.TaskCompleted, domain.TaskVerified, now)
	if err != nil || !moved {
		t.Fatalf("completed->verified: moved=%v err=%v", moved, err)
	}

	got, err := tasks.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.TaskVerified || got.VerifiedAt == nil {
		t.Fatalf("final state: %+v", got)
	}
}

func TestRewardJournalDailyLoginGuard(t *testing.T) {
	dbp := openPool(t)
	users := repository.NewUserRepository(dbp)
	rewards := repository.NewRewardRepository(dbp)
	ctx := context.Background()

	addr := testAddress()
	if err := users.Create(ctx, &domain.User{Address: addr, Level: 1, Stage: "Spark"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	e := &domain.RewardEntry{Address: addr, Source: domain.SourceDailyLogin, Ref: "2025-01-02", XP: 100}
	if err := rewards.Append(ctx, e); err != nil {
		t.Fatalf("append: %v", err)
	}

	has, err := rewards.HasEntry(ctx, addr, domain.SourceDailyLogin, "2025-01-02")
	if err != nil || !has {
		t.Fatalf("HasEntry = %v, %v", has, err)
	}
	has, err = rewards.HasEntry(ctx, addr, domain.SourceDailyLogin, "2025-01-03")
	if err != nil || has {
		t.Fatalf("HasEntry other day = %v, %v", has, err)
	}
}

func TestLeaderboardRank(t *testing.T) {
	dbp := openPool(t)
	users := repository.NewUserRepository(dbp)
	ctx := context.Background()

	addr := testAddress()
	u := &domain.User{Address: addr, Level: 1, Stage: "Spark"}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	u.TokensEarned = 1 << 40 // put it at the top
	if err := users.UpdateProgress(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}

	top, err := users.GetTopByTokens(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) == 0 || top[0].Address != addr {
		t.Fatalf("expected %s at rank 1, got %+v", addr, top)
	}

	rank, tokens, err := users.GetUserRank(ctx, addr)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank != 1 || tokens != 1<<40 {
		t.Fatalf("rank=%d tokens=%d", rank, tokens)
	}
}
