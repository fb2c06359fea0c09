package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"taskfi_backend/internal/domain"
	"taskfi_backend/internal/logger"
	"taskfi_backend/internal/oracle"
	"taskfi_backend/internal/ws"
)

// TaskStore is what the task machine needs from persistence.
type TaskStore interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListByAddress(ctx context.Context, address string) ([]*domain.Task, error)
	Transition(ctx context.Context, id string, from, to domain.TaskStatus, at time.Time) (bool, error)
	SetReward(ctx context.Context, id string, tokens, xp int64) error
	Delete(ctx context.Context, id, address string) error
}

// QuizStore records scored quiz attempts.
type QuizStore interface {
	Record(ctx context.Context, a *domain.QuizAttempt) error
	HasPassed(ctx context.Context, address, quizID string) (bool, error)
	DeleteAttempt(ctx context.Context, id int64) error
}

// Oracle is the external verification service.
type Oracle interface {
	VerifyLeetCodeTask(ctx context.Context, address, leetcodeUsername, titleSlug string) (*oracle.Result, error)
	VerifyQuiz(ctx context.Context, address, quizID string, answers []int) (*oracle.Result, error)
	VerifyLeetCodeAccount(ctx context.Context, address, leetcodeUsername, token string) (*oracle.Result, error)
}

// LeetcodeUserStore is the slice of the user repo the leetcode account
// flow touches.
type LeetcodeUserStore interface {
	GetByAddress(ctx context.Context, address string) (*domain.User, error)
	SetVerificationToken(ctx context.Context, address, token string) error
	MarkLeetcodeVerified(ctx context.Context, address, leetcodeUsername string) error
}

var (
	ErrTaskNotCompleted  = errors.New("task is not in completed state")
	ErrOracleRejected    = errors.New("oracle rejected the submission")
	ErrQuizAlreadyPassed = errors.New("quiz already passed")
	ErrLeetcodeUnlinked  = errors.New("leetcode account not verified")
)

// TaskService runs the task state machine and hands verified rewards to the
// ledger.
type TaskService struct {
	tasks   TaskStore
	quizzes QuizStore
	users   LeetcodeUserStore
	ledger  *Ledger
	oracle  Oracle
	events  Publisher
}

func NewTaskService(tasks TaskStore, quizzes QuizStore, users LeetcodeUserStore, ledger *Ledger, orc Oracle, events Publisher) *TaskService {
	return &TaskService{tasks: tasks, quizzes: quizzes, users: users, ledger: ledger, oracle: orc, events: events}
}

func newTaskID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return "task_" + hex.EncodeToString(buf)
}

// CreateTask opens a pending task with its payout fixed from the server
// reward tables.
func (s *TaskService) CreateTask(ctx context.Context, address string, kind domain.TaskKind, title, description string, complexity int, difficulty, externalRef string) (*domain.Task, error) {
	if !domain.ValidTaskKind(kind) {
		return nil, fmt.Errorf("unknown task kind %q", kind)
	}
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	tokens, xp, err := domain.RewardFor(kind, complexity, difficulty)
	if err != nil {
		return nil, err
	}

	t := &domain.Task{
		ID:          newTaskID(),
		Address:     domain.NormalizeAddress(address),
		Kind:        kind,
		Title:       title,
		Description: description,
		Status:      domain.TaskPending,
		Complexity:  complexity,
		Difficulty:  difficulty,
		ExternalRef: externalRef,
		Tokens:      tokens,
		XP:          xp,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskService) ListTasks(ctx context.Context, address string) ([]*domain.Task, error) {
	return s.tasks.ListByAddress(ctx, address)
}

func (s *TaskService) DeleteTask(ctx context.Context, address, id string) error {
	return s.tasks.Delete(ctx, id, address)
}

// CompleteTask moves a pending task to completed. Verification and payout
// happen in a separate step.
func (s *TaskService) CompleteTask(ctx context.Context, address, id string) (*domain.Task, error) {
	t, err := s.ownedTask(ctx, address, id)
	if err != nil {
		return nil, err
	}

	moved, err := s.tasks.Transition(ctx, t.ID, domain.TaskPending, domain.TaskCompleted, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !moved && t.Status != domain.TaskCompleted {
		return nil, fmt.Errorf("task %s is %s, cannot complete", t.ID, t.Status)
	}

	t, err = s.tasks.GetByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ws.Event{Type: ws.EventTaskUpdated, Address: t.Address, Payload: t})
	return t, nil
}

// VerifyTask settles a completed task. LeetCode tasks go through the oracle;
// other kinds verify directly. The completed -> verified transition is the
// at-most-once guard: only the request that wins it pays the reward.
func (s *TaskService) VerifyTask(ctx context.Context, address, id string) (*domain.Task, error) {
	t, err := s.ownedTask(ctx, address, id)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TaskCompleted {
		return nil, ErrTaskNotCompleted
	}

	txHash := ""
	if t.Kind == domain.TaskLeetcode {
		u, err := s.users.GetByAddress(ctx, t.Address)
		if err != nil {
			return nil, err
		}
		if !u.LeetcodeVerified {
			return nil, ErrLeetcodeUnlinked
		}

		res, err := s.oracle.VerifyLeetCodeTask(ctx, t.Address, u.LeetcodeUsername, t.ExternalRef)
		if err != nil {
			return nil, err
		}
		if !res.Success || !res.Passed {
			return nil, fmt.Errorf("%w: %s", ErrOracleRejected, res.Message)
		}
		txHash = res.TxHash
		if res.Reward > 0 && res.Reward != t.Tokens {
			if err := s.tasks.SetReward(ctx, t.ID, res.Reward, t.XP); err != nil {
				logger.Error("override task reward", "task", t.ID, "err", err)
			} else {
				t.Tokens = res.Reward
			}
		}
	}

	won, err := s.tasks.Transition(ctx, t.ID, domain.TaskCompleted, domain.TaskVerified, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !won {
		// a concurrent request already settled this task
		return s.tasks.GetByID(ctx, t.ID)
	}

	if _, err := s.ledger.ApplyTaskReward(ctx, t.Address, t.Tokens, t.XP, domain.SourceTask, t.ID, txHash); err != nil {
		// give the claim back so a retry can pay out
		if _, rbErr := s.tasks.Transition(ctx, t.ID, domain.TaskVerified, domain.TaskCompleted, time.Now().UTC()); rbErr != nil {
			logger.Error("roll back task verification", "task", t.ID, "err", rbErr)
		}
		logger.Error("apply task reward", "task", t.ID, "err", err)
		return nil, err
	}

	t, err = s.tasks.GetByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ws.Event{Type: ws.EventTaskUpdated, Address: t.Address, Payload: t})
	return t, nil
}

// SubmitQuiz scores a quiz through the oracle and pays out on the first
// pass. Repeat passes record the attempt but pay nothing.
func (s *TaskService) SubmitQuiz(ctx context.Context, address, quizID string, answers []int) (*domain.QuizAttempt, error) {
	address = domain.NormalizeAddress(address)

	already, err := s.quizzes.HasPassed(ctx, address, quizID)
	if err != nil {
		return nil, err
	}

	res, err := s.oracle.VerifyQuiz(ctx, address, quizID, answers)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("%w: %s", ErrOracleRejected, res.Message)
	}

	attempt := &domain.QuizAttempt{
		Address:        address,
		QuizID:         quizID,
		Score:          res.Score,
		TotalQuestions: res.TotalQuestions,
		Passed:         res.Passed,
	}
	if res.Passed && !already {
		attempt.Reward = res.Reward
	}
	if err := s.quizzes.Record(ctx, attempt); err != nil {
		return nil, err
	}

	if attempt.Reward > 0 {
		// the oracle's reward value is the grant amount
		if _, err := s.ledger.GrantXP(ctx, address, attempt.Reward, domain.SourceQuiz, quizID); err != nil {
			// the recorded pass blocks future payouts, take it back
			if rbErr := s.quizzes.DeleteAttempt(ctx, attempt.ID); rbErr != nil {
				logger.Error("roll back quiz attempt", "attempt", attempt.ID, "err", rbErr)
			}
			return nil, err
		}
	}
	return attempt, nil
}

// RequestLeetcodeVerification issues the token the user pastes into their
// LeetCode profile summary.
func (s *TaskService) RequestLeetcodeVerification(ctx context.Context, address string) (string, error) {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	token := "tf-" + hex.EncodeToString(buf)
	if err := s.users.SetVerificationToken(ctx, address, token); err != nil {
		return "", err
	}
	return token, nil
}

// ConfirmLeetcodeVerification asks the oracle whether the token showed up in
// the claimed profile and links the account on success.
func (s *TaskService) ConfirmLeetcodeVerification(ctx context.Context, address, leetcodeUsername string) error {
	u, err := s.users.GetByAddress(ctx, address)
	if err != nil {
		return err
	}
	if u.VerificationToken == "" {
		return fmt.Errorf("no verification in progress for %s", address)
	}

	res, err := s.oracle.VerifyLeetCodeAccount(ctx, u.Address, leetcodeUsername, u.VerificationToken)
	if err != nil {
		return err
	}
	if !res.Success || !res.Passed {
		return fmt.Errorf("%w: %s", ErrOracleRejected, res.Message)
	}
	return s.users.MarkLeetcodeVerified(ctx, u.Address, leetcodeUsername)
}

func (s *TaskService) ownedTask(ctx context.Context, address, id string) (*domain.Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Address != domain.NormalizeAddress(address) {
		return nil, domain.ErrNotFound
	}
	return t, nil
}
