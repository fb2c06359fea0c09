package domain

import (
	"fmt"
	"time"
)

// TaskKind is the closed set of task categories the ledger rewards.
type TaskKind string

const (
	TaskLeetcode  TaskKind = "leetcode"
	TaskCourse    TaskKind = "course"
	TaskVideo     TaskKind = "video"
	TaskContest   TaskKind = "contest"
	TaskAgentSale TaskKind = "agent_sale"
)

// ValidTaskKind reports whether k is one of the known kinds.
func ValidTaskKind(k TaskKind) bool {
	switch k {
	case TaskLeetcode, TaskCourse, TaskVideo, TaskContest, TaskAgentSale:
		return true
	}
	return false
}

// TaskStatus moves pending -> completed -> verified, never backwards.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskVerified  TaskStatus = "verified"
)

// Task is a unit of work a user can earn rewards for.
type Task struct {
	ID          string     `db:"id" json:"id"`
	Address     string     `db:"address" json:"address"`
	Kind        TaskKind   `db:"kind" json:"kind"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	Status      TaskStatus `db:"status" json:"status"`
	Complexity  int        `db:"complexity" json:"complexity"` // 1..3
	Difficulty  string     `db:"difficulty" json:"difficulty,omitempty"`
	ExternalRef string     `db:"external_ref" json:"external_ref,omitempty"` // slug, URL or contest id
	Tokens      int64      `db:"tokens" json:"tokens"`
	XP          int64      `db:"xp" json:"xp"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	VerifiedAt  *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}

type kindReward struct {
	tokens int64
	xp     int64
}

// Base reward per kind, scaled by complexity (1..3). LeetCode tasks ignore
// complexity and pay per difficulty instead.
var kindRewards = map[TaskKind]kindReward{
	TaskLeetcode:  {tokens: 10, xp: 100},
	TaskCourse:    {tokens: 8, xp: 120},
	TaskVideo:     {tokens: 5, xp: 80},
	TaskContest:   {tokens: 15, xp: 150},
	TaskAgentSale: {tokens: 20, xp: 100},
}

var leetcodeTokens = map[string]int64{
	"easy":   5,
	"medium": 10,
	"hard":   20,
}

// RewardFor computes the payout for a task from server-side tables.
// Clients never pick their own reward amount.
func RewardFor(kind TaskKind, complexity int, difficulty string) (tokens, xp int64, err error) {
	base, ok := kindRewards[kind]
	if !ok {
		return 0, 0, fmt.Errorf("unknown task kind %q", kind)
	}
	if kind == TaskLeetcode {
		t, ok := leetcodeTokens[difficulty]
		if !ok {
			return 0, 0, fmt.Errorf("unknown leetcode difficulty %q", difficulty)
		}
		return t, base.xp, nil
	}
	if complexity < 1 || complexity > 3 {
		return 0, 0, fmt.Errorf("complexity %d out of range", complexity)
	}
	return base.tokens * int64(complexity), base.xp * int64(complexity), nil
}
