package domain

import "time"

// RewardSource tags where a reward entry came from.
type RewardSource string

const (
	SourceDailyLogin RewardSource = "daily_login"
	SourceTask       RewardSource = "task"
	SourceQuiz       RewardSource = "quiz"
	SourceAirdrop    RewardSource = "airdrop"
	SourceManual     RewardSource = "manual"
)

// RewardEntry is one row in the append-only reward journal.
type RewardEntry struct {
	ID        int64        `db:"id" json:"id"`
	Address   string       `db:"address" json:"address"`
	Source    RewardSource `db:"source" json:"source"`
	Ref       string       `db:"ref" json:"ref,omitempty"` // task id, quiz id, login date
	Tokens    int64        `db:"tokens" json:"tokens"`
	XP        int64        `db:"xp" json:"xp"`
	TxHash    string       `db:"tx_hash" json:"tx_hash,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// QuizAttempt records a single scored quiz run.
type QuizAttempt struct {
	ID             int64     `db:"id" json:"id"`
	Address        string    `db:"address" json:"address"`
	QuizID         string    `db:"quiz_id" json:"quiz_id"`
	Score          int       `db:"score" json:"score"`
	TotalQuestions int       `db:"total_questions" json:"total_questions"`
	Passed         bool      `db:"passed" json:"passed"`
	Reward         int64     `db:"reward" json:"reward"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
