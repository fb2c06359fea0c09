package domain

import (
	"strings"
	"time"
)

// User is the progression ledger record for one wallet address.
// The address is the primary key, always stored lowercase.
type User struct {
	Address           string    `db:"address" json:"address"`
	Username          string    `db:"username" json:"username,omitempty"`
	AvatarURL         string    `db:"avatar_url" json:"avatar_url,omitempty"`
	XP                int64     `db:"xp" json:"xp"`
	Level             int       `db:"level" json:"level"`
	Stage             string    `db:"stage" json:"stage"`
	TokensEarned      int64     `db:"tokens_earned" json:"tokens_earned"`
	TasksCompleted    int       `db:"tasks_completed" json:"tasks_completed"`
	TimeSaved         int64     `db:"time_saved" json:"time_saved"` // hours
	LoginStreak       int       `db:"login_streak" json:"login_streak"`
	LastLogin         string    `db:"last_login" json:"last_login,omitempty"` // YYYY-MM-DD
	SignatureVerified bool      `db:"signature_verified" json:"signature_verified"`
	LeetcodeVerified  bool      `db:"leetcode_verified" json:"leetcode_verified"`
	LeetcodeUsername  string    `db:"leetcode_username" json:"leetcode_username,omitempty"`
	VerificationToken string    `db:"verification_token" json:"-"`
	Version           int64     `db:"version" json:"-"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// NormalizeAddress lowercases a wallet address. Every path that keys on an
// address must go through this before touching the store.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidAddress checks the 0x-prefixed 20-byte hex form.
func ValidAddress(address string) bool {
	if len(address) != 42 || address[0] != '0' || (address[1] != 'x' && address[1] != 'X') {
		return false
	}
	for _, r := range address[2:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
