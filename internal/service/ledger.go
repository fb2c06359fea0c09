package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskfi_backend/internal/domain"
	"taskfi_backend/internal/logger"
	"taskfi_backend/internal/progression"
	"taskfi_backend/internal/ws"
)

const (
	dailyBaseXP     = 100
	streakBonusMid  = 50  // streak 3..6
	streakBonusHigh = 100 // streak 7+
	airdropTokens   = 200
)

// UserStore is what the ledger needs from the user repository.
type UserStore interface {
	GetByAddress(ctx context.Context, address string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdateProgress(ctx context.Context, u *domain.User) error
	MarkSignatureVerified(ctx context.Context, address string) (bool, error)
}

// RewardStore is the append-only reward journal.
type RewardStore interface {
	Append(ctx context.Context, e *domain.RewardEntry) error
}

// ChainGateway is the on-chain surface: balance check and treasury transfer.
type ChainGateway interface {
	BalanceOf(ctx context.Context, address string) (int64, error)
	Transfer(ctx context.Context, to string, tokens int64) (string, error)
}

// SignatureVerifier checks a personal-sign proof against a claimed address.
type SignatureVerifier interface {
	Verify(address, message, signature string) error
}

// Publisher pushes progression events to connected clients.
type Publisher interface {
	Publish(e ws.Event)
}

// Ledger owns every mutation of a user's progression record. All
// collaborators are injected so tests can run it against fakes.
type Ledger struct {
	users    UserStore
	rewards  RewardStore
	chain    ChainGateway
	verifier SignatureVerifier
	events   Publisher
}

func NewLedger(users UserStore, rewards RewardStore, chain ChainGateway, verifier SignatureVerifier, events Publisher) *Ledger {
	return &Ledger{users: users, rewards: rewards, chain: chain, verifier: verifier, events: events}
}

// Connect returns the record for an address, creating it on first contact.
func (l *Ledger) Connect(ctx context.Context, address string) (*domain.User, bool, error) {
	address = domain.NormalizeAddress(address)
	if !domain.ValidAddress(address) {
		return nil, false, fmt.Errorf("invalid address %q", address)
	}

	u, err := l.users.GetByAddress(ctx, address)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	u = &domain.User{
		Address: address,
		XP:      0,
		Level:   1,
		Stage:   string(progression.Spark),
	}
	if err := l.users.Create(ctx, u); err != nil {
		return nil, false, err
	}
	logger.Info("user created", "address", address)
	return u, true, nil
}

// LoginResult describes what a daily login granted.
type LoginResult struct {
	Granted   bool  `json:"granted"`
	XP        int64 `json:"xp_awarded"`
	Streak    int   `json:"streak"`
	Level     int   `json:"level"`
	LeveledUp bool  `json:"leveled_up"`
}

func dateOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// mutate loads the record, applies fn and writes it back with the version
// guard. A concurrent writer bumps the version; one reload-and-retry absorbs
// the common collision. fn returning false skips the write.
func (l *Ledger) mutate(ctx context.Context, address string, fn func(*domain.User) bool) (*domain.User, error) {
	for attempt := 0; ; attempt++ {
		u, err := l.users.GetByAddress(ctx, address)
		if err != nil {
			return nil, err
		}
		if !fn(u) {
			return u, nil
		}
		err = l.users.UpdateProgress(ctx, u)
		if err == nil {
			return u, nil
		}
		if attempt > 0 || !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
	}
}

// ApplyDailyLogin grants the once-per-day login XP. Replays on the same
// calendar day are no-ops.
func (l *Ledger) ApplyDailyLogin(ctx context.Context, address string, now time.Time) (*LoginResult, error) {
	// day arithmetic runs on the UTC calendar; AddDate in the caller's
	// zone can skip or repeat a UTC day across a DST shift
	now = now.UTC()
	today := dateOf(now)
	yesterday := dateOf(now.AddDate(0, 0, -1))

	var (
		granted  bool
		xp       int64
		streak   int
		oldLevel int
	)
	u, err := l.mutate(ctx, address, func(u *domain.User) bool {
		if u.LastLogin == today {
			granted = false
			return false
		}

		streak = 1
		if u.LastLogin == yesterday {
			streak = u.LoginStreak + 1
		}

		xp = dailyBaseXP
		switch {
		case streak >= 7:
			xp += streakBonusHigh
		case streak >= 3:
			xp += streakBonusMid
		}

		granted = true
		oldLevel = u.Level
		u.XP += xp
		u.Level = progression.Level(u.XP)
		u.Stage = string(progression.StageFor(u.Level))
		u.LoginStreak = streak
		u.LastLogin = today
		return true
	})
	if err != nil {
		return nil, err
	}
	if !granted {
		return &LoginResult{Granted: false, Streak: u.LoginStreak, Level: u.Level}, nil
	}
	if err := l.rewards.Append(ctx, &domain.RewardEntry{
		Address: u.Address,
		Source:  domain.SourceDailyLogin,
		Ref:     today,
		XP:      xp,
	}); err != nil {
		logger.Error("journal daily login", "address", u.Address, "err", err)
	}

	XPGranted.WithLabelValues(string(domain.SourceDailyLogin)).Add(float64(xp))
	l.events.Publish(ws.Event{Type: ws.EventStreak, Address: u.Address, Payload: map[string]any{
		"streak": streak, "xp_awarded": xp,
	}})
	l.publishLevelUp(u, oldLevel)

	return &LoginResult{
		Granted:   true,
		XP:        xp,
		Streak:    streak,
		Level:     u.Level,
		LeveledUp: u.Level != oldLevel,
	}, nil
}

// GrantXP applies a positive XP delta from a verified task or quiz. The
// caller owns at-most-once semantics; this only applies the delta.
func (l *Ledger) GrantXP(ctx context.Context, address string, amount int64, source domain.RewardSource, ref string) (*domain.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("xp amount must be positive, got %d", amount)
	}

	var oldLevel int
	u, err := l.mutate(ctx, address, func(u *domain.User) bool {
		oldLevel = u.Level
		u.XP += amount
		u.Level = progression.Level(u.XP)
		u.Stage = string(progression.StageFor(u.Level))
		return true
	})
	if err != nil {
		return nil, err
	}

	XPGranted.WithLabelValues(string(source)).Add(float64(amount))
	l.events.Publish(ws.Event{Type: ws.EventXPGranted, Address: u.Address, Payload: map[string]any{
		"amount": amount, "source": source, "ref": ref,
	}})
	l.publishLevelUp(u, oldLevel)

	return u, nil
}

// VerifyAndAirdrop runs the one-time proof-of-control airdrop: verify the
// personal-sign proof, then transfer the fixed grant unless the address
// already holds tokens.
func (l *Ledger) VerifyAndAirdrop(ctx context.Context, address, message, signature string) (txHash string, err error) {
	u, err := l.users.GetByAddress(ctx, address)
	if err != nil {
		return "", err
	}
	if u.SignatureVerified {
		return "", nil
	}

	if err := l.verifier.Verify(u.Address, message, signature); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrVerification, err)
	}

	balance, err := l.chain.BalanceOf(ctx, u.Address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransfer, err)
	}
	if balance > 0 {
		// already funded out of band, consume the grant without paying twice
		_, err = l.users.MarkSignatureVerified(ctx, u.Address)
		return "", err
	}

	txHash, err = l.chain.Transfer(ctx, u.Address, airdropTokens)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransfer, err)
	}

	first, err := l.users.MarkSignatureVerified(ctx, u.Address)
	if err != nil {
		return txHash, err
	}
	if !first {
		logger.Warn("airdrop transferred for already-verified record", "address", u.Address, "tx", txHash)
		return txHash, nil
	}

	if _, err := l.mutate(ctx, u.Address, func(u *domain.User) bool {
		u.TokensEarned += airdropTokens
		return true
	}); err != nil {
		logger.Error("record airdrop tokens", "address", u.Address, "err", err)
	}

	if err := l.rewards.Append(ctx, &domain.RewardEntry{
		Address: u.Address,
		Source:  domain.SourceAirdrop,
		Tokens:  airdropTokens,
		TxHash:  txHash,
	}); err != nil {
		logger.Error("journal airdrop", "address", u.Address, "err", err)
	}

	Airdrops.Inc()
	TokensPaid.WithLabelValues(string(domain.SourceAirdrop)).Add(airdropTokens)
	l.events.Publish(ws.Event{Type: ws.EventTokensPaid, Address: u.Address, Payload: map[string]any{
		"tokens": airdropTokens, "tx_hash": txHash,
	}})
	logger.Info("airdrop granted", "address", u.Address, "tx", txHash)
	return txHash, nil
}

// ApplyTaskReward books XP, tokens and the completed-task counter in one
// progression update. Called exactly once per verified task or passed quiz;
// the status transition upstream owns that guarantee.
func (l *Ledger) ApplyTaskReward(ctx context.Context, address string, tokens, xp int64, source domain.RewardSource, ref, txHash string) (*domain.User, error) {
	if xp <= 0 && tokens <= 0 {
		return nil, fmt.Errorf("reward must be positive, got tokens=%d xp=%d", tokens, xp)
	}

	var oldLevel int
	u, err := l.mutate(ctx, address, func(u *domain.User) bool {
		oldLevel = u.Level
		u.XP += xp
		u.Level = progression.Level(u.XP)
		u.Stage = string(progression.StageFor(u.Level))
		u.TokensEarned += tokens
		u.TasksCompleted++
		return true
	})
	if err != nil {
		return nil, err
	}
	if err := l.rewards.Append(ctx, &domain.RewardEntry{
		Address: u.Address,
		Source:  source,
		Ref:     ref,
		Tokens:  tokens,
		XP:      xp,
		TxHash:  txHash,
	}); err != nil {
		logger.Error("journal task reward", "address", u.Address, "ref", ref, "err", err)
	}

	XPGranted.WithLabelValues(string(source)).Add(float64(xp))
	if tokens > 0 {
		TokensPaid.WithLabelValues(string(source)).Add(float64(tokens))
		l.events.Publish(ws.Event{Type: ws.EventTokensPaid, Address: u.Address, Payload: map[string]any{
			"tokens": tokens, "source": source, "ref": ref, "tx_hash": txHash,
		}})
	}
	l.events.Publish(ws.Event{Type: ws.EventXPGranted, Address: u.Address, Payload: map[string]any{
		"amount": xp, "source": source, "ref": ref,
	}})
	l.publishLevelUp(u, oldLevel)

	return u, nil
}

// Progress is the derived view of a record for display.
type Progress struct {
	Address       string  `json:"address"`
	XP            int64   `json:"xp"`
	Level         int     `json:"level"`
	Stage         string  `json:"stage"`
	StageColor    string  `json:"stage_color"`
	StageEmoji    string  `json:"stage_emoji"`
	LevelProgress float64 `json:"level_progress"`
	TokensEarned  int64   `json:"tokens_earned"`
	InsightValue  int64   `json:"insight_value"`
	LoginStreak   int     `json:"login_streak"`
}

// GetProgress recomputes the display view from the stored record.
func (l *Ledger) GetProgress(ctx context.Context, address string) (*Progress, error) {
	u, err := l.users.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	stage := progression.StageFor(u.Level)
	return &Progress{
		Address:       u.Address,
		XP:            u.XP,
		Level:         u.Level,
		Stage:         string(stage),
		StageColor:    stage.Color(),
		StageEmoji:    stage.Emoji(),
		LevelProgress: progression.Progress(u.XP),
		TokensEarned:  u.TokensEarned,
		InsightValue:  progression.InsightValue(u.TokensEarned),
		LoginStreak:   u.LoginStreak,
	}, nil
}

func (l *Ledger) publishLevelUp(u *domain.User, oldLevel int) {
	if u.Level == oldLevel {
		return
	}
	LevelUps.Inc()
	l.events.Publish(ws.Event{Type: ws.EventLevelUp, Address: u.Address, Payload: map[string]any{
		"old_level": oldLevel,
		"new_level": u.Level,
		"stage":     u.Stage,
	}})
	logger.Info("level up", "address", u.Address, "from", oldLevel, "to", u.Level)
}
