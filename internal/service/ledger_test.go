package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskfi_backend/internal/domain"
	"taskfi_backend/internal/ws"
)

type fakeUsers struct {
	users     map[string]*domain.User
	conflicts int // force this many version conflicts before accepting writes
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*domain.User)}
}

func (f *fakeUsers) GetByAddress(ctx context.Context, address string) (*domain.User, error) {
	u, ok := f.users[domain.NormalizeAddress(address)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Create(ctx context.Context, u *domain.User) error {
	cp := *u
	f.users[u.Address] = &cp
	return nil
}

func (f *fakeUsers) UpdateProgress(ctx context.Context, u *domain.User) error {
	stored, ok := f.users[u.Address]
	if !ok {
		return domain.ErrNotFound
	}
	if f.conflicts > 0 {
		f.conflicts--
		stored.Version++
		return domain.ErrVersionConflict
	}
	if stored.Version != u.Version {
		return domain.ErrVersionConflict
	}
	cp := *u
	cp.Version++
	cp.SignatureVerified = stored.SignatureVerified
	f.users[u.Address] = &cp
	u.Version = cp.Version
	return nil
}

func (f *fakeUsers) MarkSignatureVerified(ctx context.Context, address string) (bool, error) {
	u, ok := f.users[domain.NormalizeAddress(address)]
	if !ok {
		return false, domain.ErrNotFound
	}
	if u.SignatureVerified {
		return false, nil
	}
	u.SignatureVerified = true
	return true, nil
}

type fakeRewards struct {
	entries []*domain.RewardEntry
}

func (f *fakeRewards) Append(ctx context.Context, e *domain.RewardEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

type fakeChain struct {
	balance   int64
	transfers []int64
	failNext  bool
}

func (f *fakeChain) BalanceOf(ctx context.Context, address string) (int64, error) {
	return f.balance, nil
}

func (f *fakeChain) Transfer(ctx context.Context, to string, tokens int64) (string, error) {
	if f.failNext {
		return "", errors.New("rpc down")
	}
	f.transfers = append(f.transfers, tokens)
	return "0xtxhash", nil
}

type fakeVerifier struct {
	fail bool
}

func (f *fakeVerifier) Verify(address, message, signature string) error {
	if f.fail {
		return errors.New("bad signature")
	}
	return nil
}

type fakeEvents struct {
	events []ws.Event
}

func (f *fakeEvents) Publish(e ws.Event) {
	f.events = append(f.events, e)
}

func (f *fakeEvents) ofType(t string) []ws.Event {
	var res []ws.Event
	for _, e := range f.events {
		if e.Type == t {
			res = append(res, e)
		}
	}
	return res
}

const testAddr = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func newTestLedger() (*Ledger, *fakeUsers, *fakeChain, *fakeVerifier, *fakeEvents, *fakeRewards) {
	users := newFakeUsers()
	rewards := &fakeRewards{}
	chain := &fakeChain{}
	verifier := &fakeVerifier{}
	events := &fakeEvents{}
	return NewLedger(users, rewards, chain, verifier, events), users, chain, verifier, events, rewards
}

func TestConnectCreatesRecord(t *testing.T) {
	l, _, _, _, _, _ := newTestLedger()
	ctx := context.Background()

	u, created, err := l.Connect(ctx, "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !created {
		t.Fatal("expected created on first connect")
	}
	if u.Address != testAddr {
		t.Fatalf("address not normalized: %s", u.Address)
	}
	if u.XP != 0 || u.Level != 1 || u.Stage != "Spark" {
		t.Fatalf("unexpected initial record %+v", u)
	}

	_, created, err = l.Connect(ctx, testAddr)
	if err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if created {
		t.Fatal("second connect must not create")
	}
}

func TestConnectRejectsBadAddress(t *testing.T) {
	l, _, _, _, _, _ := newTestLedger()
	if _, _, err := l.Connect(context.Background(), "not-an-address"); err == nil {
		t.Fatal("invalid address accepted")
	}
}

func TestDailyLoginIdempotentPerDay(t *testing.T) {
	l, _, _, _, _, _ := newTestLedger()
	ctx := context.Background()
	l.Connect(ctx, testAddr)

	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	first, err := l.ApplyDailyLogin(ctx, testAddr, now)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !first.Granted || first.XP != 100 || first.Streak != 1 {
		t.Fatalf("unexpected first login %+v", first)
	}

	second, err := l.ApplyDailyLogin(ctx, testAddr, now.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if second.Granted {
		t.Fatalf("same-day replay granted XP: %+v", second)
	}
}

func TestDailyLoginStreakRules(t *testing.T) {
	l, users, _, _, _, _ := newTestLedger()
	ctx := context.Background()
	l.Connect(ctx, testAddr)

	// consecutive days increment
	users.users[testAddr].LastLogin = "2025-01-01"
	users.users[testAddr].LoginStreak = 5
	res, err := l.ApplyDailyLogin(ctx, testAddr, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Streak != 6 || res.XP != 150 {
		t.Fatalf("consecutive login: got streak=%d xp=%d, want 6/150", res.Streak, res.XP)
	}
	if got := users.users[testAddr].LastLogin; got != "2025-01-02" {
		t.Fatalf("last login not updated: %s", got)
	}

	// a gap resets to 1
	res, err = l.ApplyDailyLogin(ctx, testAddr, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("login after gap: %v", err)
	}
	if res.Streak != 1 || res.XP != 100 {
		t.Fatalf("gap login: got streak=%d xp=%d, want 1/100", res.Streak, res.XP)
	}
}

func TestDailyLoginCallerZoneIgnored(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	l, users, _, _, _, _ := newTestLedger()
	ctx := context.Background()
	l.Connect(ctx, testAddr)
	users.users[testAddr].LastLogin = "2025-10-26"
	users.users[testAddr].LoginStreak = 4

	// 00:30 local on the night the clocks fall back; UTC yesterday is
	// still 2025-10-26 and the streak must survive
	res, err := l.ApplyDailyLogin(ctx, testAddr, time.Date(2025, 10, 27, 0, 30, 0, 0, loc))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Streak != 5 || res.XP != 150 {
		t.Fatalf("got streak=%d xp=%d, want 5/150", res.Streak, res.XP)
	}
}

func TestDailyLoginRewardTiers(t *testing.T) {
	cases := []struct {
		streak int
		wantXP int64
	}{
		{1, 100},
		{2, 100},
		{3, 150},
		{6, 150},
		{7, 200},
		{10, 200}, // plateau, not unbounded
	}
	for _, c := range cases {
		l, users, _, _, _, _ := newTestLedger()
		ctx := context.Background()
		l.Connect(ctx, testAddr)
		users.users[testAddr].LastLogin = "2025-01-01"
		users.users[testAddr].LoginStreak = c.streak - 1

		res, err := l.ApplyDailyLogin(ctx, testAddr, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("streak %d: %v", c.streak, err)
		}
		if res.Streak != c.streak || res.XP != c.wantXP {
			t.Fatalf("streak %d: got streak=%d xp=%d, want xp=%d", c.streak, res.Streak, res.XP, c.wantXP)
		}
	}
}

func TestGrantXPRejectsNonPositive(t *testing.T) {
	l, _, _, _, _, _ := newTestLedger()
	ctx := context.Background()
	l.Connect(ctx, testAddr)

	if _, err := l.GrantXP(ctx, testAddr, 0, domain.SourceTask, "t1"); err == nil {
		t.Fatal("zero amount accepted")
	}
	if _, err := l.GrantXP(ctx, testAddr, -10, domain.SourceTask, "t1"); err == nil {
		t.Fatal("negative amount accepted")
	}
}

func TestGrantXPRetriesOnVersionConflict(t *testing.T) {
	l, users, _, _, _, _ := newTestLedger()
	ctx := context.Background()
	l.Connect(ctx, testAddr)

	users.conflicts = 1
	u, err := l.GrantXP(ctx, testAddr, 50, domain.SourceTask, "t1")
	if err != nil {
		t.Fatalf("grant with one conflict: %v", err)
	}
	if u.XP != 50 {
		t.Fatalf("xp = %d, want 50", u.XP)
	}

	// two consecutive conflicts exhaust the single retry
	users.conflicts = 2
	if _, err := l.GrantXP(ctx, testAddr, 50, domain.SourceTask, "t2"); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("want ErrVersionConflict, got %v", err)
	}
}

func TestGrantXPLevelUpEvents(t *testing.T) {
	l, _, _, _, events, _ := newTestLedger()
	ctx := context.Background()
	l.Connect(ctx, testAddr)

	u, err := l.GrantXP(ctx, testAddr, 250, domain.SourceTask, "t1")
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if u.XP != 250 || u.Level != 2 || u.Stage != "Spark" {
		t.Fatalf("after 250 xp: %+v", u)
	}

	u, err = l.GrantXP(ctx, testAddr, 700, domain.SourceTask, "t2")
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if u.XP != 950 || u.Level != 4 || u.Stage != "Glow" {
		t.Fatalf("after 950 xp: %+v", u)
	}

	if got := len(events.ofType(ws.EventLevelUp)); got != 2 {
		t.Fatalf("level-up events = %d, want 2", got)
	}
}

func TestVerifyAndAirdrop(t *testing.T) {
	l, users, chain, _, _, rewards := newTestLedger()
	ctx := context.Background()
	l.Connect(ctx, testAddr)

	tx, err := l.VerifyAndAirdrop(ctx, testAddr, "msg", "0xsig")
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if tx == "" {
		t.Fatal("expected tx hash")
	}
	if len(chain.transfers) != 1 || chain.transfers[0] != 200 {
		t.Fatalf("unexpected transfers %v", chain.transfers)
	}
	if !users.users[testAddr].SignatureVerified {
		t.Fatal("record not marked verified")
	}
	if users.users[testAddr].TokensEarned != 200 {
		t.Fatalf("tokens earned = %d, want 200", users.users[testAddr].TokensEarned)
	}
	if len(rewards.entries) == 0 || rewards.entries[len(rewards.entries)-1].Source != domain.SourceAirdrop {
		t.Fatal("airdrop not journaled")
	}

	// replay: verified record, no second transfer
	tx, err = l.VerifyAndAirdrop(ctx, testAddr, "msg", "0xsig")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if tx != "" || len(chain.transfers) != 1 {
		t.Fatalf("replay transferred again: tx=%q transfers=%v", tx, chain.transfers)
	}
}

func TestAirdropSkipsFundedAddress(t *testing.T) {
	l, users, chain, _, _, _ := newTestLedger()
	ctx := context.Background()
	l.Connect(ctx, testAddr)
	chain.balance = 50

	tx, err := l.VerifyAndAirdrop(ctx, testAddr, "msg", "0xsig")
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if tx != "" || len(chain.transfers) != 0 {
		t.Fatal("funded address got a transfer")
	}
	if !users.users[testAddr].SignatureVerified {
		t.Fatal("funded address not marked verified")
	}
}

func TestAirdropBadSignature(t *testing.T) {
	l, users, chain, verifier, _, _ := newTestLedger()
	ctx := context.Background()
	l.Connect(ctx, testAddr)
	verifier.fail = true

	_, err := l.VerifyAndAirdrop(ctx, testAddr, "msg", "0xsig")
	if !errors.Is(err, domain.ErrVerification) {
		t.Fatalf("want ErrVerification, got %v", err)
	}
	if len(chain.transfers) != 0 {
		t.Fatal("transfer issued despite bad signature")
	}
	if users.users[testAddr].SignatureVerified {
		t.Fatal("record marked verified despite bad signature")
	}
}

func TestAirdropTransferFailureLeavesRecordUnchanged(t *testing.T) {
	l, users, chain, _, _, _ := newTestLedger()
	ctx := context.Background()
	l.Connect(ctx, testAddr)
	chain.failNext = true

	_, err := l.VerifyAndAirdrop(ctx, testAddr, "msg", "0xsig")
	if !errors.Is(err, domain.ErrTransfer) {
		t.Fatalf("want ErrTransfer, got %v", err)
	}
	if users.users[testAddr].SignatureVerified {
		t.Fatal("record marked verified after failed transfer")
	}

	// operation is retryable once the chain recovers
	chain.failNext = false
	if _, err := l.VerifyAndAirdrop(ctx, testAddr, "msg", "0xsig"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !users.users[testAddr].SignatureVerified {
		t.Fatal("retry did not verify record")
	}
}

func TestGetProgress(t *testing.T) {
	l, users, _, _, _, _ := newTestLedger()
	ctx := context.Background()
	l.Connect(ctx, testAddr)
	users.users[testAddr].XP = 950
	users.users[testAddr].Level = 4
	users.users[testAddr].TokensEarned = 40

	p, err := l.GetProgress(ctx, testAddr)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Stage != "Glow" || p.StageColor != "green" {
		t.Fatalf("unexpected stage view %+v", p)
	}
	if p.InsightValue != 200 {
		t.Fatalf("insight value = %d, want 200", p.InsightValue)
	}
	if p.LevelProgress < 0 || p.LevelProgress >= 100 {
		t.Fatalf("level progress out of range: %f", p.LevelProgress)
	}
}
