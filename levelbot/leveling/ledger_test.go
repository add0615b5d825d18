package leveling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/levelforge/levelbot/levelbot/database/models"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
	"github.com/levelforge/levelbot/levelbot/economy/events"
)

type fakeGuilds struct {
	repositories.GuildConfigRepository
	cfg *models.GuildConfig
}

func (f *fakeGuilds) GetOrCreate(_ context.Context, _ string) (*models.GuildConfig, error) {
	return f.cfg, nil
}

type fakeUsers struct {
	repositories.UserProgressionRepository
	p        *models.UserProgression
	getCalls int
	saves    int
	saveErr  error
}

func (f *fakeUsers) GetOrCreate(_ context.Context, _, _ string) (*models.UserProgression, error) {
	f.getCalls++
	return f.p, nil
}

func (f *fakeUsers) Save(_ context.Context, _ *models.UserProgression) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	return nil
}

type fakeComposer struct {
	app     events.Application
	tokens  events.Application
	appErr  error
	contrib events.Contribution
}

func (f *fakeComposer) ApplyEventRewards(_ context.Context, _, _ string, amount int64, rewardType, _ string) (events.Application, error) {
	if f.appErr != nil {
		return events.Application{Amount: amount, Multiplier: 1}, f.appErr
	}
	if rewardType == events.RewardTokens {
		if f.tokens.Applied {
			return f.tokens, nil
		}
		return events.Application{Amount: amount, Multiplier: 1}, nil
	}
	if f.app.Amount == 0 && !f.app.Applied {
		return events.Application{Amount: amount, Multiplier: 1}, nil
	}
	return f.app, nil
}

func (f *fakeComposer) GetActiveMultiplier(_ context.Context, _, _ string) (events.Contribution, error) {
	if f.contrib.Multiplier == 0 {
		return events.Contribution{Multiplier: 1}, nil
	}
	return f.contrib, nil
}

func testGuildConfig() *models.GuildConfig {
	return &models.GuildConfig{
		GuildID:    "g1",
		Enabled:    true,
		MessageXP:  models.MessageXPConfig{Min: 15, Max: 25, CooldownSeconds: 60},
		Curve:      models.CurveConfig{BaseXP: 100, GrowthRate: 1.5},
		CoinsPerXP: 0.1,
	}
}

func newTestLedger(cfg *models.GuildConfig, p *models.UserProgression, composer EventComposer) (*Ledger, *fakeUsers) {
	users := &fakeUsers{p: p}
	l := NewLedger(&fakeGuilds{cfg: cfg}, users, composer)
	l.roll = func(min, _ int64) int64 { return min }
	l.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return l, users
}

func freshProgression() *models.UserProgression {
	return &models.UserProgression{
		GuildID:         "g1",
		UserID:          "u1",
		Level:           1,
		BoostMultiplier: 1,
		DailyResetAt:    time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC),
	}
}

func messageRequest() RewardRequest {
	return RewardRequest{GuildID: "g1", UserID: "u1", ChannelID: "c1", Source: SourceMessage}
}

func TestApplyRewardIgnoredWritesNothing(t *testing.T) {
	cfg := testGuildConfig()
	cfg.IgnoredChannels = []string{"c1"}

	l, users := newTestLedger(cfg, freshProgression(), &fakeComposer{})

	res, err := l.ApplyReward(context.Background(), messageRequest())
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.Outcome != OutcomeIgnored {
		t.Errorf("Outcome = %q, want ignored", res.Outcome)
	}
	if users.getCalls != 0 || users.saves != 0 {
		t.Errorf("ignored actor touched user state: gets=%d saves=%d", users.getCalls, users.saves)
	}
}

func TestApplyRewardDisabledGuildIsIgnored(t *testing.T) {
	cfg := testGuildConfig()
	cfg.Enabled = false

	l, users := newTestLedger(cfg, freshProgression(), &fakeComposer{})

	res, err := l.ApplyReward(context.Background(), messageRequest())
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.Outcome != OutcomeIgnored || users.saves != 0 {
		t.Errorf("disabled guild: outcome=%q saves=%d, want ignored with no writes", res.Outcome, users.saves)
	}
}

func TestApplyRewardNoXPStillWrites(t *testing.T) {
	cfg := testGuildConfig()
	cfg.NoXPRoles = []string{"r-muted"}

	p := freshProgression()
	l, users := newTestLedger(cfg, p, &fakeComposer{})

	req := messageRequest()
	req.RoleIDs = []string{"r-muted"}

	res, err := l.ApplyReward(context.Background(), req)
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.Outcome != OutcomeNoXP {
		t.Errorf("Outcome = %q, want no_xp", res.Outcome)
	}
	if res.XPFinal != 0 || p.XP != 0 {
		t.Errorf("no-XP actor gained XP: final=%d total=%d", res.XPFinal, p.XP)
	}
	if p.DailyMessages != 1 {
		t.Errorf("DailyMessages = %d, want 1 (no-XP still counts activity)", p.DailyMessages)
	}
	if users.saves != 1 {
		t.Errorf("saves = %d, want 1", users.saves)
	}
}

func TestApplyRewardComposesMultipliers(t *testing.T) {
	cfg := testGuildConfig()
	cfg.SpecialChannels = []models.ChannelMultiplier{{ChannelID: "c1", Multiplier: 2.0}}

	p := freshProgression()
	future := time.Date(2026, 9, 1, 13, 0, 0, 0, time.UTC)
	p.ActiveItems = []models.BoostEntry{{
		ItemType:   models.ItemTypeUserBoost,
		Active:     true,
		ExpiresAt:  &future,
		Multiplier: 2.0,
	}}

	composer := &fakeComposer{app: events.Application{Amount: 120, Multiplier: 1.5, Applied: true}}
	l, _ := newTestLedger(cfg, p, composer)
	l.roll = func(_, _ int64) int64 { return 20 }

	res, err := l.ApplyReward(context.Background(), messageRequest())
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}

	// base 20, channel 2.0, personal boost 2.0 -> 80; event 1.5 -> 120.
	if res.XPBase != 20 || res.XPFinal != 120 {
		t.Errorf("xp = %d -> %d, want 20 -> 120", res.XPBase, res.XPFinal)
	}
	if res.PersonalMultiplier != 2.0 || res.GuildMultiplier != 2.0 || res.EventMultiplier != 1.5 {
		t.Errorf("multipliers = personal %f guild %f event %f, want 2.0/2.0/1.5",
			res.PersonalMultiplier, res.GuildMultiplier, res.EventMultiplier)
	}
	if !res.LeveledUp || res.NewLevel != 2 {
		t.Errorf("level = %d leveledUp=%v, want level 2 after crossing 100 XP", res.NewLevel, res.LeveledUp)
	}
	if res.Coins != 12 {
		t.Errorf("Coins = %d, want floor(120*0.1) = 12", res.Coins)
	}
	if p.XP != 120 || p.DailyXP != 120 {
		t.Errorf("progression xp=%d daily=%d, want 120/120", p.XP, p.DailyXP)
	}
}

func TestApplyRewardEventFailureDegradesToNeutral(t *testing.T) {
	cfg := testGuildConfig()
	p := freshProgression()

	composer := &fakeComposer{appErr: errors.New("events collection unavailable")}
	l, users := newTestLedger(cfg, p, composer)
	l.roll = func(_, _ int64) int64 { return 20 }

	res, err := l.ApplyReward(context.Background(), messageRequest())
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.XPFinal != 20 || res.EventMultiplier != 1 || res.EventBonus != 0 {
		t.Errorf("res = %+v, want neutral event contribution with base reward kept", res)
	}
	if users.saves != 1 {
		t.Errorf("saves = %d, want 1 (reward still applied)", users.saves)
	}
}

func TestApplyRewardDailyXPCap(t *testing.T) {
	cfg := testGuildConfig()
	cfg.MaxDailyXP = 100

	p := freshProgression()
	p.DailyXP = 90

	l, _ := newTestLedger(cfg, p, &fakeComposer{})
	l.roll = func(_, _ int64) int64 { return 25 }

	res, err := l.ApplyReward(context.Background(), messageRequest())
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.XPFinal != 10 || !res.DailyCapped {
		t.Errorf("final = %d capped=%v, want clamped to 10 with DailyCapped", res.XPFinal, res.DailyCapped)
	}
	if p.DailyXP != 100 {
		t.Errorf("DailyXP = %d, want exactly the cap 100", p.DailyXP)
	}
}

func TestApplyRewardMessageCountCap(t *testing.T) {
	cfg := testGuildConfig()
	cfg.MaxMessagesPerDay = 2

	p := freshProgression()
	p.DailyMessages = 2

	l, users := newTestLedger(cfg, p, &fakeComposer{})

	res, err := l.ApplyReward(context.Background(), messageRequest())
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.XPFinal != 0 || !res.DailyCapped {
		t.Errorf("final = %d capped=%v, want 0 past message cap", res.XPFinal, res.DailyCapped)
	}
	if p.DailyMessages != 3 {
		t.Errorf("DailyMessages = %d, want counter still advancing", p.DailyMessages)
	}
	if users.saves != 1 {
		t.Errorf("saves = %d, want 1", users.saves)
	}
}

func TestApplyRewardDailyWindowRollsOver(t *testing.T) {
	cfg := testGuildConfig()
	cfg.MaxDailyXP = 100

	p := freshProgression()
	p.DailyXP = 100
	p.DailyMessages = 50
	p.DailyResetAt = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	l, _ := newTestLedger(cfg, p, &fakeComposer{})
	l.roll = func(_, _ int64) int64 { return 20 }

	res, err := l.ApplyReward(context.Background(), messageRequest())
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.XPFinal != 20 || res.DailyCapped {
		t.Errorf("final = %d capped=%v, want full reward after window rollover", res.XPFinal, res.DailyCapped)
	}
	if p.DailyMessages != 1 {
		t.Errorf("DailyMessages = %d, want reset to 1", p.DailyMessages)
	}
}

func TestApplyRewardPersistenceErrorPropagates(t *testing.T) {
	cfg := testGuildConfig()
	p := freshProgression()

	l, users := newTestLedger(cfg, p, &fakeComposer{})
	users.saveErr = errors.New("write concern failed")

	_, err := l.ApplyReward(context.Background(), messageRequest())
	if !errors.Is(err, users.saveErr) {
		t.Fatalf("err = %v, want the save error unchanged", err)
	}
}

func TestApplyRewardGrantsTokenBonus(t *testing.T) {
	cfg := testGuildConfig()
	p := freshProgression()

	composer := &fakeComposer{tokens: events.Application{Amount: 40, Multiplier: 1, Bonus: 40, Applied: true}}
	l, _ := newTestLedger(cfg, p, composer)
	l.roll = func(_, _ int64) int64 { return 20 }

	res, err := l.ApplyReward(context.Background(), messageRequest())
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.Tokens != 40 || p.Tokens != 40 {
		t.Errorf("tokens = result %d / balance %d, want 40/40", res.Tokens, p.Tokens)
	}
	if res.XPFinal != 20 {
		t.Errorf("XPFinal = %d, token drops must not change the XP award", res.XPFinal)
	}
}

func TestApplyRewardNoTokensForNoXPActor(t *testing.T) {
	cfg := testGuildConfig()
	cfg.NoXPRoles = []string{"r-muted"}
	p := freshProgression()

	composer := &fakeComposer{tokens: events.Application{Amount: 40, Multiplier: 1, Bonus: 40, Applied: true}}
	l, _ := newTestLedger(cfg, p, composer)

	req := messageRequest()
	req.RoleIDs = []string{"r-muted"}

	res, err := l.ApplyReward(context.Background(), req)
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.Tokens != 0 || p.Tokens != 0 {
		t.Errorf("tokens = result %d / balance %d, want none for a no-XP actor", res.Tokens, p.Tokens)
	}
}

func TestApplyRewardVoiceFixedAmount(t *testing.T) {
	cfg := testGuildConfig()
	p := freshProgression()

	l, _ := newTestLedger(cfg, p, &fakeComposer{})

	req := RewardRequest{GuildID: "g1", UserID: "u1", ChannelID: "vc1", Source: SourceVoice, FixedAmount: 5}
	res, err := l.ApplyReward(context.Background(), req)
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.XPBase != 5 || res.XPFinal != 5 {
		t.Errorf("xp = %d -> %d, want fixed 5", res.XPBase, res.XPFinal)
	}
	if p.DailyMessages != 0 {
		t.Errorf("DailyMessages = %d, voice must not advance the message counter", p.DailyMessages)
	}
}
