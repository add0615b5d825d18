package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/levelforge/levelbot/levelbot/database/models"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
	"github.com/levelforge/levelbot/levelbot/economy/events"
	"github.com/levelforge/levelbot/levelbot/leveling"
)

type fakeGuildConfigs struct {
	repositories.GuildConfigRepository
	cfg *models.GuildConfig
}

func (f *fakeGuildConfigs) GetOrCreate(_ context.Context, _ string) (*models.GuildConfig, error) {
	return f.cfg, nil
}

type fakeProgressions struct {
	repositories.UserProgressionRepository
	p     *models.UserProgression
	saves int
}

func (f *fakeProgressions) GetOrCreate(_ context.Context, _, _ string) (*models.UserProgression, error) {
	return f.p, nil
}

func (f *fakeProgressions) Save(_ context.Context, _ *models.UserProgression) error {
	f.saves++
	return nil
}

type neutralComposer struct{}

func (neutralComposer) ApplyEventRewards(_ context.Context, _, _ string, amount int64, _, _ string) (events.Application, error) {
	return events.Application{Amount: amount, Multiplier: 1}, nil
}

func (neutralComposer) GetActiveMultiplier(_ context.Context, _, _ string) (events.Contribution, error) {
	return events.Contribution{Multiplier: 1}, nil
}

func voiceTestTracker(cfg *models.GuildConfig) (*VoiceTracker, *models.UserProgression) {
	p := &models.UserProgression{GuildID: "g1", UserID: "u1", Level: 1, BoostMultiplier: 1, DailyResetAt: time.Now()}
	guilds := &fakeGuildConfigs{cfg: cfg}
	ledger := leveling.NewLedger(guilds, &fakeProgressions{p: p}, neutralComposer{})

	t := NewVoiceTracker(guilds, ledger, time.Minute)
	t.sessions["g1:u1"] = &voiceSession{
		guildID:     "g1",
		userID:      "u1",
		channelID:   "vc1",
		joinedAt:    time.Now().Add(-10 * time.Minute),
		lastAwardAt: time.Now().Add(-10 * time.Minute),
	}
	return t, p
}

func voiceTestConfig() *models.GuildConfig {
	return &models.GuildConfig{
		GuildID: "g1",
		Enabled: true,
		VoiceXP: models.VoiceXPConfig{PerMinute: 5, IntervalMinutes: 5, MaxPerSession: 300},
		Curve:   models.CurveConfig{BaseXP: 100, GrowthRate: 1.5},
	}
}

func TestVoiceAwardRespectsGuildInterval(t *testing.T) {
	tracker, p := voiceTestTracker(voiceTestConfig())

	// Two consecutive ticks within one 5-minute interval must award once.
	tracker.awardTick(context.Background())
	tracker.awardTick(context.Background())

	if p.XP != 25 {
		t.Errorf("XP = %d, want a single 25 XP interval award", p.XP)
	}
	if got := tracker.sessions["g1:u1"].awarded; got != 25 {
		t.Errorf("session awarded = %d, want 25", got)
	}
}

func TestVoiceAwardResumesAfterInterval(t *testing.T) {
	tracker, p := voiceTestTracker(voiceTestConfig())

	tracker.awardTick(context.Background())
	tracker.sessions["g1:u1"].lastAwardAt = time.Now().Add(-5 * time.Minute)
	tracker.awardTick(context.Background())

	if p.XP != 50 {
		t.Errorf("XP = %d, want two interval awards of 25", p.XP)
	}
}

func TestVoiceAwardHonorsSessionCap(t *testing.T) {
	cfg := voiceTestConfig()
	cfg.VoiceXP.MaxPerSession = 30
	tracker, p := voiceTestTracker(cfg)

	tracker.awardTick(context.Background())
	tracker.sessions["g1:u1"].lastAwardAt = time.Now().Add(-5 * time.Minute)
	tracker.awardTick(context.Background())
	tracker.sessions["g1:u1"].lastAwardAt = time.Now().Add(-5 * time.Minute)
	tracker.awardTick(context.Background())

	if p.XP != 30 {
		t.Errorf("XP = %d, want awards clamped to the 30 XP session cap", p.XP)
	}
}
