package leveling

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/levelforge/levelbot/levelbot/database/repositories"
	"github.com/levelforge/levelbot/levelbot/economy/boost"
	"github.com/levelforge/levelbot/levelbot/economy/events"
	"github.com/levelforge/levelbot/levelbot/logger"
)

type Source string

const (
	SourceMessage Source = "message"
	SourceVoice   Source = "voice"
)

type Outcome string

const (
	// OutcomeApplied covers every processed reward, including ones clamped
	// to zero by a daily cap.
	OutcomeApplied Outcome = "applied"
	// OutcomeIgnored means the activity was dropped before any state was
	// touched; nothing is written.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeNoXP means the activity was processed with a forced zero
	// reward; cooldown and daily counters still advance.
	OutcomeNoXP Outcome = "no_xp"
)

// RewardRequest describes one rewardable activity.
type RewardRequest struct {
	GuildID   string
	UserID    string
	ChannelID string
	RoleIDs   []string
	Source    Source
	// FixedAmount, when positive, bypasses the guild's message roll. Voice
	// ticks use it.
	FixedAmount int64
}

// RewardResult reports what a reward application did.
type RewardResult struct {
	Outcome Outcome

	XPBase  int64
	XPFinal int64
	Coins   int64
	Tokens  int64

	OldLevel  int
	NewLevel  int
	LeveledUp bool

	PersonalMultiplier float64
	GuildMultiplier    float64
	EventMultiplier    float64
	EventBonus         int64

	DailyCapped bool
}

// EventComposer is the slice of the event engine the ledger needs.
type EventComposer interface {
	ApplyEventRewards(ctx context.Context, userID, guildID string, amount int64, rewardType, source string) (events.Application, error)
	GetActiveMultiplier(ctx context.Context, guildID, rewardType string) (events.Contribution, error)
}

// Ledger applies rewards to user progressions. It owns the full pipeline:
// policy gates, multiplier composition, daily caps, coin conversion, level
// recompute and the final persist.
type Ledger struct {
	guilds repositories.GuildConfigRepository
	users  repositories.UserProgressionRepository
	events EventComposer

	roll func(min, max int64) int64
	now  func() time.Time
}

func NewLedger(guilds repositories.GuildConfigRepository, users repositories.UserProgressionRepository, composer EventComposer) *Ledger {
	return &Ledger{
		guilds: guilds,
		users:  users,
		events: composer,
		roll:   rollBetween,
		now:    time.Now,
	}
}

func rollBetween(min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + rand.Int63n(max-min+1)
}

// ApplyReward runs one activity through the reward pipeline.
//
// Ignored actors return OutcomeIgnored without loading or writing the user
// document. No-XP actors are written with a zero reward so their counters
// advance. Event composition failures degrade to the neutral contribution;
// persistence failures propagate unchanged.
func (l *Ledger) ApplyReward(ctx context.Context, req RewardRequest) (*RewardResult, error) {
	cfg, err := l.guilds.GetOrCreate(ctx, req.GuildID)
	if err != nil {
		return nil, err
	}

	if cfg.IsIgnored(req.RoleIDs, req.ChannelID) {
		return &RewardResult{Outcome: OutcomeIgnored, PersonalMultiplier: 1, GuildMultiplier: 1, EventMultiplier: 1}, nil
	}

	p, err := l.users.GetOrCreate(ctx, req.GuildID, req.UserID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	p.RollDailyWindow(now)

	result := &RewardResult{
		Outcome:            OutcomeApplied,
		OldLevel:           p.Level,
		NewLevel:           p.Level,
		PersonalMultiplier: 1,
		GuildMultiplier:    1,
		EventMultiplier:    1,
	}

	noXP := cfg.IsNoXP(req.RoleIDs, req.ChannelID)
	if noXP {
		result.Outcome = OutcomeNoXP
	}

	var base int64
	switch {
	case noXP:
		base = 0
	case req.FixedAmount > 0:
		base = req.FixedAmount
	default:
		base = l.roll(cfg.MessageXP.Min, cfg.MessageXP.Max)
	}
	result.XPBase = base

	final := base
	if base > 0 {
		result.GuildMultiplier = cfg.EffectiveChannelMultiplier(req.ChannelID) * cfg.EffectiveRoleMultiplier(req.RoleIDs)
		result.PersonalMultiplier = boost.EffectiveMultiplier(p, now)
		final = int64(math.Floor(float64(base) * result.GuildMultiplier * result.PersonalMultiplier))

		app, err := l.events.ApplyEventRewards(ctx, req.UserID, req.GuildID, final, events.RewardXP, string(req.Source))
		if err != nil {
			// Events must never block the base reward.
			logger.LogError("event composition failed, applying neutral contribution", err,
				slog.String("guild_id", req.GuildID),
				slog.String("user_id", req.UserID))
		} else {
			final = app.Amount
			result.EventMultiplier = app.Multiplier
			result.EventBonus = app.Bonus
		}
	}

	if req.Source == SourceMessage {
		if cfg.MaxMessagesPerDay > 0 && p.DailyMessages >= cfg.MaxMessagesPerDay {
			final = 0
			result.DailyCapped = true
		}
		p.DailyMessages++
	}

	if cfg.MaxDailyXP > 0 && final > 0 {
		remaining := cfg.MaxDailyXP - p.DailyXP
		if remaining < 0 {
			remaining = 0
		}
		if final > remaining {
			final = remaining
			result.DailyCapped = true
		}
	}
	result.XPFinal = final

	if final > 0 && cfg.CoinsPerXP > 0 {
		coins := int64(math.Floor(float64(final) * cfg.CoinsPerXP))
		if coins > 0 {
			contrib, err := l.events.GetActiveMultiplier(ctx, req.GuildID, events.RewardCoins)
			if err != nil {
				logger.LogError("coin event composition failed, applying neutral contribution", err,
					slog.String("guild_id", req.GuildID))
			} else {
				coins = int64(math.Floor(float64(coins)*contrib.Multiplier)) + contrib.Bonus
			}
		}
		result.Coins = coins
	}

	// Token drops are pure event bonuses; they ride on any processed
	// activity regardless of the XP caps.
	if base > 0 {
		tok, err := l.events.ApplyEventRewards(ctx, req.UserID, req.GuildID, 0, events.RewardTokens, string(req.Source))
		if err != nil {
			logger.LogError("token event composition failed, applying neutral contribution", err,
				slog.String("guild_id", req.GuildID),
				slog.String("user_id", req.UserID))
		} else {
			result.Tokens = tok.Bonus
		}
	}

	p.XP += final
	p.DailyXP += final
	p.Coins += result.Coins
	p.Tokens += result.Tokens

	curve := Curve{BaseXP: cfg.Curve.BaseXP, GrowthRate: cfg.Curve.GrowthRate}
	newLevel := curve.LevelForXP(p.XP)
	if newLevel != p.Level {
		result.LeveledUp = newLevel > p.Level
		p.Level = newLevel
	}
	result.NewLevel = p.Level

	if err := l.users.Save(ctx, p); err != nil {
		return nil, err
	}

	logger.LogReward(req.GuildID, req.UserID, string(req.Source), final, result.LeveledUp)
	return result, nil
}

// ProgressFor resolves a user's progress under the guild's current curve.
func (l *Ledger) ProgressFor(ctx context.Context, guildID, userID string) (Progress, int, int64, error) {
	cfg, err := l.guilds.GetOrCreate(ctx, guildID)
	if err != nil {
		return Progress{}, 0, 0, err
	}
	p, err := l.users.GetOrCreate(ctx, guildID, userID)
	if err != nil {
		return Progress{}, 0, 0, err
	}

	curve := Curve{BaseXP: cfg.Curve.BaseXP, GrowthRate: cfg.Curve.GrowthRate}
	level := curve.LevelForXP(p.XP)
	return curve.ProgressWithinLevel(level, p.XP), level, p.XP, nil
}

// RecomputeLevel reconciles the cached level with the XP total, for admin
// XP adjustments that bypass ApplyReward.
func (l *Ledger) RecomputeLevel(ctx context.Context, guildID, userID string, adjustXP int64) (*RewardResult, error) {
	cfg, err := l.guilds.GetOrCreate(ctx, guildID)
	if err != nil {
		return nil, err
	}
	p, err := l.users.GetOrCreate(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}

	result := &RewardResult{Outcome: OutcomeApplied, OldLevel: p.Level, XPBase: adjustXP, PersonalMultiplier: 1, GuildMultiplier: 1, EventMultiplier: 1}

	p.XP += adjustXP
	if p.XP < 0 {
		p.XP = 0
	}
	result.XPFinal = adjustXP

	curve := Curve{BaseXP: cfg.Curve.BaseXP, GrowthRate: cfg.Curve.GrowthRate}
	newLevel := curve.LevelForXP(p.XP)
	result.LeveledUp = newLevel > p.Level
	p.Level = newLevel
	result.NewLevel = newLevel

	if err := l.users.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to persist xp adjustment: %w", err)
	}
	return result, nil
}
