// Package events composes running reward events into a single contribution
// and applies them to reward amounts.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/levelforge/levelbot/levelbot/database/models"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
)

// Reward type keys accepted by the engine.
const (
	RewardXP     = "xp"
	RewardCoins  = "coins"
	RewardTokens = "tokens"
)

// Contribution is the combined effect of all running events on one reward
// type: the largest multiplier (events never stack multiplicatively) plus
// the sum of flat bonuses.
type Contribution struct {
	Multiplier float64
	Bonus      int64
}

// Application reports how an amount was adjusted by running events.
type Application struct {
	Amount     int64
	Multiplier float64
	Bonus      int64
	Applied    bool
}

type Engine struct {
	repo repositories.EventRepository
}

func NewEngine(repo repositories.EventRepository) *Engine {
	return &Engine{repo: repo}
}

func eventTypeFor(rewardType string) (string, error) {
	switch rewardType {
	case RewardXP:
		return models.EventTypeXPMultiplier, nil
	case RewardCoins:
		return models.EventTypeCoinMultiplier, nil
	case RewardTokens:
		return models.EventTypeTokenBonus, nil
	}
	return "", fmt.Errorf("unknown reward type %q", rewardType)
}

// GetActiveMultiplier resolves the combined contribution of all events
// running for the guild and reward type. With no running events it returns
// the neutral contribution {1, 0}.
func (e *Engine) GetActiveMultiplier(ctx context.Context, guildID, rewardType string) (Contribution, error) {
	contrib := Contribution{Multiplier: 1}

	eventType, err := eventTypeFor(rewardType)
	if err != nil {
		return contrib, err
	}

	now := time.Now()
	running, err := e.repo.GetRunning(ctx, guildID, eventType, now)
	if err != nil {
		return contrib, fmt.Errorf("failed to resolve event contribution: %w", err)
	}

	for _, ev := range running {
		if !ev.Running(now) {
			continue
		}
		if ev.Multiplier > contrib.Multiplier {
			contrib.Multiplier = ev.Multiplier
		}
		contrib.Bonus += ev.Bonus
	}
	return contrib, nil
}

// ApplyEventRewards adjusts amount by the running events for the guild and
// records one application against each contributing event. Call it at most
// once per reward so the usage counters stay honest.
func (e *Engine) ApplyEventRewards(ctx context.Context, userID, guildID string, amount int64, rewardType, source string) (Application, error) {
	app := Application{Amount: amount, Multiplier: 1}

	eventType, err := eventTypeFor(rewardType)
	if err != nil {
		return app, err
	}

	now := time.Now()
	running, err := e.repo.GetRunning(ctx, guildID, eventType, now)
	if err != nil {
		return app, fmt.Errorf("failed to resolve event contribution: %w", err)
	}

	var winner primitive.ObjectID
	var bonusEvents []*models.Event
	for _, ev := range running {
		if !ev.Running(now) {
			continue
		}
		if ev.Multiplier > app.Multiplier {
			app.Multiplier = ev.Multiplier
			winner = ev.ID
		}
		if ev.Bonus > 0 {
			app.Bonus += ev.Bonus
			bonusEvents = append(bonusEvents, ev)
		}
	}

	adjusted := int64(math.Floor(float64(amount)*app.Multiplier)) + app.Bonus
	if adjusted == amount {
		return app, nil
	}
	app.Amount = adjusted
	app.Applied = true

	granted := adjusted - amount
	if !winner.IsZero() {
		if err := e.repo.RecordApplication(ctx, winner, granted-app.Bonus); err != nil {
			slog.Warn("Failed to record event application",
				slog.String("type", "sys"),
				slog.String("guild_id", guildID),
				slog.String("user_id", userID),
				slog.String("source", source),
				slog.Any("error", err))
		}
	}
	// Each bonus event is credited its own share, not the combined sum.
	for _, ev := range bonusEvents {
		if err := e.repo.RecordApplication(ctx, ev.ID, ev.Bonus); err != nil {
			slog.Warn("Failed to record event application",
				slog.String("type", "sys"),
				slog.String("guild_id", guildID),
				slog.String("user_id", userID),
				slog.String("source", source),
				slog.Any("error", err))
		}
	}

	return app, nil
}

// StartEvent validates and creates a new event. Duration and the reward
// parameters are validated here so every command path shares one rule set.
func (e *Engine) StartEvent(ctx context.Context, guildID, name, eventType string, multiplier float64, bonus int64, duration time.Duration, createdBy string) (*models.Event, error) {
	if name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if duration <= 0 {
		return nil, fmt.Errorf("event duration must be positive")
	}
	switch eventType {
	case models.EventTypeXPMultiplier, models.EventTypeCoinMultiplier:
		if multiplier <= 1 {
			return nil, fmt.Errorf("event multiplier must be greater than 1")
		}
	case models.EventTypeTokenBonus:
		if bonus <= 0 {
			return nil, fmt.Errorf("event bonus must be positive")
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	now := time.Now()
	event := &models.Event{
		GuildID:    guildID,
		Name:       name,
		Type:       eventType,
		Multiplier: multiplier,
		Bonus:      bonus,
		StartDate:  now,
		EndDate:    now.Add(duration),
		CreatedBy:  createdBy,
	}
	if err := e.repo.Create(ctx, event); err != nil {
		return nil, err
	}

	slog.Info("Event started",
		slog.String("type", "sys"),
		slog.String("guild_id", guildID),
		slog.String("name", name),
		slog.String("event_type", eventType))
	return event, nil
}

// EndEvent deactivates a running event by name within the guild scope.
func (e *Engine) EndEvent(ctx context.Context, guildID, name string) (*models.Event, error) {
	running, err := e.repo.ListRunning(ctx, guildID, time.Now())
	if err != nil {
		return nil, err
	}
	for _, ev := range running {
		if ev.Name == name {
			if err := e.repo.End(ctx, ev.ID); err != nil {
				return nil, err
			}
			return ev, nil
		}
	}
	return nil, fmt.Errorf("no running event named %q", name)
}

// ListActive returns the events currently running for a guild, including
// global ones.
func (e *Engine) ListActive(ctx context.Context, guildID string) ([]*models.Event, error) {
	return e.repo.ListRunning(ctx, guildID, time.Now())
}
