package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EventTypeXPMultiplier   = "xp_multiplier"
	EventTypeCoinMultiplier = "coin_multiplier"
	EventTypeTokenBonus     = "token_bonus"
)

// Event is a time-boxed reward bonus, either global (empty GuildID) or
// scoped to one guild. Multiplicative events carry Multiplier; additive
// events carry Bonus.
type Event struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	GuildID string             `bson:"guild_id"` // empty = global
	Name    string             `bson:"name"`
	Type    string             `bson:"type"`

	Multiplier float64 `bson:"multiplier,omitempty"`
	Bonus      int64   `bson:"bonus,omitempty"`

	StartDate time.Time `bson:"start_date"`
	EndDate   time.Time `bson:"end_date"`
	Active    bool      `bson:"active"`

	// Usage accounting, bumped by ApplyEventRewards.
	TimesApplied  int64 `bson:"times_applied"`
	RewardGranted int64 `bson:"reward_granted"`

	CreatedBy string    `bson:"created_by"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Running reports whether the event window covers now. Expired events are
// excluded here even if Active has not been flipped yet.
func (e *Event) Running(now time.Time) bool {
	return e.Active && !now.Before(e.StartDate) && now.Before(e.EndDate)
}

// RewardType maps an event type to the reward type it boosts.
func (e *Event) RewardType() string {
	switch e.Type {
	case EventTypeXPMultiplier:
		return "xp"
	case EventTypeCoinMultiplier:
		return "coins"
	case EventTypeTokenBonus:
		return "tokens"
	}
	return ""
}
