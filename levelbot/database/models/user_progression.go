package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ItemTypeUserBoost   = "boost_user"
	ItemTypeServerBoost = "boost_server"
)

// BoostEntry is one purchased or granted boost in a user's inventory.
// An entry is logically inactive when Active is false OR ExpiresAt has
// passed; readers must apply their own time check and never trust Active
// alone (the expiry sweep flips the flag lazily).
type BoostEntry struct {
	ItemID      string     `bson:"item_id"`
	ItemName    string     `bson:"item_name"`
	ItemType    string     `bson:"item_type"`
	PurchasedAt time.Time  `bson:"purchased_at"`
	ExpiresAt   *time.Time `bson:"expires_at,omitempty"`
	Active      bool       `bson:"active"`
	// Multiplier 0 means the entry carries no explicit multiplier; readers
	// fall back to the default boost multiplier.
	Multiplier float64 `bson:"multiplier,omitempty"`
}

// Expired reports whether the entry's time window has passed.
func (e *BoostEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

// UserProgression is the per-guild, per-user progression document.
//
// Level is a cached derivation of XP under the guild's curve at last
// recompute, never an independent source of truth.
type UserProgression struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	GuildID string             `bson:"guild_id"`
	UserID  string             `bson:"user_id"`

	XP     int64 `bson:"xp"`
	Level  int   `bson:"level"`
	Coins  int64 `bson:"coins"`
	Tokens int64 `bson:"tokens"`

	// Legacy single-slot boost, still written by older grants.
	BoostMultiplier float64    `bson:"boost_multiplier"`
	BoostExpires    *time.Time `bson:"boost_expires,omitempty"`

	ActiveItems []BoostEntry `bson:"active_items"`

	// Rolling daily counters, reset when DailyResetAt rolls over.
	DailyXP       int64     `bson:"daily_xp"`
	DailyMessages int       `bson:"daily_messages"`
	DailyResetAt  time.Time `bson:"daily_reset_at"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// RollDailyWindow resets the daily counters if the 24h window around
// DailyResetAt has elapsed.
func (p *UserProgression) RollDailyWindow(now time.Time) {
	if now.Sub(p.DailyResetAt) >= 24*time.Hour {
		p.DailyXP = 0
		p.DailyMessages = 0
		p.DailyResetAt = now
	}
}
