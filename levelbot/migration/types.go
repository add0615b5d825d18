package migration

import (
	"time"

	"github.com/uptrace/bun"
)

// Legacy Postgres rows from the previous bot generation. Only the columns
// the importer carries over are mapped.

type legacyGuildSettings struct {
	bun.BaseModel `bun:"table:guild_settings"`

	GuildID      string  `bun:"guild_id,pk"`
	Enabled      bool    `bun:"leveling_enabled"`
	MinXP        int64   `bun:"min_xp"`
	MaxXP        int64   `bun:"max_xp"`
	CooldownSecs int     `bun:"xp_cooldown_seconds"`
	BaseXP       float64 `bun:"curve_base_xp"`
	GrowthRate   float64 `bun:"curve_growth_rate"`
	CoinsPerXP   float64 `bun:"coins_per_xp"`
	MaxDailyXP   int64   `bun:"max_daily_xp"`
	MaxDailyMsgs int     `bun:"max_daily_messages"`
}

type legacyLevelRow struct {
	bun.BaseModel `bun:"table:user_levels"`

	GuildID string `bun:"guild_id,pk"`
	UserID  string `bun:"user_id,pk"`
	XP      int64  `bun:"xp"`
	Level   int    `bun:"level"`
	Coins   int64  `bun:"coins"`

	BoostMultiplier float64    `bun:"boost_multiplier"`
	BoostExpiresAt  *time.Time `bun:"boost_expires_at"`

	CreatedAt time.Time `bun:"created_at"`
	UpdatedAt time.Time `bun:"updated_at"`
}
