package migration

import (
	"time"

	"github.com/levelforge/levelbot/levelbot/database/models"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
)

// convertGuildSettings maps a legacy settings row onto a fresh default
// config; anything the old schema never had keeps its default.
func convertGuildSettings(row *legacyGuildSettings) *models.GuildConfig {
	cfg := repositories.DefaultGuildConfig(row.GuildID)
	cfg.Enabled = row.Enabled

	if row.MinXP > 0 && row.MaxXP >= row.MinXP {
		cfg.MessageXP.Min = row.MinXP
		cfg.MessageXP.Max = row.MaxXP
	}
	if row.CooldownSecs > 0 {
		cfg.MessageXP.CooldownSeconds = row.CooldownSecs
	}
	if row.BaseXP > 0 {
		cfg.Curve.BaseXP = row.BaseXP
	}
	if row.GrowthRate > 1 {
		cfg.Curve.GrowthRate = row.GrowthRate
	}
	if row.CoinsPerXP > 0 {
		cfg.CoinsPerXP = row.CoinsPerXP
	}
	if row.MaxDailyXP > 0 {
		cfg.MaxDailyXP = row.MaxDailyXP
	}
	if row.MaxDailyMsgs > 0 {
		cfg.MaxMessagesPerDay = row.MaxDailyMsgs
	}
	return cfg
}

func convertLevelRow(row *legacyLevelRow) *models.UserProgression {
	now := time.Now()

	p := &models.UserProgression{
		GuildID:         row.GuildID,
		UserID:          row.UserID,
		XP:              row.XP,
		Level:           row.Level,
		Coins:           row.Coins,
		BoostMultiplier: 1,
		DailyResetAt:    now,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       now,
	}
	if p.Level < 1 {
		p.Level = 1
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	// Only carry boosts that are still live; expired ones stay behind.
	if row.BoostMultiplier > 1 && row.BoostExpiresAt != nil && row.BoostExpiresAt.After(now) {
		p.BoostMultiplier = row.BoostMultiplier
		p.BoostExpires = row.BoostExpiresAt
	}
	return p
}
