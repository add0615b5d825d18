package migration

import (
	"testing"
	"time"
)

func TestConvertGuildSettingsKeepsDefaultsForMissingValues(t *testing.T) {
	cfg := convertGuildSettings(&legacyGuildSettings{GuildID: "g1", Enabled: true})

	if cfg.GuildID != "g1" || !cfg.Enabled {
		t.Fatalf("identity not carried: %+v", cfg)
	}
	if cfg.MessageXP.Min <= 0 || cfg.MessageXP.Max < cfg.MessageXP.Min {
		t.Errorf("message defaults not applied: %+v", cfg.MessageXP)
	}
	if cfg.Curve.BaseXP <= 0 || cfg.Curve.GrowthRate <= 1 {
		t.Errorf("curve defaults not applied: %+v", cfg.Curve)
	}
}

func TestConvertGuildSettingsOverrides(t *testing.T) {
	cfg := convertGuildSettings(&legacyGuildSettings{
		GuildID:      "g1",
		Enabled:      true,
		MinXP:        10,
		MaxXP:        30,
		CooldownSecs: 45,
		BaseXP:       150,
		GrowthRate:   1.8,
		MaxDailyXP:   2000,
	})

	if cfg.MessageXP.Min != 10 || cfg.MessageXP.Max != 30 || cfg.MessageXP.CooldownSeconds != 45 {
		t.Errorf("message settings not carried: %+v", cfg.MessageXP)
	}
	if cfg.Curve.BaseXP != 150 || cfg.Curve.GrowthRate != 1.8 {
		t.Errorf("curve not carried: %+v", cfg.Curve)
	}
	if cfg.MaxDailyXP != 2000 {
		t.Errorf("daily cap not carried: %d", cfg.MaxDailyXP)
	}
}

func TestConvertLevelRowDropsExpiredBoost(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	p := convertLevelRow(&legacyLevelRow{
		GuildID:         "g1",
		UserID:          "u1",
		XP:              500,
		Level:           3,
		BoostMultiplier: 2.0,
		BoostExpiresAt:  &past,
	})

	if p.BoostMultiplier != 1 || p.BoostExpires != nil {
		t.Errorf("expired boost carried over: mult=%f expires=%v", p.BoostMultiplier, p.BoostExpires)
	}
	if p.XP != 500 || p.Level != 3 {
		t.Errorf("progression not carried: %+v", p)
	}
}

func TestConvertLevelRowKeepsLiveBoost(t *testing.T) {
	future := time.Now().Add(time.Hour)
	p := convertLevelRow(&legacyLevelRow{
		GuildID:         "g1",
		UserID:          "u1",
		BoostMultiplier: 1.5,
		BoostExpiresAt:  &future,
	})

	if p.BoostMultiplier != 1.5 || p.BoostExpires == nil {
		t.Errorf("live boost dropped: mult=%f expires=%v", p.BoostMultiplier, p.BoostExpires)
	}
	if p.Level != 1 {
		t.Errorf("Level = %d, want clamp to 1", p.Level)
	}
}
