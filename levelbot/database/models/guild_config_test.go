package models

import (
	"math"
	"testing"
)

func policyConfig() *GuildConfig {
	return &GuildConfig{
		GuildID: "g1",
		Enabled: true,
		BoostRoles: []RoleMultiplier{
			{RoleID: "booster", Multiplier: 1.5},
			{RoleID: "vip", Multiplier: 2.0},
		},
		XPReductionRoles: []RoleMultiplier{
			{RoleID: "muted", Multiplier: 0.5},
		},
		SpecialChannels: []ChannelMultiplier{
			{ChannelID: "events", Multiplier: 3.0},
		},
		BonusChannels: map[string]float64{
			"events":  50,
			"general": 25,
		},
		IgnoredRoles:    []string{"bot-role"},
		IgnoredChannels: []string{"spam"},
		NoXPRoles:       []string{"probation"},
		NoXPChannels:    []string{"commands"},
	}
}

func TestEffectiveRoleMultiplierComposesAllMatches(t *testing.T) {
	cfg := policyConfig()

	tests := []struct {
		name    string
		roleIDs []string
		want    float64
	}{
		{"no matching roles", []string{"member"}, 1.0},
		{"single boost", []string{"booster"}, 1.5},
		{"boosts multiply", []string{"booster", "vip"}, 3.0},
		{"reduction applies", []string{"muted"}, 0.5},
		{"boost and reduction compose", []string{"booster", "vip", "muted"}, 1.5},
		{"nil roles", nil, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.EffectiveRoleMultiplier(tt.roleIDs)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EffectiveRoleMultiplier(%v) = %v, want %v", tt.roleIDs, got, tt.want)
			}
		})
	}
}

func TestEffectiveChannelMultiplierPrecedence(t *testing.T) {
	cfg := policyConfig()

	// Special channel wins even though the same channel carries a bonus
	// percent; the two sources never combine.
	if got := cfg.EffectiveChannelMultiplier("events"); got != 3.0 {
		t.Errorf("special channel = %v, want 3.0", got)
	}
	if got := cfg.EffectiveChannelMultiplier("general"); got != 1.25 {
		t.Errorf("bonus channel = %v, want 1.25", got)
	}
	if got := cfg.EffectiveChannelMultiplier("random"); got != 1.0 {
		t.Errorf("unlisted channel = %v, want 1.0", got)
	}
}

func TestEligibilityPredicates(t *testing.T) {
	cfg := policyConfig()

	tests := []struct {
		name        string
		roleIDs     []string
		channelID   string
		wantIgnored bool
		wantNoXP    bool
	}{
		{"plain member", []string{"member"}, "general", false, false},
		{"ignored role", []string{"bot-role"}, "general", true, false},
		{"ignored channel", []string{"member"}, "spam", true, false},
		{"no-xp role", []string{"probation"}, "general", false, true},
		{"no-xp channel", []string{"member"}, "commands", false, true},
		{"ignored beats no-xp", []string{"bot-role", "probation"}, "general", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.IsIgnored(tt.roleIDs, tt.channelID); got != tt.wantIgnored {
				t.Errorf("IsIgnored = %v, want %v", got, tt.wantIgnored)
			}
			if got := cfg.IsNoXP(tt.roleIDs, tt.channelID); got != tt.wantNoXP {
				t.Errorf("IsNoXP = %v, want %v", got, tt.wantNoXP)
			}
		})
	}
}

func TestDisabledGuildIsIgnored(t *testing.T) {
	cfg := policyConfig()
	cfg.Enabled = false

	if !cfg.IsIgnored([]string{"member"}, "general") {
		t.Error("disabled guild should ignore everyone")
	}
	if cfg.IsEligible([]string{"member"}, "general") {
		t.Error("disabled guild should not be eligible")
	}
}

func TestCloneIsolatesMutationsFromOriginal(t *testing.T) {
	orig := policyConfig()
	clone := orig.Clone()

	clone.BonusChannels["new-channel"] = 100
	clone.SetBoostRole("booster", 4.0)
	clone.IgnoredRoles = append(clone.IgnoredRoles, "another-role")
	clone.SpecialChannels[0].Multiplier = 9.0
	clone.Enabled = false

	if _, ok := orig.BonusChannels["new-channel"]; ok {
		t.Error("clone's map write reached the original BonusChannels")
	}
	if got := orig.EffectiveRoleMultiplier([]string{"booster"}); got != 1.5 {
		t.Errorf("original boost role = %v after clone mutation, want 1.5", got)
	}
	if len(orig.IgnoredRoles) != 1 {
		t.Errorf("original IgnoredRoles = %v, want untouched", orig.IgnoredRoles)
	}
	if orig.SpecialChannels[0].Multiplier != 3.0 {
		t.Errorf("original special channel = %v, want 3.0", orig.SpecialChannels[0].Multiplier)
	}
	if !orig.Enabled {
		t.Error("clone's scalar write reached the original")
	}
}

func TestRoleRuleUpsertReplacesExisting(t *testing.T) {
	cfg := policyConfig()

	cfg.SetBoostRole("booster", 2.5)
	if len(cfg.BoostRoles) != 2 {
		t.Fatalf("upsert added a duplicate: %+v", cfg.BoostRoles)
	}
	if got := cfg.EffectiveRoleMultiplier([]string{"booster"}); got != 2.5 {
		t.Errorf("multiplier after upsert = %v, want 2.5", got)
	}

	if !cfg.RemoveBoostRole("booster") {
		t.Error("RemoveBoostRole returned false for existing role")
	}
	if cfg.RemoveBoostRole("booster") {
		t.Error("RemoveBoostRole returned true for missing role")
	}
}
