package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoleMultiplier maps a role to an XP multiplier. Used both for boost roles
// (multiplier > 1) and reduction roles (multiplier in [0,1]).
type RoleMultiplier struct {
	RoleID     string  `bson:"role_id"`
	Multiplier float64 `bson:"multiplier"`
}

// ChannelMultiplier maps a channel to an XP multiplier.
type ChannelMultiplier struct {
	ChannelID  string  `bson:"channel_id"`
	Multiplier float64 `bson:"multiplier"`
}

type MessageXPConfig struct {
	Min             int64 `bson:"min"`
	Max             int64 `bson:"max"`
	CooldownSeconds int   `bson:"cooldown_seconds"`
}

type VoiceXPConfig struct {
	PerMinute       int64 `bson:"per_minute"`
	IntervalMinutes int   `bson:"interval_minutes"`
	MaxPerSession   int64 `bson:"max_per_session"`
}

// CurveConfig holds the exponential level curve parameters. GrowthRate is
// constrained to (1.1, 3.0] at the mutation boundary.
type CurveConfig struct {
	BaseXP     float64 `bson:"base_xp"`
	GrowthRate float64 `bson:"growth_rate"`
}

// GuildConfig is the per-guild leveling policy document.
type GuildConfig struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	GuildID string             `bson:"guild_id"`

	Enabled bool `bson:"enabled"`

	MessageXP MessageXPConfig `bson:"message_xp"`
	VoiceXP   VoiceXPConfig   `bson:"voice_xp"`
	Curve     CurveConfig     `bson:"curve"`

	CoinsPerXP          float64 `bson:"coins_per_xp"`
	VoiceCoinsPerMinute int64   `bson:"voice_coins_per_minute"`

	BoostRoles       []RoleMultiplier    `bson:"boost_roles"`
	SpecialChannels  []ChannelMultiplier `bson:"special_channels"`
	BonusChannels    map[string]float64  `bson:"bonus_channels"` // channel -> percent
	XPReductionRoles []RoleMultiplier    `bson:"xp_reduction_roles"`

	NoXPRoles       []string `bson:"no_xp_roles"`
	NoXPChannels    []string `bson:"no_xp_channels"`
	IgnoredRoles    []string `bson:"ignored_roles"`
	IgnoredChannels []string `bson:"ignored_channels"`

	MaxDailyXP        int64 `bson:"max_daily_xp"`
	MaxMessagesPerDay int   `bson:"max_messages_per_day"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Clone returns a deep copy. Mutators work on clones so concurrently served
// readers never see a map or slice being written.
func (c *GuildConfig) Clone() *GuildConfig {
	out := *c

	out.BoostRoles = append([]RoleMultiplier(nil), c.BoostRoles...)
	out.SpecialChannels = append([]ChannelMultiplier(nil), c.SpecialChannels...)
	out.XPReductionRoles = append([]RoleMultiplier(nil), c.XPReductionRoles...)

	out.BonusChannels = make(map[string]float64, len(c.BonusChannels))
	for k, v := range c.BonusChannels {
		out.BonusChannels[k] = v
	}

	out.NoXPRoles = append([]string(nil), c.NoXPRoles...)
	out.NoXPChannels = append([]string(nil), c.NoXPChannels...)
	out.IgnoredRoles = append([]string(nil), c.IgnoredRoles...)
	out.IgnoredChannels = append([]string(nil), c.IgnoredChannels...)

	return &out
}

// ConfigValidationError is returned by policy mutators when a supplied value
// is outside its allowed range. It is rejected before anything is persisted.
type ConfigValidationError struct {
	Field  string
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid guild config value for %s: %s", e.Field, e.Reason)
}

// IsIgnored reports whether the actor/channel combination is excluded from
// processing entirely. Ignored actors never touch cooldowns, counters or the
// database.
func (c *GuildConfig) IsIgnored(roleIDs []string, channelID string) bool {
	if !c.Enabled {
		return true
	}
	if containsString(c.IgnoredChannels, channelID) {
		return true
	}
	for _, id := range roleIDs {
		if containsString(c.IgnoredRoles, id) {
			return true
		}
	}
	return false
}

// IsNoXP reports whether the actor/channel is processed but forced to a zero
// reward. Unlike ignored actors, no-XP activity still advances cooldowns and
// daily counters.
func (c *GuildConfig) IsNoXP(roleIDs []string, channelID string) bool {
	if containsString(c.NoXPChannels, channelID) {
		return true
	}
	for _, id := range roleIDs {
		if containsString(c.NoXPRoles, id) {
			return true
		}
	}
	return false
}

// IsEligible is the coarse gate for simple call sites; it conflates ignored
// and no-XP. Callers that need the distinction use IsIgnored/IsNoXP.
func (c *GuildConfig) IsEligible(roleIDs []string, channelID string) bool {
	return !c.IsIgnored(roleIDs, channelID) && !c.IsNoXP(roleIDs, channelID)
}

// EffectiveChannelMultiplier resolves the channel multiplier. Special
// channels win over bonus channels; the two sources never combine.
func (c *GuildConfig) EffectiveChannelMultiplier(channelID string) float64 {
	for _, sc := range c.SpecialChannels {
		if sc.ChannelID == channelID {
			return sc.Multiplier
		}
	}
	if pct, ok := c.BonusChannels[channelID]; ok {
		return 1 + pct/100
	}
	return 1.0
}

// EffectiveRoleMultiplier composes every matching boost role and every
// matching reduction role multiplicatively. All matches apply, not just the
// best one.
func (c *GuildConfig) EffectiveRoleMultiplier(roleIDs []string) float64 {
	mult := 1.0
	for _, id := range roleIDs {
		for _, br := range c.BoostRoles {
			if br.RoleID == id {
				mult *= br.Multiplier
			}
		}
		for _, rr := range c.XPReductionRoles {
			if rr.RoleID == id {
				mult *= rr.Multiplier
			}
		}
	}
	return mult
}

// SetBoostRole upserts a boost role multiplier by role id.
func (c *GuildConfig) SetBoostRole(roleID string, multiplier float64) {
	c.BoostRoles = upsertRoleMultiplier(c.BoostRoles, roleID, multiplier)
}

// RemoveBoostRole deletes a boost role entry; returns whether it existed.
func (c *GuildConfig) RemoveBoostRole(roleID string) bool {
	var removed bool
	c.BoostRoles, removed = removeRoleMultiplier(c.BoostRoles, roleID)
	return removed
}

// SetPenaltyRole upserts an XP reduction role multiplier by role id.
func (c *GuildConfig) SetPenaltyRole(roleID string, multiplier float64) {
	c.XPReductionRoles = upsertRoleMultiplier(c.XPReductionRoles, roleID, multiplier)
}

func (c *GuildConfig) RemovePenaltyRole(roleID string) bool {
	var removed bool
	c.XPReductionRoles, removed = removeRoleMultiplier(c.XPReductionRoles, roleID)
	return removed
}

// SetSpecialChannel upserts a special channel multiplier by channel id.
func (c *GuildConfig) SetSpecialChannel(channelID string, multiplier float64) {
	for i := range c.SpecialChannels {
		if c.SpecialChannels[i].ChannelID == channelID {
			c.SpecialChannels[i].Multiplier = multiplier
			return
		}
	}
	c.SpecialChannels = append(c.SpecialChannels, ChannelMultiplier{ChannelID: channelID, Multiplier: multiplier})
}

func (c *GuildConfig) RemoveSpecialChannel(channelID string) bool {
	for i := range c.SpecialChannels {
		if c.SpecialChannels[i].ChannelID == channelID {
			c.SpecialChannels = append(c.SpecialChannels[:i], c.SpecialChannels[i+1:]...)
			return true
		}
	}
	return false
}

func upsertRoleMultiplier(list []RoleMultiplier, roleID string, multiplier float64) []RoleMultiplier {
	for i := range list {
		if list[i].RoleID == roleID {
			list[i].Multiplier = multiplier
			return list
		}
	}
	return append(list, RoleMultiplier{RoleID: roleID, Multiplier: multiplier})
}

func removeRoleMultiplier(list []RoleMultiplier, roleID string) ([]RoleMultiplier, bool) {
	for i := range list {
		if list[i].RoleID == roleID {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// AddToSet appends id to list if absent; returns the list and whether it changed.
func AddToSet(list []string, id string) ([]string, bool) {
	if containsString(list, id) {
		return list, false
	}
	return append(list, id), true
}

// RemoveFromSet removes id from list; returns the list and whether it changed.
func RemoveFromSet(list []string, id string) ([]string, bool) {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}
