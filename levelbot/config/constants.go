package config

import "time"

// UI and Display Constants
const (
	DefaultPageSize = 10
	MaxPageSize     = 25

	// Colors
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	EmbedDefaultColor = 0x2B2D31
	LevelUpColor      = 0xFFD700
	BoostColor        = 0xE91E63
	EventColor        = 0x9B59B6
)

// Database and Performance Constants
const (
	DefaultQueryTimeout     = 30 * time.Second
	StatsQueryTimeout       = 10 * time.Second
	CommandExecutionTimeout = 10 * time.Second

	// Cache settings
	GuildConfigCacheTTL    = 5 * time.Minute
	GuildConfigCacheSize   = 2048
	TemplateCacheTTL       = 10 * time.Minute
	TemplateCacheSize      = 512

	DefaultBatchSize = 500
)

// Leveling Defaults
//
// Per-guild values override these; they seed a freshly created guild config.
const (
	DefaultMessageXPMin       = 15
	DefaultMessageXPMax       = 25
	DefaultMessageCooldown    = 60 * time.Second
	DefaultVoiceXPPerMinute   = 5
	DefaultVoiceTickInterval  = time.Minute
	DefaultVoiceMaxPerSession = 300
	DefaultCurveBaseXP        = 100
	DefaultCurveGrowthRate    = 1.5
	DefaultCoinsPerXP         = 0.1
	DefaultVoiceCoinsPerMin   = 1
	DefaultMaxDailyXP         = 1500
	DefaultMaxMessagesPerDay  = 200

	// Boosts
	DefaultBoostMultiplier = 1.5
	MinRoleBoost           = 1.0
	MaxRoleBoost           = 5.0
	MinChannelBoost        = 1.0
	MaxChannelBoost        = 10.0
	MinGrowthRate          = 1.1
	MaxGrowthRate          = 3.0

	BoostSweepInterval = 10 * time.Minute
)

// Rank Card Rendering
const (
	RankCardRenderTimeout = 15 * time.Second
	RankCardWaitSelector  = "#rank-card"
)
