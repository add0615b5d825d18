package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	lru "github.com/hashicorp/golang-lru"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/singleflight"

	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/database"
	"github.com/levelforge/levelbot/levelbot/database/models"
)

type GuildConfigRepository interface {
	GetOrCreate(ctx context.Context, guildID string) (*models.GuildConfig, error)
	Save(ctx context.Context, cfg *models.GuildConfig) error
	Invalidate(guildID string)

	SetEnabled(ctx context.Context, guildID string, enabled bool) error
	SetMessageXP(ctx context.Context, guildID string, min, max int64, cooldownSeconds int) error
	SetCurve(ctx context.Context, guildID string, baseXP, growthRate float64) error
	SetDailyCaps(ctx context.Context, guildID string, maxDailyXP int64, maxMessagesPerDay int) error

	AddBoostRole(ctx context.Context, guildID, roleID string, multiplier float64) error
	RemoveBoostRole(ctx context.Context, guildID, roleID string) error
	AddPenaltyRole(ctx context.Context, guildID, roleID string, multiplier float64) error
	RemovePenaltyRole(ctx context.Context, guildID, roleID string) error
	AddChannelMultiplier(ctx context.Context, guildID, channelID string, multiplier float64) error
	RemoveChannelMultiplier(ctx context.Context, guildID, channelID string) error
	SetBonusChannel(ctx context.Context, guildID, channelID string, percent float64) error
	RemoveBonusChannel(ctx context.Context, guildID, channelID string) error

	AddIgnoredRole(ctx context.Context, guildID, roleID string) error
	RemoveIgnoredRole(ctx context.Context, guildID, roleID string) error
	AddIgnoredChannel(ctx context.Context, guildID, channelID string) error
	RemoveIgnoredChannel(ctx context.Context, guildID, channelID string) error
	AddNoXPRole(ctx context.Context, guildID, roleID string) error
	RemoveNoXPRole(ctx context.Context, guildID, roleID string) error
	AddNoXPChannel(ctx context.Context, guildID, channelID string) error
	RemoveNoXPChannel(ctx context.Context, guildID, channelID string) error
}

type cachedConfig struct {
	cfg       *models.GuildConfig
	fetchedAt time.Time
}

type guildConfigRepository struct {
	db    *database.DB
	cache *lru.Cache
	ttl   time.Duration
	group singleflight.Group
}

func NewGuildConfigRepository(db *database.DB) GuildConfigRepository {
	cache, _ := lru.New(config.GuildConfigCacheSize)
	return &guildConfigRepository{
		db:    db,
		cache: cache,
		ttl:   config.GuildConfigCacheTTL,
	}
}

// DefaultGuildConfig seeds a freshly created guild with the stock policy.
func DefaultGuildConfig(guildID string) *models.GuildConfig {
	now := time.Now()
	return &models.GuildConfig{
		GuildID: guildID,
		Enabled: true,
		MessageXP: models.MessageXPConfig{
			Min:             config.DefaultMessageXPMin,
			Max:             config.DefaultMessageXPMax,
			CooldownSeconds: int(config.DefaultMessageCooldown.Seconds()),
		},
		VoiceXP: models.VoiceXPConfig{
			PerMinute:       config.DefaultVoiceXPPerMinute,
			IntervalMinutes: int(config.DefaultVoiceTickInterval.Minutes()),
			MaxPerSession:   config.DefaultVoiceMaxPerSession,
		},
		Curve: models.CurveConfig{
			BaseXP:     config.DefaultCurveBaseXP,
			GrowthRate: config.DefaultCurveGrowthRate,
		},
		CoinsPerXP:          config.DefaultCoinsPerXP,
		VoiceCoinsPerMinute: config.DefaultVoiceCoinsPerMin,
		BonusChannels:       map[string]float64{},
		MaxDailyXP:          config.DefaultMaxDailyXP,
		MaxMessagesPerDay:   config.DefaultMaxMessagesPerDay,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func (r *guildConfigRepository) GetOrCreate(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	if v, ok := r.cache.Get(guildID); ok {
		entry := v.(cachedConfig)
		if time.Since(entry.fetchedAt) < r.ttl {
			return entry.cfg, nil
		}
		r.cache.Remove(guildID)
	}

	// Collapse concurrent loads of the same guild into one fetch.
	v, err, _ := r.group.Do(guildID, func() (interface{}, error) {
		return r.load(ctx, guildID)
	})
	if err != nil {
		return nil, err
	}

	cfg := v.(*models.GuildConfig)
	r.cache.Add(guildID, cachedConfig{cfg: cfg, fetchedAt: time.Now()})
	return cfg, nil
}

func (r *guildConfigRepository) load(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	var cfg models.GuildConfig
	err := r.db.GuildConfigs().FindOne(ctx, bson.M{"guild_id": guildID}).Decode(&cfg)
	if err == nil {
		if cfg.BonusChannels == nil {
			cfg.BonusChannels = map[string]float64{}
		}
		return &cfg, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to load guild config: %w", err)
	}

	created := DefaultGuildConfig(guildID)
	if _, err := r.db.GuildConfigs().InsertOne(ctx, created); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the creation race; the other writer's document wins.
			err = r.db.GuildConfigs().FindOne(ctx, bson.M{"guild_id": guildID}).Decode(&cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to reload guild config after race: %w", err)
			}
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to create guild config: %w", err)
	}

	slog.Info("Created guild config with defaults",
		slog.String("type", "db"),
		slog.String("guild_id", guildID))
	return created, nil
}

func (r *guildConfigRepository) Save(ctx context.Context, cfg *models.GuildConfig) error {
	cfg.UpdatedAt = time.Now()
	_, err := r.db.GuildConfigs().ReplaceOne(ctx,
		bson.M{"guild_id": cfg.GuildID},
		cfg,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save guild config: %w", err)
	}
	r.Invalidate(cfg.GuildID)
	return nil
}

func (r *guildConfigRepository) Invalidate(guildID string) {
	r.cache.Remove(guildID)
}

// mutate loads the config, applies fn to a deep copy, persists and
// invalidates the cache. The copy keeps fn's map and slice writes off the
// document that cached readers still hold. fn returning an error aborts
// before any write.
func (r *guildConfigRepository) mutate(ctx context.Context, guildID string, fn func(*models.GuildConfig) error) error {
	cfg, err := r.GetOrCreate(ctx, guildID)
	if err != nil {
		return err
	}
	cfg = cfg.Clone()
	if err := fn(cfg); err != nil {
		return err
	}
	return r.Save(ctx, cfg)
}

func (r *guildConfigRepository) SetEnabled(ctx context.Context, guildID string, enabled bool) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.Enabled = enabled
		return nil
	})
}

func (r *guildConfigRepository) SetMessageXP(ctx context.Context, guildID string, min, max int64, cooldownSeconds int) error {
	if min < 0 || max < min {
		return &models.ConfigValidationError{Field: "message_xp", Reason: "requires 0 <= min <= max"}
	}
	if cooldownSeconds < 0 {
		return &models.ConfigValidationError{Field: "message_xp.cooldown", Reason: "must not be negative"}
	}
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.MessageXP = models.MessageXPConfig{Min: min, Max: max, CooldownSeconds: cooldownSeconds}
		return nil
	})
}

func (r *guildConfigRepository) SetCurve(ctx context.Context, guildID string, baseXP, growthRate float64) error {
	if baseXP <= 0 {
		return &models.ConfigValidationError{Field: "curve.base_xp", Reason: "must be positive"}
	}
	if growthRate <= config.MinGrowthRate || growthRate > config.MaxGrowthRate {
		return &models.ConfigValidationError{
			Field:  "curve.growth_rate",
			Reason: fmt.Sprintf("must be in (%.1f, %.1f]", config.MinGrowthRate, config.MaxGrowthRate),
		}
	}
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.Curve = models.CurveConfig{BaseXP: baseXP, GrowthRate: growthRate}
		return nil
	})
}

func (r *guildConfigRepository) SetDailyCaps(ctx context.Context, guildID string, maxDailyXP int64, maxMessagesPerDay int) error {
	if maxDailyXP < 0 || maxMessagesPerDay < 0 {
		return &models.ConfigValidationError{Field: "daily_caps", Reason: "must not be negative"}
	}
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.MaxDailyXP = maxDailyXP
		c.MaxMessagesPerDay = maxMessagesPerDay
		return nil
	})
}

func (r *guildConfigRepository) AddBoostRole(ctx context.Context, guildID, roleID string, multiplier float64) error {
	if multiplier < config.MinRoleBoost || multiplier > config.MaxRoleBoost {
		return &models.ConfigValidationError{
			Field:  "boost_roles.multiplier",
			Reason: fmt.Sprintf("must be in [%.0f, %.0f]", config.MinRoleBoost, config.MaxRoleBoost),
		}
	}
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.SetBoostRole(roleID, multiplier)
		return nil
	})
}

func (r *guildConfigRepository) RemoveBoostRole(ctx context.Context, guildID, roleID string) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.RemoveBoostRole(roleID)
		return nil
	})
}

func (r *guildConfigRepository) AddPenaltyRole(ctx context.Context, guildID, roleID string, multiplier float64) error {
	if multiplier < 0 || multiplier > 1 {
		return &models.ConfigValidationError{Field: "xp_reduction_roles.multiplier", Reason: "must be in [0, 1]"}
	}
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.SetPenaltyRole(roleID, multiplier)
		return nil
	})
}

func (r *guildConfigRepository) RemovePenaltyRole(ctx context.Context, guildID, roleID string) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.RemovePenaltyRole(roleID)
		return nil
	})
}

func (r *guildConfigRepository) AddChannelMultiplier(ctx context.Context, guildID, channelID string, multiplier float64) error {
	if multiplier < config.MinChannelBoost || multiplier > config.MaxChannelBoost {
		return &models.ConfigValidationError{
			Field:  "special_channels.multiplier",
			Reason: fmt.Sprintf("must be in [%.0f, %.0f]", config.MinChannelBoost, config.MaxChannelBoost),
		}
	}
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.SetSpecialChannel(channelID, multiplier)
		return nil
	})
}

func (r *guildConfigRepository) RemoveChannelMultiplier(ctx context.Context, guildID, channelID string) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.RemoveSpecialChannel(channelID)
		return nil
	})
}

func (r *guildConfigRepository) SetBonusChannel(ctx context.Context, guildID, channelID string, percent float64) error {
	if percent < 0 {
		return &models.ConfigValidationError{Field: "bonus_channels.percent", Reason: "must not be negative"}
	}
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		if c.BonusChannels == nil {
			c.BonusChannels = map[string]float64{}
		}
		c.BonusChannels[channelID] = percent
		return nil
	})
}

func (r *guildConfigRepository) RemoveBonusChannel(ctx context.Context, guildID, channelID string) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		delete(c.BonusChannels, channelID)
		return nil
	})
}

func (r *guildConfigRepository) AddIgnoredRole(ctx context.Context, guildID, roleID string) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.IgnoredRoles, _ = models.AddToSet(c.IgnoredRoles, roleID)
		return nil
	})
}

func (r *guildConfigRepository) RemoveIgnoredRole(ctx context.Context, guildID, roleID string) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.IgnoredRoles, _ = models.RemoveFromSet(c.IgnoredRoles, roleID)
		return nil
	})
}

func (r *guildConfigRepository) AddIgnoredChannel(ctx context.Context, guildID, channelID string) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.IgnoredChannels, _ = models.AddToSet(c.IgnoredChannels, channelID)
		return nil
	})
}

func (r *guildConfigRepository) RemoveIgnoredChannel(ctx context.Context, guildID, channelID string) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.IgnoredChannels, _ = models.RemoveFromSet(c.IgnoredChannels, channelID)
		return nil
	})
}

func (r *guildConfigRepository) AddNoXPRole(ctx context.Context, guildID, roleID string) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.NoXPRoles, _ = models.AddToSet(c.NoXPRoles, roleID)
		return nil
	})
}

func (r *guildConfigRepository) RemoveNoXPRole(ctx context.Context, guildID, roleID string) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.NoXPRoles, _ = models.RemoveFromSet(c.NoXPRoles, roleID)
		return nil
	})
}

func (r *guildConfigRepository) AddNoXPChannel(ctx context.Context, guildID, channelID string) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.NoXPChannels, _ = models.AddToSet(c.NoXPChannels, channelID)
		return nil
	})
}

func (r *guildConfigRepository) RemoveNoXPChannel(ctx context.Context, guildID, channelID string) error {
	return r.mutate(ctx, guildID, func(c *models.GuildConfig) error {
		c.NoXPChannels, _ = models.RemoveFromSet(c.NoXPChannels, channelID)
		return nil
	})
}
