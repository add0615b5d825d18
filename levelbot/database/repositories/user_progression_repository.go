package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/levelforge/levelbot/levelbot/database"
	"github.com/levelforge/levelbot/levelbot/database/models"
)

type UserProgressionRepository interface {
	GetOrCreate(ctx context.Context, guildID, userID string) (*models.UserProgression, error)
	Save(ctx context.Context, p *models.UserProgression) error
	Delete(ctx context.Context, guildID, userID string) error
	GetTop(ctx context.Context, guildID string, limit, offset int) ([]*models.UserProgression, error)
	CountForGuild(ctx context.Context, guildID string) (int64, error)
	RankOf(ctx context.Context, guildID string, xp int64) (int64, error)
	ExpireStaleBoosts(ctx context.Context, now time.Time) (int64, error)
}

type userProgressionRepository struct {
	db *database.DB
}

func NewUserProgressionRepository(db *database.DB) UserProgressionRepository {
	return &userProgressionRepository{db: db}
}

func (r *userProgressionRepository) GetOrCreate(ctx context.Context, guildID, userID string) (*models.UserProgression, error) {
	filter := bson.M{"guild_id": guildID, "user_id": userID}

	var p models.UserProgression
	err := r.db.UserProgressions().FindOne(ctx, filter).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to load user progression: %w", err)
	}

	now := time.Now()
	created := &models.UserProgression{
		GuildID:         guildID,
		UserID:          userID,
		Level:           1,
		BoostMultiplier: 1,
		DailyResetAt:    now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := r.db.UserProgressions().InsertOne(ctx, created); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			err = r.db.UserProgressions().FindOne(ctx, filter).Decode(&p)
			if err != nil {
				return nil, fmt.Errorf("failed to reload user progression after race: %w", err)
			}
			return &p, nil
		}
		return nil, fmt.Errorf("failed to create user progression: %w", err)
	}
	return created, nil
}

func (r *userProgressionRepository) Save(ctx context.Context, p *models.UserProgression) error {
	p.UpdatedAt = time.Now()
	_, err := r.db.UserProgressions().ReplaceOne(ctx,
		bson.M{"guild_id": p.GuildID, "user_id": p.UserID},
		p,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save user progression: %w", err)
	}
	return nil
}

func (r *userProgressionRepository) Delete(ctx context.Context, guildID, userID string) error {
	_, err := r.db.UserProgressions().DeleteOne(ctx, bson.M{"guild_id": guildID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete user progression: %w", err)
	}
	return nil
}

func (r *userProgressionRepository) GetTop(ctx context.Context, guildID string, limit, offset int) ([]*models.UserProgression, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "xp", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.db.UserProgressions().Find(ctx, bson.M{"guild_id": guildID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*models.UserProgression
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return results, nil
}

func (r *userProgressionRepository) CountForGuild(ctx context.Context, guildID string) (int64, error) {
	count, err := r.db.UserProgressions().CountDocuments(ctx, bson.M{"guild_id": guildID})
	if err != nil {
		return 0, fmt.Errorf("failed to count guild progressions: %w", err)
	}
	return count, nil
}

// RankOf returns the 1-based leaderboard position for a given XP total.
func (r *userProgressionRepository) RankOf(ctx context.Context, guildID string, xp int64) (int64, error) {
	above, err := r.db.UserProgressions().CountDocuments(ctx, bson.M{
		"guild_id": guildID,
		"xp":       bson.M{"$gt": xp},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to compute rank: %w", err)
	}
	return above + 1, nil
}

// ExpireStaleBoosts flips the active flag on boost entries whose window has
// passed and resets stale legacy slots, across all users in bulk. Running it
// twice has no additional effect; correctness never depends on it because
// readers apply their own time check.
func (r *userProgressionRepository) ExpireStaleBoosts(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()

	entryRes, err := r.db.UserProgressions().UpdateMany(ctx,
		bson.M{"active_items": bson.M{"$elemMatch": bson.M{
			"active":     true,
			"expires_at": bson.M{"$lt": now},
		}}},
		bson.M{"$set": bson.M{"active_items.$[stale].active": false}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{
				"stale.active":     true,
				"stale.expires_at": bson.M{"$lt": now},
			}},
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale boost entries: %w", err)
	}

	legacyRes, err := r.db.UserProgressions().UpdateMany(ctx,
		bson.M{"boost_expires": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"boost_multiplier": 1}, "$unset": bson.M{"boost_expires": ""}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stale legacy boosts: %w", err)
	}

	modified := entryRes.ModifiedCount + legacyRes.ModifiedCount
	if modified > 0 {
		slog.Info("Expired stale boosts",
			slog.String("type", "db"),
			slog.Int64("documents", modified),
			slog.Duration("took", time.Since(start)))
	}
	return modified, nil
}
