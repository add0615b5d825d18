package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/levelforge/levelbot/levelbot/database"
	"github.com/levelforge/levelbot/levelbot/database/models"
)

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetRunning(ctx context.Context, guildID, eventType string, now time.Time) ([]*models.Event, error)
	ListRunning(ctx context.Context, guildID string, now time.Time) ([]*models.Event, error)
	RecordApplication(ctx context.Context, eventID primitive.ObjectID, granted int64) error
	End(ctx context.Context, eventID primitive.ObjectID) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type eventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Active = true
	if _, err := r.db.Events().InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetRunning returns events of the given type whose window covers now and
// which apply to the guild (guild-scoped or global).
func (r *eventRepository) GetRunning(ctx context.Context, guildID, eventType string, now time.Time) ([]*models.Event, error) {
	filter := bson.M{
		"active":     true,
		"type":       eventType,
		"start_date": bson.M{"$lte": now},
		"end_date":   bson.M{"$gt": now},
		"guild_id":   bson.M{"$in": []string{"", guildID}},
	}
	cursor, err := r.db.Events().Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query running events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

func (r *eventRepository) ListRunning(ctx context.Context, guildID string, now time.Time) ([]*models.Event, error) {
	filter := bson.M{
		"active":     true,
		"start_date": bson.M{"$lte": now},
		"end_date":   bson.M{"$gt": now},
		"guild_id":   bson.M{"$in": []string{"", guildID}},
	}
	cursor, err := r.db.Events().Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list running events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

// RecordApplication bumps the usage counters after an event contributed to
// a reward.
func (r *eventRepository) RecordApplication(ctx context.Context, eventID primitive.ObjectID, granted int64) error {
	_, err := r.db.Events().UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{
			"$inc": bson.M{"times_applied": 1, "reward_granted": granted},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to record event application: %w", err)
	}
	return nil
}

func (r *eventRepository) End(ctx context.Context, eventID primitive.ObjectID) error {
	_, err := r.db.Events().UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{"$set": bson.M{"active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to end event: %w", err)
	}
	return nil
}

// DeactivateExpired flips active off for events past their end date.
// Maintenance only; readers exclude expired events by window regardless.
func (r *eventRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.Events().UpdateMany(ctx,
		bson.M{"active": true, "end_date": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"active": false, "updated_at": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired events: %w", err)
	}
	return res.ModifiedCount, nil
}
