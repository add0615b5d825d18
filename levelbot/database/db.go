package database

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type DBConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	Timeout  int    `toml:"timeout_seconds"`
}

type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	timeout := defaultConnTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}

	var pingErr error
	for i := 0; i < defaultMaxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		pingErr = client.Ping(pingCtx, readpref.Primary())
		cancel()
		if pingErr == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if pingErr != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("document store unreachable after %d attempts: %w", defaultMaxRetries, pingErr)
	}

	return &DB{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

func (d *DB) GuildConfigs() *mongo.Collection {
	return d.db.Collection("guild_configs")
}

func (d *DB) UserProgressions() *mongo.Collection {
	return d.db.Collection("user_progressions")
}

func (d *DB) Events() *mongo.Collection {
	return d.db.Collection("events")
}

func (d *DB) EmbedTemplates() *mongo.Collection {
	return d.db.Collection("embed_templates")
}

// EnsureIndexes creates the indexes every collection relies on. Safe to call
// on every startup.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	start := time.Now()

	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{
			coll: d.GuildConfigs(),
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "guild_id", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
			},
		},
		{
			coll: d.UserProgressions(),
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "guild_id", Value: 1}, {Key: "user_id", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
				{
					Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "xp", Value: -1}},
				},
				{
					Keys: bson.D{{Key: "active_items.expires_at", Value: 1}},
				},
			},
		},
		{
			coll: d.Events(),
			models: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "active", Value: 1}, {Key: "end_date", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "type", Value: 1}},
				},
			},
		},
		{
			coll: d.EmbedTemplates(),
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "guild_id", Value: 1}, {Key: "name", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
			},
		},
	}

	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateMany(ctx, idx.models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", idx.coll.Name(), err)
		}
	}

	slog.Info("Document store indexes ensured",
		slog.String("type", "db"),
		slog.Duration("took", time.Since(start)))
	return nil
}

// Ping verifies the connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("document store ping failed: %w", err)
	}
	return nil
}

func (d *DB) Close(ctx context.Context) {
	if d.client != nil {
		if err := d.client.Disconnect(ctx); err != nil {
			slog.Error("Failed to disconnect document store",
				slog.String("type", "db"),
				slog.Any("error", err))
		}
	}
}
