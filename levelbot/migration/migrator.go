// Package migration imports progression data from the previous bot
// generation's Postgres schema into MongoDB.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"golang.org/x/sync/errgroup"

	"github.com/levelforge/levelbot/levelbot/database/repositories"
)

const (
	connectRetries       = 3
	connectRetryInterval = time.Second
	fetchBatchSize       = 500
)

type Migrator struct {
	pg     *bun.DB
	guilds repositories.GuildConfigRepository
	users  repositories.UserProgressionRepository
}

// Result counts what the import touched.
type Result struct {
	Guilds int
	Users  int
	Took   time.Duration
}

// New verifies the legacy database is reachable and prepares the importer.
// The pgx ping catches bad DSNs before any batch work starts.
func New(ctx context.Context, dsn string, guilds repositories.GuildConfigRepository, users repositories.UserProgressionRepository) (*Migrator, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse legacy database dsn: %w", err)
	}
	defer pool.Close()

	for i := 0; ; i++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		if i >= connectRetries-1 {
			return nil, fmt.Errorf("legacy database unreachable after %d attempts: %w", connectRetries, err)
		}
		time.Sleep(connectRetryInterval)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return &Migrator{
		pg:     bun.NewDB(sqldb, pgdialect.New()),
		guilds: guilds,
		users:  users,
	}, nil
}

func (m *Migrator) Close() error {
	return m.pg.Close()
}

// Run imports guild settings and user rows concurrently. Re-running is safe:
// both targets are upserts keyed on the legacy primary keys.
func (m *Migrator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := m.importGuildSettings(gctx)
		result.Guilds = n
		return err
	})
	g.Go(func() error {
		n, err := m.importUserLevels(gctx)
		result.Users = n
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Took = time.Since(start)
	slog.Info("Legacy import finished",
		slog.String("type", "db"),
		slog.Int("guilds", result.Guilds),
		slog.Int("users", result.Users),
		slog.Duration("took", result.Took))
	return result, nil
}

func (m *Migrator) importGuildSettings(ctx context.Context) (int, error) {
	var rows []legacyGuildSettings
	if err := m.pg.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return 0, fmt.Errorf("failed to read legacy guild settings: %w", err)
	}

	imported := 0
	for i := range rows {
		cfg := convertGuildSettings(&rows[i])
		if err := m.guilds.Save(ctx, cfg); err != nil {
			return imported, fmt.Errorf("failed to import guild %s: %w", cfg.GuildID, err)
		}
		imported++
	}
	return imported, nil
}

func (m *Migrator) importUserLevels(ctx context.Context) (int, error) {
	imported := 0
	for offset := 0; ; offset += fetchBatchSize {
		var rows []legacyLevelRow
		err := m.pg.NewSelect().
			Model(&rows).
			Order("guild_id", "user_id").
			Limit(fetchBatchSize).
			Offset(offset).
			Scan(ctx)
		if err != nil {
			return imported, fmt.Errorf("failed to read legacy user levels: %w", err)
		}
		if len(rows) == 0 {
			return imported, nil
		}

		for i := range rows {
			p := convertLevelRow(&rows[i])
			if err := m.users.Save(ctx, p); err != nil {
				return imported, fmt.Errorf("failed to import user %s/%s: %w", p.GuildID, p.UserID, err)
			}
			imported++
		}

		slog.Debug("Imported legacy user batch",
			slog.String("type", "db"),
			slog.Int("offset", offset),
			slog.Int("count", len(rows)))
	}
}
