// Command migrate imports guild settings and user progression from the
// previous bot generation's Postgres database into the document store.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/levelforge/levelbot/levelbot"
	"github.com/levelforge/levelbot/levelbot/database"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
	"github.com/levelforge/levelbot/levelbot/logger"
	"github.com/levelforge/levelbot/levelbot/migration"
)

func main() {
	slog.SetDefault(slog.New(logger.NewHandler()))

	path := flag.String("config", "config.toml", "path to config")
	dsn := flag.String("postgres-dsn", "", "legacy postgres dsn to import from")
	flag.Parse()

	if *dsn == "" {
		slog.Error("No legacy postgres dsn given, pass -postgres-dsn")
		os.Exit(-1)
	}

	cfg, err := levelbot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig{
		URI:      cfg.DB.URI,
		Database: cfg.DB.Database,
		Timeout:  cfg.DB.Timeout,
	})
	if err != nil {
		slog.Error("Document store connection failed",
			slog.String("type", "db"),
			slog.Any("error", err))
		os.Exit(-1)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		db.Close(closeCtx)
	}()

	if err = db.EnsureIndexes(ctx); err != nil {
		slog.Error("Failed to ensure document store indexes",
			slog.String("type", "db"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	guilds := repositories.NewGuildConfigRepository(db)
	users := repositories.NewUserProgressionRepository(db)

	m, err := migration.New(ctx, *dsn, guilds, users)
	if err != nil {
		slog.Error("Failed to prepare legacy import",
			slog.String("type", "db"),
			slog.Any("error", err))
		os.Exit(-1)
	}
	defer m.Close()

	result, err := m.Run(ctx)
	if err != nil {
		slog.Error("Legacy import failed",
			slog.String("type", "db"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Legacy import complete",
		slog.Int("guilds", result.Guilds),
		slog.Int("users", result.Users),
		slog.Duration("took", result.Took))
}
