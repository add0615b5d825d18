package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/levelforge/levelbot/levelbot"
	"github.com/levelforge/levelbot/levelbot/commands"
	"github.com/levelforge/levelbot/levelbot/commands/admin"
	"github.com/levelforge/levelbot/levelbot/commands/economy"
	"github.com/levelforge/levelbot/levelbot/commands/social"
	"github.com/levelforge/levelbot/levelbot/commands/system"
	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/database"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
	"github.com/levelforge/levelbot/levelbot/economy/boost"
	eventsengine "github.com/levelforge/levelbot/levelbot/economy/events"
	"github.com/levelforge/levelbot/levelbot/economy/shop"
	"github.com/levelforge/levelbot/levelbot/handlers"
	"github.com/levelforge/levelbot/levelbot/leveling"
	"github.com/levelforge/levelbot/levelbot/logger"
	"github.com/levelforge/levelbot/levelbot/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting LevelForge Discord Bot",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := levelbot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing document store connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig{
		URI:      cfg.DB.URI,
		Database: cfg.DB.Database,
		Timeout:  cfg.DB.Timeout,
	})
	if err != nil {
		slog.Error("Document store connection failed",
			slog.String("type", "db"),
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	slog.Info("Document store connected successfully",
		slog.String("type", "db"),
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	if err = db.EnsureIndexes(ctx); err != nil {
		slog.Error("Failed to ensure document store indexes",
			slog.String("type", "db"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		db.Close(closeCtx)
	}()

	b := levelbot.New(*cfg, version, commit)
	b.DB = db

	b.GuildConfigs = repositories.NewGuildConfigRepository(db)
	b.Progressions = repositories.NewUserProgressionRepository(db)
	b.EventRepo = repositories.NewEventRepository(db)
	b.TemplateRepo = repositories.NewTemplateRepository(db)

	b.EventEngine = eventsengine.NewEngine(b.EventRepo)
	b.Ledger = leveling.NewLedger(b.GuildConfigs, b.Progressions, b.EventEngine)
	b.Shop = shop.NewShop(b.Progressions)

	b.Templates = services.NewTemplateService(b.TemplateRepo)
	b.RankCards = services.NewRankCardService()

	if cfg.Spaces.Key != "" {
		spacesService, err := services.NewSpacesService(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.AssetRoot,
		)
		if err != nil {
			slog.Error("Failed to initialize spaces service", slog.Any("error", err))
			os.Exit(-1)
		}
		b.Spaces = spacesService
	} else {
		slog.Warn("No spaces credentials configured, rank cards will be attached inline")
	}

	sweepInterval := config.BoostSweepInterval
	if cfg.Leveling.SweepIntervalMinutes > 0 {
		sweepInterval = time.Duration(cfg.Leveling.SweepIntervalMinutes) * time.Minute
	}
	b.Sweeper = boost.NewSweeper(b.Progressions, b.EventRepo, sweepInterval)

	voiceTick := config.DefaultVoiceTickInterval
	if cfg.Leveling.VoiceTickMinutes > 0 {
		voiceTick = time.Duration(cfg.Leveling.VoiceTickMinutes) * time.Minute
	}

	messageHandler := handlers.NewMessageHandler(b.GuildConfigs, b.Ledger)
	voiceTracker := handlers.NewVoiceTracker(b.GuildConfigs, b.Ledger, voiceTick)

	h := handler.New()

	// System commands
	h.Command("/version", handlers.WrapWithLogging("version", system.VersionHandler(b)))
	h.Command("/embedtemplate", handlers.WrapWithLogging("embedtemplate", system.EmbedTemplateHandler(b)))
	h.Autocomplete("/embedtemplate", system.EmbedTemplateAutocomplete(b))

	// Progression commands
	h.Command("/rank", handlers.WrapWithLogging("rank", social.RankHandler(b)))
	h.Command("/leaderboard", handlers.WrapWithLogging("leaderboard", social.LeaderboardHandler(b)))

	// Economy commands
	h.Command("/shop", handlers.WrapWithLogging("shop", economy.ShopHandler(b)))
	h.Command("/boosts", handlers.WrapWithLogging("boosts", economy.BoostsHandler(b)))

	// Admin commands
	h.Command("/xpconfig", handlers.WrapWithLogging("xpconfig", admin.XPConfigHandler(b)))
	h.Command("/xpevent", handlers.WrapWithLogging("xpevent", admin.XPEventHandler(b)))
	h.Command("/xpadmin", handlers.WrapWithLogging("xpadmin", admin.XPAdminHandler(b)))

	if err = b.SetupBot(h,
		bot.NewListenerFunc(b.OnReady),
		bot.NewListenerFunc(messageHandler.OnMessageCreate),
		bot.NewListenerFunc(voiceTracker.OnVoiceStateUpdate),
	); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		b.Client.Close(closeCtx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err))
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	b.Sweeper.Start(runCtx)
	defer b.Sweeper.Stop()
	voiceTracker.Start(runCtx)
	defer voiceTracker.Stop()

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
}
