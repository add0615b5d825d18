package levelbot

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"

	"github.com/levelforge/levelbot/levelbot/database"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
	"github.com/levelforge/levelbot/levelbot/economy/boost"
	eventsengine "github.com/levelforge/levelbot/levelbot/economy/events"
	"github.com/levelforge/levelbot/levelbot/economy/shop"
	"github.com/levelforge/levelbot/levelbot/leveling"
	"github.com/levelforge/levelbot/levelbot/services"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string

	DB           *database.DB
	GuildConfigs repositories.GuildConfigRepository
	Progressions repositories.UserProgressionRepository
	EventRepo    repositories.EventRepository
	TemplateRepo repositories.TemplateRepository

	Ledger      *leveling.Ledger
	EventEngine *eventsengine.Engine
	Shop        *shop.Shop
	Sweeper     *boost.Sweeper

	Templates *services.TemplateService
	RankCards *services.RankCardService
	Spaces    *services.SpacesService
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(
			gateway.IntentGuilds,
			gateway.IntentGuildMessages,
			gateway.IntentMessageContent,
			gateway.IntentGuildVoiceStates,
		)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds, cache.FlagVoiceStates)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("LevelForge Bot is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("the leaderboard"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}
