package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
	"github.com/levelforge/levelbot/levelbot/leveling"
)

// MessageHandler turns guild messages into reward applications. Cooldowns
// live in memory; a restart resets them, which only means one extra reward
// per user.
type MessageHandler struct {
	guilds    repositories.GuildConfigRepository
	ledger    *leveling.Ledger
	cooldowns sync.Map // "guildID:userID" -> time.Time of last reward
}

func NewMessageHandler(guilds repositories.GuildConfigRepository, ledger *leveling.Ledger) *MessageHandler {
	return &MessageHandler{guilds: guilds, ledger: ledger}
}

func (h *MessageHandler) OnMessageCreate(e *events.MessageCreate) {
	if e.Message.Author.Bot || e.GuildID == nil {
		return
	}

	guildID := e.GuildID.String()
	userID := e.Message.Author.ID.String()
	channelID := e.ChannelID.String()

	var roleIDs []string
	if e.Message.Member != nil {
		roleIDs = make([]string, 0, len(e.Message.Member.RoleIDs))
		for _, id := range e.Message.Member.RoleIDs {
			roleIDs = append(roleIDs, id.String())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	cfg, err := h.guilds.GetOrCreate(ctx, guildID)
	if err != nil {
		slog.Error("Failed to load guild config for message reward",
			slog.String("type", "xp"),
			slog.String("guild_id", guildID),
			slog.Any("error", err))
		return
	}

	// Ignored actors are dropped before the cooldown is looked at, let
	// alone written.
	if cfg.IsIgnored(roleIDs, channelID) {
		return
	}

	cooldownKey := guildID + ":" + userID
	cooldown := time.Duration(cfg.MessageXP.CooldownSeconds) * time.Second
	now := time.Now()
	if last, ok := h.cooldowns.Load(cooldownKey); ok {
		if now.Sub(last.(time.Time)) < cooldown {
			return
		}
	}
	h.cooldowns.Store(cooldownKey, now)

	result, err := h.ledger.ApplyReward(ctx, leveling.RewardRequest{
		GuildID:   guildID,
		UserID:    userID,
		ChannelID: channelID,
		RoleIDs:   roleIDs,
		Source:    leveling.SourceMessage,
	})
	if err != nil {
		slog.Error("Failed to apply message reward",
			slog.String("type", "xp"),
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.Any("error", err))
		return
	}

	if result.LeveledUp {
		h.announceLevelUp(e.Client(), e.ChannelID, e.Message.Author.ID, result.NewLevel)
	}
}

func (h *MessageHandler) announceLevelUp(client bot.Client, channelID, userID snowflake.ID, level int) {
	_, err := client.Rest().CreateMessage(channelID, discord.NewMessageCreateBuilder().
		SetEmbeds(discord.NewEmbedBuilder().
			SetTitle("Level Up! 🎉").
			SetDescription(fmt.Sprintf("<@%s> reached level **%d**!", userID, level)).
			SetColor(config.LevelUpColor).
			Build()).
		Build())
	if err != nil {
		slog.Error("Failed to announce level up",
			slog.String("type", "xp"),
			slog.String("channel_id", channelID.String()),
			slog.Any("error", err))
	}
}

// PurgeCooldowns drops cooldown entries older than the longest plausible
// cooldown so the map does not grow without bound.
func (h *MessageHandler) PurgeCooldowns(olderThan time.Duration) {
	cutoff := time.Now().Add(-olderThan)
	h.cooldowns.Range(func(key, value any) bool {
		if value.(time.Time).Before(cutoff) {
			h.cooldowns.Delete(key)
		}
		return true
	})
}
