package social

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/levelforge/levelbot/levelbot"
	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/economy/boost"
	"github.com/levelforge/levelbot/levelbot/services"
	"github.com/levelforge/levelbot/levelbot/utils"
)

var Rank = discord.SlashCommandCreate{
	Name:        "rank",
	Description: "Show your rank card",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Another member to look up",
		},
	},
}

func RankHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if e.GuildID() == nil {
			return e.CreateMessage(discord.MessageCreate{
				Content: "This command only works in a server.",
				Flags:   discord.MessageFlagEphemeral,
			})
		}
		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}

		target := e.User()
		if user, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
			target = user
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		guildID := e.GuildID().String()
		userID := target.ID.String()

		progress, level, xp, err := b.Ledger.ProgressFor(ctx, guildID, userID)
		if err != nil {
			return err
		}
		p, err := b.Progressions.GetOrCreate(ctx, guildID, userID)
		if err != nil {
			return err
		}
		rank, err := b.Progressions.RankOf(ctx, guildID, xp)
		if err != nil {
			return err
		}

		var boostLabel string
		if mult := boost.EffectiveMultiplier(p, time.Now()); mult > 1 {
			boostLabel = fmt.Sprintf("%.1fx boost", mult)
		}

		data := services.RankCardData{
			Username:    target.Username,
			Level:       level,
			Rank:        rank,
			TotalXP:     xp,
			XPIntoLevel: progress.XPIntoLevel,
			XPNeeded:    progress.XPNeededForLevel,
			Coins:       p.Coins,
			BoostLabel:  boostLabel,
		}

		png, err := b.RankCards.Generate(ctx, data)
		if err != nil {
			// Headless rendering is best effort; fall back to a plain embed.
			slog.Warn("Rank card rendering failed, falling back to embed",
				slog.String("type", "cmd"),
				slog.Any("error", err))
			return respondWithEmbed(e, data)
		}

		if b.Spaces != nil {
			url, err := b.Spaces.UploadRankCard(ctx, guildID, userID, png)
			if err == nil {
				_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
					Embeds: utils.Ptr([]discord.Embed{
						discord.NewEmbedBuilder().
							SetTitle(fmt.Sprintf("%s — Level %d", target.Username, level)).
							SetImage(url).
							SetColor(config.EmbedDefaultColor).
							Build(),
					}),
				})
				return err
			}
			slog.Warn("Rank card upload failed, attaching file instead",
				slog.String("type", "cmd"),
				slog.Any("error", err))
		}

		_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
			Files: []*discord.File{discord.NewFile("rank.png", "", bytes.NewReader(png))},
		})
		return err
	}
}

func respondWithEmbed(e *handler.CommandEvent, data services.RankCardData) error {
	_, err := e.UpdateInteractionResponse(discord.MessageUpdate{
		Embeds: utils.Ptr([]discord.Embed{
			discord.NewEmbedBuilder().
				SetTitle(fmt.Sprintf("%s — Rank #%d", data.Username, data.Rank)).
				SetDescription(fmt.Sprintf("Level **%d** · %d / %d XP into this level\n%d total XP · %d coins",
					data.Level, data.XPIntoLevel, data.XPNeeded, data.TotalXP, data.Coins)).
				SetColor(config.EmbedDefaultColor).
				Build(),
		}),
	})
	return err
}
