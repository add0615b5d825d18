package social

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/levelforge/levelbot/levelbot"
	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/database/models"
)

const leaderboardFetchLimit = 100

var Leaderboard = discord.SlashCommandCreate{
	Name:        "leaderboard",
	Description: "Show the server XP leaderboard",
}

func LeaderboardHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if e.GuildID() == nil {
			return e.CreateMessage(discord.MessageCreate{
				Content: "This command only works in a server.",
				Flags:   discord.MessageFlagEphemeral,
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		top, err := b.Progressions.GetTop(ctx, e.GuildID().String(), leaderboardFetchLimit, 0)
		if err != nil {
			return err
		}
		if len(top) == 0 {
			return e.CreateMessage(discord.MessageCreate{
				Content: "Nobody has earned XP here yet.",
				Flags:   discord.MessageFlagEphemeral,
			})
		}

		totalPages := int(math.Ceil(float64(len(top)) / float64(config.DefaultPageSize)))

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				startIdx := page * config.DefaultPageSize
				endIdx := min(startIdx+config.DefaultPageSize, len(top))

				var description strings.Builder
				for i, p := range top[startIdx:endIdx] {
					description.WriteString(formatLeaderboardRow(startIdx+i+1, p))
				}

				embed.
					SetTitle("XP Leaderboard").
					SetDescription(description.String()).
					SetColor(config.EmbedDefaultColor).
					SetFooter(fmt.Sprintf("Page %d/%d", page+1, totalPages), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func formatLeaderboardRow(position int, p *models.UserProgression) string {
	medal := fmt.Sprintf("`#%d`", position)
	switch position {
	case 1:
		medal = "🥇"
	case 2:
		medal = "🥈"
	case 3:
		medal = "🥉"
	}
	return fmt.Sprintf("%s <@%s> — Level %d · %d XP\n", medal, p.UserID, p.Level, p.XP)
}
