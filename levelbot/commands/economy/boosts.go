package economy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/levelforge/levelbot/levelbot"
	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/economy/boost"
	"github.com/levelforge/levelbot/levelbot/utils"
)

var Boosts = discord.SlashCommandCreate{
	Name:        "boosts",
	Description: "Show your active XP boosts",
}

func BoostsHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if e.GuildID() == nil {
			return e.CreateMessage(discord.MessageCreate{
				Content: "This command only works in a server.",
				Flags:   discord.MessageFlagEphemeral,
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		p, err := b.Progressions.GetOrCreate(ctx, e.GuildID().String(), e.User().ID.String())
		if err != nil {
			return err
		}

		now := time.Now()
		effective := boost.EffectiveMultiplier(p, now)

		var lines []string
		for _, entry := range p.ActiveItems {
			if !entry.Active || entry.Expired(now) {
				continue
			}
			mult := entry.Multiplier
			if mult == 0 {
				mult = config.DefaultBoostMultiplier
			}
			line := fmt.Sprintf("**%s** — %.1fx", entry.ItemName, mult)
			if entry.ExpiresAt != nil {
				line += fmt.Sprintf(", expires %s", utils.DiscordTimestamp(*entry.ExpiresAt))
			}
			lines = append(lines, line)
		}

		if len(lines) == 0 {
			return e.CreateMessage(discord.MessageCreate{
				Content: "You have no active boosts. Check `/shop list`.",
				Flags:   discord.MessageFlagEphemeral,
			})
		}

		embed := discord.NewEmbedBuilder().
			SetTitle("Your Boosts").
			SetDescription(strings.Join(lines, "\n")).
			SetColor(config.BoostColor).
			SetFooter(fmt.Sprintf("Effective multiplier: %.1fx (best wins)", effective), "").
			Build()

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{embed},
			Flags:  discord.MessageFlagEphemeral,
		})
	}
}
