package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/json"

	"github.com/levelforge/levelbot/levelbot"
	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/database/models"
	"github.com/levelforge/levelbot/levelbot/utils"
)

var XPEvent = discord.SlashCommandCreate{
	Name:                     "xpevent",
	Description:              "Run time-boxed reward events",
	DefaultMemberPermissions: json.NewNullablePtr(discord.PermissionManageGuild),
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "start",
			Description: "Start an event",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "name",
					Description: "Event name",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "type",
					Description: "What the event boosts",
					Required:    true,
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "XP multiplier", Value: models.EventTypeXPMultiplier},
						{Name: "Coin multiplier", Value: models.EventTypeCoinMultiplier},
						{Name: "Token bonus", Value: models.EventTypeTokenBonus},
					},
				},
				discord.ApplicationCommandOptionInt{
					Name:        "hours",
					Description: "How long the event runs",
					Required:    true,
				},
				discord.ApplicationCommandOptionFloat{
					Name:        "multiplier",
					Description: "Multiplier for multiplier events (e.g. 2.0)",
				},
				discord.ApplicationCommandOptionInt{
					Name:        "bonus",
					Description: "Flat bonus for bonus events",
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "end",
			Description: "End a running event early",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "name",
					Description: "Event name",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "List running events",
		},
	},
}

func XPEventHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if e.GuildID() == nil {
			return e.CreateMessage(discord.MessageCreate{
				Content: "This command only works in a server.",
				Flags:   discord.MessageFlagEphemeral,
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		guildID := e.GuildID().String()
		data := e.SlashCommandInteractionData()

		switch *data.SubCommandName {
		case "start":
			name := data.String("name")
			eventType := data.String("type")
			hours := data.Int("hours")
			var multiplier float64
			if m, ok := data.OptFloat("multiplier"); ok {
				multiplier = m
			}
			var bonus int64
			if v, ok := data.OptInt("bonus"); ok {
				bonus = int64(v)
			}

			event, err := b.EventEngine.StartEvent(ctx, guildID, name, eventType,
				multiplier, bonus, time.Duration(hours)*time.Hour, e.User().ID.String())
			if err != nil {
				return e.CreateMessage(discord.MessageCreate{
					Content: fmt.Sprintf("❌ %s", err),
					Flags:   discord.MessageFlagEphemeral,
				})
			}

			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{discord.NewEmbedBuilder().
					SetTitle("🎉 Event Started").
					SetDescription(describeEvent(event)).
					SetColor(config.EventColor).
					Build()},
			})

		case "end":
			name := data.String("name")
			event, err := b.EventEngine.EndEvent(ctx, guildID, name)
			if err != nil {
				return e.CreateMessage(discord.MessageCreate{
					Content: fmt.Sprintf("❌ %s", err),
					Flags:   discord.MessageFlagEphemeral,
				})
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("Ended **%s** (applied %d times, granted %d).",
					event.Name, event.TimesApplied, event.RewardGranted),
			})

		case "list":
			running, err := b.EventEngine.ListActive(ctx, guildID)
			if err != nil {
				return err
			}
			if len(running) == 0 {
				return e.CreateMessage(discord.MessageCreate{
					Content: "No events are running.",
					Flags:   discord.MessageFlagEphemeral,
				})
			}

			var lines []string
			for _, event := range running {
				lines = append(lines, describeEvent(event))
			}
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{discord.NewEmbedBuilder().
					SetTitle("Running Events").
					SetDescription(strings.Join(lines, "\n\n")).
					SetColor(config.EventColor).
					Build()},
			})
		}
		return nil
	}
}

func describeEvent(event *models.Event) string {
	scope := "server"
	if event.GuildID == "" {
		scope = "global"
	}

	var effect string
	switch event.Type {
	case models.EventTypeTokenBonus:
		effect = fmt.Sprintf("+%d tokens", event.Bonus)
	default:
		effect = fmt.Sprintf("%.1fx %s", event.Multiplier, event.RewardType())
		if event.Bonus > 0 {
			effect += fmt.Sprintf(" +%d", event.Bonus)
		}
	}

	return fmt.Sprintf("**%s** (%s) — %s, ends %s",
		event.Name, scope, effect, utils.DiscordTimestamp(event.EndDate))
}
