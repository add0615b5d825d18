package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/json"

	"github.com/levelforge/levelbot/levelbot"
	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/database/models"
	"github.com/levelforge/levelbot/levelbot/economy/boost"
	"github.com/levelforge/levelbot/levelbot/utils"
)

var XPAdmin = discord.SlashCommandCreate{
	Name:                     "xpadmin",
	Description:              "Adjust user progression",
	DefaultMemberPermissions: json.NewNullablePtr(discord.PermissionManageGuild),
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "give",
			Description: "Add or remove XP (negative removes)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "The member",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "xp",
					Description: "XP delta",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "reset",
			Description: "Delete a member's progression entirely",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "The member",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "clearboosts",
			Description: "Remove all of a member's boosts",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "The member",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "grantboost",
			Description: "Grant a member an XP boost for free",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "The member",
					Required:    true,
				},
				discord.ApplicationCommandOptionFloat{
					Name:        "multiplier",
					Description: "XP multiplier, e.g. 2.0",
					Required:    true,
					MinValue:    utils.Ptr(1.0),
					MaxValue:    utils.Ptr(5.0),
				},
				discord.ApplicationCommandOptionInt{
					Name:        "hours",
					Description: "How long the boost lasts",
					Required:    true,
					MinValue:    utils.Ptr(1),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "sweep",
			Description: "Expire stale boosts and events right now",
		},
	},
}

func XPAdminHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if e.GuildID() == nil {
			return e.CreateMessage(discord.MessageCreate{
				Content: "This command only works in a server.",
				Flags:   discord.MessageFlagEphemeral,
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		guildID := e.GuildID().String()
		target := data.User("user")
		userID := target.ID.String()

		switch *data.SubCommandName {
		case "give":
			delta := int64(data.Int("xp"))
			res, err := b.Ledger.RecomputeLevel(ctx, guildID, userID, delta)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("Adjusted %s by **%+d XP** (level %d → %d).",
				target.Mention(), delta, res.OldLevel, res.NewLevel)
			return e.CreateMessage(discord.MessageCreate{Content: msg})

		case "reset":
			if err := b.Progressions.Delete(ctx, guildID, userID); err != nil {
				return err
			}
			if b.Spaces != nil {
				if err := b.Spaces.DeleteRankCard(ctx, guildID, userID); err != nil {
					slog.Warn("Failed to delete stored rank card",
						slog.String("type", "cmd"),
						slog.String("user_id", userID),
						slog.Any("error", err))
				}
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("Reset all progression for %s.", target.Mention()),
			})

		case "clearboosts":
			p, err := b.Progressions.GetOrCreate(ctx, guildID, userID)
			if err != nil {
				return err
			}
			had := boost.EffectiveMultiplier(p, time.Now())
			boost.ClearBoosts(p)
			if err := b.Progressions.Save(ctx, p); err != nil {
				return err
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("Cleared boosts for %s (was %.1fx).", target.Mention(), had),
			})

		case "grantboost":
			mult := data.Float("multiplier")
			duration := time.Duration(data.Int("hours")) * time.Hour

			p, err := b.Progressions.GetOrCreate(ctx, guildID, userID)
			if err != nil {
				return err
			}
			res := boost.ActivateBoost(p, mult, duration, "Admin Grant", "admin_grant", models.ItemTypeUserBoost, time.Now())
			if !res.Activated {
				return e.CreateMessage(discord.MessageCreate{
					Content: fmt.Sprintf("❌ %s already has a %.1fx boost running.", target.Mention(), res.CurrentBest),
					Flags:   discord.MessageFlagEphemeral,
				})
			}
			if err := b.Progressions.Save(ctx, p); err != nil {
				return err
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("Granted %s a **%.1fx** boost until %s.",
					target.Mention(), mult, utils.DiscordTimestamp(*res.Entry.ExpiresAt)),
			})

		case "sweep":
			now := time.Now()
			boosts, err := b.Progressions.ExpireStaleBoosts(ctx, now)
			if err != nil {
				return err
			}
			events, err := b.EventRepo.DeactivateExpired(ctx, now)
			if err != nil {
				return err
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("Swept **%d** stale boosts and **%d** expired events.", boosts, events),
			})
		}
		return nil
	}
}
