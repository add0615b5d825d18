package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/json"

	"github.com/levelforge/levelbot/levelbot"
	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/database/models"
)

var XPConfig = discord.SlashCommandCreate{
	Name:                     "xpconfig",
	Description:              "Configure leveling for this server",
	DefaultMemberPermissions: json.NewNullablePtr(discord.PermissionManageGuild),
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "toggle",
			Description: "Enable or disable leveling",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionBool{
					Name:        "enabled",
					Description: "Whether leveling is on",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "message",
			Description: "Set the message XP roll and cooldown",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "min",
					Description: "Minimum XP per message",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "max",
					Description: "Maximum XP per message",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "cooldown",
					Description: "Seconds between rewarded messages",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "curve",
			Description: "Set the level curve parameters",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionFloat{
					Name:        "base",
					Description: "Base XP per level step",
					Required:    true,
				},
				discord.ApplicationCommandOptionFloat{
					Name:        "growth",
					Description: fmt.Sprintf("Growth exponent, in (%.1f, %.1f]", config.MinGrowthRate, config.MaxGrowthRate),
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "caps",
			Description: "Set daily XP and message caps (0 disables a cap)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "daily_xp",
					Description: "Maximum XP a user can earn per day",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "daily_messages",
					Description: "Maximum rewarded messages per day",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "show",
			Description: "Show the current configuration",
		},
		discord.ApplicationCommandOptionSubCommandGroup{
			Name:        "role",
			Description: "Role-based XP rules",
			Options: []discord.ApplicationCommandOptionSubCommand{
				{
					Name:        "boost",
					Description: "Give a role an XP multiplier",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionRole{
							Name:        "role",
							Description: "The role",
							Required:    true,
						},
						discord.ApplicationCommandOptionFloat{
							Name:        "multiplier",
							Description: fmt.Sprintf("Multiplier, in [%.0f, %.0f]", config.MinRoleBoost, config.MaxRoleBoost),
							Required:    true,
						},
					},
				},
				{
					Name:        "penalty",
					Description: "Give a role an XP reduction",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionRole{
							Name:        "role",
							Description: "The role",
							Required:    true,
						},
						discord.ApplicationCommandOptionFloat{
							Name:        "multiplier",
							Description: "Multiplier, in [0, 1]",
							Required:    true,
						},
					},
				},
				{
					Name:        "clear",
					Description: "Remove a role's boost or penalty",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionRole{
							Name:        "role",
							Description: "The role",
							Required:    true,
						},
					},
				},
				{
					Name:        "ignore",
					Description: "Fully exclude a role from leveling",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionRole{
							Name:        "role",
							Description: "The role",
							Required:    true,
						},
					},
				},
				{
					Name:        "unignore",
					Description: "Stop ignoring a role",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionRole{
							Name:        "role",
							Description: "The role",
							Required:    true,
						},
					},
				},
				{
					Name:        "noxp",
					Description: "Process a role's activity but award zero XP",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionRole{
							Name:        "role",
							Description: "The role",
							Required:    true,
						},
					},
				},
				{
					Name:        "allowxp",
					Description: "Remove a role's no-XP marker",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionRole{
							Name:        "role",
							Description: "The role",
							Required:    true,
						},
					},
				},
			},
		},
		discord.ApplicationCommandOptionSubCommandGroup{
			Name:        "channel",
			Description: "Channel-based XP rules",
			Options: []discord.ApplicationCommandOptionSubCommand{
				{
					Name:        "multiplier",
					Description: "Set a channel XP multiplier (overrides bonus percent)",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionChannel{
							Name:        "channel",
							Description: "The channel",
							Required:    true,
						},
						discord.ApplicationCommandOptionFloat{
							Name:        "multiplier",
							Description: fmt.Sprintf("Multiplier, in [%.0f, %.0f]", config.MinChannelBoost, config.MaxChannelBoost),
							Required:    true,
						},
					},
				},
				{
					Name:        "clear",
					Description: "Remove a channel's multiplier",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionChannel{
							Name:        "channel",
							Description: "The channel",
							Required:    true,
						},
					},
				},
				{
					Name:        "bonus",
					Description: "Set a percentage XP bonus for a channel",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionChannel{
							Name:        "channel",
							Description: "The channel",
							Required:    true,
						},
						discord.ApplicationCommandOptionFloat{
							Name:        "percent",
							Description: "Bonus percent (25 = +25%)",
							Required:    true,
						},
					},
				},
				{
					Name:        "unbonus",
					Description: "Remove a channel's bonus percent",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionChannel{
							Name:        "channel",
							Description: "The channel",
							Required:    true,
						},
					},
				},
				{
					Name:        "ignore",
					Description: "Fully exclude a channel from leveling",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionChannel{
							Name:        "channel",
							Description: "The channel",
							Required:    true,
						},
					},
				},
				{
					Name:        "unignore",
					Description: "Stop ignoring a channel",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionChannel{
							Name:        "channel",
							Description: "The channel",
							Required:    true,
						},
					},
				},
				{
					Name:        "noxp",
					Description: "Process a channel's activity but award zero XP",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionChannel{
							Name:        "channel",
							Description: "The channel",
							Required:    true,
						},
					},
				},
				{
					Name:        "allowxp",
					Description: "Remove a channel's no-XP marker",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionChannel{
							Name:        "channel",
							Description: "The channel",
							Required:    true,
						},
					},
				},
			},
		},
	},
}

func XPConfigHandler(b *levelbot.Bot) handler.CommandHandler {
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

		var group string
		if data.SubCommandGroupName != nil {
			group = *data.SubCommandGroupName
		}
		sub := *data.SubCommandName

		var err error
		var reply string

		switch group {
		case "":
			reply, err = handleTopLevel(ctx, b, e, guildID, sub)
		case "role":
			roleID := data.Role("role").ID.String()
			reply, err = handleRoleRule(ctx, b, guildID, sub, roleID, data)
		case "channel":
			channelID := data.Channel("channel").ID.String()
			reply, err = handleChannelRule(ctx, b, guildID, sub, channelID, data)
		}
		if err != nil {
			var vErr *models.ConfigValidationError
			if errors.As(err, &vErr) {
				return e.CreateMessage(discord.MessageCreate{
					Content: fmt.Sprintf("❌ %s", vErr),
					Flags:   discord.MessageFlagEphemeral,
				})
			}
			return err
		}
		if reply == "" {
			return nil
		}

		return e.CreateMessage(discord.MessageCreate{
			Content: reply,
			Flags:   discord.MessageFlagEphemeral,
		})
	}
}

func handleTopLevel(ctx context.Context, b *levelbot.Bot, e *handler.CommandEvent, guildID, sub string) (string, error) {
	data := e.SlashCommandInteractionData()
	switch sub {
	case "toggle":
		enabled := data.Bool("enabled")
		if err := b.GuildConfigs.SetEnabled(ctx, guildID, enabled); err != nil {
			return "", err
		}
		if enabled {
			return "Leveling is now **enabled**.", nil
		}
		return "Leveling is now **disabled**.", nil

	case "message":
		min := int64(data.Int("min"))
		max := int64(data.Int("max"))
		cooldown := data.Int("cooldown")
		if err := b.GuildConfigs.SetMessageXP(ctx, guildID, min, max, cooldown); err != nil {
			return "", err
		}
		return fmt.Sprintf("Message XP set to **%d–%d** with a **%ds** cooldown.", min, max, cooldown), nil

	case "curve":
		base := data.Float("base")
		growth := data.Float("growth")
		if err := b.GuildConfigs.SetCurve(ctx, guildID, base, growth); err != nil {
			return "", err
		}
		return fmt.Sprintf("Level curve set to base **%.0f**, growth **%.2f**.", base, growth), nil

	case "caps":
		dailyXP := int64(data.Int("daily_xp"))
		dailyMessages := data.Int("daily_messages")
		if err := b.GuildConfigs.SetDailyCaps(ctx, guildID, dailyXP, dailyMessages); err != nil {
			return "", err
		}
		return fmt.Sprintf("Daily caps set to **%d XP** and **%d messages**.", dailyXP, dailyMessages), nil

	case "show":
		cfg, err := b.GuildConfigs.GetOrCreate(ctx, guildID)
		if err != nil {
			return "", err
		}
		return "", e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{buildConfigEmbed(cfg)},
			Flags:  discord.MessageFlagEphemeral,
		})
	}
	return "", nil
}

func handleRoleRule(ctx context.Context, b *levelbot.Bot, guildID, sub, roleID string, data discord.SlashCommandInteractionData) (string, error) {
	mention := fmt.Sprintf("<@&%s>", roleID)
	switch sub {
	case "boost":
		mult := data.Float("multiplier")
		if err := b.GuildConfigs.AddBoostRole(ctx, guildID, roleID, mult); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s now grants a **%.2fx** XP multiplier.", mention, mult), nil
	case "penalty":
		mult := data.Float("multiplier")
		if err := b.GuildConfigs.AddPenaltyRole(ctx, guildID, roleID, mult); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s now applies a **%.2fx** XP reduction.", mention, mult), nil
	case "clear":
		if err := b.GuildConfigs.RemoveBoostRole(ctx, guildID, roleID); err != nil {
			return "", err
		}
		if err := b.GuildConfigs.RemovePenaltyRole(ctx, guildID, roleID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed XP modifiers from %s.", mention), nil
	case "ignore":
		if err := b.GuildConfigs.AddIgnoredRole(ctx, guildID, roleID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is now fully ignored.", mention), nil
	case "unignore":
		if err := b.GuildConfigs.RemoveIgnoredRole(ctx, guildID, roleID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is no longer ignored.", mention), nil
	case "noxp":
		if err := b.GuildConfigs.AddNoXPRole(ctx, guildID, roleID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s now earns zero XP.", mention), nil
	case "allowxp":
		if err := b.GuildConfigs.RemoveNoXPRole(ctx, guildID, roleID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s earns XP again.", mention), nil
	}
	return "", nil
}

func handleChannelRule(ctx context.Context, b *levelbot.Bot, guildID, sub, channelID string, data discord.SlashCommandInteractionData) (string, error) {
	mention := fmt.Sprintf("<#%s>", channelID)
	switch sub {
	case "multiplier":
		mult := data.Float("multiplier")
		if err := b.GuildConfigs.AddChannelMultiplier(ctx, guildID, channelID, mult); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s now has a **%.2fx** XP multiplier.", mention, mult), nil
	case "clear":
		if err := b.GuildConfigs.RemoveChannelMultiplier(ctx, guildID, channelID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed the multiplier from %s.", mention), nil
	case "bonus":
		pct := data.Float("percent")
		if err := b.GuildConfigs.SetBonusChannel(ctx, guildID, channelID, pct); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s now grants **+%.0f%%** XP.", mention, pct), nil
	case "unbonus":
		if err := b.GuildConfigs.RemoveBonusChannel(ctx, guildID, channelID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed the bonus from %s.", mention), nil
	case "ignore":
		if err := b.GuildConfigs.AddIgnoredChannel(ctx, guildID, channelID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is now fully ignored.", mention), nil
	case "unignore":
		if err := b.GuildConfigs.RemoveIgnoredChannel(ctx, guildID, channelID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is no longer ignored.", mention), nil
	case "noxp":
		if err := b.GuildConfigs.AddNoXPChannel(ctx, guildID, channelID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s now awards zero XP.", mention), nil
	case "allowxp":
		if err := b.GuildConfigs.RemoveNoXPChannel(ctx, guildID, channelID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s awards XP again.", mention), nil
	}
	return "", nil
}

func buildConfigEmbed(cfg *models.GuildConfig) discord.Embed {
	status := "disabled"
	if cfg.Enabled {
		status = "enabled"
	}

	return discord.NewEmbedBuilder().
		SetTitle("Leveling Configuration").
		SetColor(config.InfoColor).
		AddField("Status", status, true).
		AddField("Message XP", fmt.Sprintf("%d–%d, %ds cooldown",
			cfg.MessageXP.Min, cfg.MessageXP.Max, cfg.MessageXP.CooldownSeconds), true).
		AddField("Voice XP", fmt.Sprintf("%d/min, %d max per session",
			cfg.VoiceXP.PerMinute, cfg.VoiceXP.MaxPerSession), true).
		AddField("Curve", fmt.Sprintf("base %.0f, growth %.2f",
			cfg.Curve.BaseXP, cfg.Curve.GrowthRate), true).
		AddField("Daily Caps", fmt.Sprintf("%d XP, %d messages",
			cfg.MaxDailyXP, cfg.MaxMessagesPerDay), true).
		AddField("Rules", fmt.Sprintf("%d boost roles, %d penalty roles\n%d special channels, %d bonus channels\n%d ignored, %d no-XP entries",
			len(cfg.BoostRoles), len(cfg.XPReductionRoles),
			len(cfg.SpecialChannels), len(cfg.BonusChannels),
			len(cfg.IgnoredRoles)+len(cfg.IgnoredChannels),
			len(cfg.NoXPRoles)+len(cfg.NoXPChannels)), true).
		Build()
}
