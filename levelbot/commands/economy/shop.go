package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/levelforge/levelbot/levelbot"
	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/economy/shop"
	"github.com/levelforge/levelbot/levelbot/utils"
)

var Shop = discord.SlashCommandCreate{
	Name:        "shop",
	Description: "Browse and buy XP boosts",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "Show what's for sale",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "buy",
			Description: "Buy a boost",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "item",
					Description: "The boost to buy",
					Required:    true,
					Choices:     shopChoices(),
				},
			},
		},
	},
}

func shopChoices() []discord.ApplicationCommandOptionChoiceString {
	items := shop.Catalog()
	choices := make([]discord.ApplicationCommandOptionChoiceString, 0, len(items))
	for _, item := range items {
		choices = append(choices, discord.ApplicationCommandOptionChoiceString{
			Name:  fmt.Sprintf("%s (%d coins)", item.Name, item.Price),
			Value: item.ID,
		})
	}
	return choices
}

func ShopHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		if e.GuildID() == nil {
			return e.CreateMessage(discord.MessageCreate{
				Content: "This command only works in a server.",
				Flags:   discord.MessageFlagEphemeral,
			})
		}

		switch *data.SubCommandName {
		case "list":
			return handleShopList(e)
		case "buy":
			return handleShopBuy(b, e, data.String("item"))
		}
		return nil
	}
}

func handleShopList(e *handler.CommandEvent) error {
	builder := discord.NewEmbedBuilder().
		SetTitle("🛍️ Boost Shop").
		SetDescription("Buy a boost with `/shop buy`. The strongest active boost wins; they never stack.").
		SetColor(config.BoostColor)

	for _, item := range shop.Catalog() {
		builder.AddField(
			fmt.Sprintf("%s — %d coins", item.Name, item.Price),
			fmt.Sprintf("%s (%s)", item.Description, utils.FormatDuration(item.Duration)),
			false,
		)
	}

	return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{builder.Build()}})
}

func handleShopBuy(b *levelbot.Bot, e *handler.CommandEvent, itemID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	res, err := b.Shop.Purchase(ctx, e.GuildID().String(), e.User().ID.String(), itemID)
	if err != nil {
		switch {
		case errors.Is(err, shop.ErrInsufficientFunds),
			errors.Is(err, shop.ErrAlreadyBoosted),
			errors.Is(err, shop.ErrUnknownItem):
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("❌ %s", err),
				Flags:   discord.MessageFlagEphemeral,
			})
		}
		return err
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("✅ Boost Activated").
		SetDescription(fmt.Sprintf("**%s** is now active.", res.Item.Name)).
		SetColor(config.SuccessColor).
		AddField("Multiplier", fmt.Sprintf("%.1fx", res.Item.Multiplier), true).
		AddField("Balance", fmt.Sprintf("%d coins", res.Balance), true)
	if res.ExpiresAt != nil {
		embed.AddField("Expires", utils.DiscordTimestamp(*res.ExpiresAt), true)
	}

	return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed.Build()}})
}
