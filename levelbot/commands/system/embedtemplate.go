package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/levelforge/levelbot/levelbot"
	"github.com/levelforge/levelbot/levelbot/config"
	"github.com/levelforge/levelbot/levelbot/database/models"
	"github.com/levelforge/levelbot/levelbot/database/repositories"
	"github.com/levelforge/levelbot/levelbot/services"
)

var EmbedTemplateCmd = discord.SlashCommandCreate{
	Name:        "embedtemplate",
	Description: "Manage reusable embed templates",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "set",
			Description: "Create or update an embed template",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "name",
					Description: "Template name",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "title",
					Description: "Embed title",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "description",
					Description: "Embed description",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "color",
					Description: "Embed color as a decimal RGB value",
				},
				discord.ApplicationCommandOptionString{
					Name:        "footer",
					Description: "Footer text",
				},
				discord.ApplicationCommandOptionString{
					Name:        "image",
					Description: "Image URL",
				},
				discord.ApplicationCommandOptionString{
					Name:        "thumbnail",
					Description: "Thumbnail URL",
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "show",
			Description: "Preview a stored template",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "name",
					Description:  "Template name",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "List this server's templates",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "delete",
			Description: "Delete a template",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "name",
					Description:  "Template name",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
	},
}

func EmbedTemplateHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		if e.GuildID() == nil {
			return e.CreateMessage(discord.MessageCreate{
				Content: "This command only works in a server.",
				Flags:   discord.MessageFlagEphemeral,
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		guildID := e.GuildID().String()

		switch *data.SubCommandName {
		case "set":
			tmpl := &models.EmbedTemplate{
				GuildID:     guildID,
				Name:        data.String("name"),
				Title:       data.String("title"),
				Description: data.String("description"),
				CreatedBy:   e.User().ID.String(),
			}
			if color, ok := data.OptInt("color"); ok {
				tmpl.Color = color
			}
			if footer, ok := data.OptString("footer"); ok {
				tmpl.Footer = footer
			}
			if image, ok := data.OptString("image"); ok {
				tmpl.ImageURL = image
			}
			if thumb, ok := data.OptString("thumbnail"); ok {
				tmpl.Thumbnail = thumb
			}
			if err := b.Templates.Save(ctx, tmpl); err != nil {
				return err
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("Template **%s** saved.", tmpl.Name),
				Flags:   discord.MessageFlagEphemeral,
			})

		case "show":
			tmpl, err := b.Templates.Get(ctx, guildID, data.String("name"))
			if err != nil {
				if errors.Is(err, repositories.ErrTemplateNotFound) {
					return e.CreateMessage(discord.MessageCreate{
						Content: "No template with that name.",
						Flags:   discord.MessageFlagEphemeral,
					})
				}
				return err
			}
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{services.BuildEmbed(tmpl)},
			})

		case "list":
			templates, err := b.Templates.List(ctx, guildID)
			if err != nil {
				return err
			}
			if len(templates) == 0 {
				return e.CreateMessage(discord.MessageCreate{
					Content: "This server has no templates yet.",
					Flags:   discord.MessageFlagEphemeral,
				})
			}
			content := "**Templates:**\n"
			for _, tmpl := range templates {
				content += fmt.Sprintf("• %s\n", tmpl.Name)
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: content,
				Flags:   discord.MessageFlagEphemeral,
			})

		case "delete":
			name := data.String("name")
			if err := b.Templates.Delete(ctx, guildID, name); err != nil {
				if errors.Is(err, repositories.ErrTemplateNotFound) {
					return e.CreateMessage(discord.MessageCreate{
						Content: "No template with that name.",
						Flags:   discord.MessageFlagEphemeral,
					})
				}
				return err
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("Template **%s** deleted.", name),
				Flags:   discord.MessageFlagEphemeral,
			})
		}
		return nil
	}
}

// EmbedTemplateAutocomplete fuzzy-matches template names.
func EmbedTemplateAutocomplete(b *levelbot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		if e.GuildID() == nil {
			return e.AutocompleteResult(nil)
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.StatsQueryTimeout)
		defer cancel()

		matches, err := b.Templates.Search(ctx, e.GuildID().String(), e.Data.String("name"), 25)
		if err != nil {
			return e.AutocompleteResult(nil)
		}

		choices := make([]discord.AutocompleteChoice, 0, len(matches))
		for _, tmpl := range matches {
			choices = append(choices, discord.AutocompleteChoiceString{
				Name:  tmpl.Name,
				Value: tmpl.Name,
			})
		}
		return e.AutocompleteResult(choices)
	}
}
