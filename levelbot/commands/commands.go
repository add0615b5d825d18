// Package commands aggregates every slash command the bot registers.
package commands

import (
	"github.com/disgoorg/disgo/discord"

	"github.com/levelforge/levelbot/levelbot/commands/admin"
	"github.com/levelforge/levelbot/levelbot/commands/economy"
	"github.com/levelforge/levelbot/levelbot/commands/social"
	"github.com/levelforge/levelbot/levelbot/commands/system"
)

var Commands = concat(
	admin.Commands,
	economy.Commands,
	social.Commands,
	system.Commands,
)

func concat(groups ...[]discord.ApplicationCommandCreate) []discord.ApplicationCommandCreate {
	var all []discord.ApplicationCommandCreate
	for _, group := range groups {
		all = append(all, group...)
	}
	return all
}
