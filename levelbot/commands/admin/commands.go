package admin

import "github.com/disgoorg/disgo/discord"

var Commands = []discord.ApplicationCommandCreate{
	XPConfig,
	XPEvent,
	XPAdmin,
}
