package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/pkg/utils"
)

// helpCommand shows the help of one command or a page of every listed command.
type helpCommand struct{}

func helpDefinition() *command.Definition {
	return &command.Definition{
		Name: "help",
		Help: doc{
			usage:   "help [command]",
			desc:    "Get help for a command. Exclude the command to get help for all commands.",
			aliases: []string{"h"},
		}.help(),
		New: func() command.Command { return helpCommand{} },
	}
}

func (helpCommand) Execute(ctx context.Context, c *command.Context) error {
	target := strings.TrimSpace(c.Target)

	page, err := strconv.Atoi(target)
	if target == "" || err == nil {
		return c.SendEmbed(ctx, helpListing(c, page))
	}

	def, err := c.Registry.Resolve(utils.ToID(target))
	if err != nil {
		return fmt.Errorf("failed to resolve help target: %w", err)
	}

	name := utils.ToID(target)
	text := command.DefaultHelp
	if def != nil {
		name = def.ID()
		text = def.HelpText(c.Prefix)
	}

	embed := discord.NewEmbedBuilder().
		SetColor(constants.DefaultEmbedColor).
		SetDescription(constants.HelpSelectedCommand).
		SetAuthor(constants.HelpAuthor, "", c.Author.AvatarURL).
		AddField(c.Prefix+name, text, false).
		SetTimestamp(c.Clock())

	return c.SendEmbed(ctx, embed.Build())
}

// helpListing builds one page of the command listing, clamping page into range.
func helpListing(c *command.Context, page int) discord.Embed {
	var listed []*command.Definition
	for _, def := range c.Registry.Commands() {
		if def.Listed(c.Prefix) {
			listed = append(listed, def)
		}
	}

	lastPage := max((len(listed)+constants.HelpPerPage-1)/constants.HelpPerPage, 1)
	page = min(max(page, 1), lastPage)

	embed := discord.NewEmbedBuilder().
		SetColor(constants.DefaultEmbedColor).
		SetDescription(constants.HelpAllCommands).
		SetAuthor(constants.HelpAuthor, "", c.Author.AvatarURL).
		SetFooterText(fmt.Sprintf("Page: %d/%d", page, lastPage)).
		SetTimestamp(c.Clock())

	start := (page - 1) * constants.HelpPerPage
	end := min(start+constants.HelpPerPage, len(listed))
	for _, def := range listed[start:end] {
		embed.AddField(c.Prefix+def.ID(), def.HelpText(c.Prefix), false)
	}

	if len(listed) == 0 {
		embed.AddField("No Commands Found", "Thats strange, maybe something broke?", false)
	}

	return embed.Build()
}

// directoryCommand links the server directory.
type directoryCommand struct{}

func directoryDefinition() *command.Definition {
	return &command.Definition{
		Name: "directory",
		Help: doc{
			usage: "directory",
			desc:  "Get the link for the smogon discord directory.",
		}.help(),
		New: func() command.Command { return directoryCommand{} },
	}
}

func (directoryCommand) Execute(ctx context.Context, c *command.Context) error {
	return c.Reply(ctx, "Here's a link to the Smogon Discord Server Directory! "+constants.DirectoryLink)
}
