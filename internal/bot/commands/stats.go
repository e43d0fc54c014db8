package commands

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/internal/showdown"
)

// leadsFormat is the format whose leads are listed.
var leadsFormat = showdown.Format{Generation: "gen7", Tier: "ou"} //nolint:gochecknoglobals // -

// leadsCommand lists the most used leads of a format.
type leadsCommand struct {
	data *showdown.Data
}

func leadsDefinition(data *showdown.Data) *command.Definition {
	return &command.Definition{
		Name: "stats-leads",
		Help: doc{
			usage: "stats-leads",
			desc:  "Show the top 10 leads of Gen 7 OU by usage.",
		}.help(),
		New: func() command.Command { return leadsCommand{data: data} },
	}
}

func (l leadsCommand) Execute(ctx context.Context, c *command.Context) error {
	if l.data == nil {
		return c.ErrorReply(ctx, constants.StatsUnavailable)
	}

	leads, err := l.data.Leads(leadsFormat)
	if err != nil {
		return err
	}
	if len(leads) == 0 {
		return c.ErrorReply(ctx, constants.StatsUnavailable)
	}

	embed := discord.NewEmbedBuilder().SetColor(constants.DefaultEmbedColor)

	// The top lead decides the color and thumbnail
	first, ok, err := l.data.Pokemon(leads[0].Name)
	if err != nil {
		return err
	}
	if ok {
		if color, known := showdown.TypeColor(first.PrimaryType()); known {
			embed.SetColor(color)
		}
		embed.SetThumbnail(first.SpriteURL())
	}

	for i, lead := range leads {
		embed.AddField(
			fmt.Sprintf("Lead %dº %s", i+1, lead.Name),
			fmt.Sprintf("Usage: %.2f%%", lead.UsagePercentage),
			true,
		)
	}

	return c.Platform.Send(ctx, c.Channel.ID, discord.MessageCreate{
		Content: constants.LeadsHeader,
		Embeds:  []discord.Embed{embed.Build()},
	})
}
