package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/pkg/utils"
)

// timeframeLabels are the description prefixes of each granularity, as
// {leaderboard, linecount}.
var timeframeLabels = map[types.Granularity][2]string{ //nolint:gochecknoglobals // -
	types.GranularityDay:     {"Todays ", "Daily "},
	types.GranularityWeek:    {"This Weeks ", "Weekly "},
	types.GranularityMonth:   {"This Months ", "Monthly "},
	types.GranularityAllTime: {"All Time ", "All Time "},
}

// leaderboardCommand ranks the most active users or public channels.
type leaderboardCommand struct {
	channels bool
}

func leaderboardDefinition() *command.Definition {
	return &command.Definition{
		Name: "leaderboard",
		Help: doc{
			usage: "leaderboard [day | week | month | alltime]",
			desc: "Gets the public chat leaderboard for the selected timeframe. " +
				"Timeframe defaults to alltime.",
			requires: "KICK_MEMBERS",
			aliases:  []string{"lb"},
			related:  []string{"channelleaderboard", "linecount", "channellinecount"},
		}.help(),
		New: func() command.Command { return leaderboardCommand{} },
	}
}

func channelLeaderboardDefinition() *command.Definition {
	return &command.Definition{
		Name: "channelleaderboard",
		Help: doc{
			usage: "channelleaderboard [day | week | month | alltime]",
			desc: "Gets the activity leaderboard for public channels in the selected timeframe. " +
				"Timeframe defaults to alltime.",
			requires: "KICK_MEMBERS",
			aliases:  []string{"clb"},
			related:  []string{"leaderboard", "linecount", "channellinecount"},
		}.help(),
		New: func() command.Command { return leaderboardCommand{channels: true} },
	}
}

func (l leaderboardCommand) Execute(ctx context.Context, c *command.Context) error {
	if ok, err := guildCommand(ctx, c, "KICK_MEMBERS", "Access Denied"); !ok {
		return err
	}

	granularity, err := types.ParseGranularity(utils.ToID(c.Target), types.GranularityAllTime)
	if err != nil {
		return c.ErrorReply(ctx, l.help(c))
	}

	serverID := uint64(c.Guild.ID)
	now := c.Clock().UTC()

	var rows []types.LineTotal
	if l.channels {
		rows, err = c.Store.Activity().ChannelLeaderboard(ctx, serverID, granularity, now, 0)
	} else {
		rows, err = c.Store.Activity().Leaderboard(ctx, serverID, granularity, now, 0)
	}
	if err != nil {
		return err
	}

	description := timeframeLabels[granularity][0] + "Chatter Leaderboard"
	if l.channels {
		description = timeframeLabels[granularity][0] + "Most Active Channels"
	}

	lastPage := max((len(rows)+constants.LeaderboardPerPage-1)/constants.LeaderboardPerPage, 1)

	embed := discord.NewEmbedBuilder().
		SetColor(constants.DefaultEmbedColor).
		SetDescription(description).
		SetAuthor(c.Guild.Name, "", "").
		SetFooterText(fmt.Sprintf("Page 1/%d", lastPage)).
		SetTimestamp(c.Clock())

	for i, row := range rows[:min(len(rows), constants.LeaderboardPerPage)] {
		name := row.Name
		if !l.channels {
			name += "#" + row.Discriminator
		}
		embed.AddField(fmt.Sprintf("%d. %s", i+1, name), fmt.Sprintf("%d lines", row.Lines), false)
	}

	if len(rows) == 0 {
		embed.AddField("No Lines", "Nobody has spoken yet.", false)
	}

	return c.SendEmbed(ctx, embed.Build())
}

// help returns the help text of the invoked variant.
func (l leaderboardCommand) help(c *command.Context) string {
	if l.channels {
		return channelLeaderboardDefinition().HelpText(c.Prefix)
	}
	return leaderboardDefinition().HelpText(c.Prefix)
}

// linecountCommand shows the activity of one user or public channel over time.
type linecountCommand struct {
	channels bool
}

func linecountDefinition() *command.Definition {
	return &command.Definition{
		Name: "linecount",
		Help: doc{
			usage: "linecount @user, [day | week | month | alltime]",
			desc: "Gets a user's public activity in the selected timeframe. " +
				"Timeframe defaults to day.",
			requires: "KICK_MEMBERS",
			aliases:  []string{"lc"},
			related:  []string{"leaderboard", "channelleaderboard", "channellinecount"},
		}.help(),
		New: func() command.Command { return linecountCommand{} },
	}
}

func channelLinecountDefinition() *command.Definition {
	return &command.Definition{
		Name: "channellinecount",
		Help: doc{
			usage: "channellinecount #channel, [day | week | month | alltime]",
			desc: "Gets a public channel's activity in the selected timeframe. " +
				"Timeframe defaults to day.",
			requires: "KICK_MEMBERS",
			aliases:  []string{"clc"},
			related:  []string{"leaderboard", "channelleaderboard", "linecount"},
		}.help(),
		New: func() command.Command { return linecountCommand{channels: true} },
	}
}

func (l linecountCommand) Execute(ctx context.Context, c *command.Context) error {
	if ok, err := guildCommand(ctx, c, "KICK_MEMBERS", "Access Denied"); !ok {
		return err
	}

	parts := utils.SplitArgs(c.Target, 2)
	granularity, err := types.ParseGranularity(utils.ToID(parts[1]), types.GranularityDay)
	if err != nil || parts[0] == "" {
		return c.ErrorReply(ctx, l.help(c))
	}

	serverID := uint64(c.Guild.ID)

	var (
		buckets     []types.LineBucket
		description string
	)
	if l.channels {
		channel, ok := c.GetChannel(parts[0], true)
		if !ok || !c.Platform.ChannelPublic(channel.ID) {
			return c.ErrorReply(ctx, l.help(c))
		}

		buckets, err = c.Store.Activity().ChannelLineCounts(
			ctx, serverID, uint64(channel.ID), granularity, constants.LineCountBuckets)
		description = "Linecount for " + channel.Name
	} else {
		user, ok, lookupErr := c.GetUser(ctx, parts[0])
		if lookupErr != nil {
			return lookupErr
		}
		if !ok {
			return c.ErrorReply(ctx, l.help(c))
		}

		buckets, err = c.Store.Activity().UserLineCounts(
			ctx, serverID, uint64(user.ID), granularity, constants.LineCountBuckets)
		description = timeframeLabels[granularity][1] + "Linecount for " + user.Username + "#" + user.Discriminator
	}
	if err != nil {
		return err
	}

	embed := discord.NewEmbedBuilder().
		SetColor(constants.DefaultEmbedColor).
		SetDescription(description).
		SetAuthor(c.Guild.Name, "", "").
		SetTimestamp(c.Clock())

	shown := 0
	for _, bucket := range buckets {
		if bucket.Lines == 0 {
			continue
		}
		embed.AddField(bucketLabel(bucket.Period, granularity), fmt.Sprintf("%d lines", bucket.Lines), false)
		shown++
	}

	if shown == 0 {
		embed.AddField("No Lines", "Nobody has spoken yet.", false)
	}

	return c.SendEmbed(ctx, embed.Build())
}

// help returns the help text of the invoked variant.
func (l linecountCommand) help(c *command.Context) string {
	if l.channels {
		return channelLinecountDefinition().HelpText(c.Prefix)
	}
	return linecountDefinition().HelpText(c.Prefix)
}

// bucketLabel names the period a linecount bucket starts on.
func bucketLabel(period string, granularity types.Granularity) string {
	if granularity == types.GranularityAllTime {
		return "All Records"
	}

	day, err := time.Parse(time.DateOnly, period)
	if err != nil {
		return period
	}

	switch granularity {
	case types.GranularityWeek:
		_, week := day.ISOWeek()
		return fmt.Sprintf("Week %d", week)
	case types.GranularityMonth:
		return day.Month().String()
	default:
		return day.Format("January 2, 2006")
	}
}
