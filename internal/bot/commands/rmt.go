package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/internal/bot/formats"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/robalyx/warden/pkg/utils"
)

var (
	raterMentionPattern = regexp.MustCompile(`^<@!?\d+>$`)
	raterTagPattern     = regexp.MustCompile(`^[^@#:]{1,32}#\d{4}$`)
	raterChannelPattern = regexp.MustCompile(`^<#\d+>$`)
)

// raterArgs are the resolved arguments of the team rater commands.
type raterArgs struct {
	user    platform.User
	format  string
	channel platform.Channel
}

// teamRaterCommand adds or removes a team rater registration.
type teamRaterCommand struct {
	remove bool
}

func addTeamRaterDefinition() *command.Definition {
	return &command.Definition{
		Name: "addteamrater",
		Help: doc{
			usage: "addteamrater @user, format, #channel",
			desc: "Adds a user to the team rater list of a format, so they are pinged when a team of that format " +
				"is posted in the channel. #channel defaults to the current one.",
			requires: "KICK_MEMBERS",
			related:  []string{"removeteamrater"},
		}.help(),
		New: func() command.Command { return teamRaterCommand{} },
	}
}

func removeTeamRaterDefinition() *command.Definition {
	return &command.Definition{
		Name: "removeteamrater",
		Help: doc{
			usage:    "removeteamrater @user, format, #channel",
			desc:     "Removes a user from the team rater list of a format. #channel defaults to the current one.",
			requires: "KICK_MEMBERS",
			related:  []string{"addteamrater"},
		}.help(),
		New: func() command.Command { return teamRaterCommand{remove: true} },
	}
}

func (t teamRaterCommand) Execute(ctx context.Context, c *command.Context) error {
	if ok, err := guildCommand(ctx, c, "KICK_MEMBERS", "Access Denied"); !ok {
		return err
	}

	args, ok, err := parseRaterArgs(ctx, c)
	if !ok {
		return err
	}

	rater := &types.TeamRater{
		UserID:    uint64(args.user.ID),
		Format:    args.format,
		ChannelID: uint64(args.channel.ID),
	}

	if t.remove {
		return removeRater(ctx, c, args, rater)
	}
	return addRater(ctx, c, args, rater)
}

func addRater(ctx context.Context, c *command.Context, args raterArgs, rater *types.TeamRater) error {
	err := c.Store.Users().CreateUser(ctx, &types.User{
		UserID:        rater.UserID,
		Name:          args.user.Username,
		Discriminator: args.user.Discriminator,
	})
	if err != nil {
		return err
	}

	err = c.Store.Channels().CreateChannel(ctx, &types.Channel{
		ChannelID:   rater.ChannelID,
		ChannelName: args.channel.Name,
		ServerID:    uint64(c.Guild.ID),
	})
	if err != nil {
		return err
	}

	exists, err := c.Store.TeamRaters().IsRater(ctx, rater)
	if err != nil {
		return err
	}
	if exists {
		return c.ErrorReply(ctx, fmt.Sprintf("%s is already a team rater for %s in %s.",
			args.user.Mention(), args.format, args.channel.Mention()))
	}

	if err := c.Store.TeamRaters().AddRater(ctx, rater); err != nil {
		return err
	}

	return c.Reply(ctx, fmt.Sprintf("%s has been added as a team rater for %s in %s",
		args.user.Username, args.format, args.channel.Mention()))
}

func removeRater(ctx context.Context, c *command.Context, args raterArgs, rater *types.TeamRater) error {
	exists, err := c.Store.TeamRaters().IsRater(ctx, rater)
	if err != nil {
		return err
	}
	if !exists {
		return c.ErrorReply(ctx, fmt.Sprintf("%s is not a team rater for %s in %s.",
			args.user.Username, args.format, args.channel.Mention()))
	}

	if err := c.Store.TeamRaters().RemoveRater(ctx, rater); err != nil {
		return err
	}

	return c.Reply(ctx, fmt.Sprintf("%s is no longer a team rater for %s in %s",
		args.user.Username, args.format, args.channel.Mention()))
}

// parseRaterArgs resolves "user, format, channel", replying with the problem
// and returning false when an argument is unusable.
func parseRaterArgs(ctx context.Context, c *command.Context) (raterArgs, bool, error) {
	parts := utils.SplitArgs(c.Target, 3)
	usage := fmt.Sprintf("Command usage: %s%s @User OR User#tag, format, (#channel). "+
		"#channel defaults to the current one if not provided.", c.Prefix, c.Cmd)

	var args raterArgs

	// User
	if !raterMentionPattern.MatchString(parts[0]) && !raterTagPattern.MatchString(parts[0]) {
		return args, false, c.ErrorReply(ctx, usage)
	}
	user, found, err := c.GetUser(ctx, parts[0])
	if err != nil {
		return args, false, err
	}
	if !found {
		return args, false, c.ErrorReply(ctx, fmt.Sprintf("Unable to find the user %q.", parts[0]))
	}
	args.user = user

	// Format
	format, err := formats.Normalize(parts[1])
	if err != nil {
		var invalid *formats.InvalidFormatError
		switch {
		case errors.Is(err, formats.ErrNoGeneration):
			return args, false, c.ErrorReply(ctx, "You must specify a generation for the format")
		case errors.As(err, &invalid):
			return args, false, c.ErrorReply(ctx, invalid.Error())
		default:
			return args, false, err
		}
	}
	args.format = format

	// Channel
	channel := c.Channel
	if parts[2] != "" {
		if !raterChannelPattern.MatchString(parts[2]) {
			return args, false, c.ErrorReply(ctx, usage)
		}
		resolved, found := c.GetChannel(parts[2], false)
		if !found {
			return args, false, c.ErrorReply(ctx, usage)
		}
		channel = resolved
	}
	if !channel.Type.TextLike() {
		return args, false, c.ErrorReply(ctx, "This command cannot be used in a DM or Group Chat.")
	}
	if channel.GuildID != c.Guild.ID {
		return args, false, c.ErrorReply(ctx, "Channel must be in this server.")
	}
	args.channel = channel

	return args, true, nil
}
