package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/internal/bot/sticky"
	"github.com/robalyx/warden/internal/discord/platform"
)

// keyPermission is a permission shown by whois.
type keyPermission struct {
	flag  discord.Permissions
	label string
}

// keyPermissions are shown by whois in this order.
var keyPermissions = []keyPermission{ //nolint:gochecknoglobals // -
	{discord.PermissionAdministrator, "Server Admin"},
	{discord.PermissionBanMembers, "Ban Members"},
	{discord.PermissionKickMembers, "Kick Members"},
	{discord.PermissionManageChannels, "Edit Channels"},
	{discord.PermissionManageGuild, "Edit Server"},
	{discord.PermissionManageRoles, "Assign Roles"},
	{discord.PermissionManageWebhooks, "Configure Webhooks"},
	{discord.PermissionMoveMembers, "Move Members in Voice Calls"},
	{discord.PermissionMuteMembers, "Mute Members"},
	{discord.PermissionViewAuditLog, "View Audit Log"},
}

// utcLayout renders timestamps the way the moderation embeds show them.
const utcLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// guildCommand gates a command to guilds and a permission, replying with the
// denial itself. It returns false when the command should stop.
func guildCommand(ctx context.Context, c *command.Context, permission, denied string) (bool, error) {
	if c.Guild == nil {
		return false, c.ErrorReply(ctx, constants.NotInPMs)
	}

	allowed, err := c.Can(ctx, permission)
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, c.ErrorReply(ctx, denied)
	}

	return true, nil
}

// whoisCommand shows details of a server member.
type whoisCommand struct{}

func whoisDefinition() *command.Definition {
	return &command.Definition{
		Name: "whois",
		Help: doc{
			usage:    "whois @user",
			desc:     "Get detailed information on the selected user.",
			requires: "KICK_MEMBERS",
		}.help(),
		New: func() command.Command { return whoisCommand{} },
	}
}

func (whoisCommand) Execute(ctx context.Context, c *command.Context) error {
	if ok, err := guildCommand(ctx, c, "KICK_MEMBERS", constants.AccessDenied); !ok {
		return err
	}

	notFound := fmt.Sprintf("The user %q was not found.", c.Target)

	user, ok, err := c.GetUser(ctx, c.Target)
	if err != nil {
		return err
	}
	if !ok {
		return c.ErrorReply(ctx, notFound)
	}

	member, ok, err := c.Platform.Member(ctx, c.Guild.ID, user.ID)
	if err != nil {
		return err
	}
	if !ok {
		return c.ErrorReply(ctx, notFound)
	}

	// Roles
	var roles []string
	for _, roleID := range member.RoleIDs {
		if role, ok := c.Platform.Role(c.Guild.ID, roleID); ok && !role.IsEveryone() {
			roles = append(roles, role.Mention())
		}
	}
	roleText := strings.Join(roles, " ")
	if roleText == "" {
		roleText = "No Roles"
	}

	// Key permissions
	permissions, err := c.Platform.Permissions(ctx, c.Guild.ID, user.ID)
	if err != nil {
		return err
	}
	var labels []string
	for _, perm := range keyPermissions {
		if permissions.Has(perm.flag) {
			labels = append(labels, perm.label)
		}
	}
	permText := strings.Join(labels, ", ")
	if permText == "" {
		permText = "None"
	}

	embed := discord.NewEmbedBuilder().
		SetColor(constants.DefaultEmbedColor).
		SetDescription(fmt.Sprintf("Information of %s.", user.Mention())).
		SetAuthor(user.Tag(), "", user.AvatarURL).
		AddField("Registered", user.ID.Time().UTC().Format(utcLayout), false).
		AddField("Roles", roleText, false).
		AddField("Key Permissions", permText, false).
		SetFooterText("User ID: " + user.ID.String()).
		SetTimestamp(c.Clock())

	return c.SendEmbed(ctx, embed.Build())
}

// enableLogsCommand makes the current channel the server's log channel.
type enableLogsCommand struct{}

func enableLogsDefinition() *command.Definition {
	return &command.Definition{
		Name: "enablelogs",
		Help: doc{
			usage:    "enablelogs",
			desc:     "Log moderation actions to this channel.",
			requires: "MANAGE_GUILD",
		}.help(),
		New: func() command.Command { return enableLogsCommand{} },
	}
}

func (enableLogsCommand) Execute(ctx context.Context, c *command.Context) error {
	if ok, err := guildCommand(ctx, c, "MANAGE_GUILD", "Access Denied"); !ok {
		return err
	}

	servers := c.Store.Servers()
	server, ok, err := servers.GetServer(ctx, uint64(c.Guild.ID))
	if err != nil {
		return err
	}
	if ok && server.LogChannel != nil && *server.LogChannel != 0 {
		return c.ErrorReply(ctx, fmt.Sprintf("This server is already setup to log to <#%d>.", *server.LogChannel))
	}

	channelID := uint64(c.Channel.ID)
	if err := servers.SetLogChannel(ctx, uint64(c.Guild.ID), &channelID); err != nil {
		return err
	}

	return c.Reply(ctx, "Server events will now be logged to this channel.")
}

// disableLogsCommand clears the server's log channel.
type disableLogsCommand struct{}

func disableLogsDefinition() *command.Definition {
	return &command.Definition{
		Name: "disablelogs",
		Help: doc{
			usage:    "disablelogs",
			desc:     "Stop logging moderation actions to this channel.",
			requires: "MANAGE_GUILD",
		}.help(),
		New: func() command.Command { return disableLogsCommand{} },
	}
}

func (disableLogsCommand) Execute(ctx context.Context, c *command.Context) error {
	if ok, err := guildCommand(ctx, c, "MANAGE_GUILD", "Access Denied"); !ok {
		return err
	}

	servers := c.Store.Servers()
	server, ok, err := servers.GetServer(ctx, uint64(c.Guild.ID))
	if err != nil {
		return err
	}
	if !ok || server.LogChannel == nil || *server.LogChannel == 0 {
		return c.ErrorReply(ctx, "This server is not setup to log messages to a log channel.")
	}

	if err := servers.SetLogChannel(ctx, uint64(c.Guild.ID), nil); err != nil {
		return err
	}

	return c.Reply(ctx, "Server events will no longer be logged to this channel.")
}

// stickyCommand marks or unmarks a sticky role.
type stickyCommand struct {
	protocol *sticky.Protocol
	unmark   bool
}

func stickyDefinition(protocol *sticky.Protocol) *command.Definition {
	return &command.Definition{
		Name: "sticky",
		Help: doc{
			usage:    "sticky @role",
			desc:     "Make a role sticky. Members who leave and rejoin the server get it back.",
			requires: "MANAGE_ROLES",
			related:  []string{"unsticky"},
		}.help(),
		New: func() command.Command { return &stickyCommand{protocol: protocol} },
	}
}

func unstickyDefinition(protocol *sticky.Protocol) *command.Definition {
	return &command.Definition{
		Name: "unsticky",
		Help: doc{
			usage:    "unsticky @role",
			desc:     "Stop a role from being sticky.",
			requires: "MANAGE_ROLES",
			related:  []string{"sticky"},
		}.help(),
		New: func() command.Command { return &stickyCommand{protocol: protocol, unmark: true} },
	}
}

func (s *stickyCommand) Execute(ctx context.Context, c *command.Context) error {
	if c.Guild == nil {
		return c.ErrorReply(ctx, constants.NotInPMs)
	}

	if strings.TrimSpace(c.Target) == "" {
		return c.ErrorReply(ctx, fmt.Sprintf("Command usage: %s%s @role", c.Prefix, c.Cmd))
	}

	role, ok := c.GetRole(c.Target)
	if !ok {
		return c.ErrorReply(ctx, fmt.Sprintf("The role %q was not found.", strings.TrimSpace(c.Target)))
	}

	var (
		outcome sticky.Outcome
		err     error
	)
	if s.unmark {
		outcome, err = s.protocol.Unmark(ctx, c.Author.ID, *c.Guild, role)
	} else {
		outcome, err = s.protocol.Mark(ctx, c.Author.ID, *c.Guild, role)
	}
	if err != nil {
		return err
	}

	return replyOutcome(ctx, c, outcome, role, s.unmark)
}

// replyOutcome tells the actor what a sticky request did.
func replyOutcome(ctx context.Context, c *command.Context, outcome sticky.Outcome, role platform.Role, unmark bool) error {
	switch outcome {
	case sticky.Applied:
		if unmark {
			return c.Reply(ctx, fmt.Sprintf("%s is no longer a sticky role.", role.Name))
		}
		return c.Reply(ctx, fmt.Sprintf("%s is now a sticky role. Members who leave and rejoin will get it back.", role.Name))
	case sticky.DeniedManageRoles:
		return c.ErrorReply(ctx, constants.AccessDenied)
	case sticky.DeniedRoleRank:
		return c.ErrorReply(ctx, fmt.Sprintf("You cannot assign the role %s, so you cannot change its sticky status.", role.Name))
	case sticky.BotLacksManageRoles:
		return c.ErrorReply(ctx, "I need the Manage Roles permission to assign sticky roles.")
	case sticky.BotCannotAssign:
		return c.ErrorReply(ctx, fmt.Sprintf("I cannot assign the role %s because it is not below my highest role.", role.Name))
	case sticky.AlreadySticky:
		return c.ErrorReply(ctx, fmt.Sprintf("%s is already a sticky role.", role.Name))
	case sticky.NotSticky:
		return c.ErrorReply(ctx, fmt.Sprintf("%s is not a sticky role.", role.Name))
	default:
		return fmt.Errorf("unexpected sticky outcome %s", outcome)
	}
}
