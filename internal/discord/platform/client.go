package platform

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// Client is the subset of the chat platform the bot depends on.
// Lookups report absence with a false boolean, leaving errors for failed calls.
type Client interface {
	// SelfID returns the bot account id.
	SelfID() snowflake.ID

	Guild(guildID snowflake.ID) (Guild, bool)
	Guilds() []Guild
	Channel(channelID snowflake.ID) (Channel, bool)
	Roles(guildID snowflake.ID) []Role
	Role(guildID, roleID snowflake.ID) (Role, bool)

	// User resolves an account by id, fetching it when it is not cached.
	User(ctx context.Context, userID snowflake.ID) (User, bool, error)
	// FindUser resolves an account by its Name#1234 tag among cached members.
	FindUser(tag string) (User, bool)
	// Member resolves a current guild membership.
	Member(ctx context.Context, guildID, userID snowflake.ID) (Member, bool, error)
	// Members lists every current member of a guild.
	Members(ctx context.Context, guildID snowflake.ID) ([]Member, error)

	// Permissions returns the effective guild permissions of a member, owner and
	// administrator overrides applied.
	Permissions(ctx context.Context, guildID, userID snowflake.ID) (discord.Permissions, error)
	// ChannelPublic reports whether @everyone may view the channel.
	ChannelPublic(channelID snowflake.ID) bool
	// Online reports whether the user has a non-offline presence in the guild.
	Online(guildID, userID snowflake.ID) bool

	// AuditLogEntry returns the newest audit log entry of an action.
	AuditLogEntry(ctx context.Context, guildID snowflake.ID, action AuditAction) (AuditEntry, bool, error)

	Send(ctx context.Context, channelID snowflake.ID, message discord.MessageCreate) error
	AddRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error
}

// Listener receives gateway events. Each call runs on its own goroutine.
type Listener interface {
	OnReady(ctx context.Context)
	OnMessage(ctx context.Context, message Message)
	// OnMessageDelete receives the cached copy of the deleted message.
	OnMessageDelete(ctx context.Context, message Message)
	OnMemberJoin(ctx context.Context, member Member)
	OnMemberUpdate(ctx context.Context, oldMember, newMember Member)
	OnMemberLeave(ctx context.Context, guildID snowflake.ID, user User)
	OnRoleDelete(ctx context.Context, guildID, roleID snowflake.ID)
	OnBan(ctx context.Context, guildID snowflake.ID, user User, removed bool)
}
