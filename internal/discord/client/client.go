package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/discord/platform"
	"go.uber.org/zap"
)

// PanicHandler receives panics recovered from event handlers.
type PanicHandler func(ctx context.Context, event string, recovered any)

// Client adapts a disgo bot client to platform.Client.
type Client struct {
	client  bot.Client
	ctx     context.Context
	logger  *zap.Logger
	onPanic PanicHandler
}

var _ platform.Client = (*Client)(nil)

// New configures the gateway connection and routes its events to listener.
// The gateway is not opened until Open is called.
func New(token string, listener platform.Listener, onPanic PanicHandler, logger *zap.Logger) (*Client, error) {
	c := &Client{
		ctx:     context.Background(),
		logger:  logger.Named("discord"),
		onPanic: onPanic,
	}

	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentGuildModeration,
				gateway.IntentGuildMessages,
				gateway.IntentGuildPresences,
				gateway.IntentDirectMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagsAll)),
		bot.WithMemberChunkingFilter(bot.MemberChunkingFilterAll),
		bot.WithEventListeners(c.listenerAdapter(listener)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	c.client = client
	return c, nil
}

// Open connects to the gateway. Event handlers run with ctx.
func (c *Client) Open(ctx context.Context) error {
	c.ctx = ctx
	if err := c.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (c *Client) Close(ctx context.Context) {
	c.client.Close(ctx)
	c.logger.Info("Discord client closed")
}

// listenerAdapter routes disgo events to listener, one goroutine per event.
func (c *Client) listenerAdapter(listener platform.Listener) *events.ListenerAdapter {
	return &events.ListenerAdapter{
		OnGuildsReady: func(*events.GuildsReady) {
			c.spawn("ready", listener.OnReady)
		},
		OnMessageCreate: func(event *events.MessageCreate) {
			message := toMessage(event.Message)
			c.spawn("message_create", func(ctx context.Context) {
				listener.OnMessage(ctx, message)
			})
		},
		OnGuildMessageDelete: func(event *events.GuildMessageDelete) {
			message := toMessage(event.Message)
			if message.GuildID == nil {
				guildID := event.GuildID
				message.GuildID = &guildID
			}
			c.spawn("message_delete", func(ctx context.Context) {
				listener.OnMessageDelete(ctx, message)
			})
		},
		OnGuildMemberJoin: func(event *events.GuildMemberJoin) {
			member := toMember(event.Member)
			member.GuildID = event.GuildID
			c.spawn("member_join", func(ctx context.Context) {
				listener.OnMemberJoin(ctx, member)
			})
		},
		OnGuildMemberUpdate: func(event *events.GuildMemberUpdate) {
			oldMember, newMember := toMember(event.OldMember), toMember(event.Member)
			oldMember.GuildID, newMember.GuildID = event.GuildID, event.GuildID
			c.spawn("member_update", func(ctx context.Context) {
				listener.OnMemberUpdate(ctx, oldMember, newMember)
			})
		},
		OnGuildMemberLeave: func(event *events.GuildMemberLeave) {
			user := toUser(event.User)
			c.spawn("member_leave", func(ctx context.Context) {
				listener.OnMemberLeave(ctx, event.GuildID, user)
			})
		},
		OnRoleDelete: func(event *events.RoleDelete) {
			c.spawn("role_delete", func(ctx context.Context) {
				listener.OnRoleDelete(ctx, event.GuildID, event.RoleID)
			})
		},
		OnGuildBan: func(event *events.GuildBan) {
			user := toUser(event.User)
			c.spawn("guild_ban", func(ctx context.Context) {
				listener.OnBan(ctx, event.GuildID, user, false)
			})
		},
		OnGuildUnban: func(event *events.GuildUnban) {
			user := toUser(event.User)
			c.spawn("guild_unban", func(ctx context.Context) {
				listener.OnBan(ctx, event.GuildID, user, true)
			})
		},
	}
}

// spawn runs fn on its own goroutine, recovering panics.
func (c *Client) spawn(event string, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Panic in event handler",
					zap.String("event", event),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())))
				if c.onPanic != nil {
					c.onPanic(c.ctx, event, r)
				}
			}
		}()

		fn(c.ctx)
	}()
}

// SelfID returns the bot account id.
func (c *Client) SelfID() snowflake.ID {
	return c.client.ID()
}

// Guild returns a cached guild.
func (c *Client) Guild(guildID snowflake.ID) (platform.Guild, bool) {
	guild, ok := c.client.Caches().Guild(guildID)
	if !ok {
		return platform.Guild{}, false
	}
	return toGuild(guild), true
}

// Guilds returns every cached guild.
func (c *Client) Guilds() []platform.Guild {
	var guilds []platform.Guild
	c.client.Caches().GuildsForEach(func(guild discord.Guild) {
		guilds = append(guilds, toGuild(guild))
	})
	return guilds
}

// Channel returns a cached guild channel.
func (c *Client) Channel(channelID snowflake.ID) (platform.Channel, bool) {
	channel, ok := c.client.Caches().Channel(channelID)
	if !ok {
		return platform.Channel{}, false
	}

	return platform.Channel{
		ID:      channel.ID(),
		GuildID: channel.GuildID(),
		Name:    channel.Name(),
		Type:    toChannelType(channel.Type()),
	}, true
}

// Roles returns every cached role of a guild.
func (c *Client) Roles(guildID snowflake.ID) []platform.Role {
	var roles []platform.Role
	c.client.Caches().RolesForEach(guildID, func(role discord.Role) {
		roles = append(roles, toRole(role))
	})
	return roles
}

// Role returns a cached role.
func (c *Client) Role(guildID, roleID snowflake.ID) (platform.Role, bool) {
	role, ok := c.client.Caches().Role(guildID, roleID)
	if !ok {
		return platform.Role{}, false
	}
	return toRole(role), true
}

// User fetches an account by id.
func (c *Client) User(ctx context.Context, userID snowflake.ID) (platform.User, bool, error) {
	user, err := c.client.Rest().GetUser(userID, rest.WithCtx(ctx))
	if isNotFound(err) {
		return platform.User{}, false, nil
	}
	if err != nil {
		return platform.User{}, false, fmt.Errorf("failed to fetch user: %w", err)
	}
	return toUser(*user), true, nil
}

// FindUser searches cached members for an exact Name#1234 tag.
func (c *Client) FindUser(tag string) (platform.User, bool) {
	var (
		found platform.User
		ok    bool
	)

	c.client.Caches().GuildsForEach(func(guild discord.Guild) {
		if ok {
			return
		}
		c.client.Caches().MembersForEach(guild.ID, func(member discord.Member) {
			if !ok && member.User.Tag() == tag {
				found, ok = toUser(member.User), true
			}
		})
	})

	return found, ok
}

// Member returns a membership from the cache, falling back to a fetch.
func (c *Client) Member(ctx context.Context, guildID, userID snowflake.ID) (platform.Member, bool, error) {
	member, err := c.discordMember(ctx, guildID, userID)
	if isNotFound(err) {
		return platform.Member{}, false, nil
	}
	if err != nil {
		return platform.Member{}, false, err
	}

	result := toMember(member)
	result.GuildID = guildID
	return result, true, nil
}

// Members returns every cached member of a guild.
func (c *Client) Members(_ context.Context, guildID snowflake.ID) ([]platform.Member, error) {
	var members []platform.Member
	c.client.Caches().MembersForEach(guildID, func(member discord.Member) {
		result := toMember(member)
		result.GuildID = guildID
		members = append(members, result)
	})
	return members, nil
}

// Permissions returns the effective guild permissions of a member.
func (c *Client) Permissions(ctx context.Context, guildID, userID snowflake.ID) (discord.Permissions, error) {
	member, err := c.discordMember(ctx, guildID, userID)
	if isNotFound(err) {
		return discord.PermissionsNone, nil
	}
	if err != nil {
		return discord.PermissionsNone, err
	}

	return c.client.Caches().MemberPermissions(member), nil
}

// ChannelPublic reports whether @everyone is not denied from viewing the channel.
func (c *Client) ChannelPublic(channelID snowflake.ID) bool {
	channel, ok := c.client.Caches().Channel(channelID)
	if !ok {
		return false
	}

	overwrite, ok := channel.PermissionOverwrites().Role(channel.GuildID())
	if !ok {
		return true
	}
	return !overwrite.Deny.Has(discord.PermissionViewChannel)
}

// Online reports whether the user has a cached non-offline presence.
func (c *Client) Online(guildID, userID snowflake.ID) bool {
	presence, ok := c.client.Caches().Presence(guildID, userID)
	return ok && presence.Status != discord.OnlineStatusOffline
}

// AuditLogEntry returns the newest audit log entry of an action.
func (c *Client) AuditLogEntry(
	ctx context.Context, guildID snowflake.ID, action platform.AuditAction,
) (platform.AuditEntry, bool, error) {
	log, err := c.client.Rest().GetAuditLog(guildID, 0, toAuditLogEvent(action), 0, 0, 1, rest.WithCtx(ctx))
	if err != nil {
		return platform.AuditEntry{}, false, fmt.Errorf("failed to fetch audit log: %w", err)
	}
	if len(log.AuditLogEntries) == 0 {
		return platform.AuditEntry{}, false, nil
	}

	entry := log.AuditLogEntries[0]
	result := platform.AuditEntry{
		ID:         entry.ID,
		ExecutorID: entry.UserID,
	}
	if entry.TargetID != nil {
		result.TargetID = *entry.TargetID
	}
	if entry.Reason != nil {
		result.Reason = *entry.Reason
	}

	return result, true, nil
}

// Send posts a message to a channel.
func (c *Client) Send(ctx context.Context, channelID snowflake.ID, message discord.MessageCreate) error {
	if _, err := c.client.Rest().CreateMessage(channelID, message, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// AddRole assigns a role to a member with an audit log reason.
func (c *Client) AddRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	err := c.client.Rest().AddMemberRole(guildID, userID, roleID, rest.WithReason(reason), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to add role: %w", err)
	}
	return nil
}

// discordMember returns a cached member or fetches it.
func (c *Client) discordMember(ctx context.Context, guildID, userID snowflake.ID) (discord.Member, error) {
	if member, ok := c.client.Caches().Member(guildID, userID); ok {
		return member, nil
	}

	member, err := c.client.Rest().GetMember(guildID, userID, rest.WithCtx(ctx))
	if err != nil {
		return discord.Member{}, fmt.Errorf("failed to fetch member: %w", err)
	}
	return *member, nil
}

// isNotFound reports whether err is a REST 404.
func isNotFound(err error) bool {
	var restErr *rest.Error
	return errors.As(err, &restErr) &&
		restErr.Response != nil &&
		restErr.Response.StatusCode == http.StatusNotFound
}
