package command

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/robalyx/warden/pkg/utils"
)

var (
	userMentionPattern    = regexp.MustCompile(`^<@!?(\d+)>$`)
	channelMentionPattern = regexp.MustCompile(`^<#(\d+)>$`)
	roleMentionPattern    = regexp.MustCompile(`^<@&(\d+)>$`)
)

// Context is the per-message state handed to a command or monitor.
type Context struct {
	*Deps

	Message platform.Message
	Author  platform.User
	Guild   *platform.Guild
	Channel platform.Channel
	// Cmd is the command token as typed, without the prefix.
	Cmd string
	// Target is the text following the command token.
	Target string

	mu   sync.Mutex
	conn database.Conn
}

// NewContext builds the context of a message. Messages without the prefix get an empty Cmd.
func NewContext(deps *Deps, message platform.Message, guild *platform.Guild, channel platform.Channel) *Context {
	c := &Context{
		Deps:    deps,
		Message: message,
		Author:  message.Author,
		Guild:   guild,
		Channel: channel,
	}

	if rest, ok := strings.CutPrefix(message.Content, deps.Prefix); ok {
		c.Cmd, c.Target = utils.SplitCommand(rest)
	}

	return c
}

// GuildID returns the id of the message guild, or nil in private channels.
func (c *Context) GuildID() *snowflake.ID {
	if c.Guild == nil {
		return nil
	}
	id := c.Guild.ID
	return &id
}

// Reply sends text to the originating channel.
func (c *Context) Reply(ctx context.Context, text string) error {
	return c.SendTo(ctx, c.Channel.ID, text)
}

// ErrorReply sends text marked as an error to the originating channel.
func (c *Context) ErrorReply(ctx context.Context, text string) error {
	return c.Reply(ctx, constants.ErrorReplyPrefix+text)
}

// SendCode sends text as a fenced code block.
func (c *Context) SendCode(ctx context.Context, lang, text string) error {
	return c.Reply(ctx, "```"+lang+"\n"+text+"\n```")
}

// SendEmbed sends a single embed to the originating channel.
func (c *Context) SendEmbed(ctx context.Context, embed discord.Embed) error {
	return c.Platform.Send(ctx, c.Channel.ID, discord.MessageCreate{Embeds: []discord.Embed{embed}})
}

// SendTo sends text to another channel.
func (c *Context) SendTo(ctx context.Context, channelID snowflake.ID, text string) error {
	return c.Platform.Send(ctx, channelID, discord.MessageCreate{Content: text})
}

// Can checks a permission of the author in the message guild.
func (c *Context) Can(ctx context.Context, permission string) (bool, error) {
	return c.Perms.Can(ctx, permission, c.Author.ID, c.GuildID())
}

// GetUser resolves a mention, a raw id or a Name#1234 tag to a user.
func (c *Context) GetUser(ctx context.Context, raw string) (platform.User, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return platform.User{}, false, nil
	}

	if match := userMentionPattern.FindStringSubmatch(raw); match != nil {
		raw = match[1]
	}
	if id, ok := platform.ParseID(raw); ok {
		return c.Platform.User(ctx, id)
	}

	user, ok := c.Platform.FindUser(raw)
	return user, ok, nil
}

// GetChannel resolves a mention or raw id to a channel. With inServer set,
// channels outside the message guild are treated as missing.
func (c *Context) GetChannel(raw string, inServer bool) (platform.Channel, bool) {
	raw = strings.TrimSpace(raw)
	if match := channelMentionPattern.FindStringSubmatch(raw); match != nil {
		raw = match[1]
	}

	id, ok := platform.ParseID(raw)
	if !ok {
		return platform.Channel{}, false
	}

	channel, ok := c.Platform.Channel(id)
	if !ok {
		return platform.Channel{}, false
	}
	if inServer && (c.Guild == nil || channel.GuildID != c.Guild.ID) {
		return platform.Channel{}, false
	}

	return channel, true
}

// GetRole resolves a mention, raw id or role name to a role of the message guild.
func (c *Context) GetRole(raw string) (platform.Role, bool) {
	if c.Guild == nil {
		return platform.Role{}, false
	}

	raw = strings.TrimSpace(raw)
	if match := roleMentionPattern.FindStringSubmatch(raw); match != nil {
		raw = match[1]
	}
	if id, ok := platform.ParseID(raw); ok {
		return c.Platform.Role(c.Guild.ID, id)
	}

	name := utils.ToID(raw)
	if name == "" {
		return platform.Role{}, false
	}
	for _, role := range c.Platform.Roles(c.Guild.ID) {
		if utils.ToID(role.Name) == name {
			return role, true
		}
	}

	return platform.Role{}, false
}

// Acquire checks out a dedicated database connection for this handler.
// The dispatcher releases it after the handler returns.
func (c *Context) Acquire(ctx context.Context) (database.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	conn, err := c.Store.Gateway().Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire database worker: %w", err)
	}

	c.conn = conn
	return conn, nil
}

// Release returns any acquired connection. Safe to call repeatedly.
func (c *Context) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}

	c.conn.Release()
	c.conn = nil
}
