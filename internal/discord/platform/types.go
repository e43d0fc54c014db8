package platform

import (
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// ChannelType classifies the channels the bot cares about.
type ChannelType int

const (
	ChannelText ChannelType = iota
	ChannelNews
	ChannelDM
	ChannelGroupDM
	ChannelOther
)

// TextLike reports whether the channel is a guild text or announcement channel.
func (t ChannelType) TextLike() bool {
	return t == ChannelText || t == ChannelNews
}

// User is a platform account.
type User struct {
	ID            snowflake.ID
	Username      string
	Discriminator string
	Bot           bool
	AvatarURL     string
}

// GetID returns the user's snowflake.
func (u User) GetID() snowflake.ID {
	return u.ID
}

// Tag returns Name#1234, or just the name for accounts without a discriminator.
func (u User) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// Mention returns the user mention markup.
func (u User) Mention() string {
	return "<@" + u.ID.String() + ">"
}

// Guild is a server the bot is connected to.
type Guild struct {
	ID      snowflake.ID
	Name    string
	OwnerID snowflake.ID
}

// GetID returns the guild's snowflake.
func (g Guild) GetID() snowflake.ID {
	return g.ID
}

// Channel is a guild or private channel.
type Channel struct {
	ID      snowflake.ID
	GuildID snowflake.ID
	Name    string
	Type    ChannelType
}

// GetID returns the channel's snowflake.
func (c Channel) GetID() snowflake.ID {
	return c.ID
}

// Mention returns the channel mention markup.
func (c Channel) Mention() string {
	return "<#" + c.ID.String() + ">"
}

// Member is a user's membership in a guild.
type Member struct {
	GuildID      snowflake.ID
	User         User
	RoleIDs      []snowflake.ID
	PremiumSince *time.Time
}

// HasRole reports whether the member holds roleID.
func (m Member) HasRole(roleID snowflake.ID) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Role is a guild role.
type Role struct {
	ID       snowflake.ID
	GuildID  snowflake.ID
	Name     string
	Position int
	Managed  bool
}

// GetID returns the role's snowflake.
func (r Role) GetID() snowflake.ID {
	return r.ID
}

// Mention returns the role mention markup.
func (r Role) Mention() string {
	return "<@&" + r.ID.String() + ">"
}

// IsEveryone reports whether the role is the implicit @everyone role of its guild.
func (r Role) IsEveryone() bool {
	return r.ID == r.GuildID
}

// Message is an inbound chat message.
type Message struct {
	ID        snowflake.ID
	ChannelID snowflake.ID
	GuildID   *snowflake.ID
	Author    User
	Content   string
	WebhookID *snowflake.ID
}

// InGuild reports whether the message was sent in a guild channel.
func (m Message) InGuild() bool {
	return m.GuildID != nil
}

// AuditAction is the audit log action kind looked up by the moderation log.
type AuditAction int

const (
	AuditMessageDelete AuditAction = iota
	AuditMemberKick
	AuditMemberBanAdd
	AuditMemberBanRemove
)

// AuditEntry is the most recent audit log entry of an action.
type AuditEntry struct {
	ID         snowflake.ID
	ExecutorID snowflake.ID
	TargetID   snowflake.ID
	Reason     string
}

// CreatedAt returns the entry time encoded in its snowflake.
func (e AuditEntry) CreatedAt() time.Time {
	return e.ID.Time()
}

// ParseID parses a decimal snowflake, returning false for anything else.
func ParseID(raw string) (snowflake.ID, bool) {
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return snowflake.ID(value), true
}
