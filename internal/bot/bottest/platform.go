package bottest

import (
	"context"
	"slices"
	"sync"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/discord/platform"
)

type memberKey struct {
	guildID snowflake.ID
	userID  snowflake.ID
}

type auditKey struct {
	guildID snowflake.ID
	action  platform.AuditAction
}

// Sent is a message recorded by the fake platform.
type Sent struct {
	ChannelID snowflake.ID
	Message   discord.MessageCreate
}

// RoleAdd is a role assignment recorded by the fake platform.
type RoleAdd struct {
	GuildID snowflake.ID
	UserID  snowflake.ID
	RoleID  snowflake.ID
	Reason  string
}

// Platform is an in-memory platform.Client.
type Platform struct {
	mu sync.Mutex

	self        snowflake.ID
	guilds      map[snowflake.ID]platform.Guild
	channels    map[snowflake.ID]platform.Channel
	roles       map[snowflake.ID][]platform.Role
	users       map[snowflake.ID]platform.User
	members     map[memberKey]platform.Member
	permissions map[memberKey]discord.Permissions
	private     map[snowflake.ID]bool
	online      map[memberKey]bool
	audit       map[auditKey]platform.AuditEntry

	sent      []Sent
	roleAdds  []RoleAdd
	calls     map[string]int
	sendFails int
	sendErr   error
}

var _ platform.Client = (*Platform)(nil)

// NewPlatform creates an empty fake whose bot account is self.
func NewPlatform(self snowflake.ID) *Platform {
	return &Platform{
		self:        self,
		guilds:      make(map[snowflake.ID]platform.Guild),
		channels:    make(map[snowflake.ID]platform.Channel),
		roles:       make(map[snowflake.ID][]platform.Role),
		users:       make(map[snowflake.ID]platform.User),
		members:     make(map[memberKey]platform.Member),
		permissions: make(map[memberKey]discord.Permissions),
		private:     make(map[snowflake.ID]bool),
		online:      make(map[memberKey]bool),
		audit:       make(map[auditKey]platform.AuditEntry),
		calls:       make(map[string]int),
	}
}

// PutGuild stores a guild.
func (p *Platform) PutGuild(guild platform.Guild) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guilds[guild.ID] = guild
}

// PutChannel stores a channel.
func (p *Platform) PutChannel(channel platform.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[channel.ID] = channel
}

// PutRole stores a role in its guild.
func (p *Platform) PutRole(role platform.Role) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles[role.GuildID] = append(p.roles[role.GuildID], role)
}

// PutUser stores an account.
func (p *Platform) PutUser(user platform.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[user.ID] = user
}

// PutMember stores a membership and its account.
func (p *Platform) PutMember(member platform.Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[member.User.ID] = member.User
	p.members[memberKey{member.GuildID, member.User.ID}] = member
}

// RemoveMember drops a membership, keeping the account.
func (p *Platform) RemoveMember(guildID, userID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.members, memberKey{guildID, userID})
}

// SetPermissions sets the effective permissions of a member.
func (p *Platform) SetPermissions(guildID, userID snowflake.ID, permissions discord.Permissions) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permissions[memberKey{guildID, userID}] = permissions
}

// SetPrivate hides a channel from @everyone.
func (p *Platform) SetPrivate(channelID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.private[channelID] = true
}

// SetOnline marks a member as online.
func (p *Platform) SetOnline(guildID, userID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[memberKey{guildID, userID}] = true
}

// SetAudit sets the newest audit log entry of an action.
func (p *Platform) SetAudit(guildID snowflake.ID, action platform.AuditAction, entry platform.AuditEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.audit[auditKey{guildID, action}] = entry
}

// FailSends makes the next n sends return err without recording them.
func (p *Platform) FailSends(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendFails = n
	p.sendErr = err
}

// Sent returns every recorded message.
func (p *Platform) Sent() []Sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.sent)
}

// Texts returns the content of every recorded message.
func (p *Platform) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	texts := make([]string, 0, len(p.sent))
	for _, sent := range p.sent {
		texts = append(texts, sent.Message.Content)
	}
	return texts
}

// Embeds returns every recorded embed.
func (p *Platform) Embeds() []discord.Embed {
	p.mu.Lock()
	defer p.mu.Unlock()

	var embeds []discord.Embed
	for _, sent := range p.sent {
		embeds = append(embeds, sent.Message.Embeds...)
	}
	return embeds
}

// RoleAdds returns every recorded role assignment.
func (p *Platform) RoleAdds() []RoleAdd {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.roleAdds)
}

// Calls returns how often a method was invoked.
func (p *Platform) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

// MemberRoles returns the current roles of a member.
func (p *Platform) MemberRoles(guildID, userID snowflake.ID) []snowflake.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.members[memberKey{guildID, userID}].RoleIDs)
}

func (p *Platform) record(method string) {
	p.calls[method]++
}

func (p *Platform) SelfID() snowflake.ID {
	return p.self
}

func (p *Platform) Guild(guildID snowflake.ID) (platform.Guild, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Guild")
	guild, ok := p.guilds[guildID]
	return guild, ok
}

func (p *Platform) Guilds() []platform.Guild {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Guilds")

	guilds := make([]platform.Guild, 0, len(p.guilds))
	for _, guild := range p.guilds {
		guilds = append(guilds, guild)
	}
	slices.SortFunc(guilds, func(a, b platform.Guild) int { return compareIDs(a.ID, b.ID) })
	return guilds
}

func (p *Platform) Channel(channelID snowflake.ID) (platform.Channel, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Channel")
	channel, ok := p.channels[channelID]
	return channel, ok
}

func (p *Platform) Roles(guildID snowflake.ID) []platform.Role {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Roles")
	return slices.Clone(p.roles[guildID])
}

func (p *Platform) Role(guildID, roleID snowflake.ID) (platform.Role, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Role")
	for _, role := range p.roles[guildID] {
		if role.ID == roleID {
			return role, true
		}
	}
	return platform.Role{}, false
}

func (p *Platform) User(_ context.Context, userID snowflake.ID) (platform.User, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("User")
	user, ok := p.users[userID]
	return user, ok, nil
}

func (p *Platform) FindUser(tag string) (platform.User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("FindUser")
	for _, user := range p.users {
		if user.Tag() == tag {
			return user, true
		}
	}
	return platform.User{}, false
}

func (p *Platform) Member(_ context.Context, guildID, userID snowflake.ID) (platform.Member, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Member")
	member, ok := p.members[memberKey{guildID, userID}]
	if ok {
		member.RoleIDs = slices.Clone(member.RoleIDs)
	}
	return member, ok, nil
}

func (p *Platform) Members(_ context.Context, guildID snowflake.ID) ([]platform.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Members")

	var members []platform.Member
	for key, member := range p.members {
		if key.guildID == guildID {
			member.RoleIDs = slices.Clone(member.RoleIDs)
			members = append(members, member)
		}
	}
	slices.SortFunc(members, func(a, b platform.Member) int { return compareIDs(a.User.ID, b.User.ID) })
	return members, nil
}

// Permissions applies the owner and administrator overrides to the configured bits.
func (p *Platform) Permissions(_ context.Context, guildID, userID snowflake.ID) (discord.Permissions, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Permissions")

	if guild, ok := p.guilds[guildID]; ok && guild.OwnerID == userID {
		return discord.PermissionsAll, nil
	}

	permissions := p.permissions[memberKey{guildID, userID}]
	if permissions.Has(discord.PermissionAdministrator) {
		return discord.PermissionsAll, nil
	}
	return permissions, nil
}

func (p *Platform) ChannelPublic(channelID snowflake.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("ChannelPublic")
	_, exists := p.channels[channelID]
	return exists && !p.private[channelID]
}

func (p *Platform) Online(guildID, userID snowflake.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Online")
	return p.online[memberKey{guildID, userID}]
}

func (p *Platform) AuditLogEntry(
	_ context.Context, guildID snowflake.ID, action platform.AuditAction,
) (platform.AuditEntry, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("AuditLogEntry")
	entry, ok := p.audit[auditKey{guildID, action}]
	return entry, ok, nil
}

func (p *Platform) Send(_ context.Context, channelID snowflake.ID, message discord.MessageCreate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Send")
	if p.sendFails > 0 {
		p.sendFails--
		return p.sendErr
	}
	p.sent = append(p.sent, Sent{ChannelID: channelID, Message: message})
	return nil
}

// AddRole records the assignment and gives the role to the stored member.
func (p *Platform) AddRole(_ context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("AddRole")
	p.roleAdds = append(p.roleAdds, RoleAdd{GuildID: guildID, UserID: userID, RoleID: roleID, Reason: reason})

	key := memberKey{guildID, userID}
	if member, ok := p.members[key]; ok && !member.HasRole(roleID) {
		member.RoleIDs = append(slices.Clone(member.RoleIDs), roleID)
		p.members[key] = member
	}
	return nil
}

func compareIDs(a, b snowflake.ID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
