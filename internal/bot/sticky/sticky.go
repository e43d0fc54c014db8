// Package sticky keeps sticky roles durable across members leaving and rejoining a server.
package sticky

import (
	"context"
	"fmt"
	"slices"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/permission"
	"github.com/robalyx/warden/internal/bot/modlog"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// reconcileWorkers bounds how many guilds are reconciled at once.
const reconcileWorkers = 4

const (
	warnBotLacksManageRoles = "[WARN] Bot tried to assign sticky (persistant) roles to a user joining the server, " +
		"but lacks the MANAGE_ROLES permission."
	warnBotCannotAssign = "[WARN] Bot tried to assign sticky (persistant) role %q to a user joining the server, " +
		"but lacks permissions to assign this specific role."
)

// Outcome is the result of a sticky mark or unmark request.
type Outcome int

const (
	// Applied means the change was stored.
	Applied Outcome = iota
	// DeniedManageRoles means the actor cannot manage roles.
	DeniedManageRoles
	// DeniedRoleRank means the role ranks at or above the actor's highest role.
	DeniedRoleRank
	// BotLacksManageRoles means the bot cannot manage roles in the server.
	BotLacksManageRoles
	// BotCannotAssign means the role ranks at or above the bot's highest role.
	BotCannotAssign
	// AlreadySticky means the role was sticky before the request.
	AlreadySticky
	// NotSticky means the role was not sticky before the request.
	NotSticky
)

// String returns the outcome name used in logs.
func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case DeniedManageRoles:
		return "denied_manage_roles"
	case DeniedRoleRank:
		return "denied_role_rank"
	case BotLacksManageRoles:
		return "bot_lacks_manage_roles"
	case BotCannotAssign:
		return "bot_cannot_assign"
	case AlreadySticky:
		return "already_sticky"
	case NotSticky:
		return "not_sticky"
	default:
		return "unknown"
	}
}

// Protocol applies sticky role changes and reconciles stored snapshots with live roles.
type Protocol struct {
	store    database.Store
	platform platform.Client
	perms    *permission.Resolver
	locks    *keyLock
	logger   *zap.Logger
}

// New creates a sticky role protocol.
func New(store database.Store, client platform.Client, perms *permission.Resolver, logger *zap.Logger) *Protocol {
	return &Protocol{
		store:    store,
		platform: client,
		perms:    perms,
		locks:    newKeyLock(),
		logger:   logger.Named("sticky"),
	}
}

// Mark makes role sticky in guild on behalf of actor and snapshots it for every current holder.
func (p *Protocol) Mark(ctx context.Context, actor snowflake.ID, guild platform.Guild, role platform.Role) (Outcome, error) {
	if outcome, err := p.checkActor(ctx, actor, guild, role); err != nil || outcome != Applied {
		return outcome, err
	}

	if outcome, err := p.checkBot(ctx, guild, role); err != nil || outcome != Applied {
		return outcome, err
	}

	server, err := p.server(ctx, guild)
	if err != nil {
		return Applied, err
	}
	if server.HasSticky(uint64(role.ID)) {
		return AlreadySticky, nil
	}

	members, err := p.platform.Members(ctx, guild.ID)
	if err != nil {
		return Applied, fmt.Errorf("failed to list members: %w", err)
	}

	var holders []*types.User
	for _, member := range members {
		if member.HasRole(role.ID) {
			holders = append(holders, &types.User{
				UserID:        uint64(member.User.ID),
				Name:          member.User.Username,
				Discriminator: member.User.Discriminator,
			})
		}
	}

	if err := p.store.Sticky().MarkSticky(ctx, uint64(guild.ID), uint64(role.ID), holders); err != nil {
		return Applied, err
	}

	p.logger.Info("Role marked sticky",
		zap.Uint64("guildID", uint64(guild.ID)),
		zap.Uint64("roleID", uint64(role.ID)),
		zap.Uint64("actorID", uint64(actor)),
		zap.Int("holders", len(holders)))

	return Applied, nil
}

// Unmark revokes the sticky status of role and strips it from every stored snapshot.
func (p *Protocol) Unmark(ctx context.Context, actor snowflake.ID, guild platform.Guild, role platform.Role) (Outcome, error) {
	if outcome, err := p.checkActor(ctx, actor, guild, role); err != nil || outcome != Applied {
		return outcome, err
	}

	server, err := p.server(ctx, guild)
	if err != nil {
		return Applied, err
	}
	if !server.HasSticky(uint64(role.ID)) {
		return NotSticky, nil
	}

	if err := p.store.Sticky().UnmarkSticky(ctx, uint64(guild.ID), uint64(role.ID)); err != nil {
		return Applied, err
	}

	p.logger.Info("Role no longer sticky",
		zap.Uint64("guildID", uint64(guild.ID)),
		zap.Uint64("roleID", uint64(role.ID)),
		zap.Uint64("actorID", uint64(actor)))

	return Applied, nil
}

// ReconcileGuild corrects the snapshot of every present member whose sticky roles drifted
// while the bot was offline. Absent members keep their snapshot for a future rejoin.
// It returns the number of snapshots written.
func (p *Protocol) ReconcileGuild(ctx context.Context, guildID snowflake.ID) (int, error) {
	server, ok, err := p.store.Servers().GetServer(ctx, uint64(guildID))
	if err != nil {
		return 0, err
	}
	if !ok || len(server.Sticky) == 0 {
		return 0, nil
	}

	stored, err := p.store.Members().ListMembers(ctx, server.ServerID)
	if err != nil {
		return 0, err
	}

	live, err := p.platform.Members(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to list members: %w", err)
	}

	snapshots := make(map[uint64][]uint64, len(stored))
	for _, row := range stored {
		snapshots[row.UserID] = row.Sticky
	}

	// Bulk lists only pick candidates; each one is reread under its member lock
	updated := 0
	for _, member := range live {
		snapshot, known := snapshots[uint64(member.User.ID)]
		if !known && member.User.Bot {
			continue
		}

		held := heldSticky(server, member)
		if sameSet(held, snapshot) {
			continue
		}

		wrote, err := p.reconcileMember(ctx, guildID, member.User.ID)
		if err != nil {
			return updated, err
		}
		if wrote {
			updated++
		}
	}

	if updated > 0 {
		p.logger.Info("Reconciled sticky snapshots",
			zap.Uint64("guildID", uint64(guildID)),
			zap.Int("updated", updated))
	}

	return updated, nil
}

// reconcileMember rereads one member's snapshot, the sticky list and their live roles in
// that order while holding the member lock, then applies the difference.
func (p *Protocol) reconcileMember(ctx context.Context, guildID, userID snowflake.ID) (bool, error) {
	unlock := p.locks.lock(memberKey{guildID: guildID, userID: userID})
	defer unlock()

	row, stored, err := p.store.Members().GetMember(ctx, uint64(guildID), uint64(userID))
	if err != nil {
		return false, err
	}

	server, ok, err := p.store.Servers().GetServer(ctx, uint64(guildID))
	if err != nil || !ok {
		return false, err
	}

	member, present, err := p.platform.Member(ctx, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve member: %w", err)
	}
	if !present {
		return false, nil
	}

	var snapshot []uint64
	if stored {
		snapshot = row.Sticky
	}

	held := heldSticky(server, member)
	added := without(held, snapshot)
	removed := without(snapshot, held)
	if len(added) == 0 && len(removed) == 0 {
		return false, nil
	}

	if !stored {
		if err := p.ensureMember(ctx, member); err != nil {
			return false, err
		}
	}

	if err := p.store.Members().ApplyStickyDrift(ctx, uint64(guildID), uint64(userID), added, removed); err != nil {
		return false, err
	}
	return true, nil
}

// ReconcileAll reconciles every guild the bot is in. Failing guilds are logged and
// the rest still run; the joined error is returned.
func (p *Protocol) ReconcileAll(ctx context.Context) error {
	var (
		workers = pool.New().WithContext(ctx)
		sem     = semaphore.NewWeighted(reconcileWorkers)
	)

	for _, guild := range p.platform.Guilds() {
		workers.Go(func(ctx context.Context) error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return fmt.Errorf("failed to acquire semaphore: %w", err)
			}
			defer sem.Release(1)

			if _, err := p.ReconcileGuild(ctx, guild.ID); err != nil {
				p.logger.Error("Failed to reconcile guild",
					zap.Uint64("guildID", uint64(guild.ID)),
					zap.Error(err))
				return fmt.Errorf("guild %s: %w", guild.ID, err)
			}
			return nil
		})
	}

	return workers.Wait()
}

// OnMemberJoin gives a returning member the sticky roles stored for them.
func (p *Protocol) OnMemberJoin(ctx context.Context, member platform.Member) error {
	row, ok, err := p.store.Members().GetMember(ctx, uint64(member.GuildID), uint64(member.User.ID))
	if err != nil {
		return err
	}
	if !ok || len(row.Sticky) == 0 {
		return nil
	}

	self := p.platform.SelfID()
	permissions, err := p.platform.Permissions(ctx, member.GuildID, self)
	if err != nil {
		return fmt.Errorf("failed to resolve bot permissions: %w", err)
	}
	if !permissions.Has(discord.PermissionManageRoles) {
		_, err := modlog.Text(ctx, p.store, p.platform, member.GuildID, warnBotLacksManageRoles)
		return err
	}

	for _, stored := range row.Sticky {
		roleID := snowflake.ID(stored)

		role, ok := p.platform.Role(member.GuildID, roleID)
		if !ok {
			p.logger.Warn("Stored sticky role no longer exists",
				zap.Uint64("guildID", uint64(member.GuildID)),
				zap.Uint64("roleID", stored))
			continue
		}

		assignable, err := p.perms.CanAssignRole(ctx, self, role)
		if err != nil {
			return err
		}
		if !assignable {
			if _, err := modlog.Text(ctx, p.store, p.platform, member.GuildID,
				fmt.Sprintf(warnBotCannotAssign, role.Name)); err != nil {
				return err
			}
			continue
		}

		if member.HasRole(roleID) {
			continue
		}
		if err := p.platform.AddRole(ctx, member.GuildID, member.User.ID, roleID, constants.StickyRoleReason); err != nil {
			return fmt.Errorf("failed to assign sticky role: %w", err)
		}
	}

	p.logger.Debug("Restored sticky roles",
		zap.Uint64("guildID", uint64(member.GuildID)),
		zap.Uint64("userID", uint64(member.User.ID)),
		zap.Int("roles", len(row.Sticky)))

	return nil
}

// OnMemberUpdate applies a member's sticky role changes to their stored snapshot.
func (p *Protocol) OnMemberUpdate(ctx context.Context, oldMember, newMember platform.Member) error {
	added := difference(newMember.RoleIDs, oldMember.RoleIDs)
	removed := difference(oldMember.RoleIDs, newMember.RoleIDs)
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}

	server, ok, err := p.store.Servers().GetServer(ctx, uint64(newMember.GuildID))
	if err != nil || !ok {
		return err
	}

	added = slices.DeleteFunc(added, func(id uint64) bool { return !server.HasSticky(id) })
	removed = slices.DeleteFunc(removed, func(id uint64) bool { return !server.HasSticky(id) })
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}

	unlock := p.locks.lock(memberKey{guildID: newMember.GuildID, userID: newMember.User.ID})
	defer unlock()

	if err := p.ensureMember(ctx, newMember); err != nil {
		return err
	}

	return p.store.Members().ApplyStickyDrift(ctx, uint64(newMember.GuildID), uint64(newMember.User.ID), added, removed)
}

// OnRoleDelete forgets a deleted role if it was sticky.
func (p *Protocol) OnRoleDelete(ctx context.Context, guildID, roleID snowflake.ID) error {
	server, ok, err := p.store.Servers().GetServer(ctx, uint64(guildID))
	if err != nil {
		return err
	}
	if !ok || !server.HasSticky(uint64(roleID)) {
		return nil
	}

	if err := p.store.Sticky().UnmarkSticky(ctx, uint64(guildID), uint64(roleID)); err != nil {
		return err
	}

	p.logger.Info("Deleted role removed from sticky roles",
		zap.Uint64("guildID", uint64(guildID)),
		zap.Uint64("roleID", uint64(roleID)))

	return nil
}

// checkActor verifies actor may manage roles and hand out this specific role.
func (p *Protocol) checkActor(ctx context.Context, actor snowflake.ID, guild platform.Guild, role platform.Role) (Outcome, error) {
	canManage, err := p.perms.Can(ctx, "MANAGE_ROLES", actor, &guild.ID)
	if err != nil {
		return Applied, err
	}
	if !canManage {
		return DeniedManageRoles, nil
	}

	canAssign, err := p.perms.CanAssignRole(ctx, actor, role)
	if err != nil {
		return Applied, err
	}
	if !canAssign {
		return DeniedRoleRank, nil
	}

	return Applied, nil
}

// checkBot verifies the bot itself could restore the role later.
func (p *Protocol) checkBot(ctx context.Context, guild platform.Guild, role platform.Role) (Outcome, error) {
	self := p.platform.SelfID()

	permissions, err := p.platform.Permissions(ctx, guild.ID, self)
	if err != nil {
		return Applied, fmt.Errorf("failed to resolve bot permissions: %w", err)
	}
	if !permissions.Has(discord.PermissionManageRoles) {
		return BotLacksManageRoles, nil
	}

	canAssign, err := p.perms.CanAssignRole(ctx, self, role)
	if err != nil {
		return Applied, err
	}
	if !canAssign {
		return BotCannotAssign, nil
	}

	return Applied, nil
}

// server loads the server row, storing it first when missing.
func (p *Protocol) server(ctx context.Context, guild platform.Guild) (*types.Server, error) {
	server, ok, err := p.store.Servers().GetServer(ctx, uint64(guild.ID))
	if err != nil {
		return nil, err
	}
	if ok {
		return server, nil
	}

	server = &types.Server{ServerID: uint64(guild.ID), ServerName: guild.Name, Sticky: []uint64{}}
	if err := p.store.Servers().CreateServer(ctx, server); err != nil {
		return nil, err
	}
	return server, nil
}

// ensureMember stores the user and membership rows of member when missing.
func (p *Protocol) ensureMember(ctx context.Context, member platform.Member) error {
	err := p.store.Users().CreateUser(ctx, &types.User{
		UserID:        uint64(member.User.ID),
		Name:          member.User.Username,
		Discriminator: member.User.Discriminator,
	})
	if err != nil {
		return err
	}

	return p.store.Members().CreateMember(ctx, &types.Member{
		ServerID: uint64(member.GuildID),
		UserID:   uint64(member.User.ID),
		Sticky:   []uint64{},
	})
}

// heldSticky returns the server's sticky roles the member currently holds, in server order.
func heldSticky(server *types.Server, member platform.Member) []uint64 {
	held := make([]uint64, 0, len(server.Sticky))
	for _, id := range server.Sticky {
		if member.HasRole(snowflake.ID(id)) {
			held = append(held, id)
		}
	}
	return held
}

// difference returns the ids in a that are missing from b.
func difference(a, b []snowflake.ID) []uint64 {
	var out []uint64
	for _, id := range a {
		if !slices.Contains(b, id) {
			out = append(out, uint64(id))
		}
	}
	return out
}

// without returns the ids in a that are missing from b.
func without(a, b []uint64) []uint64 {
	var out []uint64
	for _, id := range a {
		if !slices.Contains(b, id) {
			out = append(out, id)
		}
	}
	return out
}

func sameSet(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for _, id := range a {
		if !slices.Contains(b, id) {
			return false
		}
	}
	return true
}
