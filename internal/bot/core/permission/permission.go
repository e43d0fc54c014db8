package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/robalyx/warden/pkg/utils"
)

var (
	// ErrUnknownPermission is returned for names that are neither platform nor custom flags.
	ErrUnknownPermission = errors.New("unknown permission")
	// ErrNoGuild is returned when a guild-scoped check runs without a guild.
	ErrNoGuild = errors.New("no guild context")
)

// Resolver decides whether an actor may perform a privileged action.
type Resolver struct {
	platform platform.Client
	admins   map[string]struct{}
}

// NewResolver creates a resolver with the given administrator allow-list.
func NewResolver(client platform.Client, admins []string) *Resolver {
	allowed := make(map[string]struct{}, len(admins))
	for _, admin := range admins {
		if id := utils.ToID(admin); id != "" {
			allowed[id] = struct{}{}
		}
	}

	return &Resolver{
		platform: client,
		admins:   allowed,
	}
}

// IsAdmin reports whether the user is on the administrator allow-list.
func (r *Resolver) IsAdmin(userID snowflake.ID) bool {
	_, ok := r.admins[utils.ToID(userID)]
	return ok
}

// Can reports whether actor holds the named permission in guildID.
// Administrators pass every check; without a guild only administrators pass.
func (r *Resolver) Can(ctx context.Context, name string, actor snowflake.ID, guildID *snowflake.ID) (bool, error) {
	_, custom := platform.CustomPermissions[name]
	flag, native := platform.PermissionFlags[name]
	if !custom && !native {
		return false, fmt.Errorf("%w: %s", ErrUnknownPermission, name)
	}

	if r.IsAdmin(actor) {
		return true, nil
	}

	if guildID == nil || custom {
		return false, nil
	}

	permissions, err := r.platform.Permissions(ctx, *guildID, actor)
	if err != nil {
		return false, fmt.Errorf("failed to resolve permissions: %w", err)
	}

	return permissions.Has(flag), nil
}

// HighestPosition returns the position of the member's highest role, or 0 for @everyone only.
func (r *Resolver) HighestPosition(member platform.Member) int {
	highest := 0
	for _, roleID := range member.RoleIDs {
		role, ok := r.platform.Role(member.GuildID, roleID)
		if ok && role.Position > highest {
			highest = role.Position
		}
	}
	return highest
}

// CanAssignRole reports whether actor may hand out role: the role must rank strictly
// below the actor's highest role unless the actor owns the guild or is an administrator.
// Managed roles and @everyone can never be assigned.
func (r *Resolver) CanAssignRole(ctx context.Context, actor snowflake.ID, role platform.Role) (bool, error) {
	if role.Managed || role.IsEveryone() {
		return false, nil
	}

	if r.IsAdmin(actor) {
		return true, nil
	}

	guild, ok := r.platform.Guild(role.GuildID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNoGuild, role.GuildID)
	}
	if guild.OwnerID == actor {
		return true, nil
	}

	member, ok, err := r.platform.Member(ctx, role.GuildID, actor)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	return role.Position < r.HighestPosition(member), nil
}
