package events

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/core/verify"
	"github.com/robalyx/warden/internal/discord/platform"
)

// OnMemberJoin stores the joining member and restores their sticky roles.
func (h *Handler) OnMemberJoin(ctx context.Context, member platform.Member) error {
	if member.User.Bot {
		return nil
	}

	guild, ok := h.platform.Guild(member.GuildID)
	if !ok {
		return fmt.Errorf("unknown guild %d", member.GuildID)
	}

	user := member.User
	if err := h.verifier.Verify(ctx, verify.Record{Author: &user, Guild: &guild}); err != nil {
		return err
	}

	return h.sticky.OnMemberJoin(ctx, member)
}

// OnMemberUpdate keeps the member's sticky snapshot in line with their roles.
func (h *Handler) OnMemberUpdate(ctx context.Context, oldMember, newMember platform.Member) error {
	return h.sticky.OnMemberUpdate(ctx, oldMember, newMember)
}

// OnRoleDelete drops a deleted role from the sticky lists.
func (h *Handler) OnRoleDelete(ctx context.Context, guildID, roleID snowflake.ID) error {
	return h.sticky.OnRoleDelete(ctx, guildID, roleID)
}
