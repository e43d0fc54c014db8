package sticky_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/bottest"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/permission"
	"github.com/robalyx/warden/internal/bot/sticky"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	lowRole   snowflake.ID = 501
	midRole   snowflake.ID = 502
	highRole  snowflake.ID = 503
	botRole   snowflake.ID = 505
	aboveBot  snowflake.ID = 506
	plainRole snowflake.ID = 507

	holderA   snowflake.ID = 41
	holderB   snowflake.ID = 42
	logChanID snowflake.ID = 250
)

type fixture struct {
	platform *bottest.Platform
	store    *bottest.Store
	protocol *sticky.Protocol
	guild    platform.Guild
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p := bottest.NewPlatform(bottest.SelfID)
	guild := platform.Guild{ID: bottest.GuildID, Name: "Test Server", OwnerID: bottest.OwnerID}
	p.PutGuild(guild)
	p.PutRole(platform.Role{ID: bottest.GuildID, GuildID: bottest.GuildID, Name: "@everyone"})
	for _, role := range []platform.Role{
		{ID: lowRole, Name: "Low", Position: 1},
		{ID: midRole, Name: "Mid", Position: 2},
		{ID: highRole, Name: "High", Position: 3},
		{ID: plainRole, Name: "Plain", Position: 1},
		{ID: botRole, Name: "Warden", Position: 5},
		{ID: aboveBot, Name: "Council", Position: 6},
	} {
		role.GuildID = bottest.GuildID
		p.PutRole(role)
	}

	p.PutMember(platform.Member{
		GuildID: bottest.GuildID,
		User:    platform.User{ID: bottest.SelfID, Username: "warden", Bot: true},
		RoleIDs: []snowflake.ID{botRole},
	})
	p.PutMember(platform.Member{GuildID: bottest.GuildID, User: bottest.Mod(), RoleIDs: []snowflake.ID{midRole}})
	p.PutMember(platform.Member{GuildID: bottest.GuildID, User: bottest.Member()})
	p.PutMember(platform.Member{
		GuildID: bottest.GuildID,
		User:    platform.User{ID: holderA, Username: "alpha", Discriminator: "0041"},
		RoleIDs: []snowflake.ID{lowRole},
	})
	p.PutMember(platform.Member{
		GuildID: bottest.GuildID,
		User:    platform.User{ID: holderB, Username: "beta", Discriminator: "0042"},
		RoleIDs: []snowflake.ID{lowRole, plainRole},
	})
	p.SetPermissions(bottest.GuildID, bottest.ModID, discord.PermissionManageRoles)
	p.SetPermissions(bottest.GuildID, bottest.SelfID, discord.PermissionManageRoles)

	store := bottest.NewStore()
	require.NoError(t, store.Servers().CreateServer(t.Context(), &types.Server{
		ServerID:   uint64(bottest.GuildID),
		ServerName: guild.Name,
		Sticky:     []uint64{},
	}))

	perms := permission.NewResolver(p, []string{bottest.AdminID.String()})

	return &fixture{
		platform: p,
		store:    store,
		protocol: sticky.New(store, p, perms, zaptest.NewLogger(t)),
		guild:    guild,
	}
}

func (f *fixture) role(t *testing.T, id snowflake.ID) platform.Role {
	t.Helper()
	role, ok := f.platform.Role(bottest.GuildID, id)
	require.True(t, ok)
	return role
}

func (f *fixture) sticky(t *testing.T) []uint64 {
	t.Helper()
	server, ok := f.store.Server(uint64(bottest.GuildID))
	require.True(t, ok)
	return server.Sticky
}

func (f *fixture) snapshot(t *testing.T, userID snowflake.ID) []uint64 {
	t.Helper()
	member, ok := f.store.Member(uint64(bottest.GuildID), uint64(userID))
	require.True(t, ok, "no membership row for %s", userID)
	return member.Sticky
}

func (f *fixture) enableLogs(t *testing.T) {
	t.Helper()
	channelID := uint64(logChanID)
	require.NoError(t, f.store.Servers().SetLogChannel(t.Context(), uint64(bottest.GuildID), &channelID))
}

func TestMarkDenials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		actor snowflake.ID
		role  snowflake.ID
		setup func(f *fixture)
		want  sticky.Outcome
	}{
		{name: "actor lacks manage roles", actor: bottest.MemberID, role: lowRole, want: sticky.DeniedManageRoles},
		{name: "role at actor rank", actor: bottest.ModID, role: midRole, want: sticky.DeniedRoleRank},
		{name: "role above actor", actor: bottest.ModID, role: highRole, want: sticky.DeniedRoleRank},
		{
			name:  "bot lacks manage roles",
			actor: bottest.OwnerID,
			role:  lowRole,
			setup: func(f *fixture) { f.platform.SetPermissions(bottest.GuildID, bottest.SelfID, discord.PermissionsNone) },
			want:  sticky.BotLacksManageRoles,
		},
		{name: "role above bot", actor: bottest.OwnerID, role: aboveBot, want: sticky.BotCannotAssign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			outcome, err := f.protocol.Mark(t.Context(), tt.actor, f.guild, f.role(t, tt.role))
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome, outcome.String())
			assert.Empty(t, f.sticky(t))
			assert.Zero(t, f.store.Calls("MarkSticky"))
		})
	}
}

func TestMarkSnapshotsHolders(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	outcome, err := f.protocol.Mark(t.Context(), bottest.ModID, f.guild, f.role(t, lowRole))
	require.NoError(t, err)
	assert.Equal(t, sticky.Applied, outcome)

	assert.Equal(t, []uint64{uint64(lowRole)}, f.sticky(t))
	assert.Equal(t, []uint64{uint64(lowRole)}, f.snapshot(t, holderA))
	assert.Equal(t, []uint64{uint64(lowRole)}, f.snapshot(t, holderB))

	_, ok := f.store.Member(uint64(bottest.GuildID), uint64(bottest.MemberID))
	assert.False(t, ok)

	outcome, err = f.protocol.Mark(t.Context(), bottest.ModID, f.guild, f.role(t, lowRole))
	require.NoError(t, err)
	assert.Equal(t, sticky.AlreadySticky, outcome)
	assert.Equal(t, 1, f.store.Calls("MarkSticky"))
}

func TestUnmarkClearsSnapshots(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	outcome, err := f.protocol.Unmark(t.Context(), bottest.ModID, f.guild, f.role(t, lowRole))
	require.NoError(t, err)
	assert.Equal(t, sticky.NotSticky, outcome)

	_, err = f.protocol.Mark(t.Context(), bottest.ModID, f.guild, f.role(t, lowRole))
	require.NoError(t, err)

	outcome, err = f.protocol.Unmark(t.Context(), bottest.MemberID, f.guild, f.role(t, lowRole))
	require.NoError(t, err)
	assert.Equal(t, sticky.DeniedManageRoles, outcome)

	outcome, err = f.protocol.Unmark(t.Context(), bottest.ModID, f.guild, f.role(t, lowRole))
	require.NoError(t, err)
	assert.Equal(t, sticky.Applied, outcome)

	assert.Empty(t, f.sticky(t))
	assert.Empty(t, f.snapshot(t, holderA))
	assert.Empty(t, f.snapshot(t, holderB))
}

func TestRejoinRestoresRoles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, lowRole))
	require.NoError(t, err)
	_, err = f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, plainRole))
	require.NoError(t, err)

	// holderB leaves and comes back without roles
	f.platform.RemoveMember(bottest.GuildID, holderB)
	returning := platform.Member{
		GuildID: bottest.GuildID,
		User:    platform.User{ID: holderB, Username: "beta", Discriminator: "0042"},
	}
	f.platform.PutMember(returning)

	require.NoError(t, f.protocol.OnMemberJoin(t.Context(), returning))

	assert.ElementsMatch(t, []snowflake.ID{lowRole, plainRole}, f.platform.MemberRoles(bottest.GuildID, holderB))
	for _, add := range f.platform.RoleAdds() {
		assert.Equal(t, constants.StickyRoleReason, add.Reason)
	}
}

func TestRejoinWithoutSnapshot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	newcomer := platform.Member{GuildID: bottest.GuildID, User: platform.User{ID: 77, Username: "new"}}

	require.NoError(t, f.protocol.OnMemberJoin(t.Context(), newcomer))
	assert.Empty(t, f.platform.RoleAdds())
}

func TestRejoinBotLacksManageRoles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.enableLogs(t)
	_, err := f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, lowRole))
	require.NoError(t, err)
	_, err = f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, plainRole))
	require.NoError(t, err)

	f.platform.SetPermissions(bottest.GuildID, bottest.SelfID, discord.PermissionsNone)
	returning := platform.Member{GuildID: bottest.GuildID, User: platform.User{ID: holderB, Username: "beta"}}

	require.NoError(t, f.protocol.OnMemberJoin(t.Context(), returning))

	assert.Empty(t, f.platform.RoleAdds())
	sent := f.platform.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, logChanID, sent[0].ChannelID)
	assert.Contains(t, sent[0].Message.Content, "lacks the MANAGE_ROLES permission")
}

func TestRejoinSkipsUnassignableRoles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.enableLogs(t)

	stored := []uint64{uint64(aboveBot), 999, uint64(lowRole)}
	require.NoError(t, f.store.Sticky().MarkSticky(t.Context(), uint64(bottest.GuildID), uint64(aboveBot),
		[]*types.User{{UserID: uint64(holderA), Name: "alpha"}}))
	f.store.SeedMember(types.Member{ServerID: uint64(bottest.GuildID), UserID: uint64(holderA), Sticky: stored})

	returning := platform.Member{GuildID: bottest.GuildID, User: platform.User{ID: holderA, Username: "alpha"}}
	f.platform.PutMember(returning)

	require.NoError(t, f.protocol.OnMemberJoin(t.Context(), returning))

	adds := f.platform.RoleAdds()
	require.Len(t, adds, 1)
	assert.Equal(t, lowRole, adds[0].RoleID)

	texts := f.platform.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, fmt.Sprintf("[WARN] Bot tried to assign sticky (persistant) role %q to a user joining the server, "+
		"but lacks permissions to assign this specific role.", "Council"), texts[0])
}

func TestMemberUpdateTracksDrift(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, lowRole))
	require.NoError(t, err)
	_, err = f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, midRole))
	require.NoError(t, err)

	user := platform.User{ID: holderA, Username: "alpha", Discriminator: "0041"}
	member := func(roles ...snowflake.ID) platform.Member {
		return platform.Member{GuildID: bottest.GuildID, User: user, RoleIDs: roles}
	}

	// Gains a sticky role and a plain one
	require.NoError(t, f.protocol.OnMemberUpdate(t.Context(), member(lowRole), member(lowRole, midRole, plainRole)))
	assert.ElementsMatch(t, []uint64{uint64(lowRole), uint64(midRole)}, f.snapshot(t, holderA))

	// Loses a sticky role
	require.NoError(t, f.protocol.OnMemberUpdate(t.Context(), member(lowRole, midRole), member(midRole)))
	assert.Equal(t, []uint64{uint64(midRole)}, f.snapshot(t, holderA))

	// Non-sticky changes leave the snapshot alone
	writes := f.store.Calls("ApplyStickyDrift")
	require.NoError(t, f.protocol.OnMemberUpdate(t.Context(), member(midRole), member(midRole, plainRole)))
	require.NoError(t, f.protocol.OnMemberUpdate(t.Context(), member(midRole), member(midRole)))
	assert.Equal(t, writes, f.store.Calls("ApplyStickyDrift"))
}

func TestMemberUpdateCreatesMissingRows(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, plainRole))
	require.NoError(t, err)

	user := bottest.Member()
	oldMember := platform.Member{GuildID: bottest.GuildID, User: user}
	newMember := platform.Member{GuildID: bottest.GuildID, User: user, RoleIDs: []snowflake.ID{plainRole}}

	require.NoError(t, f.protocol.OnMemberUpdate(t.Context(), oldMember, newMember))
	assert.Equal(t, []uint64{uint64(plainRole)}, f.snapshot(t, bottest.MemberID))
}

func TestConcurrentUpdatesKeepBothRoles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, midRole))
	require.NoError(t, err)
	_, err = f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, plainRole))
	require.NoError(t, err)

	user := platform.User{ID: holderA, Username: "alpha"}
	member := func(roles ...snowflake.ID) platform.Member {
		return platform.Member{GuildID: bottest.GuildID, User: user, RoleIDs: roles}
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		assert.NoError(t, f.protocol.OnMemberUpdate(context.Background(), member(lowRole), member(lowRole, midRole)))
	})
	wg.Go(func() {
		assert.NoError(t, f.protocol.OnMemberUpdate(context.Background(), member(lowRole, midRole),
			member(lowRole, midRole, plainRole)))
	})
	wg.Wait()

	assert.ElementsMatch(t, []uint64{uint64(midRole), uint64(plainRole)}, f.snapshot(t, holderA))
}

func TestMarkDuringMemberUpdateKeepsBothRoles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, midRole))
	require.NoError(t, err)

	user := platform.User{ID: holderB, Username: "beta", Discriminator: "0042"}
	oldMember := platform.Member{GuildID: bottest.GuildID, User: user, RoleIDs: []snowflake.ID{lowRole, plainRole}}
	newMember := platform.Member{GuildID: bottest.GuildID, User: user, RoleIDs: []snowflake.ID{lowRole, plainRole, midRole}}

	// plainRole becomes sticky after the update was filtered but before its write lands
	f.store.Before("ApplyStickyDrift", func() {
		outcome, err := f.protocol.Mark(context.Background(), bottest.OwnerID, f.guild, f.role(t, plainRole))
		assert.NoError(t, err)
		assert.Equal(t, sticky.Applied, outcome)
	})

	require.NoError(t, f.protocol.OnMemberUpdate(t.Context(), oldMember, newMember))
	assert.ElementsMatch(t, []uint64{uint64(plainRole), uint64(midRole)}, f.snapshot(t, holderB))
}

func TestDriftSkipsRolesNoLongerSticky(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, midRole))
	require.NoError(t, err)

	user := platform.User{ID: holderA, Username: "alpha"}
	oldMember := platform.Member{GuildID: bottest.GuildID, User: user, RoleIDs: []snowflake.ID{lowRole}}
	newMember := platform.Member{GuildID: bottest.GuildID, User: user, RoleIDs: []snowflake.ID{lowRole, midRole}}

	f.store.Before("ApplyStickyDrift", func() {
		outcome, err := f.protocol.Unmark(context.Background(), bottest.OwnerID, f.guild, f.role(t, midRole))
		assert.NoError(t, err)
		assert.Equal(t, sticky.Applied, outcome)
	})

	require.NoError(t, f.protocol.OnMemberUpdate(t.Context(), oldMember, newMember))
	assert.Empty(t, f.snapshot(t, holderA))
}

func TestRoleDeleteStripsSnapshots(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, lowRole))
	require.NoError(t, err)

	require.NoError(t, f.protocol.OnRoleDelete(t.Context(), bottest.GuildID, plainRole))
	assert.Zero(t, f.store.Calls("UnmarkSticky"))

	require.NoError(t, f.protocol.OnRoleDelete(t.Context(), bottest.GuildID, lowRole))
	assert.Empty(t, f.sticky(t))
	assert.Empty(t, f.snapshot(t, holderA))
	assert.Empty(t, f.snapshot(t, holderB))
}

func TestReconcileGuild(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, lowRole))
	require.NoError(t, err)

	// Drift while offline: holderA lost the role, mod gained it, a departed member kept a snapshot
	f.platform.PutMember(platform.Member{GuildID: bottest.GuildID, User: platform.User{ID: holderA, Username: "alpha"}})
	f.platform.PutMember(platform.Member{GuildID: bottest.GuildID, User: bottest.Mod(), RoleIDs: []snowflake.ID{midRole, lowRole}})
	require.NoError(t, f.store.Sticky().MarkSticky(t.Context(), uint64(bottest.GuildID), uint64(lowRole),
		[]*types.User{{UserID: 88, Name: "gone"}}))

	updated, err := f.protocol.ReconcileGuild(t.Context(), bottest.GuildID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	assert.Empty(t, f.snapshot(t, holderA))
	assert.Equal(t, []uint64{uint64(lowRole)}, f.snapshot(t, holderB))
	assert.Equal(t, []uint64{uint64(lowRole)}, f.snapshot(t, bottest.ModID))
	assert.Equal(t, []uint64{uint64(lowRole)}, f.snapshot(t, 88))

	// A second pass finds nothing to do
	updated, err = f.protocol.ReconcileGuild(t.Context(), bottest.GuildID)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestReconcileKeepsConcurrentMark(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.protocol.Mark(t.Context(), bottest.OwnerID, f.guild, f.role(t, lowRole))
	require.NoError(t, err)

	// holderA swapped lowRole for plainRole while offline
	f.platform.PutMember(platform.Member{
		GuildID: bottest.GuildID,
		User:    platform.User{ID: holderA, Username: "alpha"},
		RoleIDs: []snowflake.ID{plainRole},
	})

	f.store.Before("ApplyStickyDrift", func() {
		_, err := f.protocol.Mark(context.Background(), bottest.OwnerID, f.guild, f.role(t, plainRole))
		assert.NoError(t, err)
	})

	updated, err := f.protocol.ReconcileGuild(t.Context(), bottest.GuildID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	assert.Equal(t, []uint64{uint64(plainRole)}, f.snapshot(t, holderA))
	assert.ElementsMatch(t, []uint64{uint64(lowRole), uint64(plainRole)}, f.snapshot(t, holderB))
}

func TestReconcileAll(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.platform.PutGuild(platform.Guild{ID: 101, Name: "Unstored"})

	require.NoError(t, f.protocol.ReconcileAll(t.Context()))
	assert.Equal(t, 2, f.store.Calls("GetServer"))
}
