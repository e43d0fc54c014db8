package verify_test

import (
	"errors"
	"testing"

	"github.com/robalyx/warden/internal/bot/bottest"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/internal/bot/core/verify"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fixture(t *testing.T) (*verify.Cache, *bottest.Store, *command.Lockdown, verify.Record) {
	t.Helper()

	p := bottest.NewPlatform(bottest.SelfID)
	guild := platform.Guild{ID: bottest.GuildID, Name: "Test Server", OwnerID: bottest.OwnerID}
	channel := platform.Channel{ID: bottest.ChannelID, GuildID: bottest.GuildID, Name: "general", Type: platform.ChannelText}
	author := bottest.Member()
	p.PutGuild(guild)
	p.PutChannel(channel)
	p.PutMember(platform.Member{GuildID: bottest.GuildID, User: author})

	store := bottest.NewStore()
	lockdown := &command.Lockdown{}
	cache := verify.New(store, p, lockdown, zaptest.NewLogger(t))

	return cache, store, lockdown, verify.Record{Author: &author, Guild: &guild, Channel: &channel}
}

func TestVerifyIsIdempotent(t *testing.T) {
	t.Parallel()

	cache, store, _, record := fixture(t)

	for range 3 {
		require.NoError(t, cache.Verify(t.Context(), record))
	}

	for _, method := range []string{"ServerExists", "ChannelExists", "UserExists", "MemberExists"} {
		assert.Equal(t, 1, store.Calls(method), method)
	}
	for _, method := range []string{"CreateServer", "CreateChannel", "CreateUser", "CreateMember"} {
		assert.Equal(t, 1, store.Calls(method), method)
	}

	server, ok := store.Server(uint64(bottest.GuildID))
	require.True(t, ok)
	assert.Equal(t, "Test Server", server.ServerName)
	assert.Empty(t, server.Sticky)
}

func TestVerifySkipsExistingRows(t *testing.T) {
	t.Parallel()

	cache, store, _, record := fixture(t)
	require.NoError(t, cache.Verify(t.Context(), record))

	// A fresh cache sees the rows and only checks
	cache.Reset()
	require.NoError(t, cache.Verify(t.Context(), record))

	assert.Equal(t, 2, store.Calls("ServerExists"))
	assert.Equal(t, 1, store.Calls("CreateServer"))
	assert.Equal(t, 2, store.Calls("MemberExists"))
	assert.Equal(t, 1, store.Calls("CreateMember"))
}

func TestVerifySkipsNonTextChannels(t *testing.T) {
	t.Parallel()

	cache, store, _, record := fixture(t)
	voice := platform.Channel{ID: 201, GuildID: bottest.GuildID, Name: "voice", Type: platform.ChannelOther}
	record.Channel = &voice

	require.NoError(t, cache.Verify(t.Context(), record))
	assert.Zero(t, store.Calls("ChannelExists"))
}

func TestVerifySkipsAbsentMembers(t *testing.T) {
	t.Parallel()

	cache, store, _, record := fixture(t)
	stranger := platform.User{ID: 777, Username: "stranger", Discriminator: "7777"}
	record.Author = &stranger

	require.NoError(t, cache.Verify(t.Context(), record))
	assert.Equal(t, 1, store.Calls("CreateUser"))
	assert.Zero(t, store.Calls("MemberExists"))
}

func TestVerifyDuringLockdown(t *testing.T) {
	t.Parallel()

	cache, store, lockdown, record := fixture(t)
	lockdown.Lock()

	require.NoError(t, cache.Verify(t.Context(), record))
	assert.Zero(t, store.TotalCalls())
}

func TestVerifyStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	cache, store, _, record := fixture(t)
	failure := errors.New("connection reset by peer")
	store.FailOn("CreateChannel", failure)

	err := cache.Verify(t.Context(), record)
	require.ErrorIs(t, err, failure)
	assert.Equal(t, 1, store.Calls("CreateServer"))
	assert.Zero(t, store.Calls("UserExists"))

	// The failed channel is retried on the next message
	store.FailOn("CreateChannel", nil)
	require.NoError(t, cache.Verify(t.Context(), record))
	assert.Equal(t, 1, store.Calls("ServerExists"))
	assert.Equal(t, 2, store.Calls("CreateChannel"))
}
