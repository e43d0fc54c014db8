package command_test

import (
	"testing"

	"github.com/robalyx/warden/internal/bot/bottest"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContextSplitsCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		content    string
		wantCmd    string
		wantTarget string
	}{
		{name: "command only", content: "$ping", wantCmd: "ping"},
		{name: "with target", content: "$whois  someone#1234 ", wantCmd: "whois", wantTarget: "someone#1234"},
		{name: "multiline target", content: "$eval\n1 + 1", wantCmd: "eval", wantTarget: "1 + 1"},
		{name: "no prefix", content: "hello", wantCmd: ""},
	}

	h := bottest.New(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := h.Context(bottest.Member(), tt.content)
			assert.Equal(t, tt.wantCmd, c.Cmd)
			assert.Equal(t, tt.wantTarget, c.Target)
		})
	}
}

func TestContextReplies(t *testing.T) {
	t.Parallel()

	h := bottest.New(t, nil)
	c := h.Context(bottest.Member(), "$ping")

	require.NoError(t, c.Reply(t.Context(), "plain"))
	require.NoError(t, c.ErrorReply(t.Context(), "broken"))
	require.NoError(t, c.SendCode(t.Context(), "js", "2"))

	assert.Equal(t, []string{"plain", "❌ broken", "```js\n2\n```"}, h.Platform.Texts())
}

func TestGetUser(t *testing.T) {
	t.Parallel()

	h := bottest.New(t, nil)
	c := h.Context(bottest.Mod(), "$whois")

	tests := []struct {
		name   string
		raw    string
		wantID uint64
		found  bool
	}{
		{name: "mention", raw: "<@20>", wantID: 20, found: true},
		{name: "nickname mention", raw: "<@!30>", wantID: 30, found: true},
		{name: "raw id", raw: "10", wantID: 10, found: true},
		{name: "tag", raw: "member#0020", wantID: 20, found: true},
		{name: "unknown tag", raw: "ghost#0000", found: false},
		{name: "unknown id", raw: "123456", found: false},
		{name: "empty", raw: "  ", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user, found, err := c.GetUser(t.Context(), tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.wantID, uint64(user.ID))
			}
		})
	}
}

func TestGetChannel(t *testing.T) {
	t.Parallel()

	h := bottest.New(t, nil)
	h.Platform.PutChannel(platform.Channel{ID: 700, GuildID: 42, Name: "elsewhere", Type: platform.ChannelText})
	c := h.Context(bottest.Mod(), "$x")

	channel, ok := c.GetChannel("<#200>", true)
	require.True(t, ok)
	assert.Equal(t, "general", channel.Name)

	_, ok = c.GetChannel("<#700>", true)
	assert.False(t, ok)

	_, ok = c.GetChannel("700", false)
	assert.True(t, ok)

	_, ok = c.GetChannel("general", false)
	assert.False(t, ok)
}

func TestGetRole(t *testing.T) {
	t.Parallel()

	h := bottest.New(t, nil)
	h.Platform.PutRole(platform.Role{ID: 610, GuildID: bottest.GuildID, Name: "Room Owner", Position: 2})
	c := h.Context(bottest.Mod(), "$x")

	for _, raw := range []string{"<@&610>", "610", "room owner", "RoomOwner"} {
		role, ok := c.GetRole(raw)
		require.True(t, ok, raw)
		assert.Equal(t, "Room Owner", role.Name)
	}

	_, ok := c.GetRole("moderators")
	assert.False(t, ok)
}

func TestDefinitionHelp(t *testing.T) {
	t.Parallel()

	documented := &command.Definition{
		Name: "Ping",
		Help: func(prefix string) string { return "`" + prefix + "ping` - Pong" },
	}
	hidden := &command.Definition{Name: "secret"}

	assert.Equal(t, "ping", documented.ID())
	assert.Equal(t, "`!ping` - Pong", documented.HelpText("!"))
	assert.True(t, documented.Listed("!"))
	assert.Equal(t, command.DefaultHelp, hidden.HelpText("!"))
	assert.False(t, hidden.Listed("!"))
}

func TestLockdownIsOneWay(t *testing.T) {
	t.Parallel()

	var lockdown command.Lockdown
	assert.False(t, lockdown.Locked())
	lockdown.Lock()
	lockdown.Lock()
	assert.True(t, lockdown.Locked())
}
