package commands_test

import (
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/bottest"
	"github.com/robalyx/warden/internal/bot/commands"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/registry"
	"github.com/robalyx/warden/internal/bot/sticky"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newHarness(t *testing.T) *bottest.Harness {
	t.Helper()

	h := bottest.New(t, nil)
	protocol := sticky.New(h.Store, h.Platform, h.Deps.Perms, h.Deps.Logger)
	h.Rebuild(t, func(b *registry.Builder) {
		commands.Register(b, commands.Options{Sticky: protocol, EvalTimeout: 5 * time.Second})
	})

	return h
}

func lastText(t *testing.T, h *bottest.Harness) string {
	t.Helper()

	texts := h.Platform.Texts()
	require.NotEmpty(t, texts)
	return texts[len(texts)-1]
}

func lastEmbed(t *testing.T, h *bottest.Harness) discord.Embed {
	t.Helper()

	embeds := h.Platform.Embeds()
	require.NotEmpty(t, embeds)
	return embeds[len(embeds)-1]
}

func TestPing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.Send(t.Context(), bottest.Member(), "$ping")

	assert.Equal(t, []string{"Pong!"}, h.Platform.Texts())
}

func TestDirectory(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.SendDM(t.Context(), bottest.Member(), "$directory")

	assert.Equal(t, "Here's a link to the Smogon Discord Server Directory! "+constants.DirectoryLink, lastText(t, h))
}

func TestHelpForCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		field    string
		contains []string
	}{
		{
			name:    "self",
			content: "$help help",
			field:   "$help",
			contains: []string{
				"$help [command] - Get help for a command.",
				"Aliases: $h",
			},
		},
		{
			name:    "through alias",
			content: "$h lb",
			field:   "$leaderboard",
			contains: []string{
				"Requires: Kick Members Permissions",
				"Aliases: $lb",
				"Related Commands: channelleaderboard, linecount, channellinecount",
			},
		},
		{
			name:     "manage guild label",
			content:  "$help enablelogs",
			field:    "$enablelogs",
			contains: []string{"Requires: Manage Server Permissions", "Aliases: None"},
		},
		{
			name:     "undocumented",
			content:  "$help ping",
			field:    "$ping",
			contains: []string{"No help is available for this command."},
		},
		{
			name:     "unknown",
			content:  "$help nothing",
			field:    "$nothing",
			contains: []string{"No help is available for this command."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.Send(t.Context(), bottest.Member(), tt.content)

			embed := lastEmbed(t, h)
			assert.Equal(t, constants.HelpSelectedCommand, embed.Description)
			require.Len(t, embed.Fields, 1)
			assert.Equal(t, tt.field, embed.Fields[0].Name)
			for _, want := range tt.contains {
				assert.Contains(t, embed.Fields[0].Value, want)
			}
		})
	}
}

func TestHelpListing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		page   string
		footer string
		first  string
		fields int
	}{
		{name: "first page", page: "", footer: "Page: 1/3", first: "$help", fields: 5},
		{name: "second page", page: " 2", footer: "Page: 2/3", first: "$sticky", fields: 5},
		{name: "last page", page: " 3", footer: "Page: 3/3", first: "$leaderboard", fields: 5},
		{name: "clamped high", page: " 9", footer: "Page: 3/3", first: "$leaderboard", fields: 5},
		{name: "clamped low", page: " -2", footer: "Page: 1/3", first: "$help", fields: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.Send(t.Context(), bottest.Member(), "$help"+tt.page)

			embed := lastEmbed(t, h)
			assert.Equal(t, constants.HelpAllCommands, embed.Description)
			require.NotNil(t, embed.Footer)
			assert.Equal(t, tt.footer, embed.Footer.Text)
			require.Len(t, embed.Fields, tt.fields)
			assert.Equal(t, tt.first, embed.Fields[0].Name)

			for _, field := range embed.Fields {
				assert.NotEqual(t, "$ping", field.Name)
				assert.NotEqual(t, "$eval", field.Name)
			}
		})
	}
}

func TestEval(t *testing.T) {
	t.Parallel()

	t.Run("admin", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.Send(t.Context(), bottest.Admin(), "$eval 1 + 2")

		assert.Equal(t, "```\n3\n```", lastText(t, h))
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.Send(t.Context(), bottest.Admin(), "$js undefinedName")

		assert.Contains(t, lastText(t, h), "An error occured: ")
	})

	t.Run("denied", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.Send(t.Context(), bottest.Owner(), "$eval 1 + 2")

		assert.Equal(t, []string{constants.PermissionDenied}, h.Platform.Texts())
	})
}

func TestQuery(t *testing.T) {
	t.Parallel()

	t.Run("rows", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		gateway := h.Store.FakeGateway()
		gateway.SetRows([]map[string]any{{"total": 4}})

		h.Send(t.Context(), bottest.Admin(), "$query SELECT count(*) AS total FROM users")

		text := lastText(t, h)
		assert.Contains(t, text, "```json\n")
		assert.Contains(t, text, `"total": 4`)
		assert.Contains(t, gateway.Statements(), "SELECT count(*) AS total FROM users")
		assert.Equal(t, 1, gateway.Acquired())
		assert.Equal(t, 1, gateway.Released())
	})

	t.Run("no rows", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.Send(t.Context(), bottest.Admin(), "$query DELETE FROM lines")

		assert.Equal(t, "Query returned no rows.", lastText(t, h))
	})

	t.Run("usage", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.Send(t.Context(), bottest.Admin(), "$query")

		assert.Equal(t, "❌ Command usage: $query SQL", lastText(t, h))
		assert.Zero(t, h.Store.FakeGateway().Acquired())
	})

	t.Run("denied", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.Send(t.Context(), bottest.Owner(), "$query SELECT 1")

		assert.Equal(t, []string{constants.PermissionDenied}, h.Platform.Texts())
		assert.Empty(t, h.Store.FakeGateway().Statements())
	})
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	h.Send(t.Context(), bottest.Owner(), "$shutdown")
	assert.Equal(t, constants.PermissionDenied, lastText(t, h))
	assert.Zero(t, h.Shutdowns())

	h.Send(t.Context(), bottest.Admin(), "$shutdown")
	assert.Equal(t, "Shutting down...", lastText(t, h))
	assert.Equal(t, 1, h.Shutdowns())
}

func TestWhois(t *testing.T) {
	t.Parallel()

	t.Run("member", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.Platform.PutRole(platform.Role{ID: 501, GuildID: bottest.GuildID, Name: "Staff", Position: 1})
		h.Platform.PutMember(platform.Member{
			GuildID: bottest.GuildID,
			User:    bottest.Member(),
			RoleIDs: []snowflake.ID{501},
		})
		h.Platform.SetPermissions(bottest.GuildID, bottest.MemberID,
			discord.PermissionBanMembers|discord.PermissionViewAuditLog)

		h.Send(t.Context(), bottest.Mod(), "$whois <@20>")

		embed := lastEmbed(t, h)
		assert.Equal(t, "Information of <@20>.", embed.Description)
		require.NotNil(t, embed.Author)
		assert.Equal(t, "member#0020", embed.Author.Name)
		require.Len(t, embed.Fields, 3)
		assert.Equal(t, "Registered", embed.Fields[0].Name)
		assert.Equal(t, "Thu, 01 Jan 2015 00:00:00 GMT", embed.Fields[0].Value)
		assert.Equal(t, "<@&501>", embed.Fields[1].Value)
		assert.Equal(t, "Ban Members, View Audit Log", embed.Fields[2].Value)
		require.NotNil(t, embed.Footer)
		assert.Equal(t, "User ID: 20", embed.Footer.Text)
	})

	t.Run("no roles", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.Send(t.Context(), bottest.Mod(), "$whois member#0020")

		embed := lastEmbed(t, h)
		require.Len(t, embed.Fields, 3)
		assert.Equal(t, "No Roles", embed.Fields[1].Value)
		assert.Equal(t, "None", embed.Fields[2].Value)
	})

	tests := []struct {
		name    string
		author  platform.User
		content string
		dm      bool
		want    string
	}{
		{name: "denied", author: bottest.Member(), content: "$whois <@1>", want: "❌ Access Denied."},
		{name: "unknown", author: bottest.Mod(), content: "$whois nobody", want: "❌ The user \"nobody\" was not found."},
		{name: "direct message", author: bottest.Mod(), content: "$whois <@1>", dm: true, want: "❌ " + constants.NotInPMs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			if tt.dm {
				h.SendDM(t.Context(), tt.author, tt.content)
			} else {
				h.Send(t.Context(), tt.author, tt.content)
			}

			assert.Equal(t, tt.want, lastText(t, h))
			assert.Empty(t, h.Platform.Embeds())
		})
	}
}

func TestLogChannelCommands(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := t.Context()

	h.Send(ctx, bottest.Mod(), "$enablelogs")
	assert.Equal(t, "❌ Access Denied", lastText(t, h))

	h.Send(ctx, bottest.Owner(), "$enablelogs")
	assert.Equal(t, "Server events will now be logged to this channel.", lastText(t, h))

	server, ok := h.Store.Server(uint64(bottest.GuildID))
	require.True(t, ok)
	require.NotNil(t, server.LogChannel)
	assert.Equal(t, uint64(bottest.ChannelID), *server.LogChannel)

	h.Send(ctx, bottest.Owner(), "$enablelogs")
	assert.Equal(t, "❌ This server is already setup to log to <#200>.", lastText(t, h))

	h.Send(ctx, bottest.Owner(), "$disablelogs")
	assert.Equal(t, "Server events will no longer be logged to this channel.", lastText(t, h))

	server, _ = h.Store.Server(uint64(bottest.GuildID))
	assert.Nil(t, server.LogChannel)

	h.Send(ctx, bottest.Owner(), "$disablelogs")
	assert.Equal(t, "❌ This server is not setup to log messages to a log channel.", lastText(t, h))
}

func TestStickyCommands(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := t.Context()
	h.Platform.PutRole(platform.Role{ID: 501, GuildID: bottest.GuildID, Name: "Low", Position: 1})
	h.Platform.PutRole(platform.Role{ID: 505, GuildID: bottest.GuildID, Name: "Warden", Position: 5})

	h.Send(ctx, bottest.Owner(), "$sticky")
	assert.Equal(t, "❌ Command usage: $sticky @role", lastText(t, h))

	h.Send(ctx, bottest.Owner(), "$sticky Ghost")
	assert.Equal(t, "❌ The role \"Ghost\" was not found.", lastText(t, h))

	h.Send(ctx, bottest.Member(), "$sticky Low")
	assert.Equal(t, "❌ Access Denied.", lastText(t, h))

	h.Send(ctx, bottest.Owner(), "$sticky <@&501>")
	assert.Equal(t, "❌ I need the Manage Roles permission to assign sticky roles.", lastText(t, h))

	h.Platform.SetPermissions(bottest.GuildID, bottest.SelfID, discord.PermissionManageRoles)
	h.Platform.PutMember(platform.Member{
		GuildID: bottest.GuildID,
		User:    platform.User{ID: bottest.SelfID, Username: "warden", Bot: true},
		RoleIDs: []snowflake.ID{505},
	})

	h.Send(ctx, bottest.Owner(), "$sticky Low")
	assert.Equal(t, "Low is now a sticky role. Members who leave and rejoin will get it back.", lastText(t, h))

	h.Send(ctx, bottest.Owner(), "$sticky Low")
	assert.Equal(t, "❌ Low is already a sticky role.", lastText(t, h))

	h.Send(ctx, bottest.Owner(), "$unsticky Low")
	assert.Equal(t, "Low is no longer a sticky role.", lastText(t, h))

	h.Send(ctx, bottest.Owner(), "$unsticky Low")
	assert.Equal(t, "❌ Low is not a sticky role.", lastText(t, h))
}

func TestBoosters(t *testing.T) {
	t.Parallel()

	t.Run("denied", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.Send(t.Context(), bottest.Mod(), "$boosters")

		assert.Equal(t, "❌ Access Denied.", lastText(t, h))
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.Send(t.Context(), bottest.Owner(), "$boosters")

		embed := lastEmbed(t, h)
		require.Len(t, embed.Fields, 1)
		assert.Equal(t, "No Boosters", embed.Fields[0].Name)
	})

	t.Run("listed", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		ctx := t.Context()
		since := time.Date(2021, time.March, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, h.Store.Users().CreateUser(ctx, &types.User{
			UserID: uint64(bottest.MemberID), Name: "member", Discriminator: "0020",
		}))
		require.NoError(t, h.Store.Members().CreateMember(ctx, &types.Member{
			ServerID: uint64(bottest.GuildID), UserID: uint64(bottest.MemberID), Boosting: &since,
		}))

		h.Send(ctx, bottest.Owner(), "$boosters")

		embed := lastEmbed(t, h)
		assert.Equal(t, "Current Nitro Boosters", embed.Description)
		assert.Equal(t, constants.BoosterEmbedColor, embed.Color)
		require.NotNil(t, embed.Footer)
		assert.Equal(t, "Server ID: 100", embed.Footer.Text)
		require.Len(t, embed.Fields, 1)
		assert.Equal(t, "member#0020", embed.Fields[0].Name)
		assert.Equal(t, "Since Mon, 01 Mar 2021", embed.Fields[0].Value)
	})
}

func TestUpdateBoosters(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := t.Context()
	serverID := uint64(bottest.GuildID)
	logChannel := uint64(bottest.ChannelID)
	since := time.Date(2021, time.March, 9, 0, 0, 0, 0, time.UTC)
	earlier := since.AddDate(0, -1, 0)

	require.NoError(t, h.Store.Servers().CreateServer(ctx, &types.Server{
		ServerID: serverID, ServerName: "Test Server", LogChannel: &logChannel,
	}))
	for _, id := range []uint64{uint64(bottest.ModID), 77} {
		require.NoError(t, h.Store.Users().CreateUser(ctx, &types.User{UserID: id, Name: "user", Discriminator: "0001"}))
		require.NoError(t, h.Store.Members().CreateMember(ctx, &types.Member{
			ServerID: serverID, UserID: id, Boosting: &earlier,
		}))
	}

	h.Platform.PutMember(platform.Member{GuildID: bottest.GuildID, User: bottest.Member(), PremiumSince: &since})

	logger := zaptest.NewLogger(t)
	require.NoError(t, commands.UpdateBoosters(ctx, h.Store, h.Platform, logger))

	assert.Equal(t, []string{
		"<@20> has started boosting!",
		"<@30> is no longer boosting.",
		"<@77> is no longer boosting because they left the server.",
	}, h.Platform.Texts())

	member, ok := h.Store.Member(serverID, uint64(bottest.MemberID))
	require.True(t, ok)
	require.NotNil(t, member.Boosting)
	assert.True(t, since.Equal(*member.Boosting))

	for _, id := range []uint64{uint64(bottest.ModID), 77} {
		member, ok := h.Store.Member(serverID, id)
		require.True(t, ok)
		assert.Nil(t, member.Boosting)
	}

	// A second poll finds nothing new
	require.NoError(t, commands.UpdateBoosters(ctx, h.Store, h.Platform, logger))
	assert.Len(t, h.Platform.Texts(), 3)
}

func TestTeamRaterCommands(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := t.Context()
	rater := &types.TeamRater{UserID: uint64(bottest.MemberID), Format: "gen8ou", ChannelID: uint64(bottest.ChannelID)}

	h.Send(ctx, bottest.Mod(), "$addteamrater <@20>, ss ou")
	assert.Equal(t, "member has been added as a team rater for gen8ou in <#200>", lastText(t, h))

	exists, err := h.Store.TeamRaters().IsRater(ctx, rater)
	require.NoError(t, err)
	assert.True(t, exists)

	h.Send(ctx, bottest.Mod(), "$addteamrater member#0020, gen8ou")
	assert.Equal(t, "❌ <@20> is already a team rater for gen8ou in <#200>.", lastText(t, h))

	h.Send(ctx, bottest.Mod(), "$removeteamrater <@20>, gen8ou, <#200>")
	assert.Equal(t, "member is no longer a team rater for gen8ou in <#200>", lastText(t, h))

	exists, err = h.Store.TeamRaters().IsRater(ctx, rater)
	require.NoError(t, err)
	assert.False(t, exists)

	h.Send(ctx, bottest.Mod(), "$removeteamrater <@20>, gen8ou")
	assert.Equal(t, "❌ member is not a team rater for gen8ou in <#200>.", lastText(t, h))
}

func TestTeamRaterArguments(t *testing.T) {
	t.Parallel()

	usage := "❌ Command usage: $addteamrater @User OR User#tag, format, (#channel). " +
		"#channel defaults to the current one if not provided."

	tests := []struct {
		name    string
		author  platform.User
		content string
		want    string
	}{
		{name: "denied", author: bottest.Member(), content: "$addteamrater <@20>, gen8ou", want: "❌ Access Denied"},
		{name: "missing user", author: bottest.Mod(), content: "$addteamrater", want: usage},
		{name: "plain name", author: bottest.Mod(), content: "$addteamrater member, gen8ou", want: usage},
		{
			name:    "unknown user",
			author:  bottest.Mod(),
			content: "$addteamrater <@55>, gen8ou",
			want:    "❌ Unable to find the user \"<@55>\".",
		},
		{
			name:    "no generation",
			author:  bottest.Mod(),
			content: "$addteamrater <@20>, ou",
			want:    "❌ You must specify a generation for the format",
		},
		{
			name:    "invalid format",
			author:  bottest.Mod(),
			content: "$addteamrater <@20>, gen8 fishing",
			want:    "❌ `gen8fishing` is not a valid format.",
		},
		{name: "bad channel", author: bottest.Mod(), content: "$addteamrater <@20>, gen8ou, general", want: usage},
		{name: "unknown channel", author: bottest.Mod(), content: "$addteamrater <@20>, gen8ou, <#999>", want: usage},
		{
			name:    "foreign channel",
			author:  bottest.Mod(),
			content: "$addteamrater <@20>, gen8ou, <#201>",
			want:    "❌ Channel must be in this server.",
		},
		{
			name:    "voice channel",
			author:  bottest.Mod(),
			content: "$addteamrater <@20>, gen8ou, <#202>",
			want:    "❌ This command cannot be used in a DM or Group Chat.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.Platform.PutChannel(platform.Channel{ID: 201, GuildID: 101, Name: "elsewhere", Type: platform.ChannelText})
			h.Platform.PutChannel(platform.Channel{ID: 202, GuildID: bottest.GuildID, Name: "voice", Type: platform.ChannelOther})

			h.Send(t.Context(), tt.author, tt.content)

			assert.Equal(t, tt.want, lastText(t, h))
			assert.Zero(t, h.Store.Calls("AddRater"))
		})
	}
}

// seedActivity records three lines for member and one for mod today,
// plus two lines in the fixture channel.
func seedActivity(t *testing.T, h *bottest.Harness) {
	t.Helper()

	ctx := t.Context()
	serverID := uint64(bottest.GuildID)

	for _, user := range []platform.User{bottest.Member(), bottest.Mod()} {
		require.NoError(t, h.Store.Users().CreateUser(ctx, &types.User{
			UserID: uint64(user.ID), Name: user.Username, Discriminator: user.Discriminator,
		}))
	}
	require.NoError(t, h.Store.Channels().CreateChannel(ctx, &types.Channel{
		ChannelID: uint64(bottest.ChannelID), ChannelName: "general", ServerID: serverID,
	}))

	for range 3 {
		require.NoError(t, h.Store.Activity().IncrementUserLines(ctx, uint64(bottest.MemberID), serverID, bottest.Fixed))
	}
	require.NoError(t, h.Store.Activity().IncrementUserLines(ctx, uint64(bottest.ModID), serverID, bottest.Fixed))
	for range 2 {
		require.NoError(t, h.Store.Activity().IncrementChannelLines(ctx, uint64(bottest.ChannelID), bottest.Fixed))
	}
}

func TestLeaderboards(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		content     string
		description string
		fields      []discord.EmbedField
	}{
		{
			name:        "default timeframe",
			content:     "$leaderboard",
			description: "All Time Chatter Leaderboard",
			fields: []discord.EmbedField{
				{Name: "1. member#0020", Value: "3 lines"},
				{Name: "2. mod#0030", Value: "1 lines"},
			},
		},
		{
			name:        "today",
			content:     "$lb day",
			description: "Todays Chatter Leaderboard",
			fields: []discord.EmbedField{
				{Name: "1. member#0020", Value: "3 lines"},
				{Name: "2. mod#0030", Value: "1 lines"},
			},
		},
		{
			name:        "channels this week",
			content:     "$clb week",
			description: "This Weeks Most Active Channels",
			fields:      []discord.EmbedField{{Name: "1. general", Value: "2 lines"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			seedActivity(t, h)
			h.Send(t.Context(), bottest.Mod(), tt.content)

			embed := lastEmbed(t, h)
			assert.Equal(t, tt.description, embed.Description)
			require.NotNil(t, embed.Footer)
			assert.Equal(t, "Page 1/1", embed.Footer.Text)
			require.Len(t, embed.Fields, len(tt.fields))
			for i, want := range tt.fields {
				assert.Equal(t, want.Name, embed.Fields[i].Name)
				assert.Equal(t, want.Value, embed.Fields[i].Value)
			}
		})
	}
}

func TestLeaderboardEmptyAndInvalid(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.Send(t.Context(), bottest.Mod(), "$leaderboard month")

	embed := lastEmbed(t, h)
	assert.Equal(t, "This Months Chatter Leaderboard", embed.Description)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "No Lines", embed.Fields[0].Name)
	assert.Equal(t, "Nobody has spoken yet.", embed.Fields[0].Value)

	h.Send(t.Context(), bottest.Mod(), "$leaderboard fortnight")
	assert.Contains(t, lastText(t, h), "❌ $leaderboard [day | week | month | alltime] - ")

	h.Send(t.Context(), bottest.Member(), "$leaderboard")
	assert.Equal(t, "❌ Access Denied", lastText(t, h))
}

func TestLinecounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		content     string
		description string
		field       discord.EmbedField
	}{
		{
			name:        "default timeframe",
			content:     "$linecount <@20>",
			description: "Daily Linecount for member#0020",
			field:       discord.EmbedField{Name: "March 10, 2021", Value: "3 lines"},
		},
		{
			name:        "weekly",
			content:     "$lc <@20>, week",
			description: "Weekly Linecount for member#0020",
			field:       discord.EmbedField{Name: "Week 10", Value: "3 lines"},
		},
		{
			name:        "monthly",
			content:     "$lc member#0020, month",
			description: "Monthly Linecount for member#0020",
			field:       discord.EmbedField{Name: "March", Value: "3 lines"},
		},
		{
			name:        "all time",
			content:     "$lc <@20>, alltime",
			description: "All Time Linecount for member#0020",
			field:       discord.EmbedField{Name: "All Records", Value: "3 lines"},
		},
		{
			name:        "channel",
			content:     "$clc <#200>",
			description: "Linecount for general",
			field:       discord.EmbedField{Name: "March 10, 2021", Value: "2 lines"},
		},
		{
			name:        "silent user",
			content:     "$lc <@10>, alltime",
			description: "All Time Linecount for admin#0010",
			field:       discord.EmbedField{Name: "No Lines", Value: "Nobody has spoken yet."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			seedActivity(t, h)
			h.Send(t.Context(), bottest.Mod(), tt.content)

			embed := lastEmbed(t, h)
			assert.Equal(t, tt.description, embed.Description)
			require.Len(t, embed.Fields, 1)
			assert.Equal(t, tt.field.Name, embed.Fields[0].Name)
			assert.Equal(t, tt.field.Value, embed.Fields[0].Value)
		})
	}
}

func TestLinecountInvalidTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		prefix  string
	}{
		{name: "missing user", content: "$linecount", prefix: "❌ $linecount @user, "},
		{name: "unknown user", content: "$lc <@55>", prefix: "❌ $linecount @user, "},
		{name: "bad timeframe", content: "$lc <@20>, year", prefix: "❌ $linecount @user, "},
		{name: "unknown channel", content: "$clc <#999>", prefix: "❌ $channellinecount #channel, "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.Send(t.Context(), bottest.Mod(), tt.content)

			assert.Contains(t, lastText(t, h), tt.prefix)
			assert.Empty(t, h.Platform.Embeds())
		})
	}
}
