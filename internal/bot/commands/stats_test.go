package commands_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/warden/internal/bot/bottest"
	"github.com/robalyx/warden/internal/bot/commands"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/registry"
	"github.com/robalyx/warden/internal/showdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newStatsHarness(t *testing.T, files map[string]string) *bottest.Harness {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	h := bottest.New(t, nil)
	data := showdown.New(dir, zaptest.NewLogger(t))
	h.Rebuild(t, func(b *registry.Builder) {
		commands.Register(b, commands.Options{Showdown: data})
	})

	return h
}

func TestStatsLeads(t *testing.T) {
	t.Parallel()

	h := newStatsHarness(t, map[string]string{
		"dex.json": `{"pokemon": [{"name": "Tapu Koko", "types": ["Electric", "Fairy"]}]}`,
		"ps-stats/gen7/ou/leads-gen7ou.json": `{"data": {"rows": [
			[2, "Garchomp", 4.5, 900],
			[1, "Tapu Koko", 12.256, 3000]
		]}}`,
	})

	h.Send(t.Context(), bottest.Member(), "$stats-leads")

	sent := h.Platform.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, constants.LeadsHeader, sent[0].Message.Content)
	require.Len(t, sent[0].Message.Embeds, 1)

	embed := sent[0].Message.Embeds[0]
	assert.Equal(t, 0xF7D02C, embed.Color)
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, "https://play.pokemonshowdown.com/sprites/bw/tapu koko.png", embed.Thumbnail.URL)

	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Lead 1º Tapu Koko", embed.Fields[0].Name)
	assert.Equal(t, "Usage: 12.26%", embed.Fields[0].Value)
	require.NotNil(t, embed.Fields[0].Inline)
	assert.True(t, *embed.Fields[0].Inline)
	assert.Equal(t, "Lead 2º Garchomp", embed.Fields[1].Name)
	assert.Equal(t, "Usage: 4.50%", embed.Fields[1].Value)
}

func TestStatsLeadsUnknownLead(t *testing.T) {
	t.Parallel()

	h := newStatsHarness(t, map[string]string{
		"dex.json":                           `{"pokemon": []}`,
		"ps-stats/gen7/ou/leads-gen7ou.json": `{"data": {"rows": [[1, "Missingno", 1.5, 10]]}}`,
	})

	h.Send(t.Context(), bottest.Member(), "$stats-leads")

	embed := lastEmbed(t, h)
	assert.Equal(t, constants.DefaultEmbedColor, embed.Color)
	assert.Nil(t, embed.Thumbnail)
	require.Len(t, embed.Fields, 1)
}

func TestStatsLeadsUnavailable(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.Send(t.Context(), bottest.Member(), "$stats-leads")
		assert.Equal(t, constants.ErrorReplyPrefix+constants.StatsUnavailable, lastText(t, h))
	})

	t.Run("no rows", func(t *testing.T) {
		t.Parallel()

		h := newStatsHarness(t, map[string]string{
			"ps-stats/gen7/ou/leads-gen7ou.json": `{"data": {"rows": []}}`,
		})
		h.Send(t.Context(), bottest.Member(), "$stats-leads")
		assert.Equal(t, constants.ErrorReplyPrefix+constants.StatsUnavailable, lastText(t, h))
	})

	t.Run("missing files", func(t *testing.T) {
		t.Parallel()

		h := newStatsHarness(t, nil)
		h.Send(t.Context(), bottest.Member(), "$stats-leads")
		assert.Equal(t, constants.FailureNotice, lastText(t, h))
	})
}
