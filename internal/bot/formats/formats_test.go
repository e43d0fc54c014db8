package formats_test

import (
	"testing"

	"github.com/robalyx/warden/internal/bot/formats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "canonical", raw: "gen8ou", want: "gen8ou"},
		{name: "spaced and cased", raw: " Gen 7 UU ", want: "gen7uu"},
		{name: "game shortcut", raw: "SS OU", want: "gen8ou"},
		{name: "older shortcut", raw: "rby ou", want: "gen1ou"},
		{name: "doubles", raw: "gen7 doubles ou", want: "gen7doublesou"},
		{name: "national dex", raw: "gen8 nat dex ou", want: "gen8natdexou"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := formats.Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	t.Parallel()

	_, err := formats.Normalize("ou")
	require.ErrorIs(t, err, formats.ErrNoGeneration)

	_, err = formats.Normalize("gen8 fishing")
	var invalid *formats.InvalidFormatError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "gen8fishing", invalid.ID)
	assert.Equal(t, "`gen8fishing` is not a valid format.", invalid.Error())
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{name: "explicit generation", text: "Gen 8 OU team, thoughts?", want: "gen8ou", wantOK: true},
		{name: "game shortcut", text: "rate my SS UU team", want: "gen8uu", wantOK: true},
		{name: "default generation", text: "my ubers team", want: "gen8ubers", wantOK: true},
		{name: "national dex ou", text: "gen8 natdex ou squad", want: "gen8natdex", wantOK: true},
		{name: "older generation", text: "USUM OU team", want: "gen7ou", wantOK: true},
		{name: "no format", text: "look at this team", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := formats.Detect(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasTeam(t *testing.T) {
	t.Parallel()

	assert.True(t, formats.HasTeam("https://pokepast.es/0123456789abcdef"))
	assert.False(t, formats.HasTeam("https://pokepast.es/short"))
	assert.False(t, formats.HasTeam("http://pokepast.es/0123456789abcdef"))
}
