package showdown

import "strings"

// typeColors maps a Pokémon type to its embed color.
var typeColors = map[string]int{ //nolint:gochecknoglobals // -
	"normal":   0xA8A77A,
	"fighting": 0xC22E28,
	"flying":   0xA98FF3,
	"poison":   0xA33EA1,
	"ground":   0xE2BF65,
	"rock":     0xB6A136,
	"bug":      0xA6B91A,
	"ghost":    0x735797,
	"steel":    0xB7B7CE,
	"fire":     0xEE8130,
	"water":    0x6390F0,
	"grass":    0x7AC74C,
	"electric": 0xF7D02C,
	"psychic":  0xF95587,
	"ice":      0x96D9D6,
	"dragon":   0x6F35FC,
	"dark":     0x705746,
	"fairy":    0xD685AD,
}

// TypeColor returns the embed color of a Pokémon type. Unknown types report false.
func TypeColor(pokemonType string) (int, bool) {
	color, ok := typeColors[strings.ToLower(pokemonType)]
	return color, ok
}
