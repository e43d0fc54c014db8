// Package formats recognizes battle format names in commands and team posts.
package formats

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/robalyx/warden/pkg/utils"
)

// ErrNoGeneration is returned when a format does not name a generation.
var ErrNoGeneration = errors.New("format has no generation")

// InvalidFormatError is returned when no known format can be found in an id.
type InvalidFormatError struct {
	ID string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("`%s` is not a valid format.", e.ID)
}

var (
	gameShortcutPattern = regexp.MustCompile(`(?i)^(?:SWSH|SS|USUM|SM|ORAS|XY|B2W2|BW2|BW|HGSS|DPP|DP|RSE|ADV|GSC|RBY)`)

	commandFormatPattern = regexp.MustCompile(`(?i)\b((?:SWSH|SS|USUM|SM|ORAS|XY|B2W2|BW2|BW|HGSS|DPP|DP|RSE|ADV|GSC|RBY|Gen ?[1-8]\]?)? ?` +
		`(?:(?:(?:Nat|National) ?Dex|Doubles|D)? ?[OURNP]U|AG|LC|VGC|OM|(?:Over|Under|Rarely|Never)used)|Ubers?|Monotype|` +
		`Little ?Cup|Nat ?Dex|Anything Goes|Video Game Championships?|Other ?Meta(?:s|games?)?)\b`)

	postFormatPattern = regexp.MustCompile(`(?i)\b((?:SWSH|SS|USUM|SM|ORAS|XY|B2W2|BW2|BW|HGSS|DPP|DP|RSE|ADV|GSC|RBY|Gen ?[1-8]\]?)? ?` +
		`(?:(?:Nat|National) ?Dex|Doubles|D)? ?(?:[OURNPZ]U|AG|LC|VGC|OM|BS[SD]|(?:Over|Under|Rarely|Never|Zero)used|Ubers?|` +
		`Monotype|Little ?Cup|Nat ?Dex|Anything ?Goes|Video ?Game ?Championships?|Battle ?(?:Spot|Stadium) ?(?:Singles?|Doubles?)|` +
		`1v1|Other ?Meta(?:s|games?)?))\b`)

	teamPastePattern = regexp.MustCompile(`https://pokepast\.es/[0-9a-z]{16}`)
)

// generations maps game shortcuts to their generation number.
var generations = map[string]int{ //nolint:gochecknoglobals // -
	"swsh": 8,
	"ss":   8,
	"usum": 7,
	"sm":   7,
	"oras": 6,
	"xy":   6,
	"b2w2": 5,
	"bw2":  5,
	"bw":   5,
	"hgss": 4,
	"dpp":  4,
	"dp":   4,
	"rse":  3,
	"adv":  3,
	"gsc":  2,
	"rby":  1,
}

// DefaultGeneration is assumed for team posts that do not name one.
const DefaultGeneration = 8

// Normalize turns a user supplied format into its canonical id, such as gen8ou.
// The format must name a generation, either as genN or as a game shortcut.
func Normalize(raw string) (string, error) {
	id := expandShortcut(utils.ToID(raw))
	if !strings.HasPrefix(id, "gen") {
		return "", ErrNoGeneration
	}

	match := commandFormatPattern.FindString(id)
	if match == "" {
		return "", &InvalidFormatError{ID: id}
	}
	return match, nil
}

// HasTeam reports whether text links a team paste.
func HasTeam(text string) bool {
	return teamPastePattern.MatchString(text)
}

// Detect finds the format a team post is about. Posts without a generation default
// to generation 8.
func Detect(text string) (string, bool) {
	match := postFormatPattern.FindString(text)
	if match == "" {
		return "", false
	}

	id := expandShortcut(utils.ToID(match))
	if !strings.HasPrefix(id, "gen") {
		id = fmt.Sprintf("gen%d%s", DefaultGeneration, id)
	}
	if id == "gen8natdexou" {
		id = "gen8natdex"
	}

	return id, true
}

// expandShortcut replaces a leading game shortcut of a normalized id with genN.
func expandShortcut(id string) string {
	shortcut := gameShortcutPattern.FindString(id)
	if shortcut == "" {
		return id
	}

	gen, ok := generations[shortcut]
	if !ok {
		gen = DefaultGeneration
	}
	return fmt.Sprintf("gen%d%s", gen, id[len(shortcut):])
}
