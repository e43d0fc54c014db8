// Package showdown loads Pokémon Showdown usage statistics and the Pokédex from a data directory.
//
// The expected layout is
//
//	<dir>/dex.json
//	<dir>/ps-stats/<generation>/<tier>/leads-<generation><tier>.json
//
// Files are read on first use and kept in memory for the life of the process.
package showdown

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/robalyx/warden/pkg/utils"
	"go.uber.org/zap"
)

const (
	// TopLeads is the number of leads kept per format.
	TopLeads = 10
	// MatchThreshold is the lowest similarity accepted for a fuzzy name match.
	MatchThreshold = 0.5
)

// ErrMalformedStats is returned when a stats file does not have the expected rows.
var ErrMalformedStats = errors.New("malformed stats file")

// Format is a generation and tier pair such as gen7 and ou.
type Format struct {
	Generation string
	Tier       string
}

// Key returns the name used in stats file names, e.g. gen7ou.
func (f Format) Key() string {
	return f.Generation + f.Tier
}

// Usage is the usage of one Pokémon in a format.
type Usage struct {
	Name            string
	UsagePercentage float64
	UsageRaw        float64
}

// Pokemon is a Pokédex entry.
type Pokemon struct {
	Name      string   `json:"name"`
	HP        int      `json:"hp"`
	Atk       int      `json:"atk"`
	Def       int      `json:"def"`
	SpA       int      `json:"spa"`
	SpD       int      `json:"spd"`
	Spe       int      `json:"spe"`
	Weight    float64  `json:"weight"`
	Height    float64  `json:"height"`
	Types     []string `json:"types"`
	Abilities []string `json:"abilities"`
	Formats   []string `json:"formats"`
}

// SpriteURL returns the Showdown sprite of the Pokémon.
func (p Pokemon) SpriteURL() string {
	return "https://play.pokemonshowdown.com/sprites/bw/" + strings.ToLower(p.Name) + ".png"
}

// PrimaryType returns the first type of the Pokémon, or the empty string.
func (p Pokemon) PrimaryType() string {
	if len(p.Types) == 0 {
		return ""
	}
	return p.Types[0]
}

type dexFile struct {
	Pokemon []Pokemon `json:"pokemon"`
}

type statsFile struct {
	Data struct {
		Rows [][]any `json:"rows"`
	} `json:"data"`
}

// dex is the loaded Pokédex indexed by identifier.
type dex struct {
	byID  map[string]Pokemon
	names []string
}

// Data serves stats and Pokédex lookups from a data directory.
type Data struct {
	dir    string
	leads  *xsync.MapOf[string, []Usage]
	dex    func() (*dex, error)
	logger *zap.Logger
}

// New creates a loader reading from dir.
func New(dir string, logger *zap.Logger) *Data {
	d := &Data{
		dir:    dir,
		leads:  xsync.NewMapOf[string, []Usage](),
		logger: logger.Named("showdown"),
	}
	d.dex = sync.OnceValues(d.loadDex)
	return d
}

// Leads returns the most used leads of format, highest usage first.
func (d *Data) Leads(format Format) ([]Usage, error) {
	if leads, ok := d.leads.Load(format.Key()); ok {
		return leads, nil
	}

	path := filepath.Join(d.dir, "ps-stats", format.Generation, format.Tier, "leads-"+format.Key()+".json")

	var file statsFile
	if err := readJSON(path, &file); err != nil {
		return nil, err
	}

	leads := make([]Usage, 0, len(file.Data.Rows))
	for i, row := range file.Data.Rows {
		usage, err := parseUsage(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i, err)
		}
		leads = append(leads, usage)
	}

	slices.SortStableFunc(leads, func(a, b Usage) int {
		return cmp.Compare(b.UsagePercentage, a.UsagePercentage)
	})
	leads = leads[:min(len(leads), TopLeads)]

	actual, _ := d.leads.LoadOrStore(format.Key(), leads)

	d.logger.Debug("Loaded leads",
		zap.String("format", format.Key()),
		zap.Int("rows", len(file.Data.Rows)))

	return actual, nil
}

// Pokemon finds a Pokédex entry by name. Exact identifier matches win, otherwise the
// most similar name is used when it is similar enough.
func (d *Data) Pokemon(name string) (Pokemon, bool, error) {
	dex, err := d.dex()
	if err != nil {
		return Pokemon{}, false, err
	}

	if pokemon, ok := dex.byID[utils.ToID(name)]; ok {
		return pokemon, true, nil
	}

	match, score := closest(name, dex.names)
	if score < MatchThreshold {
		return Pokemon{}, false, nil
	}

	pokemon, ok := dex.byID[utils.ToID(match)]
	return pokemon, ok, nil
}

func (d *Data) loadDex() (*dex, error) {
	var file dexFile
	if err := readJSON(filepath.Join(d.dir, "dex.json"), &file); err != nil {
		return nil, err
	}

	loaded := &dex{
		byID:  make(map[string]Pokemon, len(file.Pokemon)),
		names: make([]string, 0, len(file.Pokemon)),
	}
	for _, pokemon := range file.Pokemon {
		loaded.byID[utils.ToID(pokemon.Name)] = pokemon
		loaded.names = append(loaded.names, pokemon.Name)
	}

	d.logger.Debug("Loaded dex", zap.Int("pokemon", len(file.Pokemon)))
	return loaded, nil
}

// parseUsage reads a [rank, name, usage%, raw] stats row.
func parseUsage(row []any) (Usage, error) {
	if len(row) < 4 {
		return Usage{}, fmt.Errorf("%w: expected 4 columns, got %d", ErrMalformedStats, len(row))
	}

	name, ok := row[1].(string)
	if !ok {
		return Usage{}, fmt.Errorf("%w: name is %T", ErrMalformedStats, row[1])
	}
	percentage, ok := row[2].(float64)
	if !ok {
		return Usage{}, fmt.Errorf("%w: usage is %T", ErrMalformedStats, row[2])
	}
	raw, ok := row[3].(float64)
	if !ok {
		return Usage{}, fmt.Errorf("%w: raw usage is %T", ErrMalformedStats, row[3])
	}

	return Usage{Name: name, UsagePercentage: percentage, UsageRaw: raw}, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
