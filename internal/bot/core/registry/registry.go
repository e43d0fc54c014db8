package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/pkg/utils"
)

var (
	// ErrAliasLoop is returned when an alias resolves to another alias.
	ErrAliasLoop = errors.New("alias did not point to a command")
	// ErrDuplicateKey is returned when two entries normalize to the same key.
	ErrDuplicateKey = errors.New("duplicate registry key")
	// ErrEmptyKey is returned when a name normalizes to nothing.
	ErrEmptyKey = errors.New("name normalizes to an empty identifier")
	// ErrUnknownAliasTarget is returned when an alias points at a name nobody registered.
	ErrUnknownAliasTarget = errors.New("alias target is not registered")
)

// Kind tags a registry entry.
type Kind int

const (
	// KindHandler entries construct a command.
	KindHandler Kind = iota
	// KindAlias entries point at another key.
	KindAlias
)

// Entry is either a command definition or an alias to another key.
type Entry struct {
	Kind       Kind
	Definition *command.Definition
	Target     string
}

// Registry maps normalized identifiers to commands and holds the ordered monitor list.
// It is immutable once built.
type Registry struct {
	entries  map[string]Entry
	commands []*command.Definition
	monitors []*command.MonitorDefinition
}

var _ command.Registry = (*Registry)(nil)

// Lookup returns the raw entry for an identifier.
func (r *Registry) Lookup(id string) (Entry, bool) {
	entry, ok := r.entries[utils.ToID(id)]
	return entry, ok
}

// Resolve follows at most one alias hop to a command definition.
// Unknown identifiers resolve to nil without an error.
func (r *Registry) Resolve(id string) (*command.Definition, error) {
	entry, ok := r.Lookup(id)
	if !ok {
		return nil, nil
	}
	if entry.Kind == KindHandler {
		return entry.Definition, nil
	}

	target, ok := r.entries[entry.Target]
	if !ok {
		return nil, nil
	}
	if target.Kind == KindAlias {
		return nil, fmt.Errorf("%w: %q -> %q -> %q", ErrAliasLoop, utils.ToID(id), entry.Target, target.Target)
	}

	return target.Definition, nil
}

// Commands returns every command in registration order.
func (r *Registry) Commands() []*command.Definition {
	return r.commands
}

// Monitors returns every monitor in registration order.
func (r *Registry) Monitors() []*command.MonitorDefinition {
	return r.monitors
}

// Builder assembles a Registry, collecting configuration errors until Build.
type Builder struct {
	entries    map[string]Entry
	commands   []*command.Definition
	monitors   []*command.MonitorDefinition
	monitorIDs map[string]struct{}
	errs       []error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		entries:    make(map[string]Entry),
		monitorIDs: make(map[string]struct{}),
	}
}

// Register adds commands under their normalized names.
func (b *Builder) Register(defs ...*command.Definition) *Builder {
	for _, def := range defs {
		if b.put(def.Name, Entry{Kind: KindHandler, Definition: def}) {
			b.commands = append(b.commands, def)
		}
	}
	return b
}

// Alias points each alias at the canonical command name.
func (b *Builder) Alias(canonical string, aliases ...string) *Builder {
	target := utils.ToID(canonical)
	if target == "" {
		b.errs = append(b.errs, fmt.Errorf("%w: alias target %q", ErrEmptyKey, canonical))
		return b
	}

	for _, alias := range aliases {
		b.put(alias, Entry{Kind: KindAlias, Target: target})
	}
	return b
}

// Monitor appends monitors to the fan-out list.
func (b *Builder) Monitor(defs ...*command.MonitorDefinition) *Builder {
	for _, def := range defs {
		id := def.ID()
		if id == "" {
			b.errs = append(b.errs, fmt.Errorf("%w: monitor %q", ErrEmptyKey, def.Name))
			continue
		}
		if _, exists := b.monitorIDs[id]; exists {
			b.errs = append(b.errs, fmt.Errorf("%w: monitor %q", ErrDuplicateKey, id))
			continue
		}

		b.monitorIDs[id] = struct{}{}
		b.monitors = append(b.monitors, def)
	}
	return b
}

// Build returns the registry or every configuration error found.
func (b *Builder) Build() (*Registry, error) {
	for _, id := range slices.Sorted(maps.Keys(b.entries)) {
		entry := b.entries[id]
		if entry.Kind != KindAlias {
			continue
		}
		if _, ok := b.entries[entry.Target]; !ok {
			b.errs = append(b.errs, fmt.Errorf("%w: %q -> %q", ErrUnknownAliasTarget, id, entry.Target))
		}
	}

	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	return &Registry{
		entries:  b.entries,
		commands: b.commands,
		monitors: b.monitors,
	}, nil
}

// put stores an entry, recording an error for empty or duplicate keys.
func (b *Builder) put(name string, entry Entry) bool {
	id := utils.ToID(name)
	if id == "" {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrEmptyKey, name))
		return false
	}
	if _, exists := b.entries[id]; exists {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrDuplicateKey, id))
		return false
	}

	b.entries[id] = entry
	return true
}
