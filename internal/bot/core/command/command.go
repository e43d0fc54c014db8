package command

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robalyx/warden/internal/bot/core/permission"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/robalyx/warden/pkg/utils"
	"go.uber.org/zap"
)

// DefaultHelp is the help text of commands that do not document themselves.
// Commands with this help are hidden from listings.
const DefaultHelp = "No help is available for this command."

// Command is an explicitly invoked handler.
type Command interface {
	Execute(ctx context.Context, c *Context) error
}

// Monitor is a passive handler evaluated on every non-command guild message.
type Monitor interface {
	Command
	ShouldExecute(ctx context.Context, c *Context) (bool, error)
}

// InitFunc runs once after the gateway is ready.
type InitFunc func(ctx context.Context, deps *Deps) error

// Definition describes a command: how to build it, its help text and its startup work.
type Definition struct {
	Name string
	Help func(prefix string) string
	New  func() Command
	Init InitFunc
}

// ID returns the normalized command identifier.
func (d *Definition) ID() string {
	return utils.ToID(d.Name)
}

// HelpText returns the command's help for the given prefix.
func (d *Definition) HelpText(prefix string) string {
	if d.Help == nil {
		return DefaultHelp
	}
	return d.Help(prefix)
}

// Listed reports whether the command shows up in help listings.
func (d *Definition) Listed(prefix string) bool {
	return d.ID() != "" && d.HelpText(prefix) != DefaultHelp
}

// MonitorDefinition describes a monitor.
type MonitorDefinition struct {
	Name string
	New  func() Monitor
	Init InitFunc
}

// ID returns the normalized monitor identifier.
func (d *MonitorDefinition) ID() string {
	return utils.ToID(d.Name)
}

// Reporter sends out-of-band error reports.
type Reporter interface {
	Report(ctx context.Context, detail string, err error)
}

// Registry resolves and lists commands.
type Registry interface {
	Resolve(id string) (*Definition, error)
	Commands() []*Definition
}

// Lockdown is a one-way process flag that stops new work during shutdown.
type Lockdown struct {
	locked atomic.Bool
}

// Lock sets the flag. It cannot be cleared.
func (l *Lockdown) Lock() {
	l.locked.Store(true)
}

// Locked reports whether the flag is set.
func (l *Lockdown) Locked() bool {
	return l.locked.Load()
}

// Deps are the process-wide collaborators shared by every handler.
type Deps struct {
	Prefix   string
	Platform platform.Client
	Store    database.Store
	Perms    *permission.Resolver
	Lockdown *Lockdown
	Reporter Reporter
	Registry Registry
	Logger   *zap.Logger
	// Shutdown starts a graceful shutdown of the process.
	Shutdown func()
	// Now returns the current time.
	Now func() time.Time
}

// Clock returns the configured time source.
func (d *Deps) Clock() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}
