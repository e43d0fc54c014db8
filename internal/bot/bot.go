// Package bot assembles the command dispatcher, the event handlers and the
// gateway connection into one running process.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/commands"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/internal/bot/core/dispatch"
	"github.com/robalyx/warden/internal/bot/core/permission"
	"github.com/robalyx/warden/internal/bot/core/registry"
	"github.com/robalyx/warden/internal/bot/core/report"
	"github.com/robalyx/warden/internal/bot/core/verify"
	"github.com/robalyx/warden/internal/bot/events"
	"github.com/robalyx/warden/internal/bot/monitors"
	"github.com/robalyx/warden/internal/bot/sticky"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/discord/client"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/robalyx/warden/internal/showdown"
	"github.com/robalyx/warden/pkg/utils"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// DefaultShutdownGrace is used when Options.ShutdownGrace is not positive.
const DefaultShutdownGrace = 10 * time.Second

// Gateway is a platform connection that can be opened and closed.
type Gateway interface {
	platform.Client
	Open(ctx context.Context) error
	Close(ctx context.Context)
}

// Dialer creates the gateway connection that delivers events to listener.
type Dialer func(listener platform.Listener, onPanic client.PanicHandler) (Gateway, error)

// Options configures the bot.
type Options struct {
	Prefix        string
	Admins        []string
	ErrorChannel  snowflake.ID
	ShutdownGrace time.Duration
	Cooldown      monitors.Cooldown
	RetentionDays int
	EvalTimeout   time.Duration
	// DataDir holds the usage statistics files. Stats commands are unavailable when empty.
	DataDir string
}

// Bot handles gateway events and owns the process lifecycle.
type Bot struct {
	gateway    Gateway
	deps       *command.Deps
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	events     *events.Handler
	sticky     *sticky.Protocol
	reporter   *report.Reporter
	logger     *zap.Logger

	errorChannel snowflake.ID
	grace        time.Duration

	ready        sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

var _ platform.Listener = (*Bot)(nil)

// New creates a bot whose events arrive through the gateway returned by dial.
func New(opts Options, store database.Store, dial Dialer, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		logger:       logger.Named("bot"),
		errorChannel: opts.ErrorChannel,
		grace:        opts.ShutdownGrace,
		shutdown:     make(chan struct{}),
	}
	if b.grace <= 0 {
		b.grace = DefaultShutdownGrace
	}

	gateway, err := dial(b, b.onPanic)
	if err != nil {
		return nil, err
	}
	b.gateway = gateway

	// Initialize shared collaborators
	lockdown := &command.Lockdown{}
	perms := permission.NewResolver(gateway, opts.Admins)
	b.reporter = report.New(gateway, opts.ErrorChannel, logger)
	b.sticky = sticky.New(store, gateway, perms, logger)
	verifier := verify.New(store, gateway, lockdown, logger)

	var stats *showdown.Data
	if opts.DataDir != "" {
		stats = showdown.New(opts.DataDir, logger)
	}

	// Build the command and monitor registry
	builder := registry.NewBuilder()
	commands.Register(builder, commands.Options{
		Sticky:      b.sticky,
		EvalTimeout: opts.EvalTimeout,
		Showdown:    stats,
	})
	monitors.Register(builder, monitors.Options{
		Cooldown:      opts.Cooldown,
		RetentionDays: opts.RetentionDays,
	})
	reg, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build command registry: %w", err)
	}
	b.registry = reg

	b.deps = &command.Deps{
		Prefix:   opts.Prefix,
		Platform: gateway,
		Store:    store,
		Perms:    perms,
		Lockdown: lockdown,
		Reporter: b.reporter,
		Registry: reg,
		Logger:   logger,
		Shutdown: b.Shutdown,
	}
	b.dispatcher = dispatch.New(b.deps, reg, verifier)
	b.events = events.NewHandler(store, gateway, verifier, b.sticky, logger)

	return b, nil
}

// Run opens the gateway and blocks until ctx is cancelled or a shutdown is requested.
// It then locks new commands out, waits for the grace period and disconnects.
func (b *Bot) Run(ctx context.Context) error {
	// Handlers keep running through the grace period after ctx is cancelled
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	if err := b.gateway.Open(runCtx); err != nil {
		return err
	}
	b.logger.Info("Bot started", zap.String("prefix", b.deps.Prefix))

	select {
	case <-ctx.Done():
		b.logger.Info("Received stop signal")
	case <-b.shutdown:
		b.logger.Info("Shutdown requested")
	}

	b.deps.Lockdown.Lock()
	b.notify(runCtx, constants.ShutdownNotice)

	b.logger.Info("Waiting for in-flight work", zap.Duration("grace", b.grace))
	utils.ContextSleep(runCtx, b.grace)

	closeCtx, closeCancel := context.WithTimeout(runCtx, 5*time.Second)
	defer closeCancel()
	b.gateway.Close(closeCtx)

	return nil
}

// Shutdown requests a graceful shutdown. Later calls are no-ops.
func (b *Bot) Shutdown() {
	b.shutdownOnce.Do(func() {
		close(b.shutdown)
	})
}

// OnReady runs every startup hook once, then starts the daily sticky role reconciliation.
func (b *Bot) OnReady(ctx context.Context) {
	b.ready.Do(func() {
		b.logger.Info("Gateway ready", zap.Int("guilds", len(b.gateway.Guilds())))

		if err := b.runInits(ctx); err != nil {
			b.reporter.Report(ctx, "A startup hook failed:", err)
		}

		go utils.RunDaily(ctx, b.logger, constants.StickyReconcile, 0, b.sticky.ReconcileAll)
	})
}

// OnMessage dispatches a message to the commands and monitors.
func (b *Bot) OnMessage(ctx context.Context, message platform.Message) {
	b.dispatcher.HandleMessage(ctx, message)
}

// OnMessageDelete logs moderator deletions.
func (b *Bot) OnMessageDelete(ctx context.Context, message platform.Message) {
	b.handle(ctx, "message_delete", b.events.OnMessageDelete(ctx, message))
}

// OnMemberJoin verifies the member and restores their sticky roles.
func (b *Bot) OnMemberJoin(ctx context.Context, member platform.Member) {
	b.handle(ctx, "member_join", b.events.OnMemberJoin(ctx, member))
}

// OnMemberUpdate follows sticky role changes.
func (b *Bot) OnMemberUpdate(ctx context.Context, oldMember, newMember platform.Member) {
	b.handle(ctx, "member_update", b.events.OnMemberUpdate(ctx, oldMember, newMember))
}

// OnMemberLeave logs kicks.
func (b *Bot) OnMemberLeave(ctx context.Context, guildID snowflake.ID, user platform.User) {
	b.handle(ctx, "member_leave", b.events.OnMemberLeave(ctx, guildID, user))
}

// OnRoleDelete forgets a deleted sticky role.
func (b *Bot) OnRoleDelete(ctx context.Context, guildID, roleID snowflake.ID) {
	b.handle(ctx, "role_delete", b.events.OnRoleDelete(ctx, guildID, roleID))
}

// OnBan logs bans and unbans.
func (b *Bot) OnBan(ctx context.Context, guildID snowflake.ID, user platform.User, removed bool) {
	b.handle(ctx, "guild_ban", b.events.OnBan(ctx, guildID, user, removed))
}

// runInits runs the startup hook of every command and monitor concurrently.
func (b *Bot) runInits(ctx context.Context) error {
	p := pool.New().WithErrors()

	for _, def := range b.registry.Commands() {
		if def.Init == nil {
			continue
		}
		p.Go(func() error {
			if err := def.Init(ctx, b.deps); err != nil {
				return fmt.Errorf("command %s: %w", def.ID(), err)
			}
			return nil
		})
	}

	for _, def := range b.registry.Monitors() {
		if def.Init == nil {
			continue
		}
		p.Go(func() error {
			if err := def.Init(ctx, b.deps); err != nil {
				return fmt.Errorf("monitor %s: %w", def.ID(), err)
			}
			return nil
		})
	}

	return p.Wait()
}

// handle reports an event handler error.
func (b *Bot) handle(ctx context.Context, event string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	b.reporter.Report(ctx, fmt.Sprintf("An event handler failed (%s):", event), err)
}

// onPanic reports a panic recovered by the gateway.
func (b *Bot) onPanic(ctx context.Context, event string, recovered any) {
	b.reporter.Report(ctx, fmt.Sprintf("An event handler crashed (%s):", event), report.Recovered(recovered))
}

// notify posts text to the error channel, if one is configured.
func (b *Bot) notify(ctx context.Context, text string) {
	if b.errorChannel == 0 {
		return
	}
	if err := b.gateway.Send(ctx, b.errorChannel, discord.MessageCreate{Content: text}); err != nil {
		b.logger.Warn("Failed to send notice", zap.Error(err))
	}
}
