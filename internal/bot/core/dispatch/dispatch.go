package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/internal/bot/core/registry"
	"github.com/robalyx/warden/internal/bot/core/report"
	"github.com/robalyx/warden/internal/bot/core/verify"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/robalyx/warden/pkg/utils"
	"go.uber.org/zap"
)

// Dispatcher routes inbound messages to monitors or commands.
type Dispatcher struct {
	deps     *command.Deps
	registry *registry.Registry
	verifier *verify.Cache
	logger   *zap.Logger
}

// New creates a dispatcher.
func New(deps *command.Deps, reg *registry.Registry, verifier *verify.Cache) *Dispatcher {
	return &Dispatcher{
		deps:     deps,
		registry: reg,
		verifier: verifier,
		logger:   deps.Logger.Named("dispatch"),
	}
}

// HandleMessage runs the full pipeline for one message: filters, verification,
// then either the monitor fan-out or the command path.
func (d *Dispatcher) HandleMessage(ctx context.Context, message platform.Message) {
	// Webhooks, our own messages and other bots never cause side effects
	if message.WebhookID != nil || message.Author.Bot || message.Author.ID == d.deps.Platform.SelfID() {
		return
	}

	guild, channel := d.location(message)
	author := message.Author

	err := d.verifier.Verify(ctx, verify.Record{
		Author:  &author,
		Guild:   guild,
		Channel: &channel,
	})
	if err != nil {
		d.deps.Reporter.Report(ctx, "Failed to verify message entities:", err)

		// Only someone invoking a command is waiting for an answer
		if strings.HasPrefix(message.Content, d.deps.Prefix) {
			if err := d.deps.Platform.Send(ctx, message.ChannelID,
				discord.MessageCreate{Content: constants.FailureNotice}); err != nil {
				d.logger.Warn("Failed to send failure notice", zap.Error(err))
			}
		}
		return
	}

	c := command.NewContext(d.deps, message, guild, channel)

	if !strings.HasPrefix(message.Content, d.deps.Prefix) {
		d.runMonitors(ctx, c)
		return
	}

	d.runCommand(ctx, c)
}

// location resolves the guild and channel a message was sent in.
func (d *Dispatcher) location(message platform.Message) (*platform.Guild, platform.Channel) {
	if message.GuildID == nil {
		return nil, platform.Channel{ID: message.ChannelID, Type: platform.ChannelDM}
	}

	guild, ok := d.deps.Platform.Guild(*message.GuildID)
	if !ok {
		guild = platform.Guild{ID: *message.GuildID}
	}

	channel, ok := d.deps.Platform.Channel(message.ChannelID)
	if !ok {
		channel = platform.Channel{ID: message.ChannelID, GuildID: guild.ID, Type: platform.ChannelOther}
	}

	return &guild, channel
}

// runMonitors evaluates every monitor in registration order. A failing monitor is
// reported and the remaining monitors still run.
func (d *Dispatcher) runMonitors(ctx context.Context, c *command.Context) {
	if d.deps.Lockdown.Locked() || c.Guild == nil {
		return
	}

	defer c.Release()

	for _, def := range d.registry.Monitors() {
		if err := d.runMonitor(ctx, def, c); err != nil {
			d.deps.Reporter.Report(ctx, constants.MonitorCrashedDetail,
				fmt.Errorf("monitor %s: %w", def.ID(), err))
		}
	}
}

func (d *Dispatcher) runMonitor(ctx context.Context, def *command.MonitorDefinition, c *command.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = report.Recovered(r)
		}
	}()

	monitor := def.New()

	ok, err := monitor.ShouldExecute(ctx, c)
	if err != nil || !ok {
		return err
	}

	return monitor.Execute(ctx, c)
}

// runCommand resolves and executes the command named by the message.
func (d *Dispatcher) runCommand(ctx context.Context, c *command.Context) {
	if d.deps.Lockdown.Locked() {
		if err := c.Reply(ctx, constants.LockdownNotice); err != nil {
			d.logger.Warn("Failed to send lockdown notice", zap.Error(err))
		}
		return
	}

	def, err := d.registry.Resolve(utils.ToID(c.Cmd))
	if err != nil {
		d.deps.Reporter.Report(ctx, constants.CommandCrashedDetail, err)
		return
	}
	if def == nil {
		return
	}

	defer c.Release()

	start := time.Now()
	err = d.execute(ctx, def, c)

	d.logger.Debug("Command handled",
		zap.String("command", def.ID()),
		zap.Uint64("userID", uint64(c.Author.ID)),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("failed", err != nil))

	if err == nil {
		return
	}

	d.deps.Reporter.Report(ctx, constants.CommandCrashedDetail, fmt.Errorf("command %s: %w", def.ID(), err))
	if err := c.Reply(ctx, constants.FailureNotice); err != nil {
		d.logger.Warn("Failed to send failure notice", zap.Error(err))
	}
}

func (d *Dispatcher) execute(ctx context.Context, def *command.Definition, c *command.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = report.Recovered(r)
		}
	}()

	return def.New().Execute(ctx, c)
}
