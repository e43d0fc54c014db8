package commands

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/pkg/utils"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"
)

// maxCodeLength leaves room for the code fence within the message limit.
const maxCodeLength = 1980

// pingCommand checks that the bot is responsive.
type pingCommand struct{}

func pingDefinition() *command.Definition {
	return &command.Definition{
		Name: "ping",
		New:  func() command.Command { return pingCommand{} },
	}
}

func (pingCommand) Execute(ctx context.Context, c *command.Context) error {
	return c.Reply(ctx, "Pong!")
}

// evalCommand runs Go source in an interpreter for bot administrators.
type evalCommand struct {
	timeout time.Duration
}

func evalDefinition(timeout time.Duration) *command.Definition {
	return &command.Definition{
		Name: "eval",
		New:  func() command.Command { return evalCommand{timeout: timeout} },
	}
}

func (e evalCommand) Execute(ctx context.Context, c *command.Context) error {
	allowed, err := c.Can(ctx, "EVAL")
	if err != nil {
		return err
	}
	if !allowed {
		return c.Reply(ctx, constants.PermissionDenied)
	}

	result, err := evaluate(ctx, c.Target, e.timeout)
	if err != nil {
		result = "An error occured: " + err.Error()
	}

	c.Logger.Info("Evaluated source",
		zap.Uint64("userID", uint64(c.Author.ID)),
		zap.Bool("failed", err != nil))

	return c.SendCode(ctx, "", utils.Truncate(result, maxCodeLength))
}

// evaluate interprets src with the standard library available and formats the result.
func evaluate(ctx context.Context, src string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return "", fmt.Errorf("failed to load stdlib: %w", err)
	}

	value, err := i.EvalWithContext(ctx, src)
	if err != nil {
		return "", err
	}

	if !value.IsValid() || !value.CanInterface() {
		return "undefined", nil
	}
	if value.Kind() == reflect.Func {
		return value.Type().String(), nil
	}
	return fmt.Sprint(value.Interface()), nil
}

// queryCommand runs raw SQL for bot administrators.
type queryCommand struct{}

func queryDefinition() *command.Definition {
	return &command.Definition{
		Name: "query",
		New:  func() command.Command { return queryCommand{} },
	}
}

func (queryCommand) Execute(ctx context.Context, c *command.Context) error {
	if !c.Perms.IsAdmin(c.Author.ID) {
		return c.Reply(ctx, constants.PermissionDenied)
	}

	stmt := strings.TrimSpace(c.Target)
	if stmt == "" {
		return c.ErrorReply(ctx, "Command usage: "+c.Prefix+"query SQL")
	}

	conn, err := c.Acquire(ctx)
	if err != nil {
		return err
	}

	rows, err := conn.QueryWithResults(ctx, stmt)
	if err != nil {
		return c.SendCode(ctx, "", utils.Truncate("An error occured: "+err.Error(), maxCodeLength))
	}
	if len(rows) == 0 {
		return c.Reply(ctx, "Query returned no rows.")
	}

	out, err := sonic.ConfigStd.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}

	return c.SendCode(ctx, "json", utils.Truncate(string(out), maxCodeLength))
}

// shutdownCommand starts a graceful shutdown.
type shutdownCommand struct{}

func shutdownDefinition() *command.Definition {
	return &command.Definition{
		Name: "shutdown",
		New:  func() command.Command { return shutdownCommand{} },
	}
}

func (shutdownCommand) Execute(ctx context.Context, c *command.Context) error {
	if !c.Perms.IsAdmin(c.Author.ID) {
		return c.Reply(ctx, constants.PermissionDenied)
	}

	c.Logger.Warn("Shutdown requested", zap.Uint64("userID", uint64(c.Author.ID)))

	if err := c.Reply(ctx, "Shutting down..."); err != nil {
		return err
	}

	c.Shutdown()
	return nil
}
