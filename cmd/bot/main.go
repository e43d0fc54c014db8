package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot"
	"github.com/robalyx/warden/internal/bot/monitors"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/discord/client"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/robalyx/warden/internal/redis"
	"github.com/robalyx/warden/internal/setup"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/robalyx/warden/internal/setup/telemetry"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"
	// MigrateLogDir specifies where migration log files are stored.
	MigrateLogDir = "logs/migrate_logs"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "warden",
		Usage: "Chat command and moderation bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Aliases: []string{"c"},
				Usage:   "Directory searched for bot.toml before the default paths",
			},
		},
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Connect to the gateway and handle events until stopped",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "auto-migrate",
						Usage: "Apply pending migrations before starting",
					},
				},
				Action: runBot,
			},
			{
				Name:   "migrate",
				Usage:  "Run pending migrations",
				Action: withMigrator(migrateUp),
			},
			{
				Name:   "rollback",
				Usage:  "Rollback the last migration group",
				Action: withMigrator(rollback),
			},
			{
				Name:   "status",
				Usage:  "Show migration status",
				Action: withMigrator(status),
			},
		},
	}

	return app.Run(ctx, os.Args)
}

// runBot starts the bot and blocks until it has shut down.
func runBot(ctx context.Context, c *cli.Command) error {
	app, err := setup.InitializeApp(ctx, setup.Options{
		ServiceType: telemetry.ServiceBot,
		LogDir:      BotLogDir,
		ConfigDir:   c.String("config-dir"),
		AutoMigrate: c.Bool("auto-migrate"),
	})
	if err != nil {
		return err
	}
	defer app.Cleanup()

	cfg := app.Config

	cooldown, err := newCooldown(app)
	if err != nil {
		return err
	}

	discordBot, err := bot.New(bot.Options{
		Prefix:        cfg.Discord.Prefix,
		Admins:        cfg.Discord.Admins,
		ErrorChannel:  snowflake.ID(cfg.Discord.ErrorChannel),
		ShutdownGrace: time.Duration(cfg.Discord.ShutdownGrace) * time.Second,
		Cooldown:      cooldown,
		RetentionDays: cfg.Activity.RetentionDays,
		DataDir:       cfg.Showdown.DataDir,
	}, app.DB, func(listener platform.Listener, onPanic client.PanicHandler) (bot.Gateway, error) {
		return client.New(cfg.Discord.Token, listener, onPanic, app.Logger)
	}, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	// Start the bot and wait for a stop signal or the shutdown command
	if err := discordBot.Run(ctx); err != nil {
		return fmt.Errorf("failed to run bot: %w", err)
	}

	app.Logger.Info("Bot stopped")
	return nil
}

// newCooldown shares team rating cooldowns through Redis when it is configured.
func newCooldown(app *setup.App) (monitors.Cooldown, error) {
	ttl := time.Duration(app.Config.RMT.CooldownMinutes) * time.Minute

	if !app.Config.Redis.Enabled() {
		app.Logger.Info("Redis is not configured, keeping cooldowns in memory")
		return monitors.NewMemoryCooldown(ttl), nil
	}

	rdb, err := app.RedisManager.GetClient(redis.CooldownDBIndex)
	if err != nil {
		return nil, err
	}
	return monitors.NewRedisCooldown(rdb, ttl), nil
}

type migratorAction func(ctx context.Context, migrator *migrate.Migrator, logger *zap.Logger) error

// withMigrator opens the database without the pending migration check and runs action.
func withMigrator(action migratorAction) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, _, err := config.LoadConfig(c.String("config-dir"))
		if err != nil {
			return err
		}

		logger, dbLogger, err := telemetry.NewManager(telemetry.ServiceMigrate, MigrateLogDir, &cfg.Debug).GetLoggers()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		db := database.Open(&cfg.PostgreSQL, dbLogger)
		defer db.Close()

		migrator := database.NewMigrator(db)
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize migrations: %w", err)
		}

		return action(ctx, migrator, logger)
	}
}

func migrateUp(ctx context.Context, migrator *migrate.Migrator, logger *zap.Logger) error {
	if err := migrator.Lock(ctx); err != nil {
		return err
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		logger.Info("No new migrations to run (database is up to date)")
		return nil
	}

	logger.Info("Successfully migrated", zap.String("group", group.String()))
	return nil
}

func rollback(ctx context.Context, migrator *migrate.Migrator, logger *zap.Logger) error {
	if err := migrator.Lock(ctx); err != nil {
		return err
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		logger.Info("No groups to roll back")
		return nil
	}

	logger.Info("Successfully rolled back", zap.String("group", group.String()))
	return nil
}

func status(ctx context.Context, migrator *migrate.Migrator, logger *zap.Logger) error {
	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return err
	}

	logger.Info("Migration status",
		zap.String("migrations", ms.String()),
		zap.String("unapplied", ms.Unapplied().String()),
		zap.String("last_group", ms.LastGroup().String()),
	)
	return nil
}
