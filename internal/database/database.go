package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/warden/internal/database/migrations"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunjson"
	"github.com/uptrace/bun/extra/bunotel"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// sonicProvider is a JSON provider that uses Sonic for encoding and decoding.
type sonicProvider struct{}

func (sonicProvider) Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func (sonicProvider) Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

func (sonicProvider) NewEncoder(w io.Writer) bunjson.Encoder {
	return sonic.ConfigDefault.NewEncoder(w)
}

func (sonicProvider) NewDecoder(r io.Reader) bunjson.Decoder {
	return sonic.ConfigDefault.NewDecoder(r)
}

// Client defines the methods that a database client must implement.
type Client interface {
	Store
	// Model returns the repository containing all model operations.
	Model() *Repository
	// Service returns the service containing all transactional operations.
	Service() *Service
	// Close gracefully shuts down the database connection.
	Close() error
	// DB returns the underlying bun.DB instance.
	DB() *bun.DB
}

// clientImpl represents the concrete implementation of the database client.
type clientImpl struct {
	db      *bun.DB
	logger  *zap.Logger
	repo    *Repository
	service *Service
	gateway *gateway
}

// Open creates the bun database for the given settings without touching the network.
func Open(cfg *config.PostgreSQL, logger *zap.Logger) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.DBName),
		pgdriver.WithInsecure(true),
		pgdriver.WithApplicationName("warden"),
	))

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Minute)
	sqldb.SetConnMaxIdleTime(time.Duration(cfg.MaxIdleTime) * time.Minute)

	bunjson.SetProvider(sonicProvider{})

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(NewHook(logger))
	db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(cfg.DBName)))

	return db
}

// NewConnection establishes a new database connection and returns a Client instance.
func NewConnection(
	ctx context.Context, cfg *config.PostgreSQL, logger *zap.Logger, autoMigrate bool,
) (Client, error) {
	db := Open(cfg, logger)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if autoMigrate {
		group, err := Migrate(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}

		if !group.IsZero() {
			logger.Info("Automatically ran migrations", zap.String("group", group.String()))
		}
	}

	client := &clientImpl{
		db:      db,
		logger:  logger,
		repo:    NewRepository(db, logger),
		service: NewService(db, logger),
		gateway: newGateway(db, logger),
	}

	logger.Info("Database connection established")

	return client, nil
}

// NewMigrator creates a migrator for the registered schema migrations.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, migrations.Migrations)
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := NewMigrator(db)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return group, nil
}

// Close gracefully shuts down the database connection.
func (c *clientImpl) Close() error {
	if err := c.gateway.Destroy(); err != nil {
		c.logger.Error("Failed to close database connection", zap.Error(err))
		return err
	}

	c.logger.Info("Database connection closed")

	return nil
}

// Model returns the repository containing all model operations.
func (c *clientImpl) Model() *Repository {
	return c.repo
}

// Service returns the service containing all transactional operations.
func (c *clientImpl) Service() *Service {
	return c.service
}

// DB returns the underlying bun.DB instance.
func (c *clientImpl) DB() *bun.DB {
	return c.db
}

func (c *clientImpl) Servers() ServerStore       { return c.repo.Server() }
func (c *clientImpl) Channels() ChannelStore     { return c.repo.Channel() }
func (c *clientImpl) Users() UserStore           { return c.repo.User() }
func (c *clientImpl) Members() MemberStore       { return c.repo.Member() }
func (c *clientImpl) Activity() ActivityStore    { return c.repo.Activity() }
func (c *clientImpl) TeamRaters() TeamRaterStore { return c.repo.TeamRater() }
func (c *clientImpl) Sticky() StickyStore        { return c.service.Sticky() }
func (c *clientImpl) Gateway() Gateway           { return c.gateway }
