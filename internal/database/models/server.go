package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ServerModel handles database operations for servers.
type ServerModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewServer creates a new server model instance.
func NewServer(db *bun.DB, logger *zap.Logger) *ServerModel {
	return &ServerModel{
		db:     db,
		logger: logger.Named("db_server"),
	}
}

// ServerExists checks whether a server row is stored.
func (m *ServerModel) ServerExists(ctx context.Context, serverID uint64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.Server)(nil)).
			Where("server_id = ?", serverID).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check server existence: %w", err)
		}
		return exists, nil
	})
}

// CreateServer inserts a server row unless it already exists.
func (m *ServerModel) CreateServer(ctx context.Context, server *types.Server) error {
	if server.Sticky == nil {
		server.Sticky = []uint64{}
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(server).
			On("CONFLICT (server_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert server: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Stored server",
		zap.Uint64("serverID", server.ServerID),
		zap.String("name", server.ServerName))

	return nil
}

// GetServer retrieves a server row. The boolean is false when no row exists.
func (m *ServerModel) GetServer(ctx context.Context, serverID uint64) (*types.Server, bool, error) {
	var server types.Server

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		return m.db.NewSelect().
			Model(&server).
			Where("server_id = ?", serverID).
			Scan(ctx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get server: %w", err)
	}

	return &server, true, nil
}

// SetLogChannel points moderation logs for a server at channelID, or disables them when nil.
func (m *ServerModel) SetLogChannel(ctx context.Context, serverID uint64, channelID *uint64) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Server)(nil)).
			Set("log_channel = ?", channelID).
			Where("server_id = ?", serverID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update log channel: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Updated log channel",
		zap.Uint64("serverID", serverID),
		zap.Bool("enabled", channelID != nil))

	return nil
}
