package models

import (
	"context"
	"fmt"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ChannelModel handles database operations for channels.
type ChannelModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewChannel creates a new channel model instance.
func NewChannel(db *bun.DB, logger *zap.Logger) *ChannelModel {
	return &ChannelModel{
		db:     db,
		logger: logger.Named("db_channel"),
	}
}

// ChannelExists checks whether a channel row is stored.
func (m *ChannelModel) ChannelExists(ctx context.Context, channelID uint64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.Channel)(nil)).
			Where("channel_id = ?", channelID).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check channel existence: %w", err)
		}
		return exists, nil
	})
}

// CreateChannel inserts a channel row unless it already exists.
// The parent server row must already be stored.
func (m *ChannelModel) CreateChannel(ctx context.Context, channel *types.Channel) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(channel).
			On("CONFLICT (channel_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert channel: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Stored channel",
		zap.Uint64("channelID", channel.ChannelID),
		zap.Uint64("serverID", channel.ServerID))

	return nil
}
