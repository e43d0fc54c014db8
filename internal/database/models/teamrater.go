package models

import (
	"context"
	"fmt"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// TeamRaterModel handles database operations for team raters.
type TeamRaterModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewTeamRater creates a new team rater model instance.
func NewTeamRater(db *bun.DB, logger *zap.Logger) *TeamRaterModel {
	return &TeamRaterModel{
		db:     db,
		logger: logger.Named("db_teamrater"),
	}
}

// IsRater checks whether the exact registration exists.
func (m *TeamRaterModel) IsRater(ctx context.Context, rater *types.TeamRater) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.TeamRater)(nil)).
			Where("user_id = ?", rater.UserID).
			Where("format = ?", rater.Format).
			Where("channel_id = ?", rater.ChannelID).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check team rater: %w", err)
		}
		return exists, nil
	})
}

// AddRater registers a team rater.
func (m *TeamRaterModel) AddRater(ctx context.Context, rater *types.TeamRater) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(rater).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add team rater: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Added team rater",
		zap.Uint64("userID", rater.UserID),
		zap.String("format", rater.Format),
		zap.Uint64("channelID", rater.ChannelID))

	return nil
}

// RemoveRater removes a team rater registration.
func (m *TeamRaterModel) RemoveRater(ctx context.Context, rater *types.TeamRater) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.TeamRater)(nil)).
			Where("user_id = ?", rater.UserID).
			Where("format = ?", rater.Format).
			Where("channel_id = ?", rater.ChannelID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove team rater: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Removed team rater",
		zap.Uint64("userID", rater.UserID),
		zap.String("format", rater.Format),
		zap.Uint64("channelID", rater.ChannelID))

	return nil
}

// ChannelHasRaters reports whether any rater is registered in a channel.
func (m *TeamRaterModel) ChannelHasRaters(ctx context.Context, channelID uint64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.TeamRater)(nil)).
			Where("channel_id = ?", channelID).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check channel raters: %w", err)
		}
		return exists, nil
	})
}

// RatersFor lists the users rating a format in a channel.
func (m *TeamRaterModel) RatersFor(ctx context.Context, format string, channelID uint64) ([]uint64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]uint64, error) {
		var ids []uint64
		err := m.db.NewSelect().
			Model((*types.TeamRater)(nil)).
			Column("user_id").
			Where("format = ?", format).
			Where("channel_id = ?", channelID).
			OrderExpr("user_id ASC").
			Scan(ctx, &ids)
		if err != nil {
			return nil, fmt.Errorf("failed to list team raters: %w", err)
		}
		return ids, nil
	})
}
