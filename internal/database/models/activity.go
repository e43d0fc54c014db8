package models

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ActivityModel handles database operations for user and channel line counts.
type ActivityModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewActivity creates a new activity model instance.
func NewActivity(db *bun.DB, logger *zap.Logger) *ActivityModel {
	return &ActivityModel{
		db:     db,
		logger: logger.Named("db_activity"),
	}
}

// IncrementUserLines adds one line to a user's count for the given day.
func (m *ActivityModel) IncrementUserLines(ctx context.Context, userID, serverID uint64, day time.Time) error {
	row := &types.UserLines{
		UserID:   userID,
		ServerID: serverID,
		LogDate:  day,
		Lines:    1,
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(row).
			On("CONFLICT (user_id, server_id, log_date) DO UPDATE").
			Set("lines = l.lines + 1").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to increment user lines: %w", err)
		}
		return nil
	})
}

// IncrementChannelLines adds one line to a channel's count for the given day.
func (m *ActivityModel) IncrementChannelLines(ctx context.Context, channelID uint64, day time.Time) error {
	row := &types.ChannelLines{
		ChannelID: channelID,
		LogDate:   day,
		Lines:     1,
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(row).
			On("CONFLICT (channel_id, log_date) DO UPDATE").
			Set("lines = cl.lines + 1").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to increment channel lines: %w", err)
		}
		return nil
	})
}

// Leaderboard ranks the users of a server by lines sent in the period containing now.
func (m *ActivityModel) Leaderboard(
	ctx context.Context, serverID uint64, granularity types.Granularity, now time.Time, limit int,
) ([]types.LineTotal, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.LineTotal, error) {
		var totals []types.LineTotal

		query := m.db.NewSelect().
			ColumnExpr("u.name, u.discriminator, SUM(l.lines) AS total").
			TableExpr("lines AS l").
			Join("INNER JOIN users AS u ON u.user_id = l.user_id").
			Where("l.server_id = ?", serverID)
		query = withinPeriod(query, "l.log_date", granularity, now)

		err := query.
			GroupExpr("u.name, u.discriminator").
			OrderExpr("total DESC").
			Limit(limit).
			Scan(ctx, &totals)
		if err != nil {
			return nil, fmt.Errorf("failed to get leaderboard: %w", err)
		}
		return totals, nil
	})
}

// ChannelLeaderboard ranks the public channels of a server by lines sent in the period containing now.
func (m *ActivityModel) ChannelLeaderboard(
	ctx context.Context, serverID uint64, granularity types.Granularity, now time.Time, limit int,
) ([]types.LineTotal, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.LineTotal, error) {
		var totals []types.LineTotal

		query := m.db.NewSelect().
			ColumnExpr("ch.channel_name AS name, SUM(cl.lines) AS total").
			TableExpr("channellines AS cl").
			Join("INNER JOIN channels AS ch ON ch.channel_id = cl.channel_id").
			Where("ch.server_id = ?", serverID)
		query = withinPeriod(query, "cl.log_date", granularity, now)

		err := query.
			GroupExpr("ch.channel_name").
			OrderExpr("total DESC").
			Limit(limit).
			Scan(ctx, &totals)
		if err != nil {
			return nil, fmt.Errorf("failed to get channel leaderboard: %w", err)
		}
		return totals, nil
	})
}

// UserLineCounts buckets a member's lines by granularity, newest bucket first.
func (m *ActivityModel) UserLineCounts(
	ctx context.Context, serverID, userID uint64, granularity types.Granularity, limit int,
) ([]types.LineBucket, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.LineBucket, error) {
		var buckets []types.LineBucket

		period := periodExpr("l.log_date", granularity)
		query := m.db.NewSelect().
			ColumnExpr(period+" AS period, COALESCE(SUM(l.lines), 0) AS total").
			TableExpr("lines AS l").
			Where("l.server_id = ?", serverID).
			Where("l.user_id = ?", userID)
		if granularity != types.GranularityAllTime {
			query = query.GroupExpr("period").OrderExpr("period DESC")
		}

		if err := query.Limit(limit).Scan(ctx, &buckets); err != nil {
			return nil, fmt.Errorf("failed to get user line counts: %w", err)
		}
		return buckets, nil
	})
}

// ChannelLineCounts buckets a channel's lines by granularity, newest bucket first.
func (m *ActivityModel) ChannelLineCounts(
	ctx context.Context, serverID, channelID uint64, granularity types.Granularity, limit int,
) ([]types.LineBucket, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.LineBucket, error) {
		var buckets []types.LineBucket

		period := periodExpr("cl.log_date", granularity)
		query := m.db.NewSelect().
			ColumnExpr(period+" AS period, COALESCE(SUM(cl.lines), 0) AS total").
			TableExpr("channellines AS cl").
			Join("INNER JOIN channels AS ch ON ch.channel_id = cl.channel_id").
			Where("ch.server_id = ?", serverID).
			Where("ch.channel_id = ?", channelID)
		if granularity != types.GranularityAllTime {
			query = query.GroupExpr("period").OrderExpr("period DESC")
		}

		if err := query.Limit(limit).Scan(ctx, &buckets); err != nil {
			return nil, fmt.Errorf("failed to get channel line counts: %w", err)
		}
		return buckets, nil
	})
}

// PruneBefore deletes user and channel line counts logged before cutoff in one transaction.
func (m *ActivityModel) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64

	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		removed = 0

		for _, model := range []any{(*types.UserLines)(nil), (*types.ChannelLines)(nil)} {
			result, err := tx.NewDelete().
				Model(model).
				Where("log_date < ?::date", cutoff.Format(time.DateOnly)).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to prune line counts: %w", err)
			}

			affected, _ := result.RowsAffected()
			removed += affected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	m.logger.Info("Pruned line counts",
		zap.Time("cutoff", cutoff),
		zap.Int64("rows", removed))

	return removed, nil
}

// withinPeriod restricts column to the day, week or month containing now.
func withinPeriod(query *bun.SelectQuery, column string, granularity types.Granularity, now time.Time) *bun.SelectQuery {
	day := now.Format(time.DateOnly)

	switch granularity {
	case types.GranularityDay:
		return query.Where(column+" = ?::date", day)
	case types.GranularityWeek:
		return query.Where("date_trunc('week', "+column+") = date_trunc('week', ?::date)", day)
	case types.GranularityMonth:
		return query.Where("date_trunc('month', "+column+") = date_trunc('month', ?::date)", day)
	case types.GranularityAllTime:
		return query
	}
	return query
}

// periodExpr renders the bucket label for column at granularity.
func periodExpr(column string, granularity types.Granularity) string {
	switch granularity {
	case types.GranularityDay:
		return "to_char(" + column + ", 'YYYY-MM-DD')"
	case types.GranularityWeek:
		return "to_char(date_trunc('week', " + column + "), 'YYYY-MM-DD')"
	case types.GranularityMonth:
		return "to_char(date_trunc('month', " + column + "), 'YYYY-MM-DD')"
	case types.GranularityAllTime:
		return "''"
	}
	return "''"
}
