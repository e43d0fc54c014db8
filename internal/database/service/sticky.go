package service

import (
	"context"
	"fmt"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// StickyService applies sticky role changes to a server and its member snapshots atomically.
type StickyService struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSticky creates a new sticky service.
func NewSticky(db *bun.DB, logger *zap.Logger) *StickyService {
	return &StickyService{
		db:     db,
		logger: logger.Named("sticky_service"),
	}
}

// MarkSticky adds roleID to the server's sticky list and to the snapshot of every holder.
// Holder user and userlist rows are created when missing.
func (s *StickyService) MarkSticky(ctx context.Context, serverID, roleID uint64, holders []*types.User) error {
	err := dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		// Append the role to the server list
		_, err := tx.NewUpdate().
			Model((*types.Server)(nil)).
			Set("sticky = array_append(sticky, ?::bigint)", roleID).
			Where("server_id = ?", serverID).
			Where("NOT (?::bigint = ANY(sticky))", roleID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark role sticky: %w", err)
		}

		if len(holders) == 0 {
			return nil
		}

		// Ensure every holder has user and membership rows
		_, err = tx.NewInsert().
			Model(&holders).
			On("CONFLICT (user_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert holder users: %w", err)
		}

		members := make([]*types.Member, 0, len(holders))
		userIDs := make([]uint64, 0, len(holders))
		for _, holder := range holders {
			members = append(members, &types.Member{
				ServerID: serverID,
				UserID:   holder.UserID,
				Sticky:   []uint64{},
			})
			userIDs = append(userIDs, holder.UserID)
		}

		_, err = tx.NewInsert().
			Model(&members).
			On("CONFLICT (server_id, user_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert holder memberships: %w", err)
		}

		// Append the role to each holder snapshot
		_, err = tx.NewUpdate().
			Model((*types.Member)(nil)).
			Set("sticky = array_append(sticky, ?::bigint)", roleID).
			Where("server_id = ?", serverID).
			Where("user_id IN (?)", bun.In(userIDs)).
			Where("NOT (?::bigint = ANY(sticky))", roleID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update holder snapshots: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Marked role sticky",
		zap.Uint64("serverID", serverID),
		zap.Uint64("roleID", roleID),
		zap.Int("holders", len(holders)))

	return nil
}

// UnmarkSticky removes roleID from the server's sticky list and from every stored snapshot.
func (s *StickyService) UnmarkSticky(ctx context.Context, serverID, roleID uint64) error {
	err := dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*types.Server)(nil)).
			Set("sticky = array_remove(sticky, ?::bigint)", roleID).
			Where("server_id = ?", serverID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to unmark sticky role: %w", err)
		}

		_, err = tx.NewUpdate().
			Model((*types.Member)(nil)).
			Set("sticky = array_remove(sticky, ?::bigint)", roleID).
			Where("server_id = ?", serverID).
			Where("?::bigint = ANY(sticky)", roleID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to strip sticky role from snapshots: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Removed sticky role",
		zap.Uint64("serverID", serverID),
		zap.Uint64("roleID", roleID))

	return nil
}
