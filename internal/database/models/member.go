package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"
)

// MemberModel handles database operations for the userlist table.
type MemberModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewMember creates a new member model instance.
func NewMember(db *bun.DB, logger *zap.Logger) *MemberModel {
	return &MemberModel{
		db:     db,
		logger: logger.Named("db_member"),
	}
}

// MemberExists checks whether a userlist row is stored for the pair.
func (m *MemberModel) MemberExists(ctx context.Context, serverID, userID uint64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.Member)(nil)).
			Where("server_id = ?", serverID).
			Where("user_id = ?", userID).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check member existence: %w", err)
		}
		return exists, nil
	})
}

// CreateMember inserts a userlist row unless it already exists.
// The server and user rows must already be stored.
func (m *MemberModel) CreateMember(ctx context.Context, member *types.Member) error {
	if member.Sticky == nil {
		member.Sticky = []uint64{}
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(member).
			On("CONFLICT (server_id, user_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Stored member",
		zap.Uint64("serverID", member.ServerID),
		zap.Uint64("userID", member.UserID))

	return nil
}

// GetMember retrieves a userlist row. The boolean is false when no row exists.
func (m *MemberModel) GetMember(ctx context.Context, serverID, userID uint64) (*types.Member, bool, error) {
	var member types.Member

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		return m.db.NewSelect().
			Model(&member).
			Where("server_id = ?", serverID).
			Where("user_id = ?", userID).
			Scan(ctx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get member: %w", err)
	}

	return &member, true, nil
}

// ListMembers retrieves every stored userlist row of a server.
func (m *MemberModel) ListMembers(ctx context.Context, serverID uint64) ([]*types.Member, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Member, error) {
		var members []*types.Member
		err := m.db.NewSelect().
			Model(&members).
			Where("server_id = ?", serverID).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list members: %w", err)
		}
		return members, nil
	})
}

// ApplyStickyDrift removes and appends sticky role ids of a member in a single statement,
// so concurrent marks and drift updates never overwrite each other. Added ids are only
// appended while the server still lists them as sticky.
func (m *MemberModel) ApplyStickyDrift(ctx context.Context, serverID, userID uint64, added, removed []uint64) error {
	if added == nil {
		added = []uint64{}
	}
	if removed == nil {
		removed = []uint64{}
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Member)(nil)).
			Set(`sticky = ARRAY(
				SELECT r FROM unnest(ul.sticky) WITH ORDINALITY AS kept(r, n)
				WHERE NOT (r = ANY(?::bigint[]))
				ORDER BY n
			) || ARRAY(
				SELECT a FROM unnest(?::bigint[]) WITH ORDINALITY AS gained(a, n)
				WHERE NOT (a = ANY(ul.sticky))
				AND a = ANY((SELECT s.sticky FROM servers AS s WHERE s.server_id = ?))
				ORDER BY n
			)`, pgdialect.Array(removed), pgdialect.Array(added), serverID).
			Where("server_id = ?", serverID).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update sticky snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Updated sticky snapshot",
		zap.Uint64("serverID", serverID),
		zap.Uint64("userID", userID),
		zap.Int("added", len(added)),
		zap.Int("removed", len(removed)))

	return nil
}

// ListBoostingIDs returns the users of a server currently recorded as boosting.
func (m *MemberModel) ListBoostingIDs(ctx context.Context, serverID uint64) ([]uint64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]uint64, error) {
		var ids []uint64
		err := m.db.NewSelect().
			Model((*types.Member)(nil)).
			Column("user_id").
			Where("server_id = ?", serverID).
			Where("boosting IS NOT NULL").
			Scan(ctx, &ids)
		if err != nil {
			return nil, fmt.Errorf("failed to list boosting members: %w", err)
		}
		return ids, nil
	})
}

// SetBoosting records when a member started boosting, or clears it when since is nil.
func (m *MemberModel) SetBoosting(ctx context.Context, serverID, userID uint64, since *time.Time) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Member)(nil)).
			Set("boosting = ?", since).
			Where("server_id = ?", serverID).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update boosting status: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Updated boosting status",
		zap.Uint64("serverID", serverID),
		zap.Uint64("userID", userID),
		zap.Bool("boosting", since != nil))

	return nil
}

// ListBoosters lists the boosters of a server with their stored names.
func (m *MemberModel) ListBoosters(ctx context.Context, serverID uint64) ([]types.Booster, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.Booster, error) {
		var boosters []types.Booster
		err := m.db.NewSelect().
			ColumnExpr("u.name, u.discriminator, ul.boosting").
			TableExpr("users AS u").
			Join("INNER JOIN userlist AS ul ON ul.user_id = u.user_id").
			Where("ul.server_id = ?", serverID).
			Where("ul.boosting IS NOT NULL").
			OrderExpr("ul.boosting ASC").
			Scan(ctx, &boosters)
		if err != nil {
			return nil, fmt.Errorf("failed to list boosters: %w", err)
		}
		return boosters, nil
	})
}
