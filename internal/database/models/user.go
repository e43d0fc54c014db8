package models

import (
	"context"
	"fmt"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// UserModel handles database operations for users.
type UserModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewUser creates a new user model instance.
func NewUser(db *bun.DB, logger *zap.Logger) *UserModel {
	return &UserModel{
		db:     db,
		logger: logger.Named("db_user"),
	}
}

// UserExists checks whether a user row is stored.
func (m *UserModel) UserExists(ctx context.Context, userID uint64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.User)(nil)).
			Where("user_id = ?", userID).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check user existence: %w", err)
		}
		return exists, nil
	})
}

// CreateUser inserts a user row unless it already exists. Existing names are left untouched.
func (m *UserModel) CreateUser(ctx context.Context, user *types.User) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(user).
			On("CONFLICT (user_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Stored user", zap.Uint64("userID", user.UserID))

	return nil
}
