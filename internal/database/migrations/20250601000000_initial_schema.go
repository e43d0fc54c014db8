package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			tables := []struct {
				model       any
				foreignKeys []string
			}{
				{model: (*types.Server)(nil)},
				{
					model: (*types.Channel)(nil),
					foreignKeys: []string{
						`("server_id") REFERENCES "servers" ("server_id") ON DELETE CASCADE`,
					},
				},
				{model: (*types.User)(nil)},
				{
					model: (*types.Member)(nil),
					foreignKeys: []string{
						`("server_id") REFERENCES "servers" ("server_id") ON DELETE CASCADE`,
						`("user_id") REFERENCES "users" ("user_id") ON DELETE CASCADE`,
					},
				},
				{model: (*types.UserLines)(nil)},
				{
					model: (*types.ChannelLines)(nil),
					foreignKeys: []string{
						`("channel_id") REFERENCES "channels" ("channel_id") ON DELETE CASCADE`,
					},
				},
				{model: (*types.TeamRater)(nil)},
			}

			for _, table := range tables {
				query := tx.NewCreateTable().
					Model(table.model).
					IfNotExists()
				for _, fk := range table.foreignKeys {
					query = query.ForeignKey(fk)
				}

				if _, err := query.Exec(ctx); err != nil {
					return fmt.Errorf("failed to create table %T: %w", table.model, err)
				}
			}

			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_lines_log_date ON lines (log_date)`,
				`CREATE INDEX IF NOT EXISTS idx_lines_server_date ON lines (server_id, log_date)`,
				`CREATE INDEX IF NOT EXISTS idx_channellines_log_date ON channellines (log_date)`,
				`CREATE INDEX IF NOT EXISTS idx_teamraters_channel_format ON teamraters (channel_id, format)`,
				`CREATE INDEX IF NOT EXISTS idx_userlist_boosting ON userlist (server_id) WHERE boosting IS NOT NULL`,
			}
			for _, stmt := range indexes {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to create index: %w", err)
				}
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.TeamRater)(nil),
			(*types.ChannelLines)(nil),
			(*types.UserLines)(nil),
			(*types.Member)(nil),
			(*types.User)(nil),
			(*types.Channel)(nil),
			(*types.Server)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Cascade().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table %T: %w", model, err)
			}
		}

		return nil
	})
}
