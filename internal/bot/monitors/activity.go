package monitors

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/pkg/utils"
	"go.uber.org/zap"
)

// pruneDelay is the wait before the first prune after startup.
const pruneDelay = 5 * time.Second

// activityMonitor counts lines per user and per public channel.
type activityMonitor struct{}

// ShouldExecute always counts the message.
func (activityMonitor) ShouldExecute(context.Context, *command.Context) (bool, error) {
	return true, nil
}

// Execute increments today's line counts.
func (activityMonitor) Execute(ctx context.Context, c *command.Context) error {
	if c.Guild == nil {
		return nil
	}

	day := c.Clock().UTC()
	activity := c.Store.Activity()

	if err := activity.IncrementUserLines(ctx, uint64(c.Author.ID), uint64(c.Guild.ID), day); err != nil {
		return err
	}

	// Channels hidden from @everyone are not ranked
	if !c.Platform.ChannelPublic(c.Channel.ID) {
		return nil
	}

	return activity.IncrementChannelLines(ctx, uint64(c.Channel.ID), day)
}

// PruneLines deletes line counts older than retentionDays days before now.
func PruneLines(ctx context.Context, store database.Store, now time.Time, retentionDays int) (int64, error) {
	cutoff := utils.StartOfDay(now.UTC()).AddDate(0, 0, -retentionDays)

	removed, err := store.Activity().PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune line counts: %w", err)
	}
	return removed, nil
}

// activityDefinition builds the activity monitor and its daily prune.
func activityDefinition(retentionDays int) *command.MonitorDefinition {
	return &command.MonitorDefinition{
		Name: "activity",
		New:  func() command.Monitor { return activityMonitor{} },
		Init: func(ctx context.Context, deps *command.Deps) error {
			logger := deps.Logger.Named("activity")

			go utils.RunDaily(ctx, logger, constants.ActivityPruneJob, pruneDelay, func(ctx context.Context) error {
				removed, err := PruneLines(ctx, deps.Store, deps.Clock(), retentionDays)
				if err != nil {
					return err
				}

				logger.Debug("Pruned old line counts",
					zap.Int("retentionDays", retentionDays),
					zap.Int64("rows", removed))
				return nil
			})

			return nil
		},
	}
}
