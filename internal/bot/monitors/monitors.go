// Package monitors holds the passive handlers run on every non-command guild message.
package monitors

import (
	"github.com/robalyx/warden/internal/bot/core/registry"
)

// Options configures the monitors.
type Options struct {
	// Cooldown gates team rating pings per channel and format.
	Cooldown Cooldown
	// RetentionDays is how long line counts are kept.
	RetentionDays int
}

// Register adds every monitor to the registry in evaluation order.
func Register(b *registry.Builder, opts Options) {
	b.Monitor(
		activityDefinition(opts.RetentionDays),
		teamRatingDefinition(opts.Cooldown),
	)
}
