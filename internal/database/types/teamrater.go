package types

import "github.com/uptrace/bun"

// TeamRater registers a user to be pinged for teams of a format posted in a channel.
type TeamRater struct {
	bun.BaseModel `bun:"table:teamraters,alias:tr"`

	UserID    uint64 `bun:"user_id,pk"`
	Format    string `bun:"format,pk"`
	ChannelID uint64 `bun:"channel_id,pk"`
}
