package types

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a platform account the bot has observed.
// Name and discriminator are captured on first sight and never refreshed.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	UserID        uint64 `bun:"user_id,pk"`
	Name          string `bun:"name,notnull"`
	Discriminator string `bun:"discriminator,notnull"`
}

// Member is the userlist row linking a user to a server.
type Member struct {
	bun.BaseModel `bun:"table:userlist,alias:ul"`

	ServerID uint64     `bun:"server_id,pk"`
	UserID   uint64     `bun:"user_id,pk"`
	Boosting *time.Time `bun:"boosting"`
	Sticky   []uint64   `bun:"sticky,array,notnull,default:'{}'"`
}

// Booster is a member currently boosting a server.
type Booster struct {
	Name          string    `bun:"name"`
	Discriminator string    `bun:"discriminator"`
	Boosting      time.Time `bun:"boosting"`
}
