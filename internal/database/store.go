package database

import (
	"context"
	"time"

	"github.com/robalyx/warden/internal/database/types"
)

// ServerStore persists servers.
type ServerStore interface {
	ServerExists(ctx context.Context, serverID uint64) (bool, error)
	CreateServer(ctx context.Context, server *types.Server) error
	GetServer(ctx context.Context, serverID uint64) (*types.Server, bool, error)
	SetLogChannel(ctx context.Context, serverID uint64, channelID *uint64) error
}

// ChannelStore persists channels.
type ChannelStore interface {
	ChannelExists(ctx context.Context, channelID uint64) (bool, error)
	CreateChannel(ctx context.Context, channel *types.Channel) error
}

// UserStore persists users.
type UserStore interface {
	UserExists(ctx context.Context, userID uint64) (bool, error)
	CreateUser(ctx context.Context, user *types.User) error
}

// MemberStore persists server memberships, their sticky snapshots and boost state.
type MemberStore interface {
	MemberExists(ctx context.Context, serverID, userID uint64) (bool, error)
	CreateMember(ctx context.Context, member *types.Member) error
	GetMember(ctx context.Context, serverID, userID uint64) (*types.Member, bool, error)
	ListMembers(ctx context.Context, serverID uint64) ([]*types.Member, error)
	ApplyStickyDrift(ctx context.Context, serverID, userID uint64, added, removed []uint64) error
	ListBoostingIDs(ctx context.Context, serverID uint64) ([]uint64, error)
	SetBoosting(ctx context.Context, serverID, userID uint64, since *time.Time) error
	ListBoosters(ctx context.Context, serverID uint64) ([]types.Booster, error)
}

// ActivityStore persists line counts.
type ActivityStore interface {
	IncrementUserLines(ctx context.Context, userID, serverID uint64, day time.Time) error
	IncrementChannelLines(ctx context.Context, channelID uint64, day time.Time) error
	Leaderboard(
		ctx context.Context, serverID uint64, granularity types.Granularity, now time.Time, limit int,
	) ([]types.LineTotal, error)
	ChannelLeaderboard(
		ctx context.Context, serverID uint64, granularity types.Granularity, now time.Time, limit int,
	) ([]types.LineTotal, error)
	UserLineCounts(
		ctx context.Context, serverID, userID uint64, granularity types.Granularity, limit int,
	) ([]types.LineBucket, error)
	ChannelLineCounts(
		ctx context.Context, serverID, channelID uint64, granularity types.Granularity, limit int,
	) ([]types.LineBucket, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TeamRaterStore persists team rater registrations.
type TeamRaterStore interface {
	IsRater(ctx context.Context, rater *types.TeamRater) (bool, error)
	AddRater(ctx context.Context, rater *types.TeamRater) error
	RemoveRater(ctx context.Context, rater *types.TeamRater) error
	ChannelHasRaters(ctx context.Context, channelID uint64) (bool, error)
	RatersFor(ctx context.Context, format string, channelID uint64) ([]uint64, error)
}

// StickyStore applies sticky role changes transactionally.
type StickyStore interface {
	MarkSticky(ctx context.Context, serverID, roleID uint64, holders []*types.User) error
	UnmarkSticky(ctx context.Context, serverID, roleID uint64) error
}

// Store is the view of the database the bot depends on.
type Store interface {
	Servers() ServerStore
	Channels() ChannelStore
	Users() UserStore
	Members() MemberStore
	Activity() ActivityStore
	TeamRaters() TeamRaterStore
	Sticky() StickyStore
	Gateway() Gateway
}
