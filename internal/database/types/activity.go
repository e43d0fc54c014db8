package types

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// ErrUnknownGranularity is returned for a timeframe that is not day, week, month or alltime.
var ErrUnknownGranularity = errors.New("unknown granularity")

// Granularity is the timeframe activity statistics are grouped by.
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityAllTime Granularity = "alltime"
)

// ParseGranularity parses a user supplied timeframe, applying fallback when raw is empty.
func ParseGranularity(raw string, fallback Granularity) (Granularity, error) {
	if raw == "" {
		return fallback, nil
	}

	switch g := Granularity(raw); g {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityAllTime:
		return g, nil
	default:
		return "", ErrUnknownGranularity
	}
}

// UserLines counts the lines a user sent in a server on one day.
type UserLines struct {
	bun.BaseModel `bun:"table:lines,alias:l"`

	UserID   uint64    `bun:"user_id,pk"`
	ServerID uint64    `bun:"server_id,pk"`
	LogDate  time.Time `bun:"log_date,pk,type:date"`
	Lines    int       `bun:"lines,notnull"`
}

// ChannelLines counts the lines sent in a public channel on one day.
type ChannelLines struct {
	bun.BaseModel `bun:"table:channellines,alias:cl"`

	ChannelID uint64    `bun:"channel_id,pk"`
	LogDate   time.Time `bun:"log_date,pk,type:date"`
	Lines     int       `bun:"lines,notnull"`
}

// LineTotal is one leaderboard row.
type LineTotal struct {
	Name          string `bun:"name"`
	Discriminator string `bun:"discriminator"`
	Lines         int64  `bun:"total"`
}

// LineBucket is the line total for one period of a linecount.
// Period is the first day of the bucket as YYYY-MM-DD and empty for all time.
type LineBucket struct {
	Period string `bun:"period"`
	Lines  int64  `bun:"total"`
}
