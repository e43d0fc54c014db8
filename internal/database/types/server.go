package types

import "github.com/uptrace/bun"

// Server is a guild the bot has observed.
type Server struct {
	bun.BaseModel `bun:"table:servers,alias:s"`

	ServerID   uint64   `bun:"server_id,pk"`
	ServerName string   `bun:"server_name,notnull"`
	LogChannel *uint64  `bun:"log_channel"`
	Sticky     []uint64 `bun:"sticky,array,notnull,default:'{}'"`
}

// HasSticky reports whether roleID is in the server's sticky list.
func (s *Server) HasSticky(roleID uint64) bool {
	for _, id := range s.Sticky {
		if id == roleID {
			return true
		}
	}
	return false
}

// Channel is a text or news channel inside a server.
type Channel struct {
	bun.BaseModel `bun:"table:channels,alias:ch"`

	ChannelID   uint64 `bun:"channel_id,pk"`
	ChannelName string `bun:"channel_name,notnull"`
	ServerID    uint64 `bun:"server_id,notnull"`
}
