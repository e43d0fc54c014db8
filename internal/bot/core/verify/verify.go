package verify

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/discord/platform"
	"go.uber.org/zap"
)

// Locker reports whether the process is shutting down.
type Locker interface {
	Locked() bool
}

// Record carries the entities observed with one event. Nil fields are skipped.
type Record struct {
	Author  *platform.User
	Guild   *platform.Guild
	Channel *platform.Channel
}

type memberKey struct {
	guildID snowflake.ID
	userID  snowflake.ID
}

// Cache makes sure every observed entity has a row, checking the database at most
// once per entity for the lifetime of the process.
type Cache struct {
	store    database.Store
	platform platform.Client
	lockdown Locker
	logger   *zap.Logger

	servers  *xsync.MapOf[snowflake.ID, struct{}]
	channels *xsync.MapOf[snowflake.ID, struct{}]
	users    *xsync.MapOf[snowflake.ID, struct{}]
	members  *xsync.MapOf[memberKey, struct{}]
}

// New creates an empty verification cache.
func New(store database.Store, client platform.Client, lockdown Locker, logger *zap.Logger) *Cache {
	return &Cache{
		store:    store,
		platform: client,
		lockdown: lockdown,
		logger:   logger.Named("verify"),
		servers:  xsync.NewMapOf[snowflake.ID, struct{}](),
		channels: xsync.NewMapOf[snowflake.ID, struct{}](),
		users:    xsync.NewMapOf[snowflake.ID, struct{}](),
		members:  xsync.NewMapOf[memberKey, struct{}](),
	}
}

// Verify inserts whichever of the record's server, channel, user and membership rows
// are missing. Servers go first since channels reference them.
func (c *Cache) Verify(ctx context.Context, record Record) error {
	if c.lockdown != nil && c.lockdown.Locked() {
		return nil
	}

	if record.Guild != nil {
		if err := c.verifyServer(ctx, record.Guild); err != nil {
			return err
		}

		if record.Channel != nil && record.Channel.Type.TextLike() {
			if err := c.verifyChannel(ctx, record.Guild, record.Channel); err != nil {
				return err
			}
		}
	}

	if record.Author != nil {
		if err := c.verifyUser(ctx, record.Author); err != nil {
			return err
		}

		if record.Guild != nil {
			if err := c.verifyMember(ctx, record.Guild, record.Author); err != nil {
				return err
			}
		}
	}

	return nil
}

// Reset forgets every known entity so the next Verify checks the database again.
func (c *Cache) Reset() {
	c.servers.Clear()
	c.channels.Clear()
	c.users.Clear()
	c.members.Clear()
}

func (c *Cache) verifyServer(ctx context.Context, guild *platform.Guild) error {
	if _, known := c.servers.Load(guild.ID); known {
		return nil
	}

	serverID := uint64(guild.ID)
	exists, err := c.store.Servers().ServerExists(ctx, serverID)
	if err != nil {
		return fmt.Errorf("failed to verify server: %w", err)
	}

	if !exists {
		err := c.store.Servers().CreateServer(ctx, &types.Server{
			ServerID:   serverID,
			ServerName: guild.Name,
			Sticky:     []uint64{},
		})
		if err != nil {
			return fmt.Errorf("failed to verify server: %w", err)
		}
		c.logger.Debug("Stored new server", zap.Uint64("serverID", serverID))
	}

	c.servers.Store(guild.ID, struct{}{})
	return nil
}

func (c *Cache) verifyChannel(ctx context.Context, guild *platform.Guild, channel *platform.Channel) error {
	if _, known := c.channels.Load(channel.ID); known {
		return nil
	}

	channelID := uint64(channel.ID)
	exists, err := c.store.Channels().ChannelExists(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to verify channel: %w", err)
	}

	if !exists {
		err := c.store.Channels().CreateChannel(ctx, &types.Channel{
			ChannelID:   channelID,
			ChannelName: channel.Name,
			ServerID:    uint64(guild.ID),
		})
		if err != nil {
			return fmt.Errorf("failed to verify channel: %w", err)
		}
		c.logger.Debug("Stored new channel", zap.Uint64("channelID", channelID))
	}

	c.channels.Store(channel.ID, struct{}{})
	return nil
}

func (c *Cache) verifyUser(ctx context.Context, author *platform.User) error {
	if _, known := c.users.Load(author.ID); known {
		return nil
	}

	userID := uint64(author.ID)
	exists, err := c.store.Users().UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to verify user: %w", err)
	}

	if !exists {
		err := c.store.Users().CreateUser(ctx, &types.User{
			UserID:        userID,
			Name:          author.Username,
			Discriminator: author.Discriminator,
		})
		if err != nil {
			return fmt.Errorf("failed to verify user: %w", err)
		}
		c.logger.Debug("Stored new user", zap.Uint64("userID", userID))
	}

	c.users.Store(author.ID, struct{}{})
	return nil
}

func (c *Cache) verifyMember(ctx context.Context, guild *platform.Guild, author *platform.User) error {
	key := memberKey{guildID: guild.ID, userID: author.ID}
	if _, known := c.members.Load(key); known {
		return nil
	}

	// Only confirmed members get a row
	_, present, err := c.platform.Member(ctx, guild.ID, author.ID)
	if err != nil {
		return fmt.Errorf("failed to confirm membership: %w", err)
	}
	if !present {
		return nil
	}

	serverID, userID := uint64(guild.ID), uint64(author.ID)
	exists, err := c.store.Members().MemberExists(ctx, serverID, userID)
	if err != nil {
		return fmt.Errorf("failed to verify membership: %w", err)
	}

	if !exists {
		err := c.store.Members().CreateMember(ctx, &types.Member{
			ServerID: serverID,
			UserID:   userID,
			Sticky:   []uint64{},
		})
		if err != nil {
			return fmt.Errorf("failed to verify membership: %w", err)
		}
		c.logger.Debug("Stored new membership",
			zap.Uint64("serverID", serverID),
			zap.Uint64("userID", userID))
	}

	c.members.Store(key, struct{}{})
	return nil
}
