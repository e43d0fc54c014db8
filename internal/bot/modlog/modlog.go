// Package modlog posts to the log channel a server configured with enablelogs.
package modlog

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/discord/platform"
)

// Channel returns the log channel of a guild. The boolean is false when logging is disabled.
func Channel(ctx context.Context, store database.Store, guildID snowflake.ID) (snowflake.ID, bool, error) {
	server, ok, err := store.Servers().GetServer(ctx, uint64(guildID))
	if err != nil {
		return 0, false, fmt.Errorf("failed to get log channel: %w", err)
	}
	if !ok || server.LogChannel == nil || *server.LogChannel == 0 {
		return 0, false, nil
	}
	return snowflake.ID(*server.LogChannel), true, nil
}

// Post sends message to the guild's log channel, reporting false when there is none.
func Post(
	ctx context.Context, store database.Store, client platform.Client, guildID snowflake.ID, message discord.MessageCreate,
) (bool, error) {
	channelID, ok, err := Channel(ctx, store, guildID)
	if err != nil || !ok {
		return false, err
	}

	if err := client.Send(ctx, channelID, message); err != nil {
		return false, fmt.Errorf("failed to post to log channel: %w", err)
	}
	return true, nil
}

// Text sends plain text to the guild's log channel.
func Text(ctx context.Context, store database.Store, client platform.Client, guildID snowflake.ID, text string) (bool, error) {
	return Post(ctx, store, client, guildID, discord.MessageCreate{Content: text})
}
