package monitors

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/internal/bot/formats"
)

// teamRatingMonitor pings the raters of a format when a team is posted in their channel.
type teamRatingMonitor struct {
	cooldown Cooldown
	format   string
	raters   []string
}

// ShouldExecute checks the channel, the post and the raters, then claims the
// cooldown of the channel and format.
func (m *teamRatingMonitor) ShouldExecute(ctx context.Context, c *command.Context) (bool, error) {
	if c.Guild == nil {
		return false, nil
	}

	raters := c.Store.TeamRaters()
	channelID := uint64(c.Channel.ID)

	ok, err := raters.ChannelHasRaters(ctx, channelID)
	if err != nil || !ok {
		return false, err
	}

	if !formats.HasTeam(c.Message.Content) {
		return false, nil
	}

	format, ok := formats.Detect(c.Message.Content)
	if !ok {
		return false, nil
	}

	userIDs, err := raters.RatersFor(ctx, format, channelID)
	if err != nil {
		return false, err
	}

	// Offline raters are not pinged
	mentions := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		if c.Platform.Online(c.Guild.ID, snowflake.ID(userID)) {
			mentions = append(mentions, fmt.Sprintf("<@%d>", userID))
		}
	}
	if len(mentions) == 0 {
		return false, nil
	}

	claimed, err := m.cooldown.Claim(ctx, fmt.Sprintf("%d:%s", channelID, format))
	if err != nil || !claimed {
		return false, err
	}

	m.format = format
	m.raters = mentions
	return true, nil
}

// Execute pings the online raters.
func (m *teamRatingMonitor) Execute(ctx context.Context, c *command.Context) error {
	return c.Reply(ctx, fmt.Sprintf("Tagging %s team raters: %s", m.format, strings.Join(m.raters, ", ")))
}

// teamRatingDefinition builds the team rating monitor sharing one cooldown store.
func teamRatingDefinition(cooldown Cooldown) *command.MonitorDefinition {
	return &command.MonitorDefinition{
		Name: "rmt",
		New:  func() command.Monitor { return &teamRatingMonitor{cooldown: cooldown} },
	}
}
