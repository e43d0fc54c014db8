package events

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/modlog"
	"github.com/robalyx/warden/internal/discord/platform"
	"go.uber.org/zap"
)

// auditWindow is how old an audit log entry may be to still describe the event.
const auditWindow = 2 * time.Second

// OnMessageDelete logs a message a moderator deleted in a public channel.
func (h *Handler) OnMessageDelete(ctx context.Context, message platform.Message) error {
	if message.GuildID == nil || message.Author.Bot {
		return nil
	}
	guildID := *message.GuildID

	channelID, ok, err := modlog.Channel(ctx, h.store, guildID)
	if err != nil || !ok {
		return err
	}

	entry, ok, err := h.recentAudit(ctx, guildID, platform.AuditMessageDelete)
	if err != nil || !ok {
		return err
	}

	// Authors deleting their own messages are not moderation
	if entry.ExecutorID == message.Author.ID {
		return nil
	}

	if !h.platform.ChannelPublic(message.ChannelID) {
		return nil
	}

	embed := discord.NewEmbedBuilder().
		SetColor(constants.DefaultEmbedColor).
		SetDescription("Message Deleted").
		SetAuthor(message.Author.Tag(), "", message.Author.AvatarURL).
		AddField("Channel", fmt.Sprintf("<#%d>", message.ChannelID), false).
		AddField("Old Content", orNotApplicable(message.Content), false).
		AddField("Deleted by", fmt.Sprintf("<@%d>", entry.ExecutorID), false).
		SetTimestamp(time.Now()).
		Build()

	return h.post(ctx, channelID, embed)
}

// OnMemberLeave logs a member that was kicked rather than leaving on their own.
func (h *Handler) OnMemberLeave(ctx context.Context, guildID snowflake.ID, user platform.User) error {
	channelID, ok, err := modlog.Channel(ctx, h.store, guildID)
	if err != nil || !ok {
		return err
	}

	entry, ok, err := h.recentAudit(ctx, guildID, platform.AuditMemberKick)
	if err != nil || !ok {
		return err
	}
	if entry.ExecutorID == user.ID || (entry.TargetID != 0 && entry.TargetID != user.ID) {
		return nil
	}

	embed := discord.NewEmbedBuilder().
		SetColor(constants.DefaultEmbedColor).
		SetDescription("User kicked").
		SetAuthor(user.Tag(), "", user.AvatarURL).
		AddField("By", fmt.Sprintf("<@%d>", entry.ExecutorID), false).
		AddField("Reason", orNotApplicable(entry.Reason), false).
		Build()

	return h.post(ctx, channelID, embed)
}

// OnBan logs a ban or unban, naming the moderator when the audit log has them.
func (h *Handler) OnBan(ctx context.Context, guildID snowflake.ID, user platform.User, removed bool) error {
	channelID, ok, err := modlog.Channel(ctx, h.store, guildID)
	if err != nil || !ok {
		return err
	}

	action := platform.AuditMemberBanAdd
	description := "User Banned"
	if removed {
		action = platform.AuditMemberBanRemove
		description = "User Unbanned"
	}

	entry, found, err := h.recentAudit(ctx, guildID, action)
	if err != nil {
		return err
	}

	by := "by Unknown"
	reason := constants.NotApplicable
	if found {
		by = fmt.Sprintf("by <@%d>", entry.ExecutorID)
		reason = orNotApplicable(entry.Reason)
	}

	embed := discord.NewEmbedBuilder().
		SetColor(constants.DefaultEmbedColor).
		SetDescription(description).
		SetAuthor(user.Tag(), "", user.AvatarURL).
		AddField(user.Tag(), by, false).
		AddField("Reason", reason, false).
		SetTimestamp(time.Now()).
		Build()

	return h.post(ctx, channelID, embed)
}

// recentAudit returns the newest audit entry of an action if the bot may read the
// audit log and the entry is recent enough to belong to the event being handled.
func (h *Handler) recentAudit(
	ctx context.Context, guildID snowflake.ID, action platform.AuditAction,
) (platform.AuditEntry, bool, error) {
	permissions, err := h.platform.Permissions(ctx, guildID, h.platform.SelfID())
	if err != nil {
		return platform.AuditEntry{}, false, fmt.Errorf("failed to resolve bot permissions: %w", err)
	}
	if !permissions.Has(discord.PermissionViewAuditLog) {
		return platform.AuditEntry{}, false, nil
	}

	entry, ok, err := h.platform.AuditLogEntry(ctx, guildID, action)
	if err != nil {
		return platform.AuditEntry{}, false, fmt.Errorf("failed to fetch audit log: %w", err)
	}
	if !ok || time.Since(entry.CreatedAt()) > auditWindow {
		return platform.AuditEntry{}, false, nil
	}

	return entry, true, nil
}

func (h *Handler) post(ctx context.Context, channelID snowflake.ID, embed discord.Embed) error {
	if err := h.platform.Send(ctx, channelID, discord.MessageCreate{Embeds: []discord.Embed{embed}}); err != nil {
		return fmt.Errorf("failed to post to log channel: %w", err)
	}

	h.logger.Debug("Posted moderation log entry",
		zap.Uint64("channelID", uint64(channelID)),
		zap.String("description", embed.Description))

	return nil
}

// orNotApplicable returns N/A for empty embed values.
func orNotApplicable(s string) string {
	if s == "" {
		return constants.NotApplicable
	}
	return s
}
