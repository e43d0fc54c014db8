package client

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/discord/platform"
)

func toUser(user discord.User) platform.User {
	return platform.User{
		ID:            user.ID,
		Username:      user.Username,
		Discriminator: user.Discriminator,
		Bot:           user.Bot,
		AvatarURL:     user.EffectiveAvatarURL(),
	}
}

func toGuild(guild discord.Guild) platform.Guild {
	return platform.Guild{
		ID:      guild.ID,
		Name:    guild.Name,
		OwnerID: guild.OwnerID,
	}
}

func toMember(member discord.Member) platform.Member {
	return platform.Member{
		GuildID:      member.GuildID,
		User:         toUser(member.User),
		RoleIDs:      member.RoleIDs,
		PremiumSince: member.PremiumSince,
	}
}

func toRole(role discord.Role) platform.Role {
	return platform.Role{
		ID:       role.ID,
		GuildID:  role.GuildID,
		Name:     role.Name,
		Position: role.Position,
		Managed:  role.Managed,
	}
}

func toMessage(message discord.Message) platform.Message {
	return platform.Message{
		ID:        message.ID,
		ChannelID: message.ChannelID,
		GuildID:   message.GuildID,
		Author:    toUser(message.Author),
		Content:   message.Content,
		WebhookID: message.WebhookID,
	}
}

func toChannelType(channelType discord.ChannelType) platform.ChannelType {
	switch channelType { //nolint:exhaustive // only text-like channels are tracked
	case discord.ChannelTypeGuildText:
		return platform.ChannelText
	case discord.ChannelTypeGuildNews:
		return platform.ChannelNews
	case discord.ChannelTypeDM:
		return platform.ChannelDM
	case discord.ChannelTypeGroupDM:
		return platform.ChannelGroupDM
	default:
		return platform.ChannelOther
	}
}

func toAuditLogEvent(action platform.AuditAction) discord.AuditLogEvent {
	switch action {
	case platform.AuditMessageDelete:
		return discord.AuditLogEventMessageDelete
	case platform.AuditMemberKick:
		return discord.AuditLogEventMemberKick
	case platform.AuditMemberBanAdd:
		return discord.AuditLogEventMemberBanAdd
	case platform.AuditMemberBanRemove:
		return discord.AuditLogEventMemberBanRemove
	}
	return discord.AuditLogEventMessageDelete
}
