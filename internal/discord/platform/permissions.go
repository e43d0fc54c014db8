package platform

import "github.com/disgoorg/disgo/discord"

// CustomPermissions are bot-level flags that no guild role can grant.
var CustomPermissions = map[string]struct{}{ //nolint:gochecknoglobals // -
	"EVAL": {},
}

// PermissionFlags maps platform permission names to their bits.
var PermissionFlags = map[string]discord.Permissions{ //nolint:gochecknoglobals // -
	"CREATE_INSTANT_INVITE": discord.PermissionCreateInstantInvite,
	"KICK_MEMBERS":          discord.PermissionKickMembers,
	"BAN_MEMBERS":           discord.PermissionBanMembers,
	"ADMINISTRATOR":         discord.PermissionAdministrator,
	"MANAGE_CHANNELS":       discord.PermissionManageChannels,
	"MANAGE_GUILD":          discord.PermissionManageGuild,
	"ADD_REACTIONS":         discord.PermissionAddReactions,
	"VIEW_AUDIT_LOG":        discord.PermissionViewAuditLog,
	"PRIORITY_SPEAKER":      discord.PermissionPrioritySpeaker,
	"STREAM":                discord.PermissionStream,
	"VIEW_CHANNEL":          discord.PermissionViewChannel,
	"SEND_MESSAGES":         discord.PermissionSendMessages,
	"SEND_TTS_MESSAGES":     discord.PermissionSendTTSMessages,
	"MANAGE_MESSAGES":       discord.PermissionManageMessages,
	"EMBED_LINKS":           discord.PermissionEmbedLinks,
	"ATTACH_FILES":          discord.PermissionAttachFiles,
	"READ_MESSAGE_HISTORY":  discord.PermissionReadMessageHistory,
	"MENTION_EVERYONE":      discord.PermissionMentionEveryone,
	"USE_EXTERNAL_EMOJIS":   discord.PermissionUseExternalEmojis,
	"VIEW_GUILD_INSIGHTS":   discord.PermissionViewGuildInsights,
	"CONNECT":               discord.PermissionConnect,
	"SPEAK":                 discord.PermissionSpeak,
	"MUTE_MEMBERS":          discord.PermissionMuteMembers,
	"DEAFEN_MEMBERS":        discord.PermissionDeafenMembers,
	"MOVE_MEMBERS":          discord.PermissionMoveMembers,
	"USE_VAD":               discord.PermissionUseVAD,
	"CHANGE_NICKNAME":       discord.PermissionChangeNickname,
	"MANAGE_NICKNAMES":      discord.PermissionManageNicknames,
	"MANAGE_ROLES":          discord.PermissionManageRoles,
	"MANAGE_WEBHOOKS":       discord.PermissionManageWebhooks,
}
