package constants

const (
	// Common.
	NotApplicable     = "N/A"
	DefaultEmbedColor = 0x6194fd
	BoosterEmbedColor = 0xf47fff
	ErrorReplyPrefix  = "❌ "

	// Dispatch.
	LockdownNotice = "The bot is restarting soon, please try again in a minute."
	FailureNotice  = "❌ - An error occured while trying to run your command. " +
		"The error has been logged, and we will fix it soon."
	MonitorCrashedDetail = "A chat monitor crashed: "
	CommandCrashedDetail = "A chat command crashed: "
	ShutdownNotice       = "The bot is shutting down, commands are disabled until it restarts."

	// Permissions.
	AccessDenied     = "Access Denied."
	PermissionDenied = "❌ You do not have permission to do that."
	NotInPMs         = "This command is not mean't to be used in PMs."

	// Help.
	HelpAuthor          = "Help"
	HelpSelectedCommand = "Help for the selected command"
	HelpAllCommands     = "Help for All Commands"
	HelpPerPage         = 5

	// Leaderboards.
	LeaderboardPerPage = 10
	BoostersPerPage    = 10
	LineCountBuckets   = 10

	// Stats.
	LeadsHeader      = "**__Leads:__** Top 10 leads of Gen 7 OU"
	StatsUnavailable = "Usage statistics are not available right now."

	// Sticky roles.
	StickyRoleReason = "Assigning sticky role to returning user"

	// Activity.
	ActivityPruneJob = "activity_prune"
	BoostPollJob     = "boost_poll"
	StickyReconcile  = "sticky_reconcile"

	// Links.
	DirectoryLink = "https://www.smogon.com/discord/directory"
)
