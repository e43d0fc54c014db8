// Package commands holds every chat command the bot answers to.
package commands

import (
	"strings"
	"time"

	"github.com/robalyx/warden/internal/bot/core/registry"
	"github.com/robalyx/warden/internal/bot/sticky"
	"github.com/robalyx/warden/internal/showdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Options configures the commands.
type Options struct {
	// Sticky applies sticky role changes.
	Sticky *sticky.Protocol
	// EvalTimeout bounds a single eval run.
	EvalTimeout time.Duration
	// Showdown serves usage statistics. The stats commands report them unavailable when nil.
	Showdown *showdown.Data
}

// Register adds every command and alias to the registry.
func Register(b *registry.Builder, opts Options) {
	if opts.EvalTimeout <= 0 {
		opts.EvalTimeout = 5 * time.Second
	}

	// Information
	b.Register(helpDefinition(), directoryDefinition()).
		Alias("help", "h")

	// Development
	b.Register(pingDefinition(), evalDefinition(opts.EvalTimeout), queryDefinition(), shutdownDefinition()).
		Alias("eval", "js")

	// Moderation
	b.Register(
		whoisDefinition(),
		enableLogsDefinition(),
		disableLogsDefinition(),
		stickyDefinition(opts.Sticky),
		unstickyDefinition(opts.Sticky),
	)

	// Boosts
	b.Register(boostersDefinition())

	// Team raters
	b.Register(addTeamRaterDefinition(), removeTeamRaterDefinition())

	// Activity
	b.Register(
		leaderboardDefinition(),
		channelLeaderboardDefinition(),
		linecountDefinition(),
		channelLinecountDefinition(),
	).
		Alias("leaderboard", "lb").
		Alias("channelleaderboard", "clb").
		Alias("linecount", "lc").
		Alias("channellinecount", "clc")

	// Stats
	b.Register(leadsDefinition(opts.Showdown))
}

// permissionLabels overrides labels that do not follow the flag name.
var permissionLabels = map[string]string{ //nolint:gochecknoglobals // -
	"MANAGE_GUILD": "Manage Server",
}

// doc is the help text of a command.
type doc struct {
	usage    string
	desc     string
	requires string
	aliases  []string
	related  []string
}

// render formats the help text for the given prefix.
func (d doc) render(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix + d.usage + " - " + d.desc)

	if d.requires != "" {
		b.WriteString("\nRequires: " + permissionLabel(d.requires) + " Permissions")
	}

	b.WriteString("\nAliases: ")
	if len(d.aliases) == 0 {
		b.WriteString("None")
	} else {
		aliases := make([]string, len(d.aliases))
		for i, alias := range d.aliases {
			aliases[i] = prefix + alias
		}
		b.WriteString(strings.Join(aliases, ", "))
	}

	if len(d.related) > 0 {
		b.WriteString("\nRelated Commands: " + strings.Join(d.related, ", "))
	}

	return b.String()
}

// help returns the doc as a help function.
func (d doc) help() func(prefix string) string {
	return d.render
}

// permissionLabel turns a flag like KICK_MEMBERS into Kick Members.
func permissionLabel(flag string) string {
	if label, ok := permissionLabels[flag]; ok {
		return label
	}
	words := strings.ReplaceAll(strings.ToLower(flag), "_", " ")
	return cases.Title(language.English).String(words)
}
