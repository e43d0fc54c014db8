// Package bottest provides in-memory fakes of the platform and the database for
// exercising the bot without a gateway connection or PostgreSQL.
package bottest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/internal/bot/core/dispatch"
	"github.com/robalyx/warden/internal/bot/core/permission"
	"github.com/robalyx/warden/internal/bot/core/registry"
	"github.com/robalyx/warden/internal/bot/core/verify"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Fixture identifiers shared by every harness.
const (
	SelfID    snowflake.ID = 900
	GuildID   snowflake.ID = 100
	ChannelID snowflake.ID = 200
	OwnerID   snowflake.ID = 1
	AdminID   snowflake.ID = 10
	MemberID  snowflake.ID = 20
	ModID     snowflake.ID = 30
)

// Prefix is the command prefix of every harness.
const Prefix = "$"

// Fixed is the time returned by the harness clock.
var Fixed = time.Date(2021, time.March, 10, 15, 4, 5, 0, time.UTC) //nolint:gochecknoglobals // -

// Report is one recorded error report.
type Report struct {
	Detail string
	Err    error
}

// Reporter records reports instead of sending them.
type Reporter struct {
	mu      sync.Mutex
	reports []Report
}

// Report records the detail and error.
func (r *Reporter) Report(_ context.Context, detail string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Detail: detail, Err: err})
}

// Reports returns every recorded report.
func (r *Reporter) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.reports...)
}

// Harness wires fakes into a dispatcher.
type Harness struct {
	Platform   *Platform
	Store      *Store
	Reporter   *Reporter
	Deps       *command.Deps
	Registry   *registry.Registry
	Verifier   *verify.Cache
	Dispatcher *dispatch.Dispatcher

	shutdowns int
	mu        sync.Mutex
}

// Owner, Admin, Member and Mod are the fixture accounts.
func Owner() platform.User  { return platform.User{ID: OwnerID, Username: "owner", Discriminator: "0001"} }
func Admin() platform.User  { return platform.User{ID: AdminID, Username: "admin", Discriminator: "0010"} }
func Member() platform.User { return platform.User{ID: MemberID, Username: "member", Discriminator: "0020"} }
func Mod() platform.User    { return platform.User{ID: ModID, Username: "mod", Discriminator: "0030"} }

// New builds a harness with one guild, one public text channel and the fixture accounts.
// AdminID is a configured bot admin and ModID holds KICK_MEMBERS.
func New(t testing.TB, register func(b *registry.Builder)) *Harness {
	t.Helper()

	p := NewPlatform(SelfID)
	p.PutGuild(platform.Guild{ID: GuildID, Name: "Test Server", OwnerID: OwnerID})
	p.PutChannel(platform.Channel{ID: ChannelID, GuildID: GuildID, Name: "general", Type: platform.ChannelText})
	p.PutRole(platform.Role{ID: GuildID, GuildID: GuildID, Name: "@everyone"})
	for _, user := range []platform.User{Owner(), Admin(), Member(), Mod()} {
		p.PutMember(platform.Member{GuildID: GuildID, User: user})
	}
	p.PutMember(platform.Member{GuildID: GuildID, User: platform.User{ID: SelfID, Username: "warden", Bot: true}})
	p.SetPermissions(GuildID, ModID, discord.PermissionKickMembers)

	store := NewStore()
	reporter := &Reporter{}
	logger := zaptest.NewLogger(t)

	h := &Harness{
		Platform: p,
		Store:    store,
		Reporter: reporter,
	}

	builder := registry.NewBuilder()
	if register != nil {
		register(builder)
	}
	reg, err := builder.Build()
	require.NoError(t, err)

	lockdown := &command.Lockdown{}
	h.Deps = &command.Deps{
		Prefix:   Prefix,
		Platform: p,
		Store:    store,
		Perms:    permission.NewResolver(p, []string{AdminID.String()}),
		Lockdown: lockdown,
		Reporter: reporter,
		Registry: reg,
		Logger:   logger,
		Shutdown: h.recordShutdown,
		Now:      func() time.Time { return Fixed },
	}
	h.Registry = reg
	h.Verifier = verify.New(store, p, lockdown, logger)
	h.Dispatcher = dispatch.New(h.Deps, reg, h.Verifier)

	return h
}

// Rebuild replaces the registry, letting register close over the harness fakes.
func (h *Harness) Rebuild(t testing.TB, register func(b *registry.Builder)) {
	t.Helper()

	builder := registry.NewBuilder()
	register(builder)
	reg, err := builder.Build()
	require.NoError(t, err)

	h.Registry = reg
	h.Deps.Registry = reg
	h.Dispatcher = dispatch.New(h.Deps, reg, h.Verifier)
}

func (h *Harness) recordShutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shutdowns++
}

// Shutdowns returns how often a shutdown was requested.
func (h *Harness) Shutdowns() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shutdowns
}

// Message builds a guild message in the fixture channel.
func Message(author platform.User, content string) platform.Message {
	guildID := GuildID
	return platform.Message{
		ID:        snowflake.New(Fixed),
		ChannelID: ChannelID,
		GuildID:   &guildID,
		Author:    author,
		Content:   content,
	}
}

// Send dispatches a guild message from author in the fixture channel.
func (h *Harness) Send(ctx context.Context, author platform.User, content string) {
	h.Dispatcher.HandleMessage(ctx, Message(author, content))
}

// SendDM dispatches a private message from author.
func (h *Harness) SendDM(ctx context.Context, author platform.User, content string) {
	h.Dispatcher.HandleMessage(ctx, platform.Message{
		ID:        snowflake.New(Fixed),
		ChannelID: 300,
		Author:    author,
		Content:   content,
	})
}

// Context builds a command context for a guild message without dispatching it.
func (h *Harness) Context(author platform.User, content string) *command.Context {
	guild, _ := h.Platform.Guild(GuildID)
	channel, _ := h.Platform.Channel(ChannelID)
	return command.NewContext(h.Deps, Message(author, content), &guild, channel)
}
