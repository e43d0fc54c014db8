package bottest

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/types"
)

type pairKey struct {
	a uint64
	b uint64
}

type lineKey struct {
	id       uint64
	serverID uint64
	day      string
}

// Store is an in-memory database.Store counting every call.
type Store struct {
	mu sync.Mutex

	servers      map[uint64]*types.Server
	channels     map[uint64]*types.Channel
	users        map[uint64]*types.User
	members      map[pairKey]*types.Member
	userLines    map[lineKey]int
	channelLines map[lineKey]int
	raters       map[types.TeamRater]struct{}

	calls    map[string]int
	failures map[string]error
	hooks    map[string]func()
	gateway  *Gateway
}

var _ database.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{
		servers:      make(map[uint64]*types.Server),
		channels:     make(map[uint64]*types.Channel),
		users:        make(map[uint64]*types.User),
		members:      make(map[pairKey]*types.Member),
		userLines:    make(map[lineKey]int),
		channelLines: make(map[lineKey]int),
		raters:       make(map[types.TeamRater]struct{}),
		calls:        make(map[string]int),
		failures:     make(map[string]error),
		hooks:        make(map[string]func()),
	}
	s.gateway = &Gateway{store: s}
	return s
}

// Calls returns how often a store method was invoked.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// TotalCalls returns the number of store calls of any kind.
func (s *Store) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// FailOn makes every later call of method return err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// Before runs fn once, right before the next call of method touches the store.
// fn may call back into the store.
func (s *Store) Before(method string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[method] = fn
}

func (s *Store) runHook(method string) {
	s.mu.Lock()
	fn, ok := s.hooks[method]
	delete(s.hooks, method)
	s.mu.Unlock()

	if ok {
		fn()
	}
}

// SeedMember stores a membership row as is, replacing any existing one.
func (s *Store) SeedMember(member types.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member.Sticky = slices.Clone(member.Sticky)
	if member.Sticky == nil {
		member.Sticky = []uint64{}
	}
	s.members[pairKey{member.ServerID, member.UserID}] = &member
}

// enter records a call and returns its injected failure. The caller holds mu.
func (s *Store) enter(method string) error {
	s.calls[method]++
	return s.failures[method]
}

// Server returns a copy of a stored server.
func (s *Store) Server(serverID uint64) (types.Server, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	server, ok := s.servers[serverID]
	if !ok {
		return types.Server{}, false
	}
	copied := *server
	copied.Sticky = slices.Clone(server.Sticky)
	return copied, true
}

// Member returns a copy of a stored membership.
func (s *Store) Member(serverID, userID uint64) (types.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, ok := s.members[pairKey{serverID, userID}]
	if !ok {
		return types.Member{}, false
	}
	copied := *member
	copied.Sticky = slices.Clone(member.Sticky)
	return copied, true
}

// UserLines returns the stored line count of a user on a day.
func (s *Store) UserLines(userID, serverID uint64, day time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userLines[lineKey{userID, serverID, day.Format(time.DateOnly)}]
}

// ChannelLines returns the stored line count of a channel on a day.
func (s *Store) ChannelLines(channelID uint64, day time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelLines[lineKey{channelID, 0, day.Format(time.DateOnly)}]
}

func (s *Store) Servers() database.ServerStore       { return serverStore{s} }
func (s *Store) Channels() database.ChannelStore     { return channelStore{s} }
func (s *Store) Users() database.UserStore           { return userStore{s} }
func (s *Store) Members() database.MemberStore       { return memberStore{s} }
func (s *Store) Activity() database.ActivityStore    { return activityStore{s} }
func (s *Store) TeamRaters() database.TeamRaterStore { return raterStore{s} }
func (s *Store) Sticky() database.StickyStore        { return stickyStore{s} }
func (s *Store) Gateway() database.Gateway           { return s.gateway }

// FakeGateway exposes the gateway with its counters.
func (s *Store) FakeGateway() *Gateway {
	return s.gateway
}

type serverStore struct{ s *Store }

func (st serverStore) ServerExists(_ context.Context, serverID uint64) (bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("ServerExists"); err != nil {
		return false, err
	}
	_, ok := st.s.servers[serverID]
	return ok, nil
}

func (st serverStore) CreateServer(_ context.Context, server *types.Server) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("CreateServer"); err != nil {
		return err
	}
	if _, ok := st.s.servers[server.ServerID]; !ok {
		copied := *server
		copied.Sticky = slices.Clone(server.Sticky)
		st.s.servers[server.ServerID] = &copied
	}
	return nil
}

func (st serverStore) GetServer(_ context.Context, serverID uint64) (*types.Server, bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("GetServer"); err != nil {
		return nil, false, err
	}
	server, ok := st.s.servers[serverID]
	if !ok {
		return nil, false, nil
	}
	copied := *server
	copied.Sticky = slices.Clone(server.Sticky)
	return &copied, true, nil
}

func (st serverStore) SetLogChannel(_ context.Context, serverID uint64, channelID *uint64) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("SetLogChannel"); err != nil {
		return err
	}
	if server, ok := st.s.servers[serverID]; ok {
		server.LogChannel = channelID
	}
	return nil
}

type channelStore struct{ s *Store }

func (st channelStore) ChannelExists(_ context.Context, channelID uint64) (bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("ChannelExists"); err != nil {
		return false, err
	}
	_, ok := st.s.channels[channelID]
	return ok, nil
}

func (st channelStore) CreateChannel(_ context.Context, channel *types.Channel) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("CreateChannel"); err != nil {
		return err
	}
	if _, ok := st.s.channels[channel.ChannelID]; !ok {
		copied := *channel
		st.s.channels[channel.ChannelID] = &copied
	}
	return nil
}

type userStore struct{ s *Store }

func (st userStore) UserExists(_ context.Context, userID uint64) (bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("UserExists"); err != nil {
		return false, err
	}
	_, ok := st.s.users[userID]
	return ok, nil
}

func (st userStore) CreateUser(_ context.Context, user *types.User) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("CreateUser"); err != nil {
		return err
	}
	if _, ok := st.s.users[user.UserID]; !ok {
		copied := *user
		st.s.users[user.UserID] = &copied
	}
	return nil
}

type memberStore struct{ s *Store }

func (st memberStore) MemberExists(_ context.Context, serverID, userID uint64) (bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("MemberExists"); err != nil {
		return false, err
	}
	_, ok := st.s.members[pairKey{serverID, userID}]
	return ok, nil
}

func (st memberStore) CreateMember(_ context.Context, member *types.Member) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("CreateMember"); err != nil {
		return err
	}
	key := pairKey{member.ServerID, member.UserID}
	if _, ok := st.s.members[key]; !ok {
		copied := *member
		copied.Sticky = slices.Clone(member.Sticky)
		if copied.Sticky == nil {
			copied.Sticky = []uint64{}
		}
		st.s.members[key] = &copied
	}
	return nil
}

func (st memberStore) GetMember(_ context.Context, serverID, userID uint64) (*types.Member, bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("GetMember"); err != nil {
		return nil, false, err
	}
	member, ok := st.s.members[pairKey{serverID, userID}]
	if !ok {
		return nil, false, nil
	}
	copied := *member
	copied.Sticky = slices.Clone(member.Sticky)
	return &copied, true, nil
}

func (st memberStore) ListMembers(_ context.Context, serverID uint64) ([]*types.Member, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("ListMembers"); err != nil {
		return nil, err
	}

	var members []*types.Member
	for key, member := range st.s.members {
		if key.a == serverID {
			copied := *member
			copied.Sticky = slices.Clone(member.Sticky)
			members = append(members, &copied)
		}
	}
	slices.SortFunc(members, func(a, b *types.Member) int { return cmp.Compare(a.UserID, b.UserID) })
	return members, nil
}

func (st memberStore) ApplyStickyDrift(_ context.Context, serverID, userID uint64, added, removed []uint64) error {
	st.s.runHook("ApplyStickyDrift")

	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("ApplyStickyDrift"); err != nil {
		return err
	}

	member, ok := st.s.members[pairKey{serverID, userID}]
	if !ok {
		return nil
	}
	server := st.s.servers[serverID]

	member.Sticky = slices.DeleteFunc(member.Sticky, func(id uint64) bool { return slices.Contains(removed, id) })
	for _, id := range added {
		if server != nil && server.HasSticky(id) && !slices.Contains(member.Sticky, id) {
			member.Sticky = append(member.Sticky, id)
		}
	}
	return nil
}

func (st memberStore) ListBoostingIDs(_ context.Context, serverID uint64) ([]uint64, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("ListBoostingIDs"); err != nil {
		return nil, err
	}

	var ids []uint64
	for key, member := range st.s.members {
		if key.a == serverID && member.Boosting != nil {
			ids = append(ids, key.b)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (st memberStore) SetBoosting(_ context.Context, serverID, userID uint64, since *time.Time) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("SetBoosting"); err != nil {
		return err
	}
	if member, ok := st.s.members[pairKey{serverID, userID}]; ok {
		member.Boosting = since
	}
	return nil
}

func (st memberStore) ListBoosters(_ context.Context, serverID uint64) ([]types.Booster, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("ListBoosters"); err != nil {
		return nil, err
	}

	var boosters []types.Booster
	for key, member := range st.s.members {
		user, ok := st.s.users[key.b]
		if key.a != serverID || member.Boosting == nil || !ok {
			continue
		}
		boosters = append(boosters, types.Booster{
			Name:          user.Name,
			Discriminator: user.Discriminator,
			Boosting:      *member.Boosting,
		})
	}
	slices.SortFunc(boosters, func(a, b types.Booster) int { return a.Boosting.Compare(b.Boosting) })
	return boosters, nil
}

type activityStore struct{ s *Store }

func (st activityStore) IncrementUserLines(_ context.Context, userID, serverID uint64, day time.Time) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("IncrementUserLines"); err != nil {
		return err
	}
	st.s.userLines[lineKey{userID, serverID, day.Format(time.DateOnly)}]++
	return nil
}

func (st activityStore) IncrementChannelLines(_ context.Context, channelID uint64, day time.Time) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("IncrementChannelLines"); err != nil {
		return err
	}
	st.s.channelLines[lineKey{channelID, 0, day.Format(time.DateOnly)}]++
	return nil
}

func (st activityStore) Leaderboard(
	_ context.Context, serverID uint64, granularity types.Granularity, now time.Time, limit int,
) ([]types.LineTotal, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("Leaderboard"); err != nil {
		return nil, err
	}

	totals := make(map[uint64]int64)
	for key, lines := range st.s.userLines {
		if key.serverID == serverID && samePeriod(key.day, now, granularity) {
			totals[key.id] += int64(lines)
		}
	}

	rows := make([]types.LineTotal, 0, len(totals))
	for userID, total := range totals {
		user, ok := st.s.users[userID]
		if !ok {
			continue
		}
		rows = append(rows, types.LineTotal{Name: user.Name, Discriminator: user.Discriminator, Lines: total})
	}
	return rankTotals(rows, limit), nil
}

func (st activityStore) ChannelLeaderboard(
	_ context.Context, serverID uint64, granularity types.Granularity, now time.Time, limit int,
) ([]types.LineTotal, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("ChannelLeaderboard"); err != nil {
		return nil, err
	}

	totals := make(map[uint64]int64)
	for key, lines := range st.s.channelLines {
		channel, ok := st.s.channels[key.id]
		if ok && channel.ServerID == serverID && samePeriod(key.day, now, granularity) {
			totals[key.id] += int64(lines)
		}
	}

	rows := make([]types.LineTotal, 0, len(totals))
	for channelID, total := range totals {
		rows = append(rows, types.LineTotal{Name: st.s.channels[channelID].ChannelName, Lines: total})
	}
	return rankTotals(rows, limit), nil
}

func (st activityStore) UserLineCounts(
	_ context.Context, serverID, userID uint64, granularity types.Granularity, limit int,
) ([]types.LineBucket, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("UserLineCounts"); err != nil {
		return nil, err
	}

	buckets := make(map[string]int64)
	for key, lines := range st.s.userLines {
		if key.serverID == serverID && key.id == userID {
			buckets[periodLabel(key.day, granularity)] += int64(lines)
		}
	}
	return sortBuckets(buckets, granularity, limit), nil
}

func (st activityStore) ChannelLineCounts(
	_ context.Context, serverID, channelID uint64, granularity types.Granularity, limit int,
) ([]types.LineBucket, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("ChannelLineCounts"); err != nil {
		return nil, err
	}

	buckets := make(map[string]int64)
	channel, ok := st.s.channels[channelID]
	if ok && channel.ServerID == serverID {
		for key, lines := range st.s.channelLines {
			if key.id == channelID {
				buckets[periodLabel(key.day, granularity)] += int64(lines)
			}
		}
	}
	return sortBuckets(buckets, granularity, limit), nil
}

func (st activityStore) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("PruneBefore"); err != nil {
		return 0, err
	}

	limit := cutoff.Format(time.DateOnly)
	var removed int64
	for _, table := range []map[lineKey]int{st.s.userLines, st.s.channelLines} {
		for key := range table {
			if key.day < limit {
				delete(table, key)
				removed++
			}
		}
	}
	return removed, nil
}

type raterStore struct{ s *Store }

func (st raterStore) IsRater(_ context.Context, rater *types.TeamRater) (bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("IsRater"); err != nil {
		return false, err
	}
	_, ok := st.s.raters[raterKey(rater)]
	return ok, nil
}

func (st raterStore) AddRater(_ context.Context, rater *types.TeamRater) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("AddRater"); err != nil {
		return err
	}
	st.s.raters[raterKey(rater)] = struct{}{}
	return nil
}

func (st raterStore) RemoveRater(_ context.Context, rater *types.TeamRater) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("RemoveRater"); err != nil {
		return err
	}
	delete(st.s.raters, raterKey(rater))
	return nil
}

func (st raterStore) ChannelHasRaters(_ context.Context, channelID uint64) (bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("ChannelHasRaters"); err != nil {
		return false, err
	}
	for rater := range st.s.raters {
		if rater.ChannelID == channelID {
			return true, nil
		}
	}
	return false, nil
}

func (st raterStore) RatersFor(_ context.Context, format string, channelID uint64) ([]uint64, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("RatersFor"); err != nil {
		return nil, err
	}

	var ids []uint64
	for rater := range st.s.raters {
		if rater.Format == format && rater.ChannelID == channelID {
			ids = append(ids, rater.UserID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

type stickyStore struct{ s *Store }

func (st stickyStore) MarkSticky(_ context.Context, serverID, roleID uint64, holders []*types.User) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("MarkSticky"); err != nil {
		return err
	}

	if server, ok := st.s.servers[serverID]; ok && !server.HasSticky(roleID) {
		server.Sticky = append(server.Sticky, roleID)
	}

	for _, holder := range holders {
		if _, ok := st.s.users[holder.UserID]; !ok {
			copied := *holder
			st.s.users[holder.UserID] = &copied
		}

		key := pairKey{serverID, holder.UserID}
		member, ok := st.s.members[key]
		if !ok {
			member = &types.Member{ServerID: serverID, UserID: holder.UserID, Sticky: []uint64{}}
			st.s.members[key] = member
		}
		if !slices.Contains(member.Sticky, roleID) {
			member.Sticky = append(member.Sticky, roleID)
		}
	}
	return nil
}

func (st stickyStore) UnmarkSticky(_ context.Context, serverID, roleID uint64) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if err := st.s.enter("UnmarkSticky"); err != nil {
		return err
	}

	if server, ok := st.s.servers[serverID]; ok {
		server.Sticky = slices.DeleteFunc(server.Sticky, func(id uint64) bool { return id == roleID })
	}
	for key, member := range st.s.members {
		if key.a == serverID {
			member.Sticky = slices.DeleteFunc(member.Sticky, func(id uint64) bool { return id == roleID })
		}
	}
	return nil
}

func raterKey(rater *types.TeamRater) types.TeamRater {
	return types.TeamRater{UserID: rater.UserID, Format: rater.Format, ChannelID: rater.ChannelID}
}

// samePeriod reports whether day falls in the period of now, with weeks starting on Monday.
func samePeriod(day string, now time.Time, granularity types.Granularity) bool {
	switch granularity {
	case types.GranularityDay:
		return day == now.Format(time.DateOnly)
	case types.GranularityWeek, types.GranularityMonth:
		return periodLabel(day, granularity) == periodLabel(now.Format(time.DateOnly), granularity)
	default:
		return true
	}
}

func periodLabel(day string, granularity types.Granularity) string {
	parsed, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return day
	}

	switch granularity {
	case types.GranularityDay:
		return day
	case types.GranularityWeek:
		offset := (int(parsed.Weekday()) + 6) % 7
		return parsed.AddDate(0, 0, -offset).Format(time.DateOnly)
	case types.GranularityMonth:
		return time.Date(parsed.Year(), parsed.Month(), 1, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
	default:
		return ""
	}
}

func rankTotals(rows []types.LineTotal, limit int) []types.LineTotal {
	slices.SortFunc(rows, func(a, b types.LineTotal) int {
		if c := cmp.Compare(b.Lines, a.Lines); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func sortBuckets(buckets map[string]int64, granularity types.Granularity, limit int) []types.LineBucket {
	if granularity == types.GranularityAllTime {
		return []types.LineBucket{{Lines: buckets[""]}}
	}

	rows := make([]types.LineBucket, 0, len(buckets))
	for period, lines := range buckets {
		rows = append(rows, types.LineBucket{Period: period, Lines: lines})
	}
	slices.SortFunc(rows, func(a, b types.LineBucket) int { return cmp.Compare(b.Period, a.Period) })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
