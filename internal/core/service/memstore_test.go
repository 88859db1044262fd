package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// memStore: an in-memory ports.Store. WithTx runs fn against a copy of the
// data and swaps it in only when fn succeeds, so rollbacks are observable.
// ---------------------------------------------------------------------------

type memData struct {
	users    map[string]*domain.User
	sessions map[string]*domain.Session // keyed by token
	groups   map[string]*domain.Group
	members  map[string]map[string]*domain.Membership // group -> user -> membership
	prefs    map[string]map[string]*domain.Preference // user -> key -> preference
}

func newMemData() *memData {
	return &memData{
		users:    make(map[string]*domain.User),
		sessions: make(map[string]*domain.Session),
		groups:   make(map[string]*domain.Group),
		members:  make(map[string]map[string]*domain.Membership),
		prefs:    make(map[string]map[string]*domain.Preference),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range d.sessions {
		s := *v
		c.sessions[k] = &s
	}
	for k, v := range d.groups {
		g := *v
		c.groups[k] = &g
	}
	for gid, ms := range d.members {
		c.members[gid] = make(map[string]*domain.Membership, len(ms))
		for uid, m := range ms {
			mm := *m
			c.members[gid][uid] = &mm
		}
	}
	for uid, ps := range d.prefs {
		c.prefs[uid] = make(map[string]*domain.Preference, len(ps))
		for k, p := range ps {
			pp := *p
			c.prefs[uid][k] = &pp
		}
	}
	return c
}

type memStore struct {
	data *memData
	seq  int
	now  func() time.Time

	failAddMember      error
	failCreateSession  error
	failDeleteSessions error
	failFindUser       error
	txCount            int
}

func newMemStore() *memStore {
	return &memStore{data: newMemData(), now: time.Now}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) repos(d *memData) memRepos { return memRepos{st: s, d: d} }

func (s *memStore) Users() ports.UserRepository             { return s.repos(s.data).Users() }
func (s *memStore) Sessions() ports.SessionRepository       { return s.repos(s.data).Sessions() }
func (s *memStore) Groups() ports.GroupRepository           { return s.repos(s.data).Groups() }
func (s *memStore) Preferences() ports.PreferenceRepository { return s.repos(s.data).Preferences() }

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx ports.Repositories) error) error {
	s.txCount++
	work := s.data.clone()
	if err := fn(ctx, s.repos(work)); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }

type memRepos struct {
	st *memStore
	d  *memData
}

func (r memRepos) Users() ports.UserRepository             { return memUsers(r) }
func (r memRepos) Sessions() ports.SessionRepository       { return memSessions(r) }
func (r memRepos) Groups() ports.GroupRepository           { return memGroups(r) }
func (r memRepos) Preferences() ports.PreferenceRepository { return memPrefs(r) }

// ---------------------------------------------------------------------------
// users
// ---------------------------------------------------------------------------

type memUsers memRepos

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (r memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	for _, existing := range r.d.users {
		if existing.Email == u.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	c := cloneUser(u)
	if c.ID == "" {
		c.ID = r.st.nextID("user")
	}
	r.d.users[c.ID] = c
	return cloneUser(c), nil
}

func (r memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	if r.st.failFindUser != nil {
		return nil, r.st.failFindUser
	}
	u, ok := r.d.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.d.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUsers) UpdateProfile(_ context.Context, id, displayName string) (*domain.User, error) {
	u, ok := r.d.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.DisplayName = displayName
	u.UpdatedAt = r.st.now()
	return cloneUser(u), nil
}

func (r memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := r.d.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r memUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	u, ok := r.d.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (r memUsers) SetActive(_ context.Context, id string, active bool) (*domain.User, error) {
	u, ok := r.d.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.IsActive = active
	return cloneUser(u), nil
}

func (r memUsers) PromoteAdmins(_ context.Context, emails []string) (int64, error) {
	var n int64
	for _, u := range r.d.users {
		for _, e := range emails {
			if u.Email == e && !u.IsAdmin {
				u.IsAdmin = true
				n++
			}
		}
	}
	return n, nil
}

func (r memUsers) List(_ context.Context, limit, offset int) ([]*domain.User, error) {
	all := make([]*domain.User, 0, len(r.d.users))
	for _, u := range r.d.users {
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return window(all, limit, offset), nil
}

func (r memUsers) Count(context.Context) (int64, error) {
	return int64(len(r.d.users)), nil
}

// ---------------------------------------------------------------------------
// sessions
// ---------------------------------------------------------------------------

type memSessions memRepos

func (r memSessions) Create(_ context.Context, s *domain.Session) (*domain.Session, error) {
	if r.st.failCreateSession != nil {
		return nil, r.st.failCreateSession
	}
	if _, exists := r.d.sessions[s.Token]; exists {
		return nil, errors.New("duplicate session token")
	}
	c := *s
	c.ID = r.st.nextID("session")
	r.d.sessions[s.Token] = &c
	out := c
	return &out, nil
}

func (r memSessions) FindActiveByToken(_ context.Context, token string) (*domain.Session, error) {
	s, ok := r.d.sessions[token]
	if !ok || !s.ExpiresAt.After(r.st.now()) {
		return nil, domain.ErrSessionNotFound
	}
	c := *s
	return &c, nil
}

func (r memSessions) DeleteByToken(_ context.Context, token string) error {
	delete(r.d.sessions, token)
	return nil
}

func (r memSessions) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	if r.st.failDeleteSessions != nil {
		return 0, r.st.failDeleteSessions
	}
	var n int64
	for tok, s := range r.d.sessions {
		if s.UserID == userID {
			delete(r.d.sessions, tok)
			n++
		}
	}
	return n, nil
}

func (r memSessions) PurgeExpired(context.Context) (int64, error) {
	var n int64
	now := r.st.now()
	for tok, s := range r.d.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.d.sessions, tok)
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// groups
// ---------------------------------------------------------------------------

type memGroups memRepos

func (r memGroups) Create(_ context.Context, g *domain.Group) (*domain.Group, error) {
	c := *g
	c.ID = r.st.nextID("group")
	r.d.groups[c.ID] = &c
	out := c
	return &out, nil
}

func (r memGroups) FindByID(_ context.Context, id string) (*domain.Group, error) {
	g, ok := r.d.groups[id]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	c := *g
	return &c, nil
}

func (r memGroups) List(_ context.Context, limit, offset int) ([]*domain.Group, error) {
	all := make([]*domain.Group, 0, len(r.d.groups))
	for _, g := range r.d.groups {
		c := *g
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return window(all, limit, offset), nil
}

func (r memGroups) Update(_ context.Context, g *domain.Group) (*domain.Group, error) {
	if _, ok := r.d.groups[g.ID]; !ok {
		return nil, domain.ErrGroupNotFound
	}
	c := *g
	r.d.groups[g.ID] = &c
	out := c
	return &out, nil
}

func (r memGroups) Delete(_ context.Context, id string) error {
	if _, ok := r.d.groups[id]; !ok {
		return domain.ErrGroupNotFound
	}
	delete(r.d.groups, id)
	delete(r.d.members, id)
	return nil
}

func (r memGroups) AddMember(_ context.Context, m *domain.Membership) (*domain.Membership, error) {
	if r.st.failAddMember != nil {
		return nil, r.st.failAddMember
	}
	if _, ok := r.d.groups[m.GroupID]; !ok {
		return nil, domain.ErrGroupNotFound
	}
	if r.d.members[m.GroupID] == nil {
		r.d.members[m.GroupID] = make(map[string]*domain.Membership)
	}
	if _, exists := r.d.members[m.GroupID][m.UserID]; exists {
		return nil, domain.ErrMembershipExists
	}
	c := *m
	r.d.members[m.GroupID][m.UserID] = &c
	out := c
	return &out, nil
}

func (r memGroups) RemoveMember(_ context.Context, groupID, userID string) error {
	if _, ok := r.d.members[groupID][userID]; !ok {
		return domain.ErrMembershipNotFound
	}
	delete(r.d.members[groupID], userID)
	return nil
}

func (r memGroups) UpdateRole(_ context.Context, groupID, userID, role string) (*domain.Membership, error) {
	m, ok := r.d.members[groupID][userID]
	if !ok {
		return nil, domain.ErrMembershipNotFound
	}
	m.Role = role
	c := *m
	return &c, nil
}

func (r memGroups) FindMembership(_ context.Context, groupID, userID string) (*domain.Membership, error) {
	m, ok := r.d.members[groupID][userID]
	if !ok {
		return nil, domain.ErrMembershipNotFound
	}
	c := *m
	return &c, nil
}

func (r memGroups) CountAdmins(_ context.Context, groupID string) (int, error) {
	n := 0
	for _, m := range r.d.members[groupID] {
		if m.Role == domain.RoleAdmin {
			n++
		}
	}
	return n, nil
}

func (r memGroups) ListMembers(_ context.Context, groupID string, limit, offset int) ([]*domain.Member, error) {
	out := make([]*domain.Member, 0)
	for uid, m := range r.d.members[groupID] {
		u := r.d.users[uid]
		mem := &domain.Member{UserID: uid, Role: m.Role, JoinedAt: m.JoinedAt}
		if u != nil {
			mem.Email = u.Email
			mem.DisplayName = u.DisplayName
		}
		out = append(out, mem)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return window(out, limit, offset), nil
}

func (r memGroups) ListForUser(_ context.Context, userID string) ([]*domain.UserGroup, error) {
	out := make([]*domain.UserGroup, 0)
	for gid, ms := range r.d.members {
		m, ok := ms[userID]
		if !ok {
			continue
		}
		g := r.d.groups[gid]
		out = append(out, &domain.UserGroup{Group: *g, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---------------------------------------------------------------------------
// preferences
// ---------------------------------------------------------------------------

type memPrefs memRepos

func (r memPrefs) List(_ context.Context, userID string) ([]*domain.Preference, error) {
	out := make([]*domain.Preference, 0)
	for _, p := range r.d.prefs[userID] {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r memPrefs) Get(_ context.Context, userID, key string) (*domain.Preference, error) {
	p, ok := r.d.prefs[userID][key]
	if !ok {
		return nil, domain.ErrPreferenceNotFound
	}
	c := *p
	return &c, nil
}

func (r memPrefs) Upsert(_ context.Context, p *domain.Preference) (*domain.Preference, error) {
	if r.d.prefs[p.UserID] == nil {
		r.d.prefs[p.UserID] = make(map[string]*domain.Preference)
	}
	c := *p
	r.d.prefs[p.UserID][p.Key] = &c
	out := c
	return &out, nil
}

func (r memPrefs) Delete(_ context.Context, userID, key string) error {
	if _, ok := r.d.prefs[userID][key]; !ok {
		return domain.ErrPreferenceNotFound
	}
	delete(r.d.prefs[userID], key)
	return nil
}

func window[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// ---------------------------------------------------------------------------
// collaborators
// ---------------------------------------------------------------------------

// plainHasher is a reversible stand-in for bcrypt; the hash format is
// irrelevant to the services.
type plainHasher struct{ hashCalls, compareCalls int }

func (h *plainHasher) Hash(pw string) (string, error) {
	h.hashCalls++
	return "hashed:" + pw, nil
}

func (h *plainHasher) Compare(hash, pw string) error {
	h.compareCalls++
	if hash != "hashed:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

type recordingAudit struct{ events []domain.AuditEvent }

func (a *recordingAudit) Record(e domain.AuditEvent) { a.events = append(a.events, e) }

func (a *recordingAudit) actions() string {
	names := make([]string, 0, len(a.events))
	for _, e := range a.events {
		names = append(names, e.Action)
	}
	return strings.Join(names, ",")
}

type stubThrottle struct {
	blocked  bool
	failures map[string]int
	resets   int
	err      error
}

func newStubThrottle() *stubThrottle { return &stubThrottle{failures: make(map[string]int)} }

func (t *stubThrottle) Blocked(context.Context, string) (bool, error) { return t.blocked, t.err }

func (t *stubThrottle) RecordFailure(_ context.Context, key string) error {
	t.failures[key]++
	return t.err
}

func (t *stubThrottle) Reset(context.Context, string) error {
	t.resets++
	return t.err
}

// seedUser inserts an active user with password "pw" directly into the store.
func seedUser(t interface{ Fatalf(string, ...any) }, st *memStore, email string, admin bool) *domain.User {
	u, err := st.Users().Create(context.Background(), &domain.User{
		Email:        email,
		PasswordHash: "hashed:pw",
		DisplayName:  domain.DefaultDisplayName(email),
		IsActive:     true,
		IsAdmin:      admin,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}
