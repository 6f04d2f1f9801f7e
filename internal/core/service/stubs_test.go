package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/core/audit"
	"github.com/homeowner/portal/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory store: users, roles and activities
// ---------------------------------------------------------------------------

type memStore struct {
	mu         sync.Mutex
	users      map[string]*domain.User
	memberOf   map[string][]string
	known      map[string]bool
	activities []domain.Activity
	nextID     int64

	addToRoleErr error
	appendErr    error
}

func newMemStore() *memStore {
	s := &memStore{
		users:    make(map[string]*domain.User),
		memberOf: make(map[string][]string),
		known:    make(map[string]bool),
	}
	for _, r := range domain.Roles {
		s.known[r] = true
	}
	return s
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func rank(role string) int {
	for i, r := range domain.Roles {
		if r == role {
			return i
		}
	}
	return len(domain.Roles)
}

func (s *memStore) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return domain.ErrDuplicateEmail
		}
	}
	now, actor := audit.Now(ctx), audit.Actor(ctx)
	user.CreatedAt, user.CreatedBy = now, actor
	user.ModifiedAt, user.ModifiedBy = now, actor
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *memStore) Update(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	for id, u := range s.users {
		if id != user.ID && u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	clone := cloneUser(user)
	clone.CreatedAt, clone.CreatedBy = existing.CreatedAt, existing.CreatedBy
	clone.ModifiedAt, clone.ModifiedBy = audit.Now(ctx), audit.Actor(ctx)
	s.users[user.ID] = clone
	return nil
}

func (s *memStore) RecordAccessFailure(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	u.AccessFailedCount++
	u.ModifiedAt, u.ModifiedBy = audit.Now(ctx), audit.Actor(ctx)
	return u.AccessFailedCount, nil
}

func (s *memStore) LockOut(ctx context.Context, id string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LockoutEnd = &until
	u.AccessFailedCount = 0
	u.ModifiedAt, u.ModifiedBy = audit.Now(ctx), audit.Actor(ctx)
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	delete(s.memberOf, id)
	kept := s.activities[:0]
	for _, a := range s.activities {
		if a.UserID != id {
			kept = append(kept, a)
		}
	}
	s.activities = kept
	return nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || !u.IsActive {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.IsActive && u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *memStore) EmailExists(_ context.Context, email, excludeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if id != excludeID && (u.Email == email || u.Username == email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) activeSorted(filter func(*domain.User) bool) []domain.User {
	var out []domain.User
	for _, u := range s.users {
		if u.IsActive && filter(u) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out
}

func (s *memStore) hasRole(id, role string) bool {
	for _, r := range s.memberOf[id] {
		if r == role {
			return true
		}
	}
	return false
}

func (s *memStore) ListActive(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSorted(func(*domain.User) bool { return true }), nil
}

func (s *memStore) ListActiveInRole(_ context.Context, role string) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSorted(func(u *domain.User) bool { return s.hasRole(u.ID, role) }), nil
}

func (s *memStore) CountActive(ctx context.Context) (int, error) {
	users, _ := s.ListActive(ctx)
	return len(users), nil
}

func (s *memStore) CountActiveInRole(ctx context.Context, role string) (int, error) {
	users, _ := s.ListActiveInRole(ctx, role)
	return len(users), nil
}

func (s *memStore) EnsureRoles(_ context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		s.known[n] = true
	}
	return nil
}

func (s *memStore) RoleExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.known[name], nil
}

func (s *memStore) RolesOf(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.memberOf[userID]...)
	sort.Slice(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out, nil
}

func (s *memStore) RolesFor(ctx context.Context, userIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(userIDs))
	for _, id := range userIDs {
		roles, _ := s.RolesOf(ctx, id)
		out[id] = roles
	}
	return out, nil
}

func (s *memStore) AddToRole(_ context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addToRoleErr != nil {
		return s.addToRoleErr
	}
	if !s.known[role] {
		return domain.ErrInvalidRole
	}
	if !s.hasRole(userID, role) {
		s.memberOf[userID] = append(s.memberOf[userID], role)
	}
	return nil
}

func (s *memStore) ReplaceRoles(_ context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.known[role] {
		return domain.ErrInvalidRole
	}
	s.memberOf[userID] = []string{role}
	return nil
}

func (s *memStore) Append(ctx context.Context, a *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.nextID++
	a.ID = s.nextID
	now, actor := audit.Now(ctx), audit.Actor(ctx)
	a.CreatedAt, a.CreatedBy = now, actor
	a.ModifiedAt, a.ModifiedBy = now, actor
	s.activities = append(s.activities, *a)
	return nil
}

func (s *memStore) ListByUser(_ context.Context, userID string, limit int) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Activity
	for i := len(s.activities) - 1; i >= 0; i-- {
		if s.activities[i].UserID == userID {
			out = append(out, s.activities[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// activityTypes returns the recorded types for userID in insertion order.
func (s *memStore) activityTypes(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, a := range s.activities {
		if a.UserID == userID {
			out = append(out, a.Type)
		}
	}
	return out
}

func (s *memStore) countType(userID, activityType string) int {
	n := 0
	for _, t := range s.activityTypes(userID) {
		if t == activityType {
			n++
		}
	}
	return n
}

func (s *memStore) raw(id string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.users[id])
}

// ---------------------------------------------------------------------------
// Token, session and mail stubs
// ---------------------------------------------------------------------------

type memTokens struct {
	mu     sync.Mutex
	seq    int
	tokens map[string]string
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: make(map[string]string)}
}

func (m *memTokens) Issue(_ context.Context, purpose domain.TokenPurpose, subject string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	token := fmt.Sprintf("tok-%d", m.seq)
	m.tokens[string(purpose)+":"+token] = subject
	return token, nil
}

func (m *memTokens) Consume(_ context.Context, purpose domain.TokenPurpose, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(purpose) + ":" + token
	subject, ok := m.tokens[key]
	if !ok {
		return "", domain.ErrInvalidToken
	}
	delete(m.tokens, key)
	return subject, nil
}

type memSessions struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemSessions() *memSessions {
	return &memSessions{revoked: make(map[string]time.Time)}
}

func (m *memSessions) Revoke(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[id] = until
	return nil
}

func (m *memSessions) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[id]
	return ok, nil
}

type memMailer struct {
	mu   sync.Mutex
	sent []domain.Message
}

func (m *memMailer) Send(_ context.Context, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *memMailer) last() (domain.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return domain.Message{}, false
	}
	return m.sent[len(m.sent)-1], true
}

func (m *memMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const strongPassword = "Sup3r$ecret"

type authFixture struct {
	store    *memStore
	tokens   *memTokens
	sessions *memSessions
	mailer   *memMailer
	svc      *AuthService
}

func newAuthFixture(opts AuthOptions) *authFixture {
	store := newMemStore()
	tokens := newMemTokens()
	sessions := newMemSessions()
	mailer := &memMailer{}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 4
	}
	opts.BaseURL = "https://portal.example.com"

	tracker := NewActivityTracker(store, nil, zerolog.Nop())
	svc := NewAuthService(AuthDeps{
		Users:    store,
		Roles:    store,
		Activity: tracker,
		Tokens:   tokens,
		Sessions: sessions,
		Mailer:   mailer,
		Issuer:   NewSessionIssuer("test-secret", 30*time.Minute, 24*time.Hour),
	}, opts, zerolog.Nop())

	return &authFixture{store: store, tokens: tokens, sessions: sessions, mailer: mailer, svc: svc}
}

// seedUser stores an active user with a hashed password and role.
func (f *authFixture) seedUser(email string, confirmed bool, role string) *domain.User {
	hash, err := newPasswordHasher(4).Hash(strongPassword)
	if err != nil {
		panic(err)
	}
	u := &domain.User{
		ID:             "id-" + strings.SplitN(email, "@", 2)[0],
		Username:       email,
		Email:          email,
		PasswordHash:   hash,
		EmailConfirmed: confirmed,
		LockoutEnabled: true,
		IsActive:       true,
		FirstName:      "Test",
		LastName:       strings.SplitN(email, "@", 2)[0],
	}
	if err := f.store.Create(context.Background(), u); err != nil {
		panic(err)
	}
	if role != "" {
		if err := f.store.AddToRole(context.Background(), u.ID, role); err != nil {
			panic(err)
		}
	}
	return u
}

// steppingClock returns a clock fixed at *now so tests can move time.
func steppingClock(now *time.Time) audit.Clock {
	return func() time.Time { return *now }
}
