package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/jhenkens/bear-valley-run-checks/internal/model"
	"github.com/jhenkens/bear-valley-run-checks/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users  map[string]*model.User // key: id
	nextID int
	err    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) add(email, name string, admin bool) *model.User {
	u := &model.User{Email: strings.ToLower(email), Name: name, IsAdmin: admin}
	_ = m.Create(context.Background(), u)
	return u
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.err != nil {
		return m.err
	}
	if user.ID == "" {
		m.nextID++
		user.ID = fmt.Sprintf("user-%d", m.nextID)
	}
	user.Email = strings.ToLower(user.Email)
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context) ([]model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockUserRepo) ListNames(ctx context.Context) ([]string, error) {
	users, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	return names, nil
}

// ── Mock MagicLinkRepository ──

type mockMagicLinkRepo struct {
	links map[string]*model.MagicLink
}

func newMockMagicLinkRepo() *mockMagicLinkRepo {
	return &mockMagicLinkRepo{links: make(map[string]*model.MagicLink)}
}

func (m *mockMagicLinkRepo) Create(_ context.Context, link *model.MagicLink) error {
	m.links[link.Token] = link
	return nil
}

func (m *mockMagicLinkRepo) GetByToken(_ context.Context, token string) (*model.MagicLink, error) {
	if l, ok := m.links[token]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMagicLinkRepo) MarkUsed(_ context.Context, token string) (bool, error) {
	l, ok := m.links[token]
	if !ok || l.Used {
		return false, nil
	}
	l.Used = true
	return true, nil
}

func (m *mockMagicLinkRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for token, l := range m.links {
		if l.ExpiresAt.Before(before) {
			delete(m.links, token)
			n++
		}
	}
	return n, nil
}

// ── Mock GoogleOAuthRepository ──

type mockGoogleOAuthRepo struct {
	mu      sync.Mutex
	records map[string]*model.GoogleOAuth // key: user id
	users   *mockUserRepo
	updates int
}

func newMockGoogleOAuthRepo(users *mockUserRepo) *mockGoogleOAuthRepo {
	return &mockGoogleOAuthRepo{records: make(map[string]*model.GoogleOAuth), users: users}
}

func (m *mockGoogleOAuthRepo) withUser(rec *model.GoogleOAuth) *model.GoogleOAuth {
	cp := *rec
	if m.users != nil {
		if u, ok := m.users.users[rec.UserID]; ok {
			uc := *u
			cp.User = &uc
		}
	}
	return &cp
}

func (m *mockGoogleOAuthRepo) GetActive(_ context.Context) (*model.GoogleOAuth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.IsActive {
			return m.withUser(r), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGoogleOAuthRepo) GetCurrent(_ context.Context) (*model.GoogleOAuth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.GoogleOAuth
	for _, r := range m.records {
		if best == nil || (r.IsActive && !best.IsActive) {
			best = r
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withUser(best), nil
}

func (m *mockGoogleOAuthRepo) GetByUserID(_ context.Context, userID string) (*model.GoogleOAuth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[userID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGoogleOAuthRepo) Upsert(_ context.Context, record *model.GoogleOAuth) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.records[record.UserID]; ok {
		record.ID = existing.ID
	} else if record.ID == "" {
		record.ID = "oauth-" + record.UserID
	}
	cp := *record
	cp.User = nil
	m.records[record.UserID] = &cp
	return nil
}

func (m *mockGoogleOAuthRepo) Update(_ context.Context, record *model.GoogleOAuth) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.UserID]; !ok {
		return errors.New("update of missing record")
	}
	cp := *record
	cp.User = nil
	m.records[record.UserID] = &cp
	m.updates++
	return nil
}

func (m *mockGoogleOAuthRepo) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			r.IsActive = active
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockGoogleOAuthRepo) DeleteByUserID(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, userID)
	return nil
}

func (m *mockGoogleOAuthRepo) get(userID string) *model.GoogleOAuth {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[userID]; ok {
		cp := *r
		return &cp
	}
	return nil
}

type mockRepos struct {
	users  *mockUserRepo
	links  *mockMagicLinkRepo
	google *mockGoogleOAuthRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{users: newMockUserRepo(), links: newMockMagicLinkRepo()}
	m.google = newMockGoogleOAuthRepo(m.users)
	return &repository.Repository{
		User:        m.users,
		MagicLink:   m.links,
		GoogleOAuth: m.google,
	}, m
}

// ── Mock collaborators ──

type sentMail struct {
	kind, to, name, link string
}

type mockMailer struct {
	sent []sentMail
	err  error
}

func (m *mockMailer) SendMagicLink(_ context.Context, to, link string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: "magic", to: to, link: link})
	return nil
}

func (m *mockMailer) SendWelcome(_ context.Context, to, name, link string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: "welcome", to: to, name: name, link: link})
	return nil
}

type mockSessions struct {
	revoked map[string]time.Duration
	err     error
}

func newMockSessions() *mockSessions {
	return &mockSessions{revoked: make(map[string]time.Duration)}
}

func (m *mockSessions) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.revoked[jti] = ttl
	return nil
}

func (m *mockSessions) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[jti]
	return ok, nil
}

type mockCache struct {
	checks   []model.RunCheck
	hasStore bool
	saved    bool
	nextID   int
	now      time.Time
}

func (m *mockCache) GetChecks() []model.RunCheck {
	return append([]model.RunCheck(nil), m.checks...)
}

func (m *mockCache) AddChecks(_ context.Context, inputs []model.RunCheckInput) ([]model.RunCheck, bool) {
	out := make([]model.RunCheck, 0, len(inputs))
	for _, in := range inputs {
		m.nextID++
		c := model.RunCheck{
			ID:        fmt.Sprintf("check-%d", m.nextID),
			RunName:   in.RunName,
			Section:   in.Section,
			Patroller: in.Patroller,
			CheckTime: in.CheckTime,
			CreatedAt: m.now,
		}
		m.checks = append(m.checks, c)
		out = append(out, c)
	}
	return out, m.saved && len(inputs) > 0
}

func (m *mockCache) HasStore() bool { return m.hasStore }

type broadcastCall struct {
	event   string
	payload interface{}
}

type mockBroadcaster struct {
	calls []broadcastCall
	err   error
}

func (m *mockBroadcaster) Broadcast(event string, payload interface{}) error {
	m.calls = append(m.calls, broadcastCall{event: event, payload: payload})
	return m.err
}

type mockProvider struct {
	runs       []model.Run
	refreshErr error
	refreshed  int
}

func (p *mockProvider) Initialize(context.Context) error { return nil }
func (p *mockProvider) GetRuns() []model.Run            { return append([]model.Run(nil), p.runs...) }
func (p *mockProvider) Name() string                    { return "mock" }

type refreshingProvider struct {
	mockProvider
}

func (p *refreshingProvider) Refresh(context.Context) (int, error) {
	if p.refreshErr != nil {
		return 0, p.refreshErr
	}
	p.refreshed++
	return len(p.runs), nil
}
