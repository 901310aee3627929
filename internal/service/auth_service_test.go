package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/pkg/jwt"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{AppURL: "http://localhost:3000/"},
		Auth: config.AuthConfig{
			SessionSecret: "test-secret-key-for-unit-testing-2026",
			SessionTTL:    7 * 24 * time.Hour,
			MagicLinkTTL:  15 * time.Minute,
		},
		Superusers: []config.Superuser{{Email: "chief@example.com", Name: "Chief"}},
		Patrollers: []string{"Guest Patroller"},
	}
}

func setupTestAuthService(cfg *config.Config) (*authService, *mockRepos, *mockMailer, *mockSessions) {
	repo, mocks := newMockRepository()
	mailer := &mockMailer{}
	sessions := newMockSessions()
	svc := NewAuthService(cfg, repo, jwt.NewManager(&cfg.Auth), sessions, mailer, zap.NewNop())
	return svc.(*authService), mocks, mailer, sessions
}

// ── RequestLogin ──

func TestAuthService_RequestLogin_SendsEmail(t *testing.T) {
	svc, mocks, mailer, _ := setupTestAuthService(testConfig())
	mocks.users.add("pat@example.com", "Pat", false)

	resp, err := svc.RequestLogin(context.Background(), "  PAT@example.com ")
	if err != nil {
		t.Fatalf("RequestLogin: %v", err)
	}
	if resp.Message != "Magic link sent to your email" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if resp.Token != "" || resp.LoginURL != "" {
		t.Error("token must not be returned when email is enabled")
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "pat@example.com" {
		t.Fatalf("expected one email to pat, got %+v", mailer.sent)
	}
	if !strings.HasPrefix(mailer.sent[0].link, "http://localhost:3000/auth/verify?token=") {
		t.Errorf("unexpected link %q", mailer.sent[0].link)
	}
	if len(mocks.links.links) != 1 {
		t.Errorf("expected one stored link, got %d", len(mocks.links.links))
	}
	for token, link := range mocks.links.links {
		if len(token) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(token))
		}
		if got := link.ExpiresAt.Sub(time.Now()); got < 14*time.Minute || got > 15*time.Minute {
			t.Errorf("unexpected link ttl %v", got)
		}
	}
}

func TestAuthService_RequestLogin_UnknownUser(t *testing.T) {
	svc, _, mailer, _ := setupTestAuthService(testConfig())

	_, err := svc.RequestLogin(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Error("no email should be sent for unknown users")
	}
}

func TestAuthService_RequestLogin_EmailDisabledReturnsToken(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.DisableMagicLink = true
	svc, mocks, mailer, _ := setupTestAuthService(cfg)
	mocks.users.add("pat@example.com", "Pat", false)

	resp, err := svc.RequestLogin(context.Background(), "pat@example.com")
	if err != nil {
		t.Fatalf("RequestLogin: %v", err)
	}
	if resp.Token == "" || resp.LoginURL != "http://localhost:3000/auth/verify?token="+resp.Token {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(mailer.sent) != 0 {
		t.Error("email must not be sent when disabled")
	}
}

func TestAuthService_RequestLogin_SendFailure(t *testing.T) {
	svc, mocks, mailer, _ := setupTestAuthService(testConfig())
	mocks.users.add("pat@example.com", "Pat", false)
	mailer.err = errors.New("smtp down")

	_, err := svc.RequestLogin(context.Background(), "pat@example.com")
	if !errors.Is(err, ErrEmailSendFailed) {
		t.Errorf("expected ErrEmailSendFailed, got %v", err)
	}
}

// ── Verify ──

func TestAuthService_Verify_SingleUse(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService(testConfig())
	user := mocks.users.add("pat@example.com", "Pat", false)

	token, err := svc.IssueMagicLink(context.Background(), "pat@example.com")
	if err != nil {
		t.Fatalf("IssueMagicLink: %v", err)
	}

	session, got, err := svc.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, got.ID)
	}
	claims, err := svc.jwtMgr.ParseToken(session)
	if err != nil || claims.UserID != user.ID {
		t.Fatalf("session does not parse to user: %v %+v", err, claims)
	}

	if _, _, err := svc.Verify(context.Background(), token); !errors.Is(err, ErrInvalidMagicLink) {
		t.Errorf("second redemption: expected ErrInvalidMagicLink, got %v", err)
	}
}

func TestAuthService_Verify_Expired(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService(testConfig())
	mocks.users.add("pat@example.com", "Pat", false)

	token, _ := svc.IssueMagicLink(context.Background(), "pat@example.com")
	svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	if _, _, err := svc.Verify(context.Background(), token); !errors.Is(err, ErrInvalidMagicLink) {
		t.Errorf("expected ErrInvalidMagicLink, got %v", err)
	}
}

func TestAuthService_Verify_UnknownToken(t *testing.T) {
	svc, _, _, _ := setupTestAuthService(testConfig())

	if _, _, err := svc.Verify(context.Background(), "deadbeef"); !errors.Is(err, ErrInvalidMagicLink) {
		t.Errorf("expected ErrInvalidMagicLink, got %v", err)
	}
}

func TestAuthService_Verify_UserDeletedAfterIssue(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService(testConfig())
	user := mocks.users.add("pat@example.com", "Pat", false)
	token, _ := svc.IssueMagicLink(context.Background(), user.Email)
	_ = mocks.users.Delete(context.Background(), user.ID)

	if _, _, err := svc.Verify(context.Background(), token); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

// ── DevLogin ──

func TestAuthService_DevLogin(t *testing.T) {
	cfg := testConfig()
	svc, mocks, _, _ := setupTestAuthService(cfg)
	mocks.users.add("pat@example.com", "Pat", false)

	if _, _, err := svc.DevLogin(context.Background(), "pat@example.com"); !errors.Is(err, ErrDevLoginDisabled) {
		t.Fatalf("expected ErrDevLoginDisabled, got %v", err)
	}

	cfg.Auth.EnableLoginWithoutPassword = true
	session, user, err := svc.DevLogin(context.Background(), "pat@example.com")
	if err != nil {
		t.Fatalf("DevLogin: %v", err)
	}
	if session == "" || user.Name != "Pat" {
		t.Errorf("unexpected result %q %+v", session, user)
	}
}

// ── Authenticate / Logout ──

func TestAuthService_LogoutRevokesSession(t *testing.T) {
	svc, mocks, _, sessions := setupTestAuthService(testConfig())
	user := mocks.users.add("pat@example.com", "Pat", false)
	token, _ := svc.jwtMgr.GenerateSessionToken(user.ID)

	_, claims, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if ttl := sessions.revoked[claims.ID]; ttl <= 0 || ttl > 7*24*time.Hour {
		t.Errorf("unexpected blacklist ttl %v", ttl)
	}
	if _, _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestAuthService_Authenticate_BlacklistDownAllows(t *testing.T) {
	svc, mocks, _, sessions := setupTestAuthService(testConfig())
	user := mocks.users.add("pat@example.com", "Pat", false)
	token, _ := svc.jwtMgr.GenerateSessionToken(user.ID)
	sessions.err = errors.New("redis unavailable")

	got, _, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("expected fail-open, got %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("unexpected user %+v", got)
	}
}

func TestAuthService_Authenticate_MissingUser(t *testing.T) {
	svc, _, _, _ := setupTestAuthService(testConfig())
	token, _ := svc.jwtMgr.GenerateSessionToken("ghost")

	if _, _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_Authenticate_BadToken(t *testing.T) {
	svc, _, _, _ := setupTestAuthService(testConfig())

	if _, _, err := svc.Authenticate(context.Background(), "not-a-jwt"); !errors.Is(err, jwt.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAuthService_LogoutWithoutStore(t *testing.T) {
	cfg := testConfig()
	repo, _ := newMockRepository()
	svc := NewAuthService(cfg, repo, jwt.NewManager(&cfg.Auth), nil, &mockMailer{}, zap.NewNop())

	if err := svc.Logout(context.Background(), &jwt.Claims{}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestAuthService_PurgeExpiredLinks(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService(testConfig())
	_, _ = svc.IssueMagicLink(context.Background(), "a@example.com")
	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, _ = svc.IssueMagicLink(context.Background(), "b@example.com")

	n, err := svc.PurgeExpiredLinks(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpiredLinks: %v", err)
	}
	if n != 1 || len(mocks.links.links) != 1 {
		t.Errorf("expected one purged and one kept, got n=%d kept=%d", n, len(mocks.links.links))
	}
}
