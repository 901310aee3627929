package jwt

import (
	"testing"
	"time"

	"github.com/jhenkens/bear-valley-run-checks/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		SessionSecret: "test-secret-key-for-unit-testing",
		SessionTTL:    7 * 24 * time.Hour,
	})
}

func TestGenerateAndParseSessionToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateSessionToken("user-1")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("expected UserID=user-1, got %s", claims.UserID)
	}
	if claims.Issuer != issuer {
		t.Errorf("expected issuer %s, got %s", issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("jti must not be empty")
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 6*24*time.Hour || ttl > 8*24*time.Hour {
		t.Errorf("expected ~7d ttl, got %v", ttl)
	}
}

func TestNewManager_DefaultTTL(t *testing.T) {
	m := NewManager(&config.AuthConfig{SessionSecret: "x"})
	if m.SessionTTL() != 7*24*time.Hour {
		t.Errorf("expected default 7d, got %v", m.SessionTTL())
	}
}

func TestParseToken_InvalidToken(t *testing.T) {
	m := newTestManager()

	if _, err := m.ParseToken("invalid.token.string"); err != ErrTokenInvalid {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m1 := newTestManager()
	m2 := NewManager(&config.AuthConfig{SessionSecret: "another-secret-entirely"})

	token, _ := m1.GenerateSessionToken("user-1")
	if _, err := m2.ParseToken(token); err == nil {
		t.Error("token signed with another secret must not verify")
	}
}

func TestParseToken_ExpiredToken(t *testing.T) {
	m := newTestManager()
	issued := time.Now().Add(-8 * 24 * time.Hour)
	m.now = func() time.Time { return issued }

	token, _ := m.GenerateSessionToken("user-1")
	m.now = time.Now

	if _, err := m.ParseToken(token); err != ErrTokenExpired {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}
