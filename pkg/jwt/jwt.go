package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jhenkens/bear-valley-run-checks/config"
)

var (
	ErrTokenExpired = errors.New("session expired")
	ErrTokenInvalid = errors.New("session invalid")
)

const issuer = "bvsp-runchecks"

// Claims session token claims. The subject is the user ID.
type Claims struct {
	UserID string `json:"user_id"`
	jwtv5.RegisteredClaims
}

// Manager signs and parses session tokens.
type Manager struct {
	secret     []byte
	sessionTTL time.Duration
	now        func() time.Time
}

// NewManager creates a Manager from auth config.
func NewManager(cfg *config.AuthConfig) *Manager {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{
		secret:     []byte(cfg.SessionSecret),
		sessionTTL: ttl,
		now:        time.Now,
	}
}

// SessionTTL is how long an issued session stays valid.
func (m *Manager) SessionTTL() time.Duration { return m.sessionTTL }

// GenerateSessionToken issues a signed session for userID.
func (m *Manager) GenerateSessionToken(userID string) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.sessionTTL)),
			Issuer:    issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken verifies a session token.
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithIssuer(issuer), jwtv5.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
