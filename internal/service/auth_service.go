package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/dto"
	"github.com/jhenkens/bear-valley-run-checks/internal/model"
	"github.com/jhenkens/bear-valley-run-checks/internal/repository"
	"github.com/jhenkens/bear-valley-run-checks/pkg/jwt"
	"github.com/jhenkens/bear-valley-run-checks/pkg/mail"
)

var (
	ErrUserNotFound     = errors.New("User not found")
	ErrInvalidMagicLink = errors.New("Invalid or expired token")
	ErrEmailSendFailed  = errors.New("Failed to send email. Please contact an administrator.")
	ErrDevLoginDisabled = errors.New("Dev login is disabled")
	ErrSessionRevoked   = errors.New("Session has been revoked")
)

const magicLinkTokenBytes = 32

// AuthService magic-link login and session handling.
type AuthService interface {
	RequestLogin(ctx context.Context, email string) (*dto.LoginResponse, error)
	// Verify redeems a magic link and returns a signed session token.
	Verify(ctx context.Context, token string) (string, *model.User, error)
	DevLogin(ctx context.Context, email string) (string, *model.User, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
	// Authenticate resolves a session token to its user.
	Authenticate(ctx context.Context, token string) (*model.User, *jwt.Claims, error)
	IssueMagicLink(ctx context.Context, email string) (string, error)
	MagicLinkURL(token string) string
	PurgeExpiredLinks(ctx context.Context) (int64, error)
}

type authService struct {
	cfg      *config.Config
	repo     *repository.Repository
	jwtMgr   *jwt.Manager
	sessions SessionStore
	mailer   mail.Sender
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	sessions SessionStore,
	mailer mail.Sender,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:      cfg,
		repo:     repo,
		jwtMgr:   jwtMgr,
		sessions: sessions,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *authService) RequestLogin(ctx context.Context, email string) (*dto.LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.findUser(ctx, email); err != nil {
		return nil, err
	}

	token, err := s.IssueMagicLink(ctx, email)
	if err != nil {
		return nil, err
	}
	link := s.MagicLinkURL(token)

	if s.cfg.Auth.DisableMagicLink {
		return &dto.LoginResponse{
			Message:  "Magic link generated (email disabled in dev mode)",
			Token:    token,
			LoginURL: link,
		}, nil
	}

	if err := s.mailer.SendMagicLink(ctx, email, link); err != nil {
		s.logger.Error("send magic link", zap.String("email", email), zap.Error(err))
		return nil, ErrEmailSendFailed
	}
	return &dto.LoginResponse{Message: "Magic link sent to your email"}, nil
}

func (s *authService) Verify(ctx context.Context, token string) (string, *model.User, error) {
	link, err := s.repo.MagicLink.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidMagicLink
		}
		s.logger.Error("load magic link", zap.Error(err))
		return "", nil, err
	}
	if !link.Usable(s.now()) {
		return "", nil, ErrInvalidMagicLink
	}

	// Two concurrent redemptions race here; only one row update wins.
	ok, err := s.repo.MagicLink.MarkUsed(ctx, token)
	if err != nil {
		s.logger.Error("mark magic link used", zap.Error(err))
		return "", nil, err
	}
	if !ok {
		return "", nil, ErrInvalidMagicLink
	}

	user, err := s.findUser(ctx, link.Email)
	if err != nil {
		return "", nil, err
	}
	session, err := s.jwtMgr.GenerateSessionToken(user.ID)
	if err != nil {
		s.logger.Error("sign session", zap.Error(err))
		return "", nil, err
	}
	return session, user, nil
}

func (s *authService) DevLogin(ctx context.Context, email string) (string, *model.User, error) {
	if !s.cfg.Auth.EnableLoginWithoutPassword {
		return "", nil, ErrDevLoginDisabled
	}
	user, err := s.findUser(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, err
	}
	session, err := s.jwtMgr.GenerateSessionToken(user.ID)
	if err != nil {
		s.logger.Error("sign session", zap.Error(err))
		return "", nil, err
	}
	s.logger.Warn("dev login used", zap.String("email", user.Email))
	return session, user, nil
}

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.sessions == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := s.jwtMgr.SessionTTL()
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.sessions.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Warn("revoke session", zap.String("jti", claims.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, *jwt.Claims, error) {
	claims, err := s.jwtMgr.ParseToken(token)
	if err != nil {
		return nil, nil, err
	}

	if s.sessions != nil {
		revoked, err := s.sessions.IsBlacklisted(ctx, claims.ID)
		switch {
		case err != nil:
			s.logger.Warn("session blacklist unavailable", zap.Error(err))
		case revoked:
			return nil, nil, ErrSessionRevoked
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		s.logger.Error("load session user", zap.Error(err))
		return nil, nil, err
	}
	return user, claims, nil
}

func (s *authService) IssueMagicLink(ctx context.Context, email string) (string, error) {
	token, err := newMagicLinkToken()
	if err != nil {
		return "", err
	}
	ttl := s.cfg.Auth.MagicLinkTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	link := &model.MagicLink{
		Token:     token,
		Email:     strings.ToLower(email),
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.repo.MagicLink.Create(ctx, link); err != nil {
		s.logger.Error("store magic link", zap.Error(err))
		return "", err
	}
	return token, nil
}

func (s *authService) MagicLinkURL(token string) string {
	base := strings.TrimRight(s.cfg.Server.AppURL, "/")
	return base + "/auth/verify?token=" + url.QueryEscape(token)
}

func (s *authService) PurgeExpiredLinks(ctx context.Context) (int64, error) {
	n, err := s.repo.MagicLink.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Warn("purge magic links", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.logger.Info("purged magic links", zap.Int64("count", n))
	}
	return n, nil
}

func (s *authService) findUser(ctx context.Context, email string) (*model.User, error) {
	user, err := s.repo.User.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("load user by email", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func newMagicLinkToken() (string, error) {
	b := make([]byte, magicLinkTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate magic link token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
