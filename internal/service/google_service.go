package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
	"gorm.io/gorm"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/dto"
	"github.com/jhenkens/bear-valley-run-checks/internal/model"
	"github.com/jhenkens/bear-valley-run-checks/internal/repository"
	"github.com/jhenkens/bear-valley-run-checks/internal/scheduler"
	"github.com/jhenkens/bear-valley-run-checks/internal/sheets"
	"github.com/jhenkens/bear-valley-run-checks/pkg/metrics"
)

var (
	ErrGoogleDisabled     = errors.New("Google OAuth is not configured on this server")
	ErrOAuthNotConfigured = errors.New("OAuth not configured")
	ErrNoActiveOAuth      = errors.New("No active OAuth configuration found")
	ErrMissingTokens      = errors.New("Google did not return the required tokens")
	ErrTokenRefreshFailed = errors.New("Failed to refresh Google token")
)

const (
	refreshWindow      = 5 * time.Minute
	refreshLead        = 10 * time.Minute
	refreshRetry       = 5 * time.Minute
	startupValidation  = 10 * time.Second
	defaultTokenExpiry = time.Hour
	callbackPath       = "/api/google/oauth/callback"
)

// GoogleService owns the admin's Drive/Sheets link. It is also the
// sheets.ClientFactory the external store and run catalog draw sessions from.
type GoogleService interface {
	sheets.ClientFactory

	Enabled() bool
	AuthorizeURL(state string) (string, error)
	HandleCallback(ctx context.Context, userID, code string) error
	Status(ctx context.Context) (*dto.GoogleStatusResponse, error)
	UpdateFolder(ctx context.Context, userID string, req *dto.UpdateFolderRequest) (*dto.UpdateFolderResponse, error)
	ManualRefresh(ctx context.Context, userID string) (*dto.RefreshTokenResponse, error)
	Disconnect(ctx context.Context, userID string) error
	MarkInactive(ctx context.Context) error
	// Validate refreshes the active link if needed and tests it with a live call.
	Validate(ctx context.Context) error
	StartRefreshScheduler()
	Stop()
}

// APIBuilder turns a token source into a Google API client.
type APIBuilder func(ctx context.Context, ts oauth2.TokenSource) (sheets.API, error)

type googleService struct {
	cfg     *config.Config
	repo    *repository.Repository
	oauth   *oauth2.Config
	metrics *metrics.Metrics
	logger  *zap.Logger

	newAPI   APIBuilder
	exchange func(ctx context.Context, code string) (*oauth2.Token, error)
	refresh  func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	now      func() time.Time

	task *scheduler.Task
	mu   sync.Mutex // serializes token refreshes
}

// NewGoogleService creates a GoogleService. It is inert when no client ID is configured.
func NewGoogleService(
	cfg *config.Config,
	repo *repository.Repository,
	m *metrics.Metrics,
	logger *zap.Logger,
) GoogleService {
	oc := &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  strings.TrimRight(cfg.Server.AppURL, "/") + callbackPath,
		Scopes:       []string{drive.DriveFileScope, oauth2api.UserinfoEmailScope},
		Endpoint:     google.Endpoint,
	}
	s := &googleService{
		cfg:     cfg,
		repo:    repo,
		oauth:   oc,
		metrics: m,
		logger:  logger,
		now:     time.Now,
		task:    scheduler.NewTask(),
	}
	s.newAPI = func(ctx context.Context, ts oauth2.TokenSource) (sheets.API, error) {
		return sheets.NewClient(ctx, ts)
	}
	s.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
		return oc.Exchange(ctx, code)
	}
	s.refresh = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		return oc.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	}
	return s
}

func (s *googleService) Enabled() bool {
	return s.cfg.Google.ClientID != ""
}

func (s *googleService) AuthorizeURL(state string) (string, error) {
	if !s.Enabled() {
		return "", ErrGoogleDisabled
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// ── link lifecycle ──

func (s *googleService) HandleCallback(ctx context.Context, userID, code string) error {
	if !s.Enabled() {
		return ErrGoogleDisabled
	}
	tok, err := s.exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange oauth code: %w", err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return ErrMissingTokens
	}

	api, err := s.newAPI(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return err
	}
	email, err := api.UserEmail(ctx)
	if err != nil {
		return fmt.Errorf("fetch google email: %w", err)
	}
	folderID, runNamesID, err := sheets.Provision(ctx, api, s.cfg.Google.FolderName, s.logger)
	if err != nil {
		return fmt.Errorf("provision drive folder: %w", err)
	}

	now := s.now()
	rec := &model.GoogleOAuth{
		UserID:         userID,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenExpiresAt: s.expiry(tok),
		GoogleEmail:    email,
		DriveFolderID:  folderID,
		SheetsID:       &runNamesID,
		LastTestedAt:   &now,
		IsActive:       true,
	}
	if err := s.repo.GoogleOAuth.Upsert(ctx, rec); err != nil {
		s.logger.Error("save google oauth", zap.Error(err))
		return err
	}
	s.logger.Info("google drive linked",
		zap.String("user_id", userID),
		zap.String("google_email", email),
		zap.String("folder_id", folderID),
	)
	s.scheduleNext(ctx)
	return nil
}

func (s *googleService) Status(ctx context.Context) (*dto.GoogleStatusResponse, error) {
	rec, err := s.repo.GoogleOAuth.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.GoogleStatusResponse{}, nil
		}
		return nil, err
	}

	expires := rec.TokenExpiresAt
	resp := &dto.GoogleStatusResponse{
		Configured:     true,
		NeedsRefresh:   s.needsRefresh(rec),
		GoogleEmail:    rec.GoogleEmail,
		FolderID:       rec.DriveFolderID,
		SheetsID:       rec.SheetsID,
		TokenExpiresAt: &expires,
		IsActive:       rec.IsActive,
	}
	if rec.User != nil {
		resp.LinkedUser = &dto.LinkedUser{Email: rec.User.Email, Name: rec.User.Name}
	}
	return resp, nil
}

func (s *googleService) UpdateFolder(ctx context.Context, userID string, req *dto.UpdateFolderRequest) (*dto.UpdateFolderResponse, error) {
	rec, err := s.byUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec.DriveFolderID = strings.TrimSpace(req.FolderID)
	if req.SheetsID != nil {
		rec.SheetsID = req.SheetsID
	}
	if err := s.repo.GoogleOAuth.Update(ctx, rec); err != nil {
		s.logger.Error("update google folder", zap.Error(err))
		return nil, err
	}

	name := req.FolderName
	if name == "" {
		name = s.cfg.Google.FolderName
	}
	return &dto.UpdateFolderResponse{
		Success: true,
		Folder:  dto.FolderRef{ID: rec.DriveFolderID, Name: name},
	}, nil
}

func (s *googleService) ManualRefresh(ctx context.Context, userID string) (*dto.RefreshTokenResponse, error) {
	rec, err := s.byUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.refreshToken(ctx, rec); err != nil {
		return nil, err
	}
	s.scheduleNext(ctx)
	return &dto.RefreshTokenResponse{
		Success:      true,
		ExpiresAt:    rec.TokenExpiresAt,
		LastTestedAt: *rec.LastTestedAt,
	}, nil
}

func (s *googleService) Disconnect(ctx context.Context, userID string) error {
	if err := s.repo.GoogleOAuth.DeleteByUserID(ctx, userID); err != nil {
		s.logger.Error("delete google oauth", zap.Error(err))
		return err
	}
	s.logger.Info("google drive disconnected", zap.String("user_id", userID))
	s.scheduleNext(ctx)
	return nil
}

func (s *googleService) MarkInactive(ctx context.Context) error {
	rec, err := s.repo.GoogleOAuth.GetActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoActiveOAuth
		}
		return err
	}
	return s.repo.GoogleOAuth.SetActive(ctx, rec.ID, false)
}

// ── sessions ──

// Session returns an API handle for the current link. Success reactivates an
// inactive link; failure deactivates it.
func (s *googleService) Session(ctx context.Context) (*sheets.Session, error) {
	rec, err := s.repo.GoogleOAuth.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sheets.ErrNotConfigured
		}
		return nil, err
	}

	api, err := s.apiFor(ctx, rec)
	if err != nil {
		s.setActive(ctx, rec, false)
		return nil, err
	}
	s.setActive(ctx, rec, true)

	sess := &sheets.Session{API: api, FolderID: rec.DriveFolderID}
	if rec.SheetsID != nil {
		sess.RunNamesID = *rec.SheetsID
	}
	return sess, nil
}

func (s *googleService) Validate(ctx context.Context) error {
	rec, err := s.repo.GoogleOAuth.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	api, err := s.apiFor(ctx, rec)
	if err == nil {
		_, err = api.UserEmail(ctx)
	}
	if err != nil {
		s.logger.Warn("google link failed validation", zap.String("google_email", rec.GoogleEmail), zap.Error(err))
		s.setActive(ctx, rec, false)
		return err
	}

	now := s.now()
	rec.LastTestedAt = &now
	rec.IsActive = true
	if err := s.repo.GoogleOAuth.Update(ctx, rec); err != nil {
		return err
	}
	s.logger.Debug("google link validated", zap.String("google_email", rec.GoogleEmail))
	return nil
}

func (s *googleService) apiFor(ctx context.Context, rec *model.GoogleOAuth) (sheets.API, error) {
	if s.needsRefresh(rec) {
		if err := s.refreshToken(ctx, rec); err != nil {
			return nil, err
		}
	}
	tok := &oauth2.Token{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		Expiry:       rec.TokenExpiresAt,
		TokenType:    "Bearer",
	}
	return s.newAPI(ctx, oauth2.StaticTokenSource(tok))
}

func (s *googleService) needsRefresh(rec *model.GoogleOAuth) bool {
	return !rec.TokenExpiresAt.After(s.now().Add(refreshWindow))
}

// refreshToken exchanges the refresh token and persists the new access token.
func (s *googleService) refreshToken(ctx context.Context, rec *model.GoogleOAuth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.refresh(ctx, rec.RefreshToken)
	if err != nil {
		s.metrics.StoreFailure("token_refresh")
		s.logger.Warn("google token refresh failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrTokenRefreshFailed, err)
	}

	now := s.now()
	rec.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		rec.RefreshToken = tok.RefreshToken
	}
	rec.TokenExpiresAt = s.expiry(tok)
	rec.LastTestedAt = &now
	rec.IsActive = true
	if err := s.repo.GoogleOAuth.Update(ctx, rec); err != nil {
		s.logger.Error("persist refreshed token", zap.Error(err))
		return err
	}
	s.logger.Info("google token refreshed", zap.Time("expires_at", rec.TokenExpiresAt))
	return nil
}

func (s *googleService) expiry(tok *oauth2.Token) time.Time {
	if tok.Expiry.IsZero() {
		return s.now().Add(defaultTokenExpiry)
	}
	return tok.Expiry
}

func (s *googleService) setActive(ctx context.Context, rec *model.GoogleOAuth, active bool) {
	if rec.IsActive == active {
		return
	}
	if err := s.repo.GoogleOAuth.SetActive(ctx, rec.ID, active); err != nil {
		s.logger.Warn("update google link state", zap.Bool("active", active), zap.Error(err))
		return
	}
	rec.IsActive = active
	s.logger.Info("google link state changed", zap.Bool("active", active))
}

func (s *googleService) byUser(ctx context.Context, userID string) (*model.GoogleOAuth, error) {
	rec, err := s.repo.GoogleOAuth.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOAuthNotConfigured
		}
		return nil, err
	}
	return rec, nil
}

// ── refresh scheduler ──

// StartRefreshScheduler validates the link shortly after boot, then keeps the
// token fresh ahead of expiry.
func (s *googleService) StartRefreshScheduler() {
	if !s.Enabled() {
		return
	}
	s.task.Schedule(startupValidation, s.fire)
}

func (s *googleService) Stop() {
	s.task.Stop()
}

func (s *googleService) fire(ctx context.Context) {
	if err := s.Validate(ctx); err != nil {
		// Expiry is unchanged after a failure; retry on a fixed delay.
		s.task.Schedule(refreshRetry, s.fire)
		return
	}
	s.scheduleNext(ctx)
}

// scheduleNext arms the timer for refreshLead before the current token expires.
func (s *googleService) scheduleNext(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	rec, err := s.repo.GoogleOAuth.GetCurrent(ctx)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.task.Cancel()
		return
	case err != nil:
		s.logger.Warn("schedule token refresh", zap.Error(err))
		s.task.Schedule(refreshRetry, s.fire)
		return
	}

	wait := rec.TokenExpiresAt.Add(-refreshLead).Sub(s.now())
	if wait < 0 {
		wait = 0
	}
	s.logger.Debug("token refresh scheduled", zap.Duration("in", wait))
	s.task.Schedule(wait, s.fire)
}
