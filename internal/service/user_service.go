package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/dto"
	"github.com/jhenkens/bear-valley-run-checks/internal/model"
	"github.com/jhenkens/bear-valley-run-checks/internal/repository"
	"github.com/jhenkens/bear-valley-run-checks/pkg/mail"
)

var (
	ErrUserExists           = errors.New("User already exists")
	ErrSuperuserAdminLocked = errors.New("Cannot modify superuser admin status")
	ErrSuperuserUndeletable = errors.New("Cannot delete superuser")
)

// ── users ──

// UserService admin user management.
type UserService interface {
	List(ctx context.Context) ([]dto.UserResponse, error)
	Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.CreateUserResponse, error)
	SetAdmin(ctx context.Context, id string, isAdmin bool) (*dto.UserResponse, error)
	Delete(ctx context.Context, id string) error
	ToResponse(user *model.User) dto.UserResponse
}

type userService struct {
	cfg    *config.Config
	repo   *repository.Repository
	auth   AuthService
	mailer mail.Sender
	logger *zap.Logger
}

// NewUserService creates a UserService.
func NewUserService(
	cfg *config.Config,
	repo *repository.Repository,
	auth AuthService,
	mailer mail.Sender,
	logger *zap.Logger,
) UserService {
	return &userService{cfg: cfg, repo: repo, auth: auth, mailer: mailer, logger: logger}
}

func (s *userService) List(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.repo.User.List(ctx)
	if err != nil {
		s.logger.Error("list users", zap.Error(err))
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, s.ToResponse(&users[i]))
	}
	return out, nil
}

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.CreateUserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)

	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("check existing user", zap.Error(err))
		return nil, err
	}

	user := &model.User{Email: email, Name: name}
	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("create user", zap.Error(err))
		return nil, err
	}
	s.logger.Info("user created", zap.String("email", email))

	resp := &dto.CreateUserResponse{User: s.ToResponse(user)}
	if s.cfg.Auth.DisableMagicLink {
		resp.Message = "User created (email disabled in dev mode)"
		return resp, nil
	}

	if err := s.sendWelcome(ctx, user); err != nil {
		s.logger.Warn("welcome email failed", zap.String("email", email), zap.Error(err))
		resp.Message = "User created (email sending failed - please check SMTP configuration)"
		return resp, nil
	}
	resp.Message = "User created and welcome email sent"
	resp.EmailSent = true
	return resp, nil
}

func (s *userService) sendWelcome(ctx context.Context, user *model.User) error {
	token, err := s.auth.IssueMagicLink(ctx, user.Email)
	if err != nil {
		return err
	}
	return s.mailer.SendWelcome(ctx, user.Email, user.Name, s.auth.MagicLinkURL(token))
}

func (s *userService) SetAdmin(ctx context.Context, id string, isAdmin bool) (*dto.UserResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cfg.IsSuperuser(user.Email) {
		return nil, ErrSuperuserAdminLocked
	}

	user.IsAdmin = isAdmin
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("update user admin", zap.Error(err))
		return nil, err
	}
	resp := s.ToResponse(user)
	return &resp, nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	user, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if s.cfg.IsSuperuser(user.Email) {
		return ErrSuperuserUndeletable
	}
	if err := s.repo.User.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("delete user", zap.Error(err))
		return err
	}
	s.logger.Info("user deleted", zap.String("email", user.Email))
	return nil
}

func (s *userService) ToResponse(user *model.User) dto.UserResponse {
	return toUserResponse(s.cfg, user)
}

func (s *userService) get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("load user", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func toUserResponse(cfg *config.Config, user *model.User) dto.UserResponse {
	superuser := cfg.IsSuperuser(user.Email)
	return dto.UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		IsAdmin:     user.IsAdmin || superuser,
		IsSuperuser: superuser,
		CreatedAt:   user.CreatedAt,
	}
}

// ── superusers ──

// SuperuserService keeps configured superusers present as admins.
type SuperuserService interface {
	Sync(ctx context.Context) error
}

type superuserService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSuperuserService creates a SuperuserService.
func NewSuperuserService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) SuperuserService {
	return &superuserService{cfg: cfg, repo: repo, logger: logger}
}

func (s *superuserService) Sync(ctx context.Context) error {
	for _, su := range s.cfg.Superusers {
		email := strings.ToLower(strings.TrimSpace(su.Email))
		if email == "" {
			continue
		}

		user, err := s.repo.User.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = &model.User{Email: email, Name: su.Name, IsAdmin: true}
			if err := s.repo.User.Create(ctx, user); err != nil {
				return err
			}
			s.logger.Info("superuser created", zap.String("email", email))
		case err != nil:
			return err
		default:
			if su.Name != "" {
				user.Name = su.Name
			}
			user.IsAdmin = true
			if err := s.repo.User.Update(ctx, user); err != nil {
				return err
			}
			s.logger.Debug("superuser synced", zap.String("email", email))
		}
	}
	return nil
}

// ── patrollers ──

// PatrollerService lists names a check can be attributed to.
type PatrollerService interface {
	List(ctx context.Context) ([]string, error)
}

type patrollerService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPatrollerService creates a PatrollerService.
func NewPatrollerService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) PatrollerService {
	return &patrollerService{cfg: cfg, repo: repo, logger: logger}
}

// List merges user names with configured patrollers, deduplicated and sorted.
func (s *patrollerService) List(ctx context.Context) ([]string, error) {
	names, err := s.repo.User.ListNames(ctx)
	if err != nil {
		s.logger.Error("list user names", zap.Error(err))
		return nil, err
	}

	seen := make(map[string]bool, len(names)+len(s.cfg.Patrollers))
	out := make([]string, 0, len(names)+len(s.cfg.Patrollers))
	for _, name := range append(names, s.cfg.Patrollers...) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
