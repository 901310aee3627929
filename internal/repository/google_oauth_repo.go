package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jhenkens/bear-valley-run-checks/internal/model"
)

// GoogleOAuthRepository stored Google links.
type GoogleOAuthRepository interface {
	// GetActive returns the first active link with its user.
	GetActive(ctx context.Context) (*model.GoogleOAuth, error)
	// GetCurrent returns the most recently updated link, active or not.
	GetCurrent(ctx context.Context) (*model.GoogleOAuth, error)
	GetByUserID(ctx context.Context, userID string) (*model.GoogleOAuth, error)
	// Upsert inserts or replaces the row for record.UserID.
	Upsert(ctx context.Context, record *model.GoogleOAuth) error
	Update(ctx context.Context, record *model.GoogleOAuth) error
	SetActive(ctx context.Context, id string, active bool) error
	DeleteByUserID(ctx context.Context, userID string) error
}

type googleOAuthRepo struct {
	db *gorm.DB
}

func NewGoogleOAuthRepo(db *gorm.DB) GoogleOAuthRepository {
	return &googleOAuthRepo{db: db}
}

func (r *googleOAuthRepo) GetActive(ctx context.Context) (*model.GoogleOAuth, error) {
	var rec model.GoogleOAuth
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("is_active = ?", true).
		Order("updated_at DESC").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *googleOAuthRepo) GetCurrent(ctx context.Context) (*model.GoogleOAuth, error) {
	var rec model.GoogleOAuth
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("is_active DESC, updated_at DESC").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *googleOAuthRepo) GetByUserID(ctx context.Context, userID string) (*model.GoogleOAuth, error) {
	var rec model.GoogleOAuth
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *googleOAuthRepo) Upsert(ctx context.Context, record *model.GoogleOAuth) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token", "refresh_token", "token_expires_at", "google_email",
				"google_drive_folder_id", "google_sheets_id", "last_tested_at",
				"is_active", "updated_at",
			}),
		}).
		Omit("User").
		Create(record).Error
}

func (r *googleOAuthRepo) Update(ctx context.Context, record *model.GoogleOAuth) error {
	return r.db.WithContext(ctx).Omit("User").Save(record).Error
}

func (r *googleOAuthRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.GoogleOAuth{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *googleOAuthRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.GoogleOAuth{}).Error
}
