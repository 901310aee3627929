package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jhenkens/bear-valley-run-checks/internal/model"
)

// MagicLinkRepository login token storage.
type MagicLinkRepository interface {
	Create(ctx context.Context, link *model.MagicLink) error
	GetByToken(ctx context.Context, token string) (*model.MagicLink, error)
	// MarkUsed flips used from false to true and reports whether this call did it.
	MarkUsed(ctx context.Context, token string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type magicLinkRepo struct {
	db *gorm.DB
}

func NewMagicLinkRepo(db *gorm.DB) MagicLinkRepository {
	return &magicLinkRepo{db: db}
}

func (r *magicLinkRepo) Create(ctx context.Context, link *model.MagicLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *magicLinkRepo) GetByToken(ctx context.Context, token string) (*model.MagicLink, error) {
	var link model.MagicLink
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *magicLinkRepo) MarkUsed(ctx context.Context, token string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.MagicLink{}).
		Where("token = ? AND used = ?", token, false).
		Update("used", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *magicLinkRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? OR used = ?", before, true).
		Delete(&model.MagicLink{})
	return result.RowsAffected, result.Error
}
