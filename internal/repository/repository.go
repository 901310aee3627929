package repository

import "gorm.io/gorm"

// Repository aggregates every repository.
type Repository struct {
	User        UserRepository
	MagicLink   MagicLinkRepository
	GoogleOAuth GoogleOAuthRepository
}

// NewRepository builds the gorm-backed repositories.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:        NewUserRepo(db),
		MagicLink:   NewMagicLinkRepo(db),
		GoogleOAuth: NewGoogleOAuthRepo(db),
	}
}
