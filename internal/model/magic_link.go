package model

import "time"

// MagicLink is a single-use login token. Table magic_links.
type MagicLink struct {
	Token     string    `gorm:"type:varchar(64);primaryKey"  json:"-"`
	Email     string    `gorm:"type:varchar(255);not null;index" json:"email"`
	ExpiresAt time.Time `gorm:"not null"                     json:"expiresAt"`
	Used      bool      `gorm:"not null;default:false"       json:"used"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName table name.
func (MagicLink) TableName() string { return "magic_links" }

// Usable reports whether the link can still be redeemed at now.
func (m *MagicLink) Usable(now time.Time) bool {
	return !m.Used && now.Before(m.ExpiresAt)
}
