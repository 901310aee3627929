package model

import "time"

// GoogleOAuth holds the Drive/Sheets link an admin created. Table google_oauth.
// At most one row per user; the active row backs the external store.
type GoogleOAuth struct {
	ID             string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         string     `gorm:"type:uuid;not null;uniqueIndex"                  json:"userId"`
	AccessToken    string     `gorm:"type:text;not null"                              json:"-"`
	RefreshToken   string     `gorm:"type:text;not null"                              json:"-"`
	TokenExpiresAt time.Time  `gorm:"not null"                                        json:"tokenExpiresAt"`
	GoogleEmail    string     `gorm:"type:varchar(255);not null;default:''"           json:"googleEmail"`
	DriveFolderID  string     `gorm:"column:google_drive_folder_id;type:varchar(255)" json:"folderId"`
	SheetsID       *string    `gorm:"column:google_sheets_id;type:varchar(255)"       json:"sheetsId,omitempty"`
	LastTestedAt   *time.Time `json:"lastTestedAt,omitempty"`
	IsActive       bool       `gorm:"not null;default:true"                           json:"isActive"`
	BaseModel

	User *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName table name.
func (GoogleOAuth) TableName() string { return "google_oauth" }
