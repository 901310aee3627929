package model

// User is a person allowed to sign in. Table users.
type User struct {
	ID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email   string `gorm:"type:varchar(255);not null;uniqueIndex"          json:"email"`
	Name    string `gorm:"type:varchar(100);not null"                      json:"name"`
	IsAdmin bool   `gorm:"not null;default:false"                          json:"isAdmin"`
	BaseModel
}

// TableName table name.
func (User) TableName() string { return "users" }
