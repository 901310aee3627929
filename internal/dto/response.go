package dto

import "time"

// UserResponse is a user as the frontend sees it. IsAdmin includes superusers.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	IsAdmin     bool      `json:"isAdmin"`
	IsSuperuser bool      `json:"isSuperuser"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Notification is a banner shown above the run board.
type Notification struct {
	Type    string `json:"type"` // warning | info
	Message string `json:"message"`
}

// SuccessResponse {"success": true, "message": ...}.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
