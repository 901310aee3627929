package dto

import "time"

// ── google link ──

// LinkedUser the admin who linked Google.
type LinkedUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleStatusResponse body of GET /api/google/oauth/status.
type GoogleStatusResponse struct {
	Configured     bool        `json:"configured"`
	NeedsRefresh   bool        `json:"needsRefresh"`
	LinkedUser     *LinkedUser `json:"linkedUser,omitempty"`
	GoogleEmail    string      `json:"googleEmail,omitempty"`
	FolderID       string      `json:"folderId,omitempty"`
	SheetsID       *string     `json:"sheetsId,omitempty"`
	TokenExpiresAt *time.Time  `json:"tokenExpiresAt,omitempty"`
	IsActive       bool        `json:"isActive"`
}

// UpdateFolderRequest body of POST /api/google/oauth/folder.
type UpdateFolderRequest struct {
	FolderID   string  `json:"folderId"   binding:"required"`
	FolderName string  `json:"folderName"`
	SheetsID   *string `json:"sheetsId"`
}

// FolderRef id and display name of a Drive folder.
type FolderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UpdateFolderResponse body of a successful folder update.
type UpdateFolderResponse struct {
	Success bool      `json:"success"`
	Folder  FolderRef `json:"folder"`
}

// RefreshTokenResponse body of POST /api/google/oauth/refresh.
type RefreshTokenResponse struct {
	Success      bool      `json:"success"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastTestedAt time.Time `json:"lastTestedAt"`
}

// RefreshRunsResponse body of POST /api/google/admin/refresh-runs.
type RefreshRunsResponse struct {
	Success  bool   `json:"success"`
	RunCount int    `json:"runCount"`
	Message  string `json:"message"`
}
