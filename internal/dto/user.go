package dto

// ── users ──

// CreateUserRequest body of POST /api/users.
type CreateUserRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"  binding:"required,min=1,max=100"`
}

// UpdateAdminRequest body of PATCH /api/users/:id/admin.
type UpdateAdminRequest struct {
	IsAdmin *bool `json:"isAdmin" binding:"required"`
}

// UserListResponse body of GET /api/users.
type UserListResponse struct {
	Users []UserResponse `json:"users"`
}

// CreateUserResponse reports whether the welcome email went out.
type CreateUserResponse struct {
	User      UserResponse `json:"user"`
	Message   string       `json:"message"`
	EmailSent bool         `json:"emailSent"`
}

// UserEnvelope {"user": ...}.
type UserEnvelope struct {
	User UserResponse `json:"user"`
}

// PatrollersResponse body of GET /api/patrollers.
type PatrollersResponse struct {
	Patrollers []string `json:"patrollers"`
}
