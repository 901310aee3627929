package dto

// ── auth ──

// LoginRequest asks for a magic link.
type LoginRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// DevLoginRequest signs in directly when password-less login is enabled.
type DevLoginRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// LoginResponse Token and LoginURL are set only when magic-link email is disabled.
type LoginResponse struct {
	Message  string `json:"message"`
	Token    string `json:"token,omitempty"`
	LoginURL string `json:"loginUrl,omitempty"`
}

// DevLoginResponse body of POST /auth/dev-login.
type DevLoginResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

// MeResponse body of GET /auth/me.
type MeResponse struct {
	User UserResponse `json:"user"`
}
