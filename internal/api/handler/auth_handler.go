package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/dto"
	"github.com/jhenkens/bear-valley-run-checks/internal/service"
	"github.com/jhenkens/bear-valley-run-checks/pkg/response"
)

// AuthHandler magic-link login endpoints under /auth.
type AuthHandler struct {
	authSvc service.AuthService
	userSvc service.UserService
	cfg     *config.AuthConfig
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc service.AuthService, userSvc service.UserService, cfg *config.AuthConfig) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, userSvc: userSvc, cfg: cfg}
}

// Login sends (or, with email disabled, returns) a magic link.
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Email is required")
		return
	}

	resp, err := h.authSvc.RequestLogin(c.Request.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, 11001, "User not found")
		case errors.Is(err, service.ErrEmailSendFailed):
			response.Error(c, http.StatusInternalServerError, 11002, err.Error())
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, resp)
}

// Verify redeems a magic link, sets the session cookie and redirects home.
// GET /auth/verify?token=
func (h *AuthHandler) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, 10001, "Token is required")
		return
	}

	session, _, err := h.authSvc.Verify(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMagicLink), errors.Is(err, service.ErrUserNotFound):
			response.Unauthorized(c, 11003, "Invalid or expired token")
		default:
			response.InternalError(c)
		}
		return
	}

	h.setSessionCookie(c, session)
	c.Redirect(http.StatusFound, "/")
}

// DevLogin signs in without email when enabled in config.
// POST /auth/dev-login
func (h *AuthHandler) DevLogin(c *gin.Context) {
	var req dto.DevLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Email is required")
		return
	}

	session, user, err := h.authSvc.DevLogin(c.Request.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDevLoginDisabled):
			response.NotFound(c, 11004, "Not found")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, 11001, "User not found")
		default:
			response.InternalError(c)
		}
		return
	}

	h.setSessionCookie(c, session)
	response.OK(c, dto.DevLoginResponse{
		Message: "Logged in successfully (DEV MODE)",
		User:    h.userSvc.ToResponse(user),
	})
}

// Logout revokes the session if one is presented and clears the cookie.
// GET /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cfg.Cookie.Name); err == nil && token != "" {
		if _, claims, err := h.authSvc.Authenticate(c.Request.Context(), token); err == nil {
			_ = h.authSvc.Logout(c.Request.Context(), claims)
		}
	}
	h.clearSessionCookie(c)
	response.Message(c, "Logged out successfully")
}

// Me returns the signed-in user.
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := MustGetUser(c)
	if !ok {
		return
	}
	response.OK(c, dto.MeResponse{User: h.userSvc.ToResponse(user)})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	maxAge := int(h.cfg.SessionTTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Cookie.Name, token, maxAge, "/", h.cfg.Cookie.Domain, h.cfg.Cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Cookie.Name, "", -1, "/", h.cfg.Cookie.Domain, h.cfg.Cookie.Secure, true)
}
