package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/internal/dto"
	"github.com/jhenkens/bear-valley-run-checks/internal/service"
	"github.com/jhenkens/bear-valley-run-checks/pkg/response"
)

const (
	oauthStateCookie = "bvsp.oauth.state"
	oauthStateMaxAge = 600
	oauthCookiePath  = "/api/google/oauth"
)

// GoogleHandler admin endpoints for the Drive/Sheets link.
type GoogleHandler struct {
	googleSvc    service.GoogleService
	secureCookie bool
	logger       *zap.Logger
}

// NewGoogleHandler creates a GoogleHandler.
func NewGoogleHandler(googleSvc service.GoogleService, secureCookie bool, logger *zap.Logger) *GoogleHandler {
	return &GoogleHandler{googleSvc: googleSvc, secureCookie: secureCookie, logger: logger}
}

// Authorize redirects to Google's consent screen.
// GET /api/google/oauth/authorize
func (h *GoogleHandler) Authorize(c *gin.Context) {
	state := uuid.NewString()
	authURL, err := h.googleSvc.AuthorizeURL(state)
	if err != nil {
		if errors.Is(err, service.ErrGoogleDisabled) {
			response.NotFound(c, 14001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, oauthCookiePath, "", h.secureCookie, true)
	c.Redirect(http.StatusFound, authURL)
}

// Callback completes the OAuth flow and returns to the admin tab.
// GET /api/google/oauth/callback
func (h *GoogleHandler) Callback(c *gin.Context) {
	user, ok := MustGetUser(c)
	if !ok {
		return
	}

	expected, err := c.Cookie(oauthStateCookie)
	if err != nil || expected == "" || c.Query("state") != expected {
		c.String(http.StatusBadRequest, "Invalid state parameter")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, oauthCookiePath, "", h.secureCookie, true)

	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "Missing authorization code")
		return
	}

	if err := h.googleSvc.HandleCallback(c.Request.Context(), user.ID, code); err != nil {
		h.logger.Error("google oauth callback", zap.String("user_id", user.ID), zap.Error(err))
		c.Redirect(http.StatusFound, "/?tab=admin&oauth=error")
		return
	}
	c.Redirect(http.StatusFound, "/?tab=admin&oauth=success")
}

// UpdateFolder POST /api/google/oauth/folder
func (h *GoogleHandler) UpdateFolder(c *gin.Context) {
	user, ok := MustGetUser(c)
	if !ok {
		return
	}
	var req dto.UpdateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Folder ID is required")
		return
	}

	resp, err := h.googleSvc.UpdateFolder(c.Request.Context(), user.ID, &req)
	if err != nil {
		h.handleGoogleError(c, err, "Failed to update folder")
		return
	}
	response.OK(c, resp)
}

// Refresh forces a token refresh.
// POST /api/google/oauth/refresh
func (h *GoogleHandler) Refresh(c *gin.Context) {
	user, ok := MustGetUser(c)
	if !ok {
		return
	}
	resp, err := h.googleSvc.ManualRefresh(c.Request.Context(), user.ID)
	if err != nil {
		h.handleGoogleError(c, err, "Failed to refresh token")
		return
	}
	response.OK(c, resp)
}

// Status GET /api/google/oauth/status
func (h *GoogleHandler) Status(c *gin.Context) {
	resp, err := h.googleSvc.Status(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 14002, "Failed to check OAuth status")
		return
	}
	response.OK(c, resp)
}

// Disconnect removes the caller's link.
// DELETE /api/google/oauth/disconnect
func (h *GoogleHandler) Disconnect(c *gin.Context) {
	user, ok := MustGetUser(c)
	if !ok {
		return
	}
	if err := h.googleSvc.Disconnect(c.Request.Context(), user.ID); err != nil {
		response.Error(c, http.StatusInternalServerError, 14003, "Failed to disconnect OAuth")
		return
	}
	response.OK(c, dto.SuccessResponse{Success: true})
}

// MarkInactive flags the active link inactive to exercise recovery.
// POST /api/google/oauth/test-mark-inactive
func (h *GoogleHandler) MarkInactive(c *gin.Context) {
	if err := h.googleSvc.MarkInactive(c.Request.Context()); err != nil {
		h.handleGoogleError(c, err, "Failed to mark OAuth inactive")
		return
	}
	response.OK(c, dto.SuccessResponse{
		Success: true,
		Message: "OAuth marked as inactive for testing. Next successful API call will reactivate it.",
	})
}

func (h *GoogleHandler) handleGoogleError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrOAuthNotConfigured), errors.Is(err, service.ErrNoActiveOAuth):
		response.NotFound(c, 14004, err.Error())
	case errors.Is(err, service.ErrTokenRefreshFailed):
		response.Error(c, http.StatusBadGateway, 14005, fallback)
	default:
		h.logger.Error(fallback, zap.Error(err))
		response.Error(c, http.StatusInternalServerError, 14006, fallback)
	}
}
