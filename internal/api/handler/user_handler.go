package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jhenkens/bear-valley-run-checks/internal/dto"
	"github.com/jhenkens/bear-valley-run-checks/internal/service"
	"github.com/jhenkens/bear-valley-run-checks/pkg/response"
)

// UserHandler admin user management and the patroller list.
type UserHandler struct {
	userSvc      service.UserService
	patrollerSvc service.PatrollerService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(userSvc service.UserService, patrollerSvc service.PatrollerService) *UserHandler {
	return &UserHandler{userSvc: userSvc, patrollerSvc: patrollerSvc}
}

// ListUsers all users ordered by name.
// GET /api/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, dto.UserListResponse{Users: users})
}

// CreateUser adds a user and emails a welcome link.
// POST /api/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Email and name are required")
		return
	}

	resp, err := h.userSvc.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			response.Conflict(c, 12001, "User already exists")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, resp)
}

// UpdateAdmin grants or revokes admin.
// PATCH /api/users/:id/admin
func (h *UserHandler) UpdateAdmin(c *gin.Context) {
	var req dto.UpdateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsAdmin == nil {
		response.BadRequest(c, 10001, "isAdmin must be a boolean")
		return
	}

	user, err := h.userSvc.SetAdmin(c.Request.Context(), c.Param("id"), *req.IsAdmin)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, dto.UserEnvelope{User: *user})
}

// DeleteUser removes a user.
// DELETE /api/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleUserError(c, err)
		return
	}
	response.Message(c, "User deleted successfully")
}

// ListPatrollers names a check can be attributed to.
// GET /api/patrollers
func (h *UserHandler) ListPatrollers(c *gin.Context) {
	names, err := h.patrollerSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, dto.PatrollersResponse{Patrollers: names})
}

func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12002, "User not found")
	case errors.Is(err, service.ErrSuperuserAdminLocked):
		response.Forbidden(c, 12003, err.Error())
	case errors.Is(err, service.ErrSuperuserUndeletable):
		response.Forbidden(c, 12004, err.Error())
	default:
		response.InternalError(c)
	}
}
