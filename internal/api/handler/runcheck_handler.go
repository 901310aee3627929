package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/jhenkens/bear-valley-run-checks/internal/dto"
	"github.com/jhenkens/bear-valley-run-checks/internal/service"
	apperrors "github.com/jhenkens/bear-valley-run-checks/pkg/errors"
	"github.com/jhenkens/bear-valley-run-checks/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RunCheckHandler runs, checks and the staleness board.
type RunCheckHandler struct {
	runCheckSvc service.RunCheckService
	exportSvc   service.ExportService
}

// NewRunCheckHandler creates a RunCheckHandler.
func NewRunCheckHandler(runCheckSvc service.RunCheckService, exportSvc service.ExportService) *RunCheckHandler {
	return &RunCheckHandler{runCheckSvc: runCheckSvc, exportSvc: exportSvc}
}

// ListRuns GET /api/runs
func (h *RunCheckHandler) ListRuns(c *gin.Context) {
	response.OK(c, dto.RunsResponse{Runs: h.runCheckSvc.Runs()})
}

// ListToday GET /api/runchecks/today
func (h *RunCheckHandler) ListToday(c *gin.Context) {
	response.OK(c, dto.ChecksResponse{Checks: h.runCheckSvc.Today()})
}

// Status runs, today's checks, patrollers and banners in one call.
// GET /api/run_status
func (h *RunCheckHandler) Status(c *gin.Context) {
	resp, err := h.runCheckSvc.Status(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, resp)
}

// Board GET /api/run_status/board
func (h *RunCheckHandler) Board(c *gin.Context) {
	response.OK(c, h.runCheckSvc.Board())
}

// Submit records a batch of checks.
// POST /api/runchecks
func (h *RunCheckHandler) Submit(c *gin.Context) {
	var req dto.SubmitRunChecksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "Checks array is required")
		return
	}

	resp, err := h.runCheckSvc.Submit(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			response.BadRequest(c, 13002, apperrors.Message(err))
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, resp)
}

// Export downloads today's checks as xlsx.
// GET /api/runchecks/export
func (h *RunCheckHandler) Export(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportToday(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExportNoChecks):
			response.NotFound(c, 15001, err.Error())
		default:
			response.InternalError(c)
		}
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// RefreshRuns reloads the catalog from the Run Names spreadsheet.
// POST /api/google/admin/refresh-runs
func (h *RunCheckHandler) RefreshRuns(c *gin.Context) {
	n, err := h.runCheckSvc.RefreshRuns(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrRefreshUnsupported) {
			response.BadRequest(c, 13003, err.Error())
			return
		}
		response.Error(c, http.StatusBadGateway, 13004, "Failed to refresh runs: "+err.Error())
		return
	}
	response.OK(c, dto.RefreshRunsResponse{
		Success:  true,
		RunCount: n,
		Message:  "Runs refreshed from Google Sheets",
	})
}
