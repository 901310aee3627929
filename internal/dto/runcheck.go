package dto

import (
	"github.com/jhenkens/bear-valley-run-checks/internal/model"
)

// ── run checks ──

// RunCheckDTO carries times as epoch seconds.
type RunCheckDTO struct {
	ID        string `json:"id"`
	RunName   string `json:"runName"`
	Section   string `json:"section"`
	Patroller string `json:"patroller"`
	CheckTime int64  `json:"checkTime"`
	CreatedAt int64  `json:"createdAt"`
}

// NewRunCheckDTO converts a model check.
func NewRunCheckDTO(c model.RunCheck) RunCheckDTO {
	return RunCheckDTO{
		ID:        c.ID,
		RunName:   c.RunName,
		Section:   c.Section,
		Patroller: c.Patroller,
		CheckTime: c.CheckTime.Unix(),
		CreatedAt: c.CreatedAt.Unix(),
	}
}

// NewRunCheckDTOs converts a slice, never returning nil.
func NewRunCheckDTOs(checks []model.RunCheck) []RunCheckDTO {
	out := make([]RunCheckDTO, 0, len(checks))
	for _, c := range checks {
		out = append(out, NewRunCheckDTO(c))
	}
	return out
}

// SubmitRunCheckItem one entry of a submission. CheckTime is epoch seconds.
type SubmitRunCheckItem struct {
	RunName   string `json:"runName"`
	Section   string `json:"section"`
	Patroller string `json:"patroller"`
	CheckTime *int64 `json:"checkTime"`
}

// SubmitRunChecksRequest body of POST /api/runchecks.
type SubmitRunChecksRequest struct {
	Checks []SubmitRunCheckItem `json:"checks"`
}

// SubmitRunChecksResponse googleDriveSaved is false if any check missed the store.
type SubmitRunChecksResponse struct {
	Checks           []RunCheckDTO `json:"checks"`
	GoogleDriveSaved bool          `json:"googleDriveSaved"`
}

// RunCheckEvent payload of the runcheck:new event.
type RunCheckEvent struct {
	Checks []RunCheckDTO `json:"checks"`
}

// RunsResponse body of GET /api/runs.
type RunsResponse struct {
	Runs []model.Run `json:"runs"`
}

// ChecksResponse body of GET /api/runchecks/today.
type ChecksResponse struct {
	Checks []RunCheckDTO `json:"checks"`
}

// RunStatusResponse body of GET /api/run_status.
type RunStatusResponse struct {
	Runs          []model.Run    `json:"runs"`
	Checks        []RunCheckDTO  `json:"checks"`
	Patrollers    []string       `json:"patrollers"`
	Timezone      string         `json:"timezone"`
	Notifications []Notification `json:"notifications"`
}

// ── board ──

// BoardRun one run with its staleness.
type BoardRun struct {
	Name              string       `json:"name"`
	Section           string       `json:"section"`
	Tier              string       `json:"tier"`
	Color             string       `json:"color"`
	LastCheck         *RunCheckDTO `json:"lastCheck"`
	MinutesSinceCheck *float64     `json:"minutesSinceCheck"`
	TimeSince         string       `json:"timeSince"`
}

// BoardSection runs grouped by section.
type BoardSection struct {
	Section string     `json:"section"`
	Runs    []BoardRun `json:"runs"`
}

// BoardResponse body of GET /api/run_status/board.
type BoardResponse struct {
	Sections    []BoardSection `json:"sections"`
	GeneratedAt int64          `json:"generatedAt"`
}
