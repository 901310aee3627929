package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/catalog"
	"github.com/jhenkens/bear-valley-run-checks/internal/dto"
	"github.com/jhenkens/bear-valley-run-checks/internal/model"
	"github.com/jhenkens/bear-valley-run-checks/internal/realtime"
	"github.com/jhenkens/bear-valley-run-checks/internal/staleness"
	apperrors "github.com/jhenkens/bear-valley-run-checks/pkg/errors"
)

const (
	maxFutureSkew = 15 * time.Minute
	maxPastAge    = 24 * time.Hour
)

var (
	ErrChecksRequired     = fmt.Errorf("%w: Checks array is required", apperrors.ErrValidation)
	ErrMissingFields      = fmt.Errorf("%w: Missing required fields", apperrors.ErrValidation)
	ErrCheckTooFarAhead   = fmt.Errorf("%w: Check time cannot be more than 15 minutes in the future", apperrors.ErrValidation)
	ErrCheckTooOld        = fmt.Errorf("%w: Check time cannot be more than 24 hours in the past", apperrors.ErrValidation)
	ErrRefreshUnsupported = errors.New("Run refresh is only available with the sheets run provider")
)

// RunCheckService reads and records run checks.
type RunCheckService interface {
	Runs() []model.Run
	Today() []dto.RunCheckDTO
	Status(ctx context.Context) (*dto.RunStatusResponse, error)
	Board() *dto.BoardResponse
	// Submit validates the whole batch before recording any check.
	Submit(ctx context.Context, req *dto.SubmitRunChecksRequest) (*dto.SubmitRunChecksResponse, error)
	RefreshRuns(ctx context.Context) (int, error)
}

// RunCheckDeps wires a RunCheckService. Google and Broadcaster may be nil.
// Submissions are counted by the cache.
type RunCheckDeps struct {
	Config      *config.Config
	Cache       CheckCache
	Catalog     catalog.Provider
	Patrollers  PatrollerService
	Google      GoogleService
	Broadcaster Broadcaster
	Logger      *zap.Logger
}

type runCheckService struct {
	RunCheckDeps
	now func() time.Time
}

// NewRunCheckService creates a RunCheckService.
func NewRunCheckService(d RunCheckDeps) RunCheckService {
	return &runCheckService{RunCheckDeps: d, now: time.Now}
}

func (s *runCheckService) Runs() []model.Run {
	return s.Catalog.GetRuns()
}

func (s *runCheckService) Today() []dto.RunCheckDTO {
	return dto.NewRunCheckDTOs(s.Cache.GetChecks())
}

func (s *runCheckService) Status(ctx context.Context) (*dto.RunStatusResponse, error) {
	patrollers, err := s.Patrollers.List(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.RunStatusResponse{
		Runs:          s.Catalog.GetRuns(),
		Checks:        s.Today(),
		Patrollers:    patrollers,
		Timezone:      s.Config.Location().String(),
		Notifications: s.notifications(ctx),
	}, nil
}

func (s *runCheckService) notifications(ctx context.Context) []dto.Notification {
	out := []dto.Notification{}
	if s.Google == nil || !s.Google.Enabled() {
		return out
	}

	status, err := s.Google.Status(ctx)
	switch {
	case err != nil:
		s.Logger.Warn("google status for notifications", zap.Error(err))
		out = append(out, dto.Notification{
			Type:    "warning",
			Message: "Unable to check the Google Drive connection. New run checks may not be saved.",
		})
	case !status.Configured:
		out = append(out, dto.Notification{
			Type:    "warning",
			Message: "Google Drive is not linked. Run checks are only kept in memory today.",
		})
	case !status.IsActive:
		out = append(out, dto.Notification{
			Type:    "warning",
			Message: "Google Drive connection needs attention. An admin should re-link it from the admin tab.",
		})
	}
	return out
}

func (s *runCheckService) Board() *dto.BoardResponse {
	now := s.now()
	statuses := staleness.Calculate(s.Catalog.GetRuns(), s.Cache.GetChecks(), now)

	sections := staleness.GroupBySection(statuses)
	resp := &dto.BoardResponse{
		Sections:    make([]dto.BoardSection, 0, len(sections)),
		GeneratedAt: now.Unix(),
	}
	for _, sec := range sections {
		bs := dto.BoardSection{Section: sec.Name, Runs: make([]dto.BoardRun, 0, len(sec.Runs))}
		for _, st := range sec.Runs {
			run := dto.BoardRun{
				Name:              st.Run.Name,
				Section:           st.Run.Section,
				Tier:              string(st.Tier),
				Color:             st.Tier.Color(),
				MinutesSinceCheck: st.MinutesSince,
				TimeSince:         staleness.FormatTimeSince(st.MinutesSince),
			}
			if st.LastCheck != nil {
				last := dto.NewRunCheckDTO(*st.LastCheck)
				run.LastCheck = &last
			}
			bs.Runs = append(bs.Runs, run)
		}
		resp.Sections = append(resp.Sections, bs)
	}
	return resp
}

func (s *runCheckService) Submit(ctx context.Context, req *dto.SubmitRunChecksRequest) (*dto.SubmitRunChecksResponse, error) {
	inputs, err := ValidateChecks(req.Checks, s.now())
	if err != nil {
		return nil, err
	}

	checks, saved := s.Cache.AddChecks(ctx, inputs)

	out := dto.NewRunCheckDTOs(checks)
	if s.Broadcaster != nil {
		if err := s.Broadcaster.Broadcast(realtime.EventRunCheckNew, dto.RunCheckEvent{Checks: out}); err != nil {
			s.Logger.Warn("broadcast run checks", zap.Error(err))
		}
	}

	s.Logger.Info("run checks recorded",
		zap.Int("count", len(checks)),
		zap.Bool("saved", saved),
	)
	return &dto.SubmitRunChecksResponse{Checks: out, GoogleDriveSaved: saved}, nil
}

func (s *runCheckService) RefreshRuns(ctx context.Context) (int, error) {
	r, ok := s.Catalog.(catalog.Refresher)
	if !ok {
		return 0, ErrRefreshUnsupported
	}
	n, err := r.Refresh(ctx)
	if err != nil {
		s.Logger.Error("refresh runs", zap.Error(err))
		return 0, err
	}
	return n, nil
}

// ValidateChecks converts a submitted batch, rejecting it on the first bad entry.
// Times must fall in [now-24h, now+15m].
func ValidateChecks(items []dto.SubmitRunCheckItem, now time.Time) ([]model.RunCheckInput, error) {
	if len(items) == 0 {
		return nil, ErrChecksRequired
	}

	earliest := now.Add(-maxPastAge)
	latest := now.Add(maxFutureSkew)

	inputs := make([]model.RunCheckInput, 0, len(items))
	for _, item := range items {
		runName := strings.TrimSpace(item.RunName)
		section := strings.TrimSpace(item.Section)
		patroller := strings.TrimSpace(item.Patroller)
		if runName == "" || section == "" || patroller == "" || item.CheckTime == nil || *item.CheckTime == 0 {
			return nil, ErrMissingFields
		}

		checkTime := time.Unix(*item.CheckTime, 0)
		if checkTime.After(latest) {
			return nil, ErrCheckTooFarAhead
		}
		if checkTime.Before(earliest) {
			return nil, ErrCheckTooOld
		}

		inputs = append(inputs, model.RunCheckInput{
			RunName:   runName,
			Section:   section,
			Patroller: patroller,
			CheckTime: checkTime,
		})
	}
	return inputs, nil
}
