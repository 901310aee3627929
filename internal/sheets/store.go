package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/internal/model"
	"github.com/jhenkens/bear-valley-run-checks/internal/scheduler"
	apperrors "github.com/jhenkens/bear-valley-run-checks/pkg/errors"
)

// ErrNotConfigured means no active Google link exists.
var ErrNotConfigured = fmt.Errorf("google drive: %w", apperrors.ErrNotConfigured)

const (
	checksSheet = "Run Checks"
	headerRange = checksSheet + "!A1:E1"
	appendRange = checksSheet + "!A:E"
	rowsRange   = checksSheet + "!A2:E"
)

// timestampLayout is ISO 8601 with milliseconds, always UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var checksHeader = []interface{}{"Timestamp", "Check Time", "Section", "Run Name", "Patroller"}

// Session is an authenticated API handle plus the linked Drive locations.
type Session struct {
	API        API
	FolderID   string
	RunNamesID string
}

// ClientFactory yields a session for the active Google link, or
// ErrNotConfigured.
type ClientFactory interface {
	Session(ctx context.Context) (*Session, error)
}

// DailyStore keeps one spreadsheet per local day inside the linked folder.
type DailyStore struct {
	factory ClientFactory
	loc     *time.Location
	now     func() time.Time
	logger  *zap.Logger

	mu       sync.Mutex
	dayKey   string
	folderID string
	sheetID  string
}

func NewDailyStore(factory ClientFactory, loc *time.Location, logger *zap.Logger) *DailyStore {
	return &DailyStore{
		factory: factory,
		loc:     loc,
		now:     time.Now,
		logger:  logger.With(zap.String("component", "sheets.store")),
	}
}

// EnsureToday returns today's spreadsheet ID, creating the spreadsheet if the
// folder has none.
func (s *DailyStore) EnsureToday(ctx context.Context) (string, error) {
	sess, err := s.factory.Session(ctx)
	if err != nil {
		return "", err
	}
	return s.ensure(ctx, sess)
}

func (s *DailyStore) ensure(ctx context.Context, sess *Session) (string, error) {
	if sess.FolderID == "" {
		return "", ErrNotConfigured
	}
	today := scheduler.TodayKey(s.now(), s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sheetID != "" && s.dayKey == today && s.folderID == sess.FolderID {
		return s.sheetID, nil
	}

	id, found, err := sess.API.FindFile(ctx, today, MimeSpreadsheet, sess.FolderID)
	if err != nil {
		return "", err
	}
	if found {
		s.logger.Info("found daily spreadsheet", zap.String("day", today), zap.String("spreadsheet_id", id))
	} else {
		if id, err = sess.API.CreateSpreadsheet(ctx, today, checksSheet); err != nil {
			return "", err
		}
		if err := sess.API.MoveToFolder(ctx, id, sess.FolderID); err != nil {
			return "", err
		}
		if err := sess.API.UpdateValues(ctx, id, headerRange, [][]interface{}{checksHeader}); err != nil {
			return "", err
		}
		s.logger.Info("created daily spreadsheet", zap.String("day", today), zap.String("spreadsheet_id", id))
	}

	s.dayKey, s.folderID, s.sheetID = today, sess.FolderID, id
	return id, nil
}

// Append writes one row: created, check time, section, run, patroller.
func (s *DailyStore) Append(ctx context.Context, check model.RunCheck) error {
	sess, err := s.factory.Session(ctx)
	if err != nil {
		return err
	}
	id, err := s.ensure(ctx, sess)
	if err != nil {
		return err
	}
	row := []interface{}{
		check.CreatedAt.UTC().Format(timestampLayout),
		check.CheckTime.UTC().Format(timestampLayout),
		check.Section,
		check.RunName,
		check.Patroller,
	}
	return sess.API.AppendValues(ctx, id, appendRange, [][]interface{}{row})
}

// LoadToday reads every check row of today's spreadsheet.
func (s *DailyStore) LoadToday(ctx context.Context) ([]model.RunCheck, error) {
	sess, err := s.factory.Session(ctx)
	if err != nil {
		return nil, err
	}
	id, err := s.ensure(ctx, sess)
	if err != nil {
		return nil, err
	}
	rows, err := sess.API.GetValues(ctx, id, rowsRange)
	if err != nil {
		return nil, err
	}

	today := scheduler.TodayKey(s.now(), s.loc)
	checks := make([]model.RunCheck, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		check, err := parseRow(row)
		if err != nil {
			skipped++
			continue
		}
		check.ID = today + "-" + strconv.Itoa(i)
		checks = append(checks, check)
	}
	if skipped > 0 {
		s.logger.Warn("skipped unreadable rows", zap.Int("count", skipped))
	}
	return checks, nil
}

var errBadRow = errors.New("unreadable row")

func parseRow(row []interface{}) (model.RunCheck, error) {
	created, err := time.Parse(time.RFC3339, value(row, 0))
	if err != nil {
		return model.RunCheck{}, errBadRow
	}
	checkTime := created
	if raw := value(row, 1); raw != "" {
		if checkTime, err = time.Parse(time.RFC3339, raw); err != nil {
			return model.RunCheck{}, errBadRow
		}
	}
	return model.RunCheck{
		Section:   value(row, 2),
		RunName:   value(row, 3),
		Patroller: value(row, 4),
		CheckTime: checkTime,
		CreatedAt: created,
	}, nil
}

// ── run names ──

// RunNamesSource reads the linked Run Names spreadsheet.
type RunNamesSource struct {
	factory ClientFactory
}

func NewRunNamesSource(factory ClientFactory) *RunNamesSource {
	return &RunNamesSource{factory: factory}
}

// Rows returns the sheet's rows, header first.
func (r *RunNamesSource) Rows(ctx context.Context) ([][]string, error) {
	sess, err := r.factory.Session(ctx)
	if err != nil {
		return nil, err
	}
	if sess.RunNamesID == "" {
		return nil, fmt.Errorf("%w: run names spreadsheet not set", ErrNotConfigured)
	}
	values, err := sess.API.GetValues(ctx, sess.RunNamesID, runNamesRange)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j := range row {
			rows[i][j] = value(row, j)
		}
	}
	return rows, nil
}

func value(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return s
	}
	return fmt.Sprint(row[i])
}
