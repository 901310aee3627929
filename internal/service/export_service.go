package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/scheduler"
)

var (
	ErrExportNoChecks     = errors.New("No run checks recorded today")
	ErrExportGenerateFail = errors.New("Failed to generate Excel file")
)

const exportSheet = "Run Checks"

// ExportService spreadsheet downloads of today's checks.
type ExportService interface {
	// ExportToday returns the xlsx content and a suggested filename.
	ExportToday(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	cfg    *config.Config
	cache  CheckCache
	logger *zap.Logger
}

// NewExportService creates an ExportService.
func NewExportService(cfg *config.Config, cache CheckCache, logger *zap.Logger) ExportService {
	return &exportService{cfg: cfg, cache: cache, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportToday
// ═══════════════════════════════════════════════════════════
//
// One sheet, newest check last:
//   | Check Time | Section | Run Name | Patroller | Received |
// Times are local to the configured timezone.

func (s *exportService) ExportToday(_ context.Context) (*bytes.Buffer, string, error) {
	checks := s.cache.GetChecks()
	if len(checks) == 0 {
		return nil, "", ErrExportNoChecks
	}
	sort.SliceStable(checks, func(i, j int) bool {
		return checks[i].CheckTime.Before(checks[j].CheckTime)
	})

	loc := s.cfg.Location()
	day := scheduler.TodayKey(checks[len(checks)-1].CreatedAt, loc)

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(exportSheet, "A", "A", 12)
	f.SetColWidth(exportSheet, "B", "C", 22)
	f.SetColWidth(exportSheet, "D", "D", 20)
	f.SetColWidth(exportSheet, "E", "E", 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E79"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"Check Time", "Section", "Run Name", "Patroller", "Received"}
	for i, h := range headers {
		f.SetCellValue(exportSheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(exportSheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, c := range checks {
		row := i + 2
		f.SetCellValue(exportSheet, cell("A", row), c.CheckTime.In(loc).Format("15:04"))
		f.SetCellValue(exportSheet, cell("B", row), c.Section)
		f.SetCellValue(exportSheet, cell("C", row), c.RunName)
		f.SetCellValue(exportSheet, cell("D", row), c.Patroller)
		f.SetCellValue(exportSheet, cell("E", row), c.CreatedAt.In(loc).Format("15:04:05"))
	}
	f.AutoFilter(exportSheet, fmt.Sprintf("A1:E%d", len(checks)+1), nil)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("write xlsx", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("run-checks-%s.xlsx", day), nil
}

// colName 0-based column index to a letter.
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
