package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/model"
)

var ErrMissingColumns = errors.New(`run names sheet must have "Section" and "Run Name" header columns`)

const (
	headerSection = "section"
	headerRunName = "run name"
)

// RowSource yields spreadsheet rows, header first.
type RowSource interface {
	Rows(ctx context.Context) ([][]string, error)
}

// SheetsProvider serves runs read from a spreadsheet.
type SheetsProvider struct {
	source RowSource
	logger *zap.Logger

	mu   sync.RWMutex
	runs []model.Run
}

func NewSheetsProvider(source RowSource, logger *zap.Logger) *SheetsProvider {
	return &SheetsProvider{
		source: source,
		logger: logger.With(zap.String("component", "catalog.sheets")),
	}
}

// Initialize loads the runs. Any error is a configuration error at boot.
func (p *SheetsProvider) Initialize(ctx context.Context) error {
	n, err := p.Refresh(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("run catalog loaded from sheet", zap.Int("runs", n))
	return nil
}

// Refresh reloads the runs. On failure the previous list is kept.
func (p *SheetsProvider) Refresh(ctx context.Context) (int, error) {
	rows, err := p.source.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("read run names: %w", err)
	}
	runs, err := ParseRows(rows)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	p.runs = runs
	p.mu.Unlock()
	return len(runs), nil
}

func (p *SheetsProvider) GetRuns() []model.Run {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyRuns(p.runs)
}

func (p *SheetsProvider) Name() string { return config.RunProviderSheets }

// ParseRows maps a header row plus data rows to runs. Header matching is
// case-insensitive after trimming; rows with a blank section or name are skipped.
func ParseRows(rows [][]string) ([]model.Run, error) {
	if len(rows) == 0 {
		return nil, ErrMissingColumns
	}

	sectionCol, nameCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case headerSection:
			if sectionCol < 0 {
				sectionCol = i
			}
		case headerRunName:
			if nameCol < 0 {
				nameCol = i
			}
		}
	}
	if sectionCol < 0 || nameCol < 0 {
		return nil, ErrMissingColumns
	}

	runs := make([]model.Run, 0, len(rows)-1)
	for _, row := range rows[1:] {
		section := cell(row, sectionCol)
		name := cell(row, nameCol)
		if section == "" || name == "" {
			continue
		}
		runs = append(runs, model.Run{Name: name, Section: section})
	}
	return runs, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
