// Package catalog supplies the list of known runs.
package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/model"
)

// Provider exposes the run list. GetRuns has no side effects.
type Provider interface {
	Initialize(ctx context.Context) error
	GetRuns() []model.Run
	Name() string
}

// Refresher is implemented by providers that can reload at runtime.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// New selects the provider named by cfg.RunProvider.
func New(cfg *config.Config, source RowSource, logger *zap.Logger) (Provider, error) {
	switch cfg.RunProvider {
	case config.RunProviderConfig:
		return NewConfigProvider(cfg.Runs, logger), nil
	case config.RunProviderSheets:
		if source == nil {
			return nil, fmt.Errorf("%w: sheets run provider needs a row source", config.ErrInvalidConfig)
		}
		return NewSheetsProvider(source, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown run provider %q", config.ErrInvalidConfig, cfg.RunProvider)
	}
}

func copyRuns(runs []model.Run) []model.Run {
	out := make([]model.Run, len(runs))
	copy(out, runs)
	return out
}
