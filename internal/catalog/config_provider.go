package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/model"
)

// ConfigProvider serves runs declared in configuration.
type ConfigProvider struct {
	runs   []model.Run
	logger *zap.Logger
}

// NewConfigProvider flattens sections into (name, section) runs.
func NewConfigProvider(sections []config.RunSection, logger *zap.Logger) *ConfigProvider {
	return &ConfigProvider{
		runs:   Flatten(sections),
		logger: logger.With(zap.String("component", "catalog.config")),
	}
}

// Flatten turns section → run names into discrete runs in declaration order.
func Flatten(sections []config.RunSection) []model.Run {
	var runs []model.Run
	for _, s := range sections {
		for _, name := range s.Runs {
			runs = append(runs, model.Run{Name: name, Section: s.Section})
		}
	}
	return runs
}

func (p *ConfigProvider) Initialize(context.Context) error {
	p.logger.Info("run catalog loaded from config", zap.Int("runs", len(p.runs)))
	return nil
}

func (p *ConfigProvider) GetRuns() []model.Run {
	return copyRuns(p.runs)
}

func (p *ConfigProvider) Name() string { return config.RunProviderConfig }
