// Package checkcache keeps today's run checks in memory, writes them through
// to an optional external store and resets at local midnight.
package checkcache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/internal/model"
	"github.com/jhenkens/bear-valley-run-checks/internal/scheduler"
	"github.com/jhenkens/bear-valley-run-checks/pkg/metrics"
)

var ErrAlreadyInitialized = errors.New("check cache already initialized")

// Store is the external append target for today's checks.
type Store interface {
	LoadToday(ctx context.Context) ([]model.RunCheck, error)
	Append(ctx context.Context, check model.RunCheck) error
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics records submissions, store failures and resets.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(gen func() string) Option {
	return func(c *Cache) { c.newID = gen }
}

// Cache is safe for concurrent use.
type Cache struct {
	store   Store
	loc     *time.Location
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	mu          sync.RWMutex
	checks      []model.RunCheck
	lastRefresh time.Time

	initOnce sync.Once
	midnight *scheduler.Task
}

// New builds a cache. A nil store means memory only.
func New(store Store, loc *time.Location, logger *zap.Logger, opts ...Option) *Cache {
	if loc == nil {
		loc = time.UTC
	}
	c := &Cache{
		store:    store,
		loc:      loc,
		logger:   logger.With(zap.String("component", "checkcache")),
		now:      time.Now,
		newID:    uuid.NewString,
		midnight: scheduler.NewTask(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize loads today's checks from the store and arms the midnight reset.
// It may be called once.
func (c *Cache) Initialize(ctx context.Context) error {
	err := ErrAlreadyInitialized
	c.initOnce.Do(func() {
		err = nil
		c.reload(ctx)
		c.scheduleMidnight()
	})
	return err
}

// HasStore reports whether checks are written through.
func (c *Cache) HasStore() bool {
	return c.store != nil
}

// GetChecks returns a copy of the cached checks in insertion order.
func (c *Cache) GetChecks() []model.RunCheck {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.RunCheck, len(c.checks))
	copy(out, c.checks)
	return out
}

// AddCheck records input and attempts to persist it externally.
// saved is false when no store is configured or the append failed.
func (c *Cache) AddCheck(ctx context.Context, input model.RunCheckInput) (model.RunCheck, bool) {
	check := model.RunCheck{
		ID:        c.newID(),
		RunName:   input.RunName,
		Section:   input.Section,
		Patroller: input.Patroller,
		CheckTime: input.CheckTime,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	c.checks = append(c.checks, check)
	c.mu.Unlock()
	c.metrics.ChecksSubmitted(1)

	if c.store == nil {
		return check, false
	}
	if err := c.store.Append(ctx, check); err != nil {
		c.metrics.StoreFailure("append")
		c.logger.Warn("external store append failed, check kept in memory",
			zap.String("id", check.ID),
			zap.String("run", check.RunName),
			zap.String("section", check.Section),
			zap.Error(err),
		)
		return check, false
	}
	return check, true
}

// AddChecks adds inputs in order. saved is true only if every append succeeded.
func (c *Cache) AddChecks(ctx context.Context, inputs []model.RunCheckInput) ([]model.RunCheck, bool) {
	created := make([]model.RunCheck, 0, len(inputs))
	allSaved := len(inputs) > 0
	for _, in := range inputs {
		check, saved := c.AddCheck(ctx, in)
		created = append(created, check)
		allSaved = allSaved && saved
	}
	return created, allSaved
}

// ClearCache empties memory.
func (c *Cache) ClearCache() {
	c.mu.Lock()
	c.checks = nil
	c.lastRefresh = c.now()
	c.mu.Unlock()
	c.logger.Info("check cache cleared")
}

// LastRefresh is when the cache was last cleared or reloaded.
func (c *Cache) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

// Close cancels the midnight reset.
func (c *Cache) Close() {
	c.midnight.Stop()
}

// ── midnight ──

func (c *Cache) scheduleMidnight() {
	now := c.now()
	wait := scheduler.UntilNextMidnight(now, c.loc)
	c.logger.Info("midnight reset scheduled",
		zap.Time("at", now.Add(wait).In(c.loc)),
		zap.Duration("in", wait),
	)
	c.midnight.Schedule(wait, c.onMidnight)
}

func (c *Cache) onMidnight(ctx context.Context) {
	c.logger.Info("midnight reached, resetting check cache")
	c.metrics.CacheReset()
	c.ClearCache()
	c.reload(ctx)
	c.scheduleMidnight()
}

// reload replaces memory with the store's rows for today. Checks added while
// the load was in flight are kept after the loaded rows unless the store
// already returned them. A store error leaves only those checks.
func (c *Cache) reload(ctx context.Context) {
	if c.store == nil {
		c.mu.Lock()
		c.lastRefresh = c.now()
		c.mu.Unlock()
		return
	}

	loaded, err := c.store.LoadToday(ctx)
	if err != nil {
		c.metrics.StoreFailure("load")
		c.logger.Warn("loading today's checks failed, starting empty", zap.Error(err))
		loaded = nil
	}

	c.mu.Lock()
	pending := len(c.checks)
	c.checks = merge(loaded, c.checks)
	c.lastRefresh = c.now()
	c.mu.Unlock()

	c.logger.Info("check cache loaded",
		zap.Int("count", len(loaded)),
		zap.Int("pending", pending),
	)
}

// recordKey identifies a check across the store round trip, which keeps
// millisecond precision and assigns its own IDs.
type recordKey struct {
	run, section, patroller string
	checkTime, createdAt    int64
}

func keyOf(c model.RunCheck) recordKey {
	return recordKey{
		run:       c.RunName,
		section:   c.Section,
		patroller: c.Patroller,
		checkTime: c.CheckTime.UnixMilli(),
		createdAt: c.CreatedAt.UnixMilli(),
	}
}

func merge(loaded, pending []model.RunCheck) []model.RunCheck {
	if len(pending) == 0 {
		return loaded
	}
	seen := make(map[recordKey]bool, len(loaded))
	for _, l := range loaded {
		seen[keyOf(l)] = true
	}
	out := make([]model.RunCheck, len(loaded), len(loaded)+len(pending))
	copy(out, loaded)
	for _, p := range pending {
		if !seen[keyOf(p)] {
			out = append(out, p)
		}
	}
	return out
}
