// Package fiscal resolves the commission configuration of a fiscal year.
package fiscal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zakatledger/internal/cache"
	"zakatledger/internal/commission"
	"zakatledger/internal/core"
	"zakatledger/internal/lock"
	"zakatledger/internal/log"
)

var (
	ErrConfigNotFound    = errors.New("commission config not found")
	ErrMissingFiscalYear = errors.New("fiscal year id is required")
)

// Store persists commission configs. A missing row is reported by wrapping
// ErrConfigNotFound.
type Store interface {
	CommissionConfig(ctx context.Context, fiscalYearID string) (commission.Config, error)
	SaveCommissionConfig(ctx context.Context, cfg commission.Config) error
	ListCommissionConfigs(ctx context.Context) ([]commission.Config, error)
}

// Provider reads commission configs through a cache. Saves and cache fills
// of one fiscal year are serialized by the locker, so a fill never
// re-caches a config read before a concurrent save.
type Provider struct {
	store  Store
	cache  cache.Cache[commission.Config]
	locker lock.Locker
	now    func() time.Time
	log    *log.Logger
}

// NewProvider creates a Provider. A nil cache or locker falls back to an
// in-memory LRU and a process-local locker.
func NewProvider(store Store, c cache.Cache[commission.Config], locker lock.Locker) *Provider {
	if c == nil {
		c = cache.NewLRUCache[commission.Config](64, 10*time.Minute)
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Provider{
		store:  store,
		cache:  c,
		locker: locker,
		now:    time.Now,
		log:    log.Default(log.ComponentFiscal),
	}
}

func cacheKey(fiscalYearID string) string {
	return "commission_config:" + fiscalYearID
}

func lockKey(fiscalYearID string) string {
	return "fiscal:" + fiscalYearID
}

// Resolve returns the stored config of a fiscal year, or the default config
// (net basis, default percentages) when none was saved.
func (p *Provider) Resolve(ctx context.Context, fiscalYearID string) (commission.Config, error) {
	const op = "fiscal.Resolve"

	fiscalYearID = strings.TrimSpace(fiscalYearID)
	if fiscalYearID == "" {
		return commission.Config{}, core.Validation(op, ErrMissingFiscalYear)
	}
	if cfg, ok := p.cache.Get(cacheKey(fiscalYearID)); ok {
		return cfg, nil
	}

	unlock, err := p.locker.Lock(ctx, lockKey(fiscalYearID))
	if err != nil {
		return commission.Config{}, core.Persistence(op, err)
	}
	defer unlock()
	if cfg, ok := p.cache.Get(cacheKey(fiscalYearID)); ok {
		return cfg, nil
	}

	cfg, err := p.store.CommissionConfig(ctx, fiscalYearID)
	switch {
	case errors.Is(err, ErrConfigNotFound):
		cfg = commission.DefaultConfig(fiscalYearID)
	case err != nil:
		return commission.Config{}, core.Persistence(op, err)
	}
	if cfg.BasisMode == "" {
		cfg.BasisMode = commission.DefaultBasisMode
	}

	p.cache.Set(cacheKey(fiscalYearID), cfg)
	return cfg, nil
}

// Save stores cfg on behalf of the actor in ctx.
func (p *Provider) Save(ctx context.Context, cfg commission.Config) (commission.Config, error) {
	const op = "fiscal.Save"

	actor, err := core.RequireActor(ctx, op)
	if err != nil {
		return commission.Config{}, err
	}
	cfg.FiscalYearID = strings.TrimSpace(cfg.FiscalYearID)
	if cfg.BasisMode == "" {
		cfg.BasisMode = commission.DefaultBasisMode
	}
	if err := cfg.Validate(); err != nil {
		return commission.Config{}, core.Validation(op, err)
	}
	cfg.UpdatedBy = actor
	cfg.UpdatedAt = p.now().UTC()

	unlock, err := p.locker.Lock(ctx, lockKey(cfg.FiscalYearID))
	if err != nil {
		return commission.Config{}, core.Persistence(op, err)
	}
	defer unlock()
	if err := p.store.SaveCommissionConfig(ctx, cfg); err != nil {
		return commission.Config{}, core.Persistence(op, fmt.Errorf("save config %s: %w", cfg.FiscalYearID, err))
	}
	p.cache.Delete(cacheKey(cfg.FiscalYearID))

	p.log.InfoContext(ctx, "Commission config saved",
		log.FieldFiscalYear, cfg.FiscalYearID,
		log.FieldBasisMode, string(cfg.BasisMode),
		log.FieldActor, actor,
		"overrides", len(cfg.Overrides))
	return cfg, nil
}

func (p *Provider) List(ctx context.Context) ([]commission.Config, error) {
	configs, err := p.store.ListCommissionConfigs(ctx)
	if err != nil {
		return nil, core.Persistence("fiscal.List", err)
	}
	return configs, nil
}
