package fiscal

import (
	"context"
	"time"

	"zakatledger/internal/commission"
	"zakatledger/internal/core"
	"zakatledger/internal/log"
	"zakatledger/internal/sheets"
)

// ImportActor is recorded as updated_by for imported configs.
const ImportActor = "system:config-import"

type ImportResult struct {
	Saved     int
	Unchanged int
	Failed    int
}

// Importer copies commission configs from an external source into the store.
type Importer struct {
	source   sheets.ConfigSource
	provider *Provider
	log      *log.Logger
}

func NewImporter(source sheets.ConfigSource, provider *Provider) *Importer {
	return &Importer{
		source:   source,
		provider: provider,
		log:      log.Default(log.ComponentFiscal),
	}
}

// Import saves every config that differs from what the store resolves.
func (im *Importer) Import(ctx context.Context) (ImportResult, error) {
	var res ImportResult

	configs, err := im.source.FetchConfigs(ctx)
	if err != nil {
		return res, err
	}

	ctx = core.WithActor(ctx, ImportActor)
	for _, cfg := range configs {
		current, err := im.provider.Resolve(ctx, cfg.FiscalYearID)
		if err == nil && sameConfig(current, cfg) {
			res.Unchanged++
			continue
		}
		if _, err := im.provider.Save(ctx, cfg); err != nil {
			res.Failed++
			im.log.WarnContext(ctx, "Failed to import commission config",
				log.NewFields().WithOperation(log.OpImport).WithError(err).ToSlice()...)
			continue
		}
		res.Saved++
	}

	im.log.InfoContext(ctx, "Commission configs imported",
		"source", im.source.Name(),
		"saved", res.Saved,
		"unchanged", res.Unchanged,
		"failed", res.Failed)
	return res, nil
}

// Run imports once immediately and then on every tick until ctx is done.
func (im *Importer) Run(ctx context.Context, interval time.Duration) {
	if _, err := im.Import(ctx); err != nil {
		im.log.ErrorContext(ctx, "Commission config import failed", "source", im.source.Name(), "error", err)
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := im.Import(ctx); err != nil {
				im.log.ErrorContext(ctx, "Commission config import failed", "source", im.source.Name(), "error", err)
			}
		}
	}
}

func sameConfig(a, b commission.Config) bool {
	if a.BasisMode != b.BasisMode || len(a.Overrides) != len(b.Overrides) {
		return false
	}
	for cat, pct := range a.Overrides {
		other, ok := b.Overrides[cat]
		if !ok || !other.Equal(pct) {
			return false
		}
	}
	return true
}
