package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"zakatledger/internal/commission"
	"zakatledger/internal/core"
	"zakatledger/internal/snapshot"
)

// PreviewRequest asks for a breakdown without persisting anything. Category
// may be a commission category or a raw transaction category.
type PreviewRequest struct {
	FiscalYearID   string          `json:"fiscal_year_id"`
	Category       string          `json:"category"`
	Gross          decimal.Decimal `json:"gross"`
	Reconciliation decimal.Decimal `json:"reconciliation"`
	// BasisMode overrides the fiscal year's mode when set.
	BasisMode commission.BasisMode `json:"basis_mode,omitempty"`
}

// Previewer computes live commission breakdowns for entry forms.
type Previewer struct {
	configs snapshot.ConfigResolver
}

func NewPreviewer(configs snapshot.ConfigResolver) *Previewer {
	return &Previewer{configs: configs}
}

func (p *Previewer) Preview(ctx context.Context, req PreviewRequest) (commission.Result, error) {
	const op = "services.Preview"

	cat, err := commission.ParseCategory(req.Category)
	if err != nil {
		mapped, ok := commission.MapCategory(req.Category)
		if !ok {
			return commission.Result{}, core.Validation(op,
				fmt.Errorf("%w: %q", snapshot.ErrUnmappedCategory, req.Category))
		}
		cat = mapped
	}
	if req.Gross.Sign() < 0 {
		return commission.Result{}, core.Validation(op, snapshot.ErrNegativeGross)
	}

	cfg := commission.DefaultConfig("")
	if fy := strings.TrimSpace(req.FiscalYearID); fy != "" {
		if cfg, err = p.configs.Resolve(ctx, fy); err != nil {
			return commission.Result{}, err
		}
	}
	if req.BasisMode != "" {
		if err := req.BasisMode.Validate(); err != nil {
			return commission.Result{}, core.Validation(op, err)
		}
		cfg.BasisMode = req.BasisMode
	}

	return cfg.Breakdown(cat, req.Gross, req.Reconciliation), nil
}
