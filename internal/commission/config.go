package commission

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the commission setup of one fiscal year.
type Config struct {
	FiscalYearID string                       `json:"fiscal_year_id"`
	BasisMode    BasisMode                    `json:"basis_mode"`
	Overrides    map[Category]decimal.Decimal `json:"overrides,omitempty"`
	UpdatedBy    string                       `json:"updated_by,omitempty"`
	UpdatedAt    time.Time                    `json:"updated_at,omitempty"`
}

// DefaultConfig is used for fiscal years without a stored configuration.
func DefaultConfig(fiscalYearID string) Config {
	return Config{FiscalYearID: fiscalYearID, BasisMode: DefaultBasisMode}
}

// PercentageFor returns the override for c, or its default percentage.
func (c Config) PercentageFor(cat Category) decimal.Decimal {
	if p, ok := c.Overrides[cat]; ok {
		return p
	}
	return cat.DefaultPercentage()
}

// Breakdown applies this configuration to one category amount.
func (c Config) Breakdown(cat Category, gross, reconciliation decimal.Decimal) Result {
	pct := c.PercentageFor(cat)
	return Breakdown(Input{
		Category:       cat,
		Gross:          gross,
		Reconciliation: reconciliation,
		BasisMode:      c.BasisMode,
		Percentage:     &pct,
	})
}

func (c Config) Validate() error {
	if c.FiscalYearID == "" {
		return fmt.Errorf("fiscal year id is required")
	}
	if err := c.BasisMode.Validate(); err != nil {
		return err
	}
	for cat, pct := range c.Overrides {
		if err := cat.Validate(); err != nil {
			return err
		}
		if pct.Sign() < 0 || pct.GreaterThan(hundred) {
			return fmt.Errorf("percentage for %s must be between 0 and 100, got %s", cat, pct)
		}
	}
	return nil
}
