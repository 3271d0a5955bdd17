package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"zakatledger/internal/commission"
	"zakatledger/internal/core"
)

const (
	headerFiscalYear = "fiscal_year_id"
	headerBasisMode  = "basis_mode"
)

// parseConfigRows converts a values matrix (as returned by Sheets API) into
// commission configs. The first row holds headers; fiscal_year_id is required,
// basis_mode and one column per category are optional. An empty percentage
// cell keeps the category default. Per-row problems are returned separately.
func parseConfigRows(values [][]interface{}) ([]commission.Config, []error, error) {
	if len(values) == 0 {
		return nil, nil, nil
	}
	headers := toStrings(values[0])
	colYear := indexOf(headers, headerFiscalYear)
	if colYear == -1 {
		return nil, nil, fmt.Errorf("unexpected config header: missing %s; got headers=%v", headerFiscalYear, headers)
	}
	colMode := indexOf(headers, headerBasisMode)
	catCols := make(map[commission.Category]int)
	for _, cat := range commission.Categories() {
		if idx := indexOf(headers, string(cat)); idx != -1 {
			catCols[cat] = idx
		}
	}

	var (
		configs []commission.Config
		rowErrs []error
		seen    = map[string]int{}
	)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		year := safeGet(row, colYear)
		if year == "" || strings.HasPrefix(year, "#") {
			continue
		}

		cfg, err := parseConfigRow(row, year, colMode, catCols)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("row %d: %w", i+1, err))
			continue
		}
		// Later rows win for a repeated fiscal year.
		if idx, ok := seen[year]; ok {
			configs[idx] = cfg
			continue
		}
		seen[year] = len(configs)
		configs = append(configs, cfg)
	}
	return configs, rowErrs, nil
}

func parseConfigRow(row []string, year string, colMode int, catCols map[commission.Category]int) (commission.Config, error) {
	cfg := commission.DefaultConfig(year)
	if raw := safeGet(row, colMode); raw != "" {
		mode, err := commission.ParseBasisMode(raw)
		if err != nil {
			return commission.Config{}, err
		}
		cfg.BasisMode = mode
	}

	for cat, idx := range catCols {
		raw := strings.TrimSuffix(safeGet(row, idx), "%")
		if raw == "" {
			continue
		}
		pct, err := core.ParseDecimal(raw)
		if err != nil {
			return commission.Config{}, fmt.Errorf("%s percentage %q: %w", cat, raw, err)
		}
		if cfg.Overrides == nil {
			cfg.Overrides = make(map[commission.Category]decimal.Decimal)
		}
		cfg.Overrides[cat] = pct
	}

	if err := cfg.Validate(); err != nil {
		return commission.Config{}, err
	}
	return cfg, nil
}
