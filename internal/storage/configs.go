package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"zakatledger/internal/commission"
	"zakatledger/internal/fiscal"
)

const configColumns = `fiscal_year_id, basis_mode, overrides, updated_by, updated_at`

func scanConfig(row scanner) (commission.Config, error) {
	var (
		c         commission.Config
		mode      string
		overrides string
		updatedAt int64
	)
	if err := row.Scan(&c.FiscalYearID, &mode, &overrides, &c.UpdatedBy, &updatedAt); err != nil {
		return commission.Config{}, err
	}
	c.BasisMode = commission.BasisMode(mode)
	c.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if overrides != "" && overrides != "{}" {
		if err := json.Unmarshal([]byte(overrides), &c.Overrides); err != nil {
			return commission.Config{}, fmt.Errorf("decode overrides of %s: %w", c.FiscalYearID, err)
		}
	}
	return c, nil
}

func (q *Queries) CommissionConfig(ctx context.Context, fiscalYearID string) (commission.Config, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM commission_configs WHERE fiscal_year_id = ?`, fiscalYearID)
	c, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return commission.Config{}, fmt.Errorf("%w: %s", fiscal.ErrConfigNotFound, fiscalYearID)
	}
	if err != nil {
		return commission.Config{}, fmt.Errorf("get commission config %s: %w", fiscalYearID, err)
	}
	return c, nil
}

// SaveCommissionConfig inserts or replaces the config of one fiscal year.
func (q *Queries) SaveCommissionConfig(ctx context.Context, c commission.Config) error {
	overrides := c.Overrides
	if overrides == nil {
		overrides = map[commission.Category]decimal.Decimal{}
	}
	raw, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("encode overrides: %w", err)
	}

	_, err = q.db.ExecContext(ctx,
		`INSERT INTO commission_configs (`+configColumns+`) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (fiscal_year_id) DO UPDATE SET
		     basis_mode = excluded.basis_mode,
		     overrides  = excluded.overrides,
		     updated_by = excluded.updated_by,
		     updated_at = excluded.updated_at`,
		c.FiscalYearID, string(c.BasisMode), string(raw), c.UpdatedBy, c.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save commission config %s: %w", c.FiscalYearID, err)
	}
	return nil
}

func (q *Queries) ListCommissionConfigs(ctx context.Context) ([]commission.Config, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+configColumns+` FROM commission_configs ORDER BY fiscal_year_id`)
	if err != nil {
		return nil, fmt.Errorf("list commission configs: %w", err)
	}
	defer rows.Close()

	var out []commission.Config
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commission config: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
