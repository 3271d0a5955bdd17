// Package snapshot records the commission computed for each financial
// transaction together with the inputs and basis mode used at the time.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"zakatledger/internal/commission"
	"zakatledger/internal/core"
)

var (
	ErrUnmappedCategory = errors.New("category has no commission mapping")
	ErrSnapshotExists   = errors.New("snapshot already exists for source")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrNegativeGross    = errors.New("gross must not be negative")
)

type Snapshot struct {
	ID           string    `json:"id"`
	FiscalYearID string    `json:"fiscal_year_id"`
	Date         core.Date `json:"date"`
	commission.Result
	Source    core.SourceRef `json:"source"`
	Notes     string         `json:"notes,omitempty"`
	CreatedBy string         `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Input describes the transaction a snapshot is computed for. RawCategory is
// the collaborator's own category name and goes through commission.MapCategory.
type Input struct {
	FiscalYearID   string          `json:"fiscal_year_id"`
	RawCategory    string          `json:"raw_category"`
	Gross          decimal.Decimal `json:"gross"`
	Reconciliation decimal.Decimal `json:"reconciliation"`
	Date           core.Date       `json:"date"`
	Source         core.SourceRef  `json:"source"`
	Notes          string          `json:"notes,omitempty"`
}

func (in Input) validate() error {
	if err := in.Source.Validate(); err != nil {
		return err
	}
	if in.FiscalYearID == "" {
		return errors.New("fiscal year id is required")
	}
	if in.Gross.Sign() < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeGross, in.Gross)
	}
	return nil
}

// Repository persists snapshots keyed by source. InsertSnapshot reports a
// duplicate source with ErrSnapshotExists; lookups report ErrSnapshotNotFound.
type Repository interface {
	SnapshotBySource(ctx context.Context, src core.SourceRef) (Snapshot, error)
	InsertSnapshot(ctx context.Context, s Snapshot) error
	UpdateSnapshot(ctx context.Context, s Snapshot) error
	DeleteSnapshotBySource(ctx context.Context, src core.SourceRef) error
	ListSnapshots(ctx context.Context, fiscalYearID string) ([]Snapshot, error)
}

// ConfigResolver yields the commission configuration of a fiscal year.
type ConfigResolver interface {
	Resolve(ctx context.Context, fiscalYearID string) (commission.Config, error)
}
