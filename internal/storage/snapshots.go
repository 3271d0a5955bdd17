package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zakatledger/internal/commission"
	"zakatledger/internal/core"
	"zakatledger/internal/snapshot"
)

const snapshotColumns = `id, fiscal_year_id, category, snapshot_date, basis_mode, gross, reconciliation,
	net, basis_nominal, percentage, commission_amount, source_kind, source_id, notes,
	created_by, created_at, updated_at`

func scanSnapshot(row scanner) (snapshot.Snapshot, error) {
	var (
		s          snapshot.Snapshot
		category   string
		date       string
		mode       string
		sourceKind string
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(&s.ID, &s.FiscalYearID, &category, &date, &mode, &s.Gross, &s.Reconciliation,
		&s.Net, &s.BasisNominal, &s.Percentage, &s.CommissionAmount, &sourceKind, &s.Source.ID,
		&s.Notes, &s.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	s.Category = commission.Category(category)
	s.BasisMode = commission.BasisMode(mode)
	s.Source.Kind = core.SourceKind(sourceKind)
	s.CreatedAt = time.Unix(0, createdAt).UTC()
	s.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if s.Date, err = core.ParseDate(date); err != nil {
		return snapshot.Snapshot{}, err
	}
	return s, nil
}

func (q *Queries) SnapshotBySource(ctx context.Context, src core.SourceRef) (snapshot.Snapshot, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM commission_snapshots WHERE source_kind = ? AND source_id = ?`,
		string(src.Kind), src.ID)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot.Snapshot{}, fmt.Errorf("%w: %s", snapshot.ErrSnapshotNotFound, src)
	}
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("snapshot by source %s: %w", src, err)
	}
	return s, nil
}

func (q *Queries) InsertSnapshot(ctx context.Context, s snapshot.Snapshot) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO commission_snapshots (`+snapshotColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.FiscalYearID, string(s.Category), s.Date.String(), string(s.BasisMode),
		s.Gross, s.Reconciliation, s.Net, s.BasisNominal, s.Percentage, s.CommissionAmount,
		string(s.Source.Kind), s.Source.ID, s.Notes, s.CreatedBy,
		s.CreatedAt.UnixNano(), s.UpdatedAt.UnixNano())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", snapshot.ErrSnapshotExists, s.Source)
	}
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// UpdateSnapshot overwrites the computed fields of the snapshot with s.ID.
func (q *Queries) UpdateSnapshot(ctx context.Context, s snapshot.Snapshot) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE commission_snapshots
		    SET fiscal_year_id = ?, category = ?, snapshot_date = ?, basis_mode = ?,
		        gross = ?, reconciliation = ?, net = ?, basis_nominal = ?, percentage = ?,
		        commission_amount = ?, notes = ?, updated_at = ?
		  WHERE id = ?`,
		s.FiscalYearID, string(s.Category), s.Date.String(), string(s.BasisMode),
		s.Gross, s.Reconciliation, s.Net, s.BasisNominal, s.Percentage,
		s.CommissionAmount, s.Notes, s.UpdatedAt.UnixNano(), s.ID)
	if err != nil {
		return fmt.Errorf("update snapshot %s: %w", s.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %s", snapshot.ErrSnapshotNotFound, s.ID)
	}
	return nil
}

func (q *Queries) DeleteSnapshotBySource(ctx context.Context, src core.SourceRef) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM commission_snapshots WHERE source_kind = ? AND source_id = ?`,
		string(src.Kind), src.ID)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", src, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", snapshot.ErrSnapshotNotFound, src)
	}
	return nil
}

// ListSnapshots returns the snapshots of a fiscal year, or all of them when
// fiscalYearID is empty, ordered by date.
func (q *Queries) ListSnapshots(ctx context.Context, fiscalYearID string) ([]snapshot.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM commission_snapshots`
	var args []any
	if fiscalYearID != "" {
		query += ` WHERE fiscal_year_id = ?`
		args = append(args, fiscalYearID)
	}
	query += ` ORDER BY snapshot_date, created_at`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
