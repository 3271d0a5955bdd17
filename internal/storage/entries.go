package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zakatledger/internal/core"
)

const entryColumns = `id, account_id, entry_type, amount, balance_before, balance_after,
	entry_date, created_at, notes, reference_no, source_kind, source_id, created_by`

// Chain order: entry date, then creation time, then insertion order.
const entryChainOrder = `entry_date, created_at, rowid`

func scanEntry(row scanner) (core.LedgerEntry, error) {
	var (
		e          core.LedgerEntry
		entryType  string
		entryDate  string
		createdAt  int64
		sourceKind string
	)
	err := row.Scan(&e.ID, &e.AccountID, &entryType, &e.Amount, &e.BalanceBefore, &e.BalanceAfter,
		&entryDate, &createdAt, &e.Notes, &e.ReferenceNo, &sourceKind, &e.Source.ID, &e.CreatedBy)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	e.Type = core.EntryType(entryType)
	e.Source.Kind = core.SourceKind(sourceKind)
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	if e.EntryDate, err = core.ParseDate(entryDate); err != nil {
		return core.LedgerEntry{}, err
	}
	return e, nil
}

func (q *Queries) InsertEntry(ctx context.Context, e core.LedgerEntry) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AccountID, string(e.Type), e.Amount, e.BalanceBefore, e.BalanceAfter,
		e.EntryDate.String(), e.CreatedAt.UnixNano(), e.Notes, e.ReferenceNo,
		string(e.Source.Kind), e.Source.ID, e.CreatedBy)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", core.ErrDuplicateSource, e.Source)
	}
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// UpdateEntry rewrites every mutable column of the entry with e.ID.
func (q *Queries) UpdateEntry(ctx context.Context, e core.LedgerEntry) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE ledger_entries
		    SET account_id = ?, entry_type = ?, amount = ?, balance_before = ?, balance_after = ?,
		        entry_date = ?, created_at = ?, notes = ?, reference_no = ?
		  WHERE id = ?`,
		e.AccountID, string(e.Type), e.Amount, e.BalanceBefore, e.BalanceAfter,
		e.EntryDate.String(), e.CreatedAt.UnixNano(), e.Notes, e.ReferenceNo, e.ID)
	if err != nil {
		return fmt.Errorf("update ledger entry %s: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %s", core.ErrEntryNotFound, e.ID)
	}
	return nil
}

func (q *Queries) DeleteEntry(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ledger entry %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %s", core.ErrEntryNotFound, id)
	}
	return nil
}

// LatestEntry returns the newest entry of an account's chain, or nil.
func (q *Queries) LatestEntry(ctx context.Context, accountID string) (*core.LedgerEntry, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
		  WHERE account_id = ?
		  ORDER BY entry_date DESC, created_at DESC, rowid DESC
		  LIMIT 1`, accountID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest entry for account %s: %w", accountID, err)
	}
	return &e, nil
}

func (q *Queries) EntryBySource(ctx context.Context, src core.SourceRef) (core.LedgerEntry, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE source_kind = ? AND source_id = ?`,
		string(src.Kind), src.ID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, fmt.Errorf("%w: source %s", core.ErrEntryNotFound, src)
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("entry by source %s: %w", src, err)
	}
	return e, nil
}

// ListEntries returns an account's chain oldest first.
func (q *Queries) ListEntries(ctx context.Context, accountID string) ([]core.LedgerEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE account_id = ? ORDER BY `+entryChainOrder,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("list entries for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
