package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zakatledger/internal/core"
)

const accountColumns = `id, channel, name, active, sort_order, created_at`

func scanAccount(row scanner) (core.Account, error) {
	var (
		a         core.Account
		channel   string
		active    int64
		createdAt int64
	)
	if err := row.Scan(&a.ID, &channel, &a.Name, &active, &a.SortOrder, &createdAt); err != nil {
		return core.Account{}, err
	}
	a.Channel = core.Channel(channel)
	a.Active = active == 1
	a.CreatedAt = time.Unix(0, createdAt).UTC()
	return a, nil
}

func (q *Queries) InsertAccount(ctx context.Context, a core.Account) error {
	active := 0
	if a.Active {
		active = 1
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Channel), a.Name, active, a.SortOrder, a.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	slog.InfoContext(ctx, "Account saved to SQLite",
		"id", a.ID,
		"channel", a.Channel,
		"name", a.Name)

	return nil
}

func (q *Queries) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("%w: %s", core.ErrAccountNotFound, id)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAccount removes an account that has no ledger entries.
func (q *Queries) DeleteAccount(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %s", core.ErrAccountHasEntries, id)
	}
	if err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", core.ErrAccountNotFound, id)
	}
	return nil
}
