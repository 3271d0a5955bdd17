package ledger

import (
	"context"

	"zakatledger/internal/core"
)

// EntryWriter is the transactional view of the ledger tables.
type EntryWriter interface {
	GetAccount(ctx context.Context, id string) (core.Account, error)
	LatestEntry(ctx context.Context, accountID string) (*core.LedgerEntry, error)
	EntryBySource(ctx context.Context, src core.SourceRef) (core.LedgerEntry, error)
	InsertEntry(ctx context.Context, e core.LedgerEntry) error
	UpdateEntry(ctx context.Context, e core.LedgerEntry) error
	DeleteEntry(ctx context.Context, id string) error
}

// Repository persists accounts and entries. Not-found conditions are
// reported by wrapping core.ErrAccountNotFound or core.ErrEntryNotFound.
type Repository interface {
	EntryWriter
	InsertAccount(ctx context.Context, a core.Account) error
	ListAccounts(ctx context.Context) ([]core.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	ListEntries(ctx context.Context, accountID string) ([]core.LedgerEntry, error)
	WithinTx(ctx context.Context, fn func(tx EntryWriter) error) error
}
