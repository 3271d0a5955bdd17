package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"zakatledger/internal/core"
)

type storedEntry struct {
	core.LedgerEntry
	seq int
}

// memRepo is an in-memory Repository. WithinTx serializes transactions and
// rolls back on error.
type memRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	accounts map[string]core.Account
	entries  []storedEntry
	seq      int

	failInsert error
}

func newMemRepo(accounts ...core.Account) *memRepo {
	r := &memRepo{accounts: make(map[string]core.Account)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *memRepo) GetAccount(_ context.Context, id string) (core.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("get account %s: %w", id, core.ErrAccountNotFound)
	}
	return a, nil
}

func (r *memRepo) InsertAccount(_ context.Context, a core.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a
	return nil
}

func (r *memRepo) ListAccounts(_ context.Context) ([]core.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *memRepo) DeleteAccount(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return core.ErrAccountNotFound
	}
	for _, e := range r.entries {
		if e.AccountID == id {
			return core.ErrAccountHasEntries
		}
	}
	delete(r.accounts, id)
	return nil
}

func (r *memRepo) chain(accountID string) []storedEntry {
	var out []storedEntry
	for _, e := range r.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.EntryDate.Equal(b.EntryDate.Time) {
			return a.EntryDate.Before(b.EntryDate.Time)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.seq < b.seq
	})
	return out
}

func (r *memRepo) LatestEntry(_ context.Context, accountID string) (*core.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.chain(accountID)
	if len(c) == 0 {
		return nil, nil
	}
	e := c[len(c)-1].LedgerEntry
	return &e, nil
}

func (r *memRepo) EntryBySource(_ context.Context, src core.SourceRef) (core.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Source == src {
			return e.LedgerEntry, nil
		}
	}
	return core.LedgerEntry{}, fmt.Errorf("source %s: %w", src, core.ErrEntryNotFound)
}

func (r *memRepo) InsertEntry(_ context.Context, e core.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInsert != nil {
		return r.failInsert
	}
	for _, x := range r.entries {
		if x.Source == e.Source {
			return core.ErrDuplicateSource
		}
	}
	r.seq++
	r.entries = append(r.entries, storedEntry{LedgerEntry: e, seq: r.seq})
	return nil
}

func (r *memRepo) UpdateEntry(_ context.Context, e core.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == e.ID {
			r.entries[i].LedgerEntry = e
			return nil
		}
	}
	return core.ErrEntryNotFound
}

func (r *memRepo) DeleteEntry(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return core.ErrEntryNotFound
}

func (r *memRepo) ListEntries(_ context.Context, accountID string) ([]core.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.chain(accountID)
	out := make([]core.LedgerEntry, len(c))
	for i, e := range c {
		out[i] = e.LedgerEntry
	}
	return out, nil
}

func (r *memRepo) WithinTx(_ context.Context, fn func(tx EntryWriter) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	saved := append([]storedEntry(nil), r.entries...)
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.entries = saved
		r.mu.Unlock()
		return err
	}
	return nil
}

// clock hands out strictly increasing timestamps.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type countingIDs struct {
	mu sync.Mutex
	n  int
}

func (c *countingIDs) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return fmt.Sprintf("e%03d", c.n)
}

// pausingRepo holds the first LatestEntry read made outside a transaction
// after it has read, until release is closed.
type pausingRepo struct {
	*memRepo
	once    sync.Once
	reading chan struct{}
	release chan struct{}
}

func newPausingRepo(accounts ...core.Account) *pausingRepo {
	return &pausingRepo{
		memRepo: newMemRepo(accounts...),
		reading: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *pausingRepo) LatestEntry(ctx context.Context, accountID string) (*core.LedgerEntry, error) {
	e, err := r.memRepo.LatestEntry(ctx, accountID)
	r.once.Do(func() {
		close(r.reading)
		<-r.release
	})
	return e, err
}
