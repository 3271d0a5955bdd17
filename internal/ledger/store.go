// Package ledger keeps the per-account running-balance chains.
//
// Every entry carries the account balance immediately before and after it.
// Writes to one account are serialized through a lock.Locker and run inside
// a single repository transaction; reads of the current balance are cached
// and every mutation invalidates the affected keys.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"zakatledger/internal/cache"
	"zakatledger/internal/core"
	"zakatledger/internal/lock"
	"zakatledger/internal/log"
)

// MidChainPolicy decides what happens when an update targets an entry that
// is no longer the latest on its account.
type MidChainPolicy string

const (
	// MidChainReject refuses the update with ErrNotLatest, including a date
	// edit that would move the latest entry behind an earlier one.
	MidChainReject MidChainPolicy = "reject"
	// MidChainAllow rewrites the entry in place and leaves later entries stale.
	MidChainAllow MidChainPolicy = "allow"
)

const totalBalanceKey = "balance:total"

var (
	ErrNotLatest = errors.New("entry is not the latest on its account")
	// ErrBackdated is returned when a write would not land at the head of
	// the account's chain.
	ErrBackdated  = errors.New("entry date is earlier than the account's latest entry")
	errEntryMoved = errors.New("entry moved to another account concurrently")
)

// Invalidator is notified after every mutation that changes balances.
type Invalidator interface {
	InvalidateBalances(ctx context.Context, accountIDs ...string)
}

// Options configures a Store. Zero values fall back to a process-local
// locker, an in-memory balance cache, the reject mid-chain policy, the wall
// clock and random UUIDs.
type Options struct {
	Locker   lock.Locker
	Balances cache.Cache[decimal.Decimal]
	MidChain MidChainPolicy
	Now      func() time.Time
	NewID    func() string
}

// Store owns the ledger chains. It is safe for concurrent use; writes to
// one account are serialized by the configured locker.
type Store struct {
	repo         Repository
	locker       lock.Locker
	balances     cache.Cache[decimal.Decimal]
	midChain     MidChainPolicy
	now          func() time.Time
	newID        func() string
	log          *log.Logger
	invalidators []Invalidator
}

// NewStore creates a Store over repo.
func NewStore(repo Repository, opts Options) *Store {
	s := &Store{
		repo:     repo,
		locker:   opts.Locker,
		balances: opts.Balances,
		midChain: opts.MidChain,
		now:      opts.Now,
		newID:    opts.NewID,
		log:      log.Default(log.ComponentLedger),
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.balances == nil {
		s.balances = cache.NewLRUCache[decimal.Decimal](1024, 5*time.Minute)
	}
	if s.midChain == "" {
		s.midChain = MidChainReject
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// OnInvalidate registers a collaborator holding its own balance views.
func (s *Store) OnInvalidate(inv Invalidator) {
	s.invalidators = append(s.invalidators, inv)
}

type AppendInput struct {
	AccountID   string
	Type        core.EntryType
	Amount      decimal.Decimal
	Date        core.Date // zero means today
	Notes       string
	ReferenceNo string
	Source      core.SourceRef
}

func (in AppendInput) validate() error {
	if strings.TrimSpace(in.AccountID) == "" {
		return fmt.Errorf("%w: empty account id", core.ErrAccountNotFound)
	}
	if err := in.Type.Validate(); err != nil {
		return err
	}
	if err := core.ValidateAmount(in.Amount); err != nil {
		return err
	}
	return in.Source.Validate()
}

// AppendEntry adds an entry at the head of the account's chain. An entry
// dated before the current head is refused with ErrBackdated.
func (s *Store) AppendEntry(ctx context.Context, in AppendInput) (*core.LedgerEntry, error) {
	const op = "ledger.AppendEntry"

	actor, err := core.RequireActor(ctx, op)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, core.Validation(op, err)
	}
	date := in.Date
	if date.IsZero() {
		date = core.Today()
	}

	unlock, err := s.lockAccounts(ctx, in.AccountID)
	if err != nil {
		return nil, core.Persistence(op, err)
	}
	defer unlock()

	var entry core.LedgerEntry
	err = s.repo.WithinTx(ctx, func(tx EntryWriter) error {
		if err := requireActiveAccount(ctx, tx, in.AccountID); err != nil {
			return err
		}
		latest, err := tx.LatestEntry(ctx, in.AccountID)
		if err != nil {
			return err
		}

		entry = core.LedgerEntry{
			ID:            s.newID(),
			AccountID:     in.AccountID,
			Type:          in.Type,
			Amount:        in.Amount,
			BalanceBefore: balanceOf(latest),
			EntryDate:     date,
			CreatedAt:     s.now().UTC(),
			Notes:         in.Notes,
			ReferenceNo:   in.ReferenceNo,
			Source:        in.Source,
			CreatedBy:     actor,
		}
		entry.BalanceAfter = entry.Type.Apply(entry.BalanceBefore, entry.Amount)
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}
		return requireHead(ctx, tx, entry)
	})
	observe(log.OpAppend, err)
	if err != nil {
		err = classify(op, err)
		s.log.ErrorContext(ctx, "Failed to append ledger entry",
			log.NewFields().WithSource(in.Source).WithError(err).ToSlice()...)
		return nil, err
	}

	s.invalidate(ctx, entry.AccountID)
	s.log.InfoContext(ctx, "Ledger entry appended",
		log.NewFields().WithEntry(entry).WithOperation(log.OpAppend).ToSlice()...)
	return &entry, nil
}

type UpdateInput struct {
	Source core.SourceRef
	Amount decimal.Decimal
	// AccountID moves the entry to another account when set and different.
	AccountID string
	// Date replaces the entry date when non-zero.
	Date core.Date
	// Notes replaces the notes when non-nil.
	Notes *string
}

// UpdateEntryBySource rewrites the amount of the entry linked to in.Source.
// Only that entry's balance_after is recomputed, from its own balance_before.
func (s *Store) UpdateEntryBySource(ctx context.Context, in UpdateInput) (*core.LedgerEntry, error) {
	const op = "ledger.UpdateEntryBySource"

	if _, err := core.RequireActor(ctx, op); err != nil {
		return nil, err
	}
	if err := in.Source.Validate(); err != nil {
		return nil, core.Validation(op, err)
	}
	if err := core.ValidateAmount(in.Amount); err != nil {
		return nil, core.Validation(op, err)
	}

	current, err := s.repo.EntryBySource(ctx, in.Source)
	if err != nil {
		return nil, classify(op, err)
	}
	target := current.AccountID
	if in.AccountID != "" {
		target = in.AccountID
	}

	unlock, err := s.lockAccounts(ctx, current.AccountID, target)
	if err != nil {
		return nil, core.Persistence(op, err)
	}
	defer unlock()

	var entry core.LedgerEntry
	err = s.repo.WithinTx(ctx, func(tx EntryWriter) error {
		e, err := tx.EntryBySource(ctx, in.Source)
		if err != nil {
			return err
		}
		if e.AccountID != current.AccountID {
			return errEntryMoved
		}
		if s.midChain == MidChainReject {
			latest, err := tx.LatestEntry(ctx, e.AccountID)
			if err != nil {
				return err
			}
			if latest == nil || latest.ID != e.ID {
				return fmt.Errorf("%w: source %s", ErrNotLatest, in.Source)
			}
		}

		redated := !in.Date.IsZero() && !in.Date.Equal(e.EntryDate.Time)
		if redated {
			e.EntryDate = in.Date
		}
		if in.Notes != nil {
			e.Notes = *in.Notes
		}
		e.Amount = in.Amount

		if target != e.AccountID {
			if err := requireActiveAccount(ctx, tx, target); err != nil {
				return err
			}
			head, err := tx.LatestEntry(ctx, target)
			if err != nil {
				return err
			}
			e.AccountID = target
			e.BalanceBefore = balanceOf(head)
			e.CreatedAt = s.now().UTC()
		}
		e.BalanceAfter = e.Type.Apply(e.BalanceBefore, e.Amount)

		entry = e
		if err := tx.UpdateEntry(ctx, e); err != nil {
			return err
		}
		// A moved entry is a new head on the target account. Under the
		// reject policy a redated entry must stay the head of its own.
		if target != current.AccountID || (redated && s.midChain == MidChainReject) {
			return requireHead(ctx, tx, e)
		}
		return nil
	})
	observe(log.OpUpdate, err)
	if err != nil {
		err = classify(op, err)
		s.log.ErrorContext(ctx, "Failed to update ledger entry",
			log.NewFields().WithSource(in.Source).WithError(err).ToSlice()...)
		return nil, err
	}

	s.invalidate(ctx, current.AccountID, entry.AccountID)
	s.log.InfoContext(ctx, "Ledger entry updated",
		log.NewFields().WithEntry(entry).WithOperation(log.OpUpdate).ToSlice()...)
	return &entry, nil
}

// DeleteEntryBySource removes the entry linked to src. Later entries keep
// their balances.
func (s *Store) DeleteEntryBySource(ctx context.Context, src core.SourceRef) error {
	const op = "ledger.DeleteEntryBySource"

	if _, err := core.RequireActor(ctx, op); err != nil {
		return err
	}
	if err := src.Validate(); err != nil {
		return core.Validation(op, err)
	}

	current, err := s.repo.EntryBySource(ctx, src)
	if err != nil {
		return classify(op, err)
	}

	unlock, err := s.lockAccounts(ctx, current.AccountID)
	if err != nil {
		return core.Persistence(op, err)
	}
	defer unlock()

	err = s.repo.WithinTx(ctx, func(tx EntryWriter) error {
		e, err := tx.EntryBySource(ctx, src)
		if err != nil {
			return err
		}
		if e.AccountID != current.AccountID {
			return errEntryMoved
		}
		return tx.DeleteEntry(ctx, e.ID)
	})
	observe(log.OpDelete, err)
	if err != nil {
		err = classify(op, err)
		s.log.ErrorContext(ctx, "Failed to delete ledger entry",
			log.NewFields().WithSource(src).WithError(err).ToSlice()...)
		return err
	}

	s.invalidate(ctx, current.AccountID)
	s.log.InfoContext(ctx, "Ledger entry deleted",
		log.NewFields().WithEntry(current).WithOperation(log.OpDelete).ToSlice()...)
	return nil
}

// CurrentBalance is the latest entry's balance_after, or zero. A cache miss
// is filled under the account lock so a concurrent write cannot have its
// invalidation overwritten by the value read before it committed.
func (s *Store) CurrentBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	const op = "ledger.CurrentBalance"

	if bal, ok := s.balances.Get(balanceKey(accountID)); ok {
		return bal, nil
	}

	unlock, err := s.lockAccounts(ctx, accountID)
	if err != nil {
		return decimal.Zero, core.Persistence(op, err)
	}
	defer unlock()
	return s.loadBalance(ctx, op, accountID)
}

// loadBalance reads and caches one account balance. The caller holds the
// account lock.
func (s *Store) loadBalance(ctx context.Context, op, accountID string) (decimal.Decimal, error) {
	key := balanceKey(accountID)
	if bal, ok := s.balances.Get(key); ok {
		return bal, nil
	}

	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return decimal.Zero, classify(op, err)
	}
	latest, err := s.repo.LatestEntry(ctx, accountID)
	if err != nil {
		return decimal.Zero, classify(op, err)
	}

	bal := balanceOf(latest)
	s.balances.Set(key, bal)
	return bal, nil
}

// AccountBalance pairs an account with its current balance.
type AccountBalance struct {
	Account core.Account    `json:"account"`
	Balance decimal.Decimal `json:"balance"`
}

// Summary is the aggregate balance view over active accounts.
type Summary struct {
	Accounts []AccountBalance `json:"accounts"`
	Total    decimal.Decimal  `json:"total"`
}

// Balances lists every active account with its balance and the total. When
// any figure is missing from the cache all active accounts are locked while
// the summary is rebuilt.
func (s *Store) Balances(ctx context.Context) (Summary, error) {
	const op = "ledger.Balances"

	all, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return Summary{}, classify(op, err)
	}
	var accounts []core.Account
	for _, a := range all {
		if a.Active {
			accounts = append(accounts, a)
		}
	}
	if sum, ok := s.cachedSummary(accounts); ok {
		return sum, nil
	}

	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	unlock, err := s.lockAccounts(ctx, ids...)
	if err != nil {
		return Summary{}, core.Persistence(op, err)
	}
	defer unlock()

	sum := Summary{Total: decimal.Zero}
	for _, a := range accounts {
		bal, err := s.loadBalance(ctx, op, a.ID)
		if err != nil {
			return Summary{}, err
		}
		sum.Accounts = append(sum.Accounts, AccountBalance{Account: a, Balance: bal})
		sum.Total = sum.Total.Add(bal)
	}
	s.balances.Set(totalBalanceKey, sum.Total)
	return sum, nil
}

func (s *Store) cachedSummary(accounts []core.Account) (Summary, bool) {
	total, ok := s.balances.Get(totalBalanceKey)
	if !ok {
		return Summary{}, false
	}
	sum := Summary{Total: total}
	for _, a := range accounts {
		bal, ok := s.balances.Get(balanceKey(a.ID))
		if !ok {
			return Summary{}, false
		}
		sum.Accounts = append(sum.Accounts, AccountBalance{Account: a, Balance: bal})
	}
	return sum, true
}

// TotalBalance is the cached sum of all active account balances.
func (s *Store) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	if total, ok := s.balances.Get(totalBalanceKey); ok {
		return total, nil
	}
	sum, err := s.Balances(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return sum.Total, nil
}

// EntryBySource returns the entry linked to src.
func (s *Store) EntryBySource(ctx context.Context, src core.SourceRef) (*core.LedgerEntry, error) {
	const op = "ledger.EntryBySource"

	if err := src.Validate(); err != nil {
		return nil, core.Validation(op, err)
	}
	e, err := s.repo.EntryBySource(ctx, src)
	if err != nil {
		return nil, classify(op, err)
	}
	return &e, nil
}

// Entries returns an account's chain oldest first.
func (s *Store) Entries(ctx context.Context, accountID string) ([]core.LedgerEntry, error) {
	const op = "ledger.Entries"

	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, classify(op, err)
	}
	entries, err := s.repo.ListEntries(ctx, accountID)
	if err != nil {
		return nil, classify(op, err)
	}
	return entries, nil
}

func (s *Store) lockAccounts(ctx context.Context, accountIDs ...string) (func(), error) {
	start := time.Now()
	keys := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		keys[i] = "account:" + id
	}
	unlock, err := lock.LockAll(ctx, s.locker, keys...)
	lockWaitSeconds.Observe(time.Since(start).Seconds())
	return unlock, err
}

func (s *Store) invalidate(ctx context.Context, accountIDs ...string) {
	keys := make([]string, 0, len(accountIDs)+1)
	for _, id := range accountIDs {
		keys = append(keys, balanceKey(id))
	}
	s.balances.Delete(append(keys, totalBalanceKey)...)
	for _, inv := range s.invalidators {
		inv.InvalidateBalances(ctx, accountIDs...)
	}
}

func balanceKey(accountID string) string {
	return "balance:" + accountID
}

func balanceOf(e *core.LedgerEntry) decimal.Decimal {
	if e == nil {
		return decimal.Zero
	}
	return e.BalanceAfter
}

// requireHead fails with ErrBackdated unless e sorts last on its account.
func requireHead(ctx context.Context, tx EntryWriter, e core.LedgerEntry) error {
	head, err := tx.LatestEntry(ctx, e.AccountID)
	if err != nil {
		return err
	}
	if head == nil || head.ID != e.ID {
		return fmt.Errorf("%w: %s on %s", ErrBackdated, e.EntryDate, e.AccountID)
	}
	return nil
}

func requireActiveAccount(ctx context.Context, tx EntryWriter, id string) error {
	acc, err := tx.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if !acc.Active {
		return fmt.Errorf("%w: %s", core.ErrAccountInactive, id)
	}
	return nil
}

// classify maps repository and domain errors onto the public error kinds.
func classify(op string, err error) error {
	var tagged *core.Error
	switch {
	case errors.As(err, &tagged):
		return err
	case errors.Is(err, core.ErrAccountNotFound), errors.Is(err, core.ErrEntryNotFound):
		return core.NotFound(op, err)
	case errors.Is(err, core.ErrAccountInactive),
		errors.Is(err, core.ErrAccountHasEntries),
		errors.Is(err, core.ErrDuplicateSource),
		errors.Is(err, ErrNotLatest),
		errors.Is(err, ErrBackdated):
		return core.Validation(op, err)
	default:
		return core.Persistence(op, err)
	}
}
