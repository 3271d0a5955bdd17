package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"zakatledger/internal/cache"
	"zakatledger/internal/core"
)

var (
	cashAccount = core.Account{ID: "cash", Channel: core.ChannelCash, Name: "Kas", Active: true, SortOrder: 1}
	bankAccount = core.Account{ID: "bank", Channel: core.ChannelBank, Name: "Bank", Active: true, SortOrder: 2}
	oldAccount  = core.Account{ID: "old", Channel: core.ChannelOther, Name: "Lama", Active: false, SortOrder: 3}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func actorCtx() context.Context {
	return core.WithActor(context.Background(), "user-1")
}

func newTestStore(t *testing.T, policy MidChainPolicy) (*Store, *memRepo, *cache.LRUCache[decimal.Decimal]) {
	t.Helper()
	repo := newMemRepo(cashAccount, bankAccount, oldAccount)
	balances := cache.NewLRUCache[decimal.Decimal](100, time.Hour)
	ids := &countingIDs{}
	s := NewStore(repo, Options{
		Balances: balances,
		MidChain: policy,
		Now:      newClock().Now,
		NewID:    ids.Next,
	})
	return s, repo, balances
}

func incomeRef(id string) core.SourceRef {
	return core.SourceRef{Kind: core.SourceCashIncome, ID: id}
}

func mustAppend(t *testing.T, s *Store, in AppendInput) *core.LedgerEntry {
	t.Helper()
	e, err := s.AppendEntry(actorCtx(), in)
	if err != nil {
		t.Fatalf("AppendEntry(%+v): %v", in, err)
	}
	return e
}

func TestAppendEntry_Chain(t *testing.T) {
	s, _, _ := newTestStore(t, MidChainReject)
	day := core.NewDate(2025, 3, 1)

	steps := []struct {
		typ    core.EntryType
		amount string
		before string
		after  string
	}{
		{core.EntryIn, "150000", "0", "150000"},
		{core.EntryOut, "50000", "150000", "100000"},
		{core.EntryAdjust, "2500.50", "100000", "102500.50"},
		{core.EntryOut, "200000", "102500.50", "-97499.50"},
	}

	for i, step := range steps {
		e := mustAppend(t, s, AppendInput{
			AccountID: "cash", Type: step.typ, Amount: dec(step.amount), Date: day,
			Source: incomeRef(string(rune('a' + i))),
		})
		if !e.BalanceBefore.Equal(dec(step.before)) || !e.BalanceAfter.Equal(dec(step.after)) {
			t.Errorf("step %d: got %s -> %s, want %s -> %s", i, e.BalanceBefore, e.BalanceAfter, step.before, step.after)
		}
		if e.CreatedBy != "user-1" {
			t.Errorf("step %d: CreatedBy = %q", i, e.CreatedBy)
		}
	}

	bal, err := s.CurrentBalance(context.Background(), "cash")
	if err != nil {
		t.Fatal(err)
	}
	if !bal.Equal(dec("-97499.50")) {
		t.Errorf("CurrentBalance = %s", bal)
	}

	breaks, err := s.VerifyChain(context.Background(), "cash")
	if err != nil {
		t.Fatal(err)
	}
	if len(breaks) != 0 {
		t.Errorf("unexpected chain breaks: %+v", breaks)
	}
}

// assertChain checks the cached balance and that the chain still links up.
func assertChain(t *testing.T, s *Store, accountID, want string) {
	t.Helper()
	bal, err := s.CurrentBalance(context.Background(), accountID)
	if err != nil {
		t.Fatal(err)
	}
	if !bal.Equal(dec(want)) {
		t.Errorf("CurrentBalance(%s) = %s, want %s", accountID, bal, want)
	}
	breaks, err := s.VerifyChain(context.Background(), accountID)
	if err != nil {
		t.Fatal(err)
	}
	if len(breaks) != 0 {
		t.Errorf("%s chain breaks: %+v", accountID, breaks)
	}
}

func TestAppendEntry_RejectsBackdated(t *testing.T) {
	for _, policy := range []MidChainPolicy{MidChainReject, MidChainAllow} {
		t.Run(string(policy), func(t *testing.T) {
			s, _, _ := newTestStore(t, policy)
			mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("100"),
				Date: core.NewDate(2025, 3, 10), Source: incomeRef("later")})

			_, err := s.AppendEntry(actorCtx(), AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("5"),
				Date: core.NewDate(2025, 3, 1), Source: incomeRef("earlier")})
			if !errors.Is(err, ErrBackdated) || core.KindOf(err) != core.KindValidation {
				t.Fatalf("expected validation ErrBackdated, got %v", err)
			}
			if _, err := s.EntryBySource(context.Background(), incomeRef("earlier")); core.KindOf(err) != core.KindNotFound {
				t.Errorf("rejected entry was stored: %v", err)
			}
			assertChain(t, s, "cash", "100")

			// Same day as the head still sorts after it.
			mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("5"),
				Date: core.NewDate(2025, 3, 10), Source: incomeRef("same-day")})
			assertChain(t, s, "cash", "105")
		})
	}
}

func TestAppendEntry_Errors(t *testing.T) {
	s, repo, _ := newTestStore(t, MidChainReject)
	valid := AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("10"), Source: incomeRef("x")}

	tests := []struct {
		name   string
		ctx    context.Context
		mutate func(*AppendInput)
		setup  func()
		want   core.Kind
	}{
		{"no actor", context.Background(), nil, nil, core.KindAuth},
		{"zero amount", actorCtx(), func(in *AppendInput) { in.Amount = decimal.Zero }, nil, core.KindValidation},
		{"negative amount", actorCtx(), func(in *AppendInput) { in.Amount = dec("-1") }, nil, core.KindValidation},
		{"bad type", actorCtx(), func(in *AppendInput) { in.Type = "MOVE" }, nil, core.KindValidation},
		{"bad source", actorCtx(), func(in *AppendInput) { in.Source = core.SourceRef{Kind: "gift", ID: "1"} }, nil, core.KindValidation},
		{"unknown account", actorCtx(), func(in *AppendInput) { in.AccountID = "nope" }, nil, core.KindNotFound},
		{"inactive account", actorCtx(), func(in *AppendInput) { in.AccountID = "old" }, nil, core.KindValidation},
		{"storage failure", actorCtx(), nil, func() { repo.failInsert = errors.New("disk I/O error") }, core.KindPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.failInsert = nil
			in := valid
			if tt.mutate != nil {
				tt.mutate(&in)
			}
			if tt.setup != nil {
				tt.setup()
			}
			_, err := s.AppendEntry(tt.ctx, in)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := core.KindOf(err); got != tt.want {
				t.Errorf("kind = %v, want %v (%v)", got, tt.want, err)
			}
		})
	}

	if n := len(repo.entries); n != 0 {
		t.Errorf("failed appends left %d entries behind", n)
	}
}

func TestUpdateEntryBySource_ReusesBalanceBefore(t *testing.T) {
	s, _, _ := newTestStore(t, MidChainReject)
	src := incomeRef("tx-1")

	mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("150000"), Source: src})

	e, err := s.UpdateEntryBySource(actorCtx(), UpdateInput{Source: src, Amount: dec("90000")})
	if err != nil {
		t.Fatalf("UpdateEntryBySource: %v", err)
	}
	if !e.BalanceBefore.IsZero() || !e.BalanceAfter.Equal(dec("90000")) {
		t.Errorf("got %s -> %s, want 0 -> 90000", e.BalanceBefore, e.BalanceAfter)
	}

	bal, _ := s.CurrentBalance(context.Background(), "cash")
	if !bal.Equal(dec("90000")) {
		t.Errorf("CurrentBalance = %s, want 90000", bal)
	}
}

func TestUpdateEntryBySource_MidChainPolicy(t *testing.T) {
	for _, policy := range []MidChainPolicy{MidChainReject, MidChainAllow} {
		t.Run(string(policy), func(t *testing.T) {
			s, _, _ := newTestStore(t, policy)
			mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("100"), Source: incomeRef("first")})
			mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("50"), Source: incomeRef("second")})

			e, err := s.UpdateEntryBySource(actorCtx(), UpdateInput{Source: incomeRef("first"), Amount: dec("70")})

			if policy == MidChainReject {
				if !errors.Is(err, ErrNotLatest) || core.KindOf(err) != core.KindValidation {
					t.Fatalf("expected validation ErrNotLatest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateEntryBySource: %v", err)
			}
			if !e.BalanceAfter.Equal(dec("70")) {
				t.Errorf("BalanceAfter = %s, want 70", e.BalanceAfter)
			}
			// No cascade: the later entry keeps its stale balance_before.
			breaks, _ := s.VerifyChain(context.Background(), "cash")
			if len(breaks) != 1 || breaks[0].Reason != ReasonLinkage {
				t.Errorf("expected one linkage break, got %+v", breaks)
			}
			bal, _ := s.CurrentBalance(context.Background(), "cash")
			if !bal.Equal(dec("150")) {
				t.Errorf("CurrentBalance = %s, want 150", bal)
			}
		})
	}
}

func TestUpdateEntryBySource_MovesAccount(t *testing.T) {
	s, _, _ := newTestStore(t, MidChainReject)
	mustAppend(t, s, AppendInput{AccountID: "bank", Type: core.EntryIn, Amount: dec("1000"), Source: incomeRef("seed")})
	mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("300"), Source: incomeRef("move")})

	e, err := s.UpdateEntryBySource(actorCtx(), UpdateInput{Source: incomeRef("move"), Amount: dec("400"), AccountID: "bank"})
	if err != nil {
		t.Fatalf("UpdateEntryBySource: %v", err)
	}
	if e.AccountID != "bank" || !e.BalanceBefore.Equal(dec("1000")) || !e.BalanceAfter.Equal(dec("1400")) {
		t.Errorf("moved entry = %+v", e)
	}

	cash, _ := s.CurrentBalance(context.Background(), "cash")
	bank, _ := s.CurrentBalance(context.Background(), "bank")
	if !cash.IsZero() || !bank.Equal(dec("1400")) {
		t.Errorf("balances cash=%s bank=%s", cash, bank)
	}
}

func TestUpdateEntryBySource_RedateKeepsHead(t *testing.T) {
	s, _, _ := newTestStore(t, MidChainReject)
	mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("100"),
		Date: core.NewDate(2025, 3, 5), Source: incomeRef("a")})
	mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("50"),
		Date: core.NewDate(2025, 3, 10), Source: incomeRef("b")})

	_, err := s.UpdateEntryBySource(actorCtx(), UpdateInput{Source: incomeRef("b"), Amount: dec("50"), Date: core.NewDate(2025, 3, 1)})
	if !errors.Is(err, ErrBackdated) || core.KindOf(err) != core.KindValidation {
		t.Fatalf("expected validation ErrBackdated, got %v", err)
	}
	b, _ := s.EntryBySource(context.Background(), incomeRef("b"))
	if !b.EntryDate.Equal(core.NewDate(2025, 3, 10).Time) {
		t.Errorf("rejected redate was stored: %s", b.EntryDate)
	}
	assertChain(t, s, "cash", "150")

	for _, day := range []int{7, 5, 20} {
		if _, err := s.UpdateEntryBySource(actorCtx(), UpdateInput{Source: incomeRef("b"), Amount: dec("60"), Date: core.NewDate(2025, 3, day)}); err != nil {
			t.Fatalf("redate to 2025-03-%02d: %v", day, err)
		}
	}
	assertChain(t, s, "cash", "160")
}

func TestUpdateEntryBySource_MoveRejectsBackdated(t *testing.T) {
	s, _, _ := newTestStore(t, MidChainReject)
	mustAppend(t, s, AppendInput{AccountID: "bank", Type: core.EntryIn, Amount: dec("1000"),
		Date: core.NewDate(2025, 3, 10), Source: incomeRef("seed")})
	mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("300"),
		Date: core.NewDate(2025, 3, 1), Source: incomeRef("move")})

	_, err := s.UpdateEntryBySource(actorCtx(), UpdateInput{Source: incomeRef("move"), Amount: dec("300"), AccountID: "bank"})
	if !errors.Is(err, ErrBackdated) {
		t.Fatalf("expected ErrBackdated, got %v", err)
	}
	assertChain(t, s, "cash", "300")
	assertChain(t, s, "bank", "1000")

	e, err := s.UpdateEntryBySource(actorCtx(), UpdateInput{Source: incomeRef("move"), Amount: dec("300"),
		AccountID: "bank", Date: core.NewDate(2025, 3, 10)})
	if err != nil {
		t.Fatalf("move with a current date: %v", err)
	}
	if e.AccountID != "bank" || !e.BalanceBefore.Equal(dec("1000")) {
		t.Errorf("moved entry = %+v", e)
	}
	assertChain(t, s, "cash", "0")
	assertChain(t, s, "bank", "1300")
}

func TestUpdateEntryBySource_Errors(t *testing.T) {
	s, _, _ := newTestStore(t, MidChainReject)
	mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("10"), Source: incomeRef("a")})

	tests := []struct {
		name string
		ctx  context.Context
		in   UpdateInput
		want core.Kind
	}{
		{"no actor", context.Background(), UpdateInput{Source: incomeRef("a"), Amount: dec("1")}, core.KindAuth},
		{"missing source", actorCtx(), UpdateInput{Source: incomeRef("zzz"), Amount: dec("1")}, core.KindNotFound},
		{"zero amount", actorCtx(), UpdateInput{Source: incomeRef("a"), Amount: decimal.Zero}, core.KindValidation},
		{"move to inactive", actorCtx(), UpdateInput{Source: incomeRef("a"), Amount: dec("1"), AccountID: "old"}, core.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.UpdateEntryBySource(tt.ctx, tt.in)
			if got := core.KindOf(err); got != tt.want {
				t.Errorf("kind = %v, want %v (%v)", got, tt.want, err)
			}
		})
	}
}

func TestDeleteEntryBySource(t *testing.T) {
	s, _, _ := newTestStore(t, MidChainReject)
	src := incomeRef("only")
	mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("150000"), Source: src})

	if err := s.DeleteEntryBySource(actorCtx(), src); err != nil {
		t.Fatalf("DeleteEntryBySource: %v", err)
	}
	bal, err := s.CurrentBalance(context.Background(), "cash")
	if err != nil {
		t.Fatal(err)
	}
	if !bal.IsZero() {
		t.Errorf("CurrentBalance = %s, want 0", bal)
	}

	err = s.DeleteEntryBySource(actorCtx(), src)
	if core.KindOf(err) != core.KindNotFound {
		t.Errorf("second delete: got %v, want not found", err)
	}
	if err := s.DeleteEntryBySource(context.Background(), src); core.KindOf(err) != core.KindAuth {
		t.Errorf("delete without actor: got %v", err)
	}
}

func TestDeleteEntryBySource_MidChainKeepsLaterEntries(t *testing.T) {
	s, _, _ := newTestStore(t, MidChainReject)
	mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("100"), Source: incomeRef("a")})
	mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("20"), Source: incomeRef("b")})

	if err := s.DeleteEntryBySource(actorCtx(), incomeRef("a")); err != nil {
		t.Fatal(err)
	}
	bal, _ := s.CurrentBalance(context.Background(), "cash")
	if !bal.Equal(dec("120")) {
		t.Errorf("CurrentBalance = %s, want 120 (no recompute)", bal)
	}
}

func TestCurrentBalance_CacheInvalidation(t *testing.T) {
	s, _, balances := newTestStore(t, MidChainReject)
	ctx := context.Background()

	if _, err := s.CurrentBalance(ctx, "cash"); err != nil {
		t.Fatal(err)
	}
	if _, ok := balances.Get(balanceKey("cash")); !ok {
		t.Fatal("balance was not cached")
	}
	if _, err := s.TotalBalance(ctx); err != nil {
		t.Fatal(err)
	}

	mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("5"), Source: incomeRef("c")})

	if _, ok := balances.Get(balanceKey("cash")); ok {
		t.Error("append did not invalidate the account balance")
	}
	if _, ok := balances.Get(totalBalanceKey); ok {
		t.Error("append did not invalidate the total balance")
	}

	total, err := s.TotalBalance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !total.Equal(dec("5")) {
		t.Errorf("TotalBalance = %s, want 5", total)
	}
}

func TestBalanceFill_DoesNotOverwriteConcurrentWrite(t *testing.T) {
	reads := map[string]func(*Store) (decimal.Decimal, error){
		"account": func(s *Store) (decimal.Decimal, error) { return s.CurrentBalance(context.Background(), "cash") },
		"total":   func(s *Store) (decimal.Decimal, error) { return s.TotalBalance(context.Background()) },
	}
	for name, read := range reads {
		t.Run(name, func(t *testing.T) {
			repo := newPausingRepo(cashAccount, bankAccount)
			s := NewStore(repo, Options{Now: newClock().Now, NewID: (&countingIDs{}).Next})

			readErr := make(chan error, 1)
			go func() {
				_, err := read(s)
				readErr <- err
			}()
			<-repo.reading

			wrote := make(chan error, 1)
			go func() {
				_, err := s.AppendEntry(actorCtx(), AppendInput{AccountID: "cash", Type: core.EntryIn,
					Amount: dec("150000"), Source: incomeRef("w")})
				wrote <- err
			}()

			// The write must not finish while the reader still holds its stale value.
			var writeErr error
			finished := false
			select {
			case writeErr = <-wrote:
				finished = true
			case <-time.After(50 * time.Millisecond):
			}
			close(repo.release)
			if !finished {
				writeErr = <-wrote
			}
			if err := <-readErr; err != nil {
				t.Fatalf("read: %v", err)
			}
			if writeErr != nil {
				t.Fatalf("AppendEntry: %v", writeErr)
			}

			got, err := read(s)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(dec("150000")) {
				t.Errorf("cached %s balance = %s after the write, want 150000", name, got)
			}
		})
	}
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingInvalidator) InvalidateBalances(_ context.Context, ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, ids...)
}

func TestStore_NotifiesInvalidators(t *testing.T) {
	s, _, _ := newTestStore(t, MidChainReject)
	inv := &recordingInvalidator{}
	s.OnInvalidate(inv)

	mustAppend(t, s, AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("5"), Source: incomeRef("c")})
	if _, err := s.UpdateEntryBySource(actorCtx(), UpdateInput{Source: incomeRef("c"), Amount: dec("6")}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntryBySource(actorCtx(), incomeRef("c")); err != nil {
		t.Fatal(err)
	}
	if len(inv.ids) != 4 { // update notifies old and new account
		t.Errorf("invalidations = %v", inv.ids)
	}
}

func TestAppendEntry_Concurrent(t *testing.T) {
	s, _, _ := newTestStore(t, MidChainReject)
	const n = 40

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AppendEntry(actorCtx(), AppendInput{
				AccountID: "cash", Type: core.EntryIn, Amount: dec("1"),
				Date: core.NewDate(2025, 3, 1), Source: incomeRef(string(rune('A' + i))),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	bal, _ := s.CurrentBalance(context.Background(), "cash")
	if !bal.Equal(decimal.NewFromInt(n)) {
		t.Errorf("CurrentBalance = %s, want %d", bal, n)
	}
	breaks, _ := s.VerifyChain(context.Background(), "cash")
	if len(breaks) != 0 {
		t.Errorf("chain broken under concurrency: %+v", breaks)
	}
}

func TestAccounts(t *testing.T) {
	s, _, _ := newTestStore(t, MidChainReject)
	ctx := actorCtx()

	acc, err := s.CreateAccount(ctx, NewAccount{Channel: core.ChannelBank, Name: "  BSI  ", SortOrder: 9})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acc.Name != "BSI" || !acc.Active {
		t.Errorf("account = %+v", acc)
	}
	if _, err := s.CreateAccount(ctx, NewAccount{Channel: "crypto", Name: "x"}); core.KindOf(err) != core.KindValidation {
		t.Errorf("bad channel: %v", err)
	}

	mustAppend(t, s, AppendInput{AccountID: acc.ID, Type: core.EntryIn, Amount: dec("1"), Source: incomeRef("k")})
	if err := s.DeleteAccount(ctx, acc.ID); core.KindOf(err) != core.KindValidation {
		t.Errorf("delete with entries: %v", err)
	}
	if err := s.DeleteAccount(ctx, "bank"); err != nil {
		t.Errorf("delete empty account: %v", err)
	}
	if _, err := s.GetAccount(ctx, "bank"); core.KindOf(err) != core.KindNotFound {
		t.Errorf("get deleted account: %v", err)
	}
}

func TestCheckChain(t *testing.T) {
	entries := []core.LedgerEntry{
		{ID: "1", Type: core.EntryIn, Amount: dec("10"), BalanceBefore: dec("0"), BalanceAfter: dec("10")},
		{ID: "2", Type: core.EntryOut, Amount: dec("3"), BalanceBefore: dec("10"), BalanceAfter: dec("8")},
		{ID: "3", Type: core.EntryIn, Amount: dec("1"), BalanceBefore: dec("7"), BalanceAfter: dec("8")},
	}
	breaks := CheckChain(entries)
	if len(breaks) != 2 {
		t.Fatalf("breaks = %+v", breaks)
	}
	if breaks[0].EntryID != "2" || breaks[0].Reason != ReasonArithmetic || !breaks[0].Want.Equal(dec("7")) {
		t.Errorf("first break = %+v", breaks[0])
	}
	if breaks[1].EntryID != "3" || breaks[1].Reason != ReasonLinkage || !breaks[1].Want.Equal(dec("8")) {
		t.Errorf("second break = %+v", breaks[1])
	}
}

func TestAppendEntry_DuplicateSource(t *testing.T) {
	s, _, _ := newTestStore(t, MidChainReject)
	in := AppendInput{AccountID: "cash", Type: core.EntryIn, Amount: dec("1"), Source: incomeRef("dup")}
	mustAppend(t, s, in)

	_, err := s.AppendEntry(actorCtx(), in)
	if !errors.Is(err, core.ErrDuplicateSource) || core.KindOf(err) != core.KindValidation {
		t.Errorf("expected validation ErrDuplicateSource, got %v", err)
	}
}
