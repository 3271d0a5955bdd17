package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"zakatledger/internal/core"
	"zakatledger/internal/ledger"
	"zakatledger/internal/snapshot"
)

var (
	ErrSignChanged   = errors.New("entry direction cannot change; cancel and record again")
	ErrZeroAmount    = errors.New("amount must not be zero")
	ErrMissingAmount = errors.New("amount must be greater than zero")
)

// LedgerWriter is the part of the ledger store transactions post through.
type LedgerWriter interface {
	AppendEntry(ctx context.Context, in ledger.AppendInput) (*core.LedgerEntry, error)
	UpdateEntryBySource(ctx context.Context, in ledger.UpdateInput) (*core.LedgerEntry, error)
	DeleteEntryBySource(ctx context.Context, src core.SourceRef) error
	EntryBySource(ctx context.Context, src core.SourceRef) (*core.LedgerEntry, error)
}

// Transaction is a financial record created, edited or cancelled upstream.
//
// Amount is the collected value for income kinds and manual entries. For
// reconciliations it is the signed adjustment r: positive removes funds from
// the category total, negative adds them back.
type Transaction struct {
	Kind         core.SourceKind `json:"kind" validate:"required,oneof=cash_income inkind_income reconciliation manual"`
	ID           string          `json:"id" validate:"required,max=64"`
	FiscalYearID string          `json:"fiscal_year_id" validate:"required_unless=Kind manual,max=32"`
	RawCategory  string          `json:"category" validate:"max=100"`
	Amount       decimal.Decimal `json:"amount"`
	// EntryType is only read for manual entries.
	EntryType   core.EntryType `json:"entry_type,omitempty" validate:"omitempty,oneof=IN OUT ADJUST"`
	AccountID   string         `json:"account_id,omitempty" validate:"max=64"`
	Date        core.Date      `json:"date"`
	Notes       string         `json:"notes,omitempty" validate:"max=500"`
	ReferenceNo string         `json:"reference_no,omitempty" validate:"max=100"`
}

func (t Transaction) Source() core.SourceRef {
	return core.SourceRef{Kind: t.Kind, ID: strings.TrimSpace(t.ID)}
}

// posting returns the ledger entry a transaction produces, or false when it
// produces none.
func (t Transaction) posting() (core.EntryType, decimal.Decimal, bool) {
	switch t.Kind {
	case core.SourceReconciliation:
		if t.Amount.Sign() > 0 {
			return core.EntryOut, t.Amount, true
		}
		return core.EntryAdjust, t.Amount.Abs(), true
	case core.SourceManual:
		return t.EntryType, t.Amount, true
	case core.SourceInKindIncome:
		if t.AccountID == "" {
			return "", decimal.Zero, false
		}
		return core.EntryIn, t.Amount, true
	default:
		return core.EntryIn, t.Amount, true
	}
}

// snapshotInput returns the commission input for t, or false for manual
// entries which carry no category.
func (t Transaction) snapshotInput() (snapshot.Input, bool) {
	if t.Kind == core.SourceManual {
		return snapshot.Input{}, false
	}
	in := snapshot.Input{
		FiscalYearID: t.FiscalYearID,
		RawCategory:  t.RawCategory,
		Gross:        t.Amount,
		Date:         t.Date,
		Source:       t.Source(),
		Notes:        t.Notes,
	}
	if t.Kind == core.SourceReconciliation {
		in.Gross = decimal.Zero
		in.Reconciliation = t.Amount
	}
	return in, true
}

// TransactionService keeps the ledger and the snapshot history in step with
// upstream financial transactions.
type TransactionService struct {
	ledger    LedgerWriter
	snapshots snapshot.Dispatcher
	validate  *validator.Validate
}

func NewTransactionService(l LedgerWriter, d snapshot.Dispatcher) *TransactionService {
	return &TransactionService{
		ledger:    l,
		snapshots: d,
		validate:  validator.New(),
	}
}

// Validate checks a transaction's shape and amount rules.
func (s *TransactionService) Validate(t Transaction) error {
	if err := s.validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return validationError(verrs)
		}
		return err
	}

	switch t.Kind {
	case core.SourceReconciliation:
		if t.Amount.IsZero() {
			return ErrZeroAmount
		}
	default:
		if t.Amount.Sign() <= 0 {
			return ErrMissingAmount
		}
	}

	needsAccount := t.Kind != core.SourceInKindIncome
	if needsAccount && strings.TrimSpace(t.AccountID) == "" {
		return fmt.Errorf("account_id is required for %s", t.Kind)
	}
	if t.Kind == core.SourceManual && t.EntryType == "" {
		return errors.New("entry_type is required for manual entries")
	}
	return nil
}

// Record posts a new transaction to the ledger and schedules its snapshot.
func (s *TransactionService) Record(ctx context.Context, t Transaction) (*core.LedgerEntry, error) {
	const op = "services.Record"

	if _, err := core.RequireActor(ctx, op); err != nil {
		return nil, err
	}
	t = normalize(t)
	if err := s.Validate(t); err != nil {
		return nil, core.Validation(op, err)
	}

	var entry *core.LedgerEntry
	if typ, amount, ok := t.posting(); ok {
		var err error
		entry, err = s.ledger.AppendEntry(ctx, ledger.AppendInput{
			AccountID:   t.AccountID,
			Type:        typ,
			Amount:      amount,
			Date:        t.Date,
			Notes:       t.Notes,
			ReferenceNo: t.ReferenceNo,
			Source:      t.Source(),
		})
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", t.Source(), err)
		}
	}

	if in, ok := t.snapshotInput(); ok {
		s.snapshots.Dispatch(ctx, snapshot.Job{Op: snapshot.OpCreate, Input: in})
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"source", t.Source().String(),
		"amount", t.Amount.String(),
		"account_id", t.AccountID)
	return entry, nil
}

// Revise applies an edit to an existing transaction. In-kind income that
// gains an account is posted and one that loses its account is unposted.
func (s *TransactionService) Revise(ctx context.Context, t Transaction) (*core.LedgerEntry, error) {
	const op = "services.Revise"

	if _, err := core.RequireActor(ctx, op); err != nil {
		return nil, err
	}
	t = normalize(t)
	if err := s.Validate(t); err != nil {
		return nil, core.Validation(op, err)
	}

	var entry *core.LedgerEntry
	if typ, amount, ok := t.posting(); ok {
		current, err := s.ledger.EntryBySource(ctx, t.Source())
		switch {
		case t.Kind == core.SourceInKindIncome && core.KindOf(err) == core.KindNotFound:
			entry, err = s.ledger.AppendEntry(ctx, ledger.AppendInput{
				AccountID:   t.AccountID,
				Type:        typ,
				Amount:      amount,
				Date:        t.Date,
				Notes:       t.Notes,
				ReferenceNo: t.ReferenceNo,
				Source:      t.Source(),
			})
			if err != nil {
				return nil, fmt.Errorf("revise %s: %w", t.Source(), err)
			}
		case err != nil:
			return nil, fmt.Errorf("revise %s: %w", t.Source(), err)
		case current.Type != typ:
			return nil, core.Validation(op, fmt.Errorf("%w: %s", ErrSignChanged, t.Source()))
		default:
			notes := t.Notes
			entry, err = s.ledger.UpdateEntryBySource(ctx, ledger.UpdateInput{
				Source:    t.Source(),
				Amount:    amount,
				AccountID: t.AccountID,
				Date:      t.Date,
				Notes:     &notes,
			})
			if err != nil {
				return nil, fmt.Errorf("revise %s: %w", t.Source(), err)
			}
		}
	} else if t.Kind == core.SourceInKindIncome {
		if err := s.ledger.DeleteEntryBySource(ctx, t.Source()); err != nil && core.KindOf(err) != core.KindNotFound {
			return nil, fmt.Errorf("revise %s: %w", t.Source(), err)
		}
	}

	if in, ok := t.snapshotInput(); ok {
		s.snapshots.Dispatch(ctx, snapshot.Job{Op: snapshot.OpUpsert, Input: in})
	}

	slog.InfoContext(ctx, "Transaction revised",
		"source", t.Source().String(),
		"amount", t.Amount.String(),
		"account_id", t.AccountID)
	return entry, nil
}

// Cancel removes a cancelled transaction's ledger entry and schedules the
// snapshot cancel policy. In-kind income that was never posted has no entry.
func (s *TransactionService) Cancel(ctx context.Context, src core.SourceRef) error {
	const op = "services.Cancel"

	if _, err := core.RequireActor(ctx, op); err != nil {
		return err
	}
	src.ID = strings.TrimSpace(src.ID)
	if err := src.Validate(); err != nil {
		return core.Validation(op, err)
	}

	err := s.ledger.DeleteEntryBySource(ctx, src)
	switch {
	case err == nil:
	case src.Kind == core.SourceInKindIncome && core.KindOf(err) == core.KindNotFound:
		slog.DebugContext(ctx, "Cancelled in-kind income had no ledger entry", "source", src.String())
	default:
		return fmt.Errorf("cancel %s: %w", src, err)
	}

	if src.Kind != core.SourceManual {
		s.snapshots.Dispatch(ctx, snapshot.Job{Op: snapshot.OpCancel, Source: src})
	}

	slog.InfoContext(ctx, "Transaction cancelled", "source", src.String())
	return nil
}

func normalize(t Transaction) Transaction {
	t.ID = strings.TrimSpace(t.ID)
	t.FiscalYearID = strings.TrimSpace(t.FiscalYearID)
	t.RawCategory = strings.TrimSpace(t.RawCategory)
	t.AccountID = strings.TrimSpace(t.AccountID)
	t.Notes = strings.TrimSpace(t.Notes)
	t.ReferenceNo = strings.TrimSpace(t.ReferenceNo)
	return t
}

// FieldError names one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every field that failed struct validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " (" + f.Rule + ")"
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

func validationError(verrs validator.ValidationErrors) error {
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}
