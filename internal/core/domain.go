package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

const (
	ChannelCash  Channel = "cash"
	ChannelBank  Channel = "bank"
	ChannelOther Channel = "other"
)

const (
	EntryIn     EntryType = "IN"
	EntryOut    EntryType = "OUT"
	EntryAdjust EntryType = "ADJUST"
)

const (
	SourceManual         SourceKind = "manual"
	SourceCashIncome     SourceKind = "cash_income"
	SourceInKindIncome   SourceKind = "inkind_income"
	SourceReconciliation SourceKind = "reconciliation"
)

type (
	Channel    string
	EntryType  string
	SourceKind string

	Date struct {
		time.Time
	}

	// SourceRef links a ledger entry or a snapshot to the single transaction
	// that produced it.
	SourceRef struct {
		Kind SourceKind `json:"kind"`
		ID   string     `json:"id"`
	}

	Account struct {
		ID        string    `json:"id"`
		Channel   Channel   `json:"channel"`
		Name      string    `json:"name"`
		Active    bool      `json:"active"`
		SortOrder int       `json:"sort_order"`
		CreatedAt time.Time `json:"created_at"`
	}

	LedgerEntry struct {
		ID            string          `json:"id"`
		AccountID     string          `json:"account_id"`
		Type          EntryType       `json:"entry_type"`
		Amount        decimal.Decimal `json:"amount"`
		BalanceBefore decimal.Decimal `json:"balance_before"`
		BalanceAfter  decimal.Decimal `json:"balance_after"`
		EntryDate     Date            `json:"entry_date"`
		CreatedAt     time.Time       `json:"created_at"`
		Notes         string          `json:"notes,omitempty"`
		ReferenceNo   string          `json:"reference_no,omitempty"`
		Source        SourceRef       `json:"source"`
		CreatedBy     string          `json:"created_by"`
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidEntryType  = errors.New("invalid entry type")
	ErrInvalidChannel    = errors.New("invalid account channel")
	ErrInvalidSource     = errors.New("invalid source reference")
	ErrEmptyAccountName  = errors.New("empty account name")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrAccountHasEntries = errors.New("account has ledger entries")
	ErrEntryNotFound     = errors.New("ledger entry not found")
	ErrDuplicateSource   = errors.New("source already has a ledger entry")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current UTC calendar date.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c Channel) Validate() error {
	switch c {
	case ChannelCash, ChannelBank, ChannelOther:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidChannel, c)
}

func (t EntryType) Validate() error {
	switch t {
	case EntryIn, EntryOut, EntryAdjust:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidEntryType, t)
}

// Apply returns the balance after moving amount in the direction of t.
// ADJUST moves the balance up; downward corrections are posted as OUT.
func (t EntryType) Apply(before, amount decimal.Decimal) decimal.Decimal {
	if t == EntryOut {
		return before.Sub(amount)
	}
	return before.Add(amount)
}

func ParseSourceKind(s string) (SourceKind, error) {
	k := SourceKind(strings.TrimSpace(s))
	switch k {
	case SourceManual, SourceCashIncome, SourceInKindIncome, SourceReconciliation:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidSource, s)
}

func (s SourceRef) Validate() error {
	if _, err := ParseSourceKind(string(s.Kind)); err != nil {
		return err
	}
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidSource)
	}
	return nil
}

func (s SourceRef) String() string {
	return string(s.Kind) + ":" + s.ID
}

func (a Account) Validate() error {
	if err := a.Channel.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyAccountName
	}
	if len(a.Name) > 100 {
		return errors.New("account name too long (max 100 characters)")
	}
	return nil
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
