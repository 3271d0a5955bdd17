package log

import (
	"zakatledger/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorKind     = "error_kind"
	FieldOperation     = "operation"
	FieldActor         = "actor"
	FieldAccountID     = "account_id"
	FieldEntryID       = "entry_id"
	FieldEntryType     = "entry_type"
	FieldAmount        = "amount"
	FieldBalanceBefore = "balance_before"
	FieldBalanceAfter  = "balance_after"
	FieldSourceKind    = "source_kind"
	FieldSourceID      = "source_id"
	FieldFiscalYear    = "fiscal_year_id"
	FieldCategory      = "category"
	FieldBasisMode     = "basis_mode"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentSnapshot = "snapshot"
	ComponentFiscal   = "fiscal"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
	ComponentAuditor  = "auditor"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpAppend   = "append"
	OpUpsert   = "upsert"
	OpCancel   = "cancel"
	OpVerify   = "verify"
	OpImport   = "import"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error message and, for tagged errors, its kind.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		if kind := core.KindOf(err); kind != core.KindUnknown {
			f[FieldErrorKind] = kind.String()
		}
	}
	return f
}

func (f LogFields) WithSource(src core.SourceRef) LogFields {
	f[FieldSourceKind] = string(src.Kind)
	f[FieldSourceID] = src.ID
	return f
}

// WithEntry adds the identifying and balance fields of a ledger entry.
func (f LogFields) WithEntry(e core.LedgerEntry) LogFields {
	f[FieldEntryID] = e.ID
	f[FieldAccountID] = e.AccountID
	f[FieldEntryType] = string(e.Type)
	f[FieldAmount] = e.Amount.String()
	f[FieldBalanceBefore] = e.BalanceBefore.String()
	f[FieldBalanceAfter] = e.BalanceAfter.String()
	return f.WithSource(e.Source)
}

// With sets an arbitrary key.
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

func (f LogFields) WithHTTP(method, path string, statusCode int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
