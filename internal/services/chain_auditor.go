package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"zakatledger/internal/core"
	"zakatledger/internal/ledger"
)

var (
	chainBreaks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zakatledger_ledger_chain_breaks",
		Help: "Chain invariant violations found by the last audit, per account.",
	}, []string{"account_id"})

	totalBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zakatledger_ledger_total_balance",
		Help: "Sum of active account balances at the last audit.",
	})

	auditRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zakatledger_chain_audit_runs_total",
		Help: "Chain audit passes by result.",
	}, []string{"result"})
)

// ChainVerifier is the ledger surface the auditor reads.
type ChainVerifier interface {
	ListAccounts(ctx context.Context) ([]core.Account, error)
	VerifyChain(ctx context.Context, accountID string) ([]ledger.Break, error)
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
}

// ChainAuditorConfig holds configuration for the chain auditor
type ChainAuditorConfig struct {
	// Interval is how often every chain is verified (default: 1h)
	Interval time.Duration
}

func DefaultChainAuditorConfig() ChainAuditorConfig {
	return ChainAuditorConfig{Interval: time.Hour}
}

// AuditReport is the outcome of one pass over every account.
type AuditReport struct {
	Accounts int
	Breaks   map[string][]ledger.Break
	Total    decimal.Decimal
}

// ChainAuditor periodically checks every account's balance chain. Mid-chain
// deletes and allowed mid-chain edits leave breaks behind; the auditor makes
// them visible.
type ChainAuditor struct {
	ledger ChainVerifier
	config ChainAuditorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewChainAuditor(l ChainVerifier, config ChainAuditorConfig) *ChainAuditor {
	if config.Interval <= 0 {
		config.Interval = DefaultChainAuditorConfig().Interval
	}
	return &ChainAuditor{ledger: l, config: config}
}

// Start begins the audit loop. Returns an error if already running.
func (a *ChainAuditor) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("chain auditor is already running")
	}
	a.running = true
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.mu.Unlock()

	go a.runLoop(ctx)

	slog.InfoContext(ctx, "Chain auditor started", "interval", a.config.Interval)
	return nil
}

// Stop signals the loop and waits for the current pass to finish.
func (a *ChainAuditor) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	close(a.stopCh)

	select {
	case <-a.doneCh:
		slog.InfoContext(ctx, "Chain auditor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Chain auditor stop timed out")
		return ctx.Err()
	}

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	return nil
}

func (a *ChainAuditor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *ChainAuditor) runLoop(ctx context.Context) {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.config.Interval)
	defer ticker.Stop()

	a.runOnce(ctx)

	for {
		select {
		case <-a.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runOnce(ctx)
		}
	}
}

func (a *ChainAuditor) runOnce(ctx context.Context) {
	if _, err := a.Audit(ctx); err != nil {
		slog.ErrorContext(ctx, "Chain audit failed", "error", err)
	}
}

// Audit verifies every account once, updates the break and total gauges and
// logs each break found. An account that cannot be read is skipped and logged.
func (a *ChainAuditor) Audit(ctx context.Context) (AuditReport, error) {
	accounts, err := a.ledger.ListAccounts(ctx)
	if err != nil {
		auditRuns.WithLabelValues("error").Inc()
		return AuditReport{}, fmt.Errorf("list accounts: %w", err)
	}

	report := AuditReport{Accounts: len(accounts), Breaks: map[string][]ledger.Break{}}
	for _, acc := range accounts {
		select {
		case <-ctx.Done():
			auditRuns.WithLabelValues("cancelled").Inc()
			return report, ctx.Err()
		default:
		}

		breaks, err := a.ledger.VerifyChain(ctx, acc.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to verify account chain",
				"account_id", acc.ID, "error", err)
			continue
		}
		chainBreaks.WithLabelValues(acc.ID).Set(float64(len(breaks)))
		if len(breaks) == 0 {
			continue
		}

		report.Breaks[acc.ID] = breaks
		for _, b := range breaks {
			slog.WarnContext(ctx, "Ledger chain break",
				"account_id", acc.ID,
				"entry_id", b.EntryID,
				"index", b.Index,
				"reason", b.Reason,
				"want", b.Want.String(),
				"got", b.Got.String())
		}
	}

	total, err := a.ledger.TotalBalance(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read total balance", "error", err)
	} else {
		report.Total = total
		totalBalance.Set(total.InexactFloat64())
	}

	auditRuns.WithLabelValues("ok").Inc()
	slog.InfoContext(ctx, "Chain audit complete",
		"accounts", report.Accounts,
		"accounts_with_breaks", len(report.Breaks),
		"total_balance", report.Total.String())
	return report, nil
}
