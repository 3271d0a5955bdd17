// Package http exposes the ledger, snapshot and commission configuration
// operations as a JSON API on gin.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"zakatledger/internal/commission"
	"zakatledger/internal/core"
	"zakatledger/internal/ledger"
	"zakatledger/internal/log"
	"zakatledger/internal/middleware/ratelimit"
	"zakatledger/internal/middleware/security"
	"zakatledger/internal/middleware/trace"
	"zakatledger/internal/services"
	"zakatledger/internal/snapshot"
)

// Ledger is the ledger surface served over HTTP.
type Ledger interface {
	CreateAccount(ctx context.Context, in ledger.NewAccount) (*core.Account, error)
	GetAccount(ctx context.Context, id string) (*core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	CurrentBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	Entries(ctx context.Context, accountID string) ([]core.LedgerEntry, error)
	Balances(ctx context.Context) (ledger.Summary, error)
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
	VerifyChain(ctx context.Context, accountID string) ([]ledger.Break, error)
	OnInvalidate(inv ledger.Invalidator)
}

type Transactions interface {
	Record(ctx context.Context, t services.Transaction) (*core.LedgerEntry, error)
	Revise(ctx context.Context, t services.Transaction) (*core.LedgerEntry, error)
	Cancel(ctx context.Context, src core.SourceRef) error
}

type Snapshots interface {
	Get(ctx context.Context, src core.SourceRef) (*snapshot.Snapshot, error)
	List(ctx context.Context, fiscalYearID string) ([]snapshot.Snapshot, error)
}

type Configs interface {
	Resolve(ctx context.Context, fiscalYearID string) (commission.Config, error)
	Save(ctx context.Context, cfg commission.Config) (commission.Config, error)
	List(ctx context.Context) ([]commission.Config, error)
}

type Previewer interface {
	Preview(ctx context.Context, req services.PreviewRequest) (commission.Result, error)
}

// Deps wires the server to the application services. Ping backs /readyz and
// may be nil.
type Deps struct {
	Ledger       Ledger
	Transactions Transactions
	Snapshots    Snapshots
	Configs      Configs
	Previewer    Previewer
	Ping         func(ctx context.Context) error
}

// Options tunes the middleware stack.
type Options struct {
	RequestsPerMinute int
	BlockSuspicious   bool
	TrustedProxies    []string
}

type Server struct {
	http.Server
	deps     Deps
	engine   *gin.Engine
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	logger   *log.Logger
	balances *balanceVersion
}

func NewServer(addr string, deps Deps, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		log.Default(log.ComponentHTTP).WarnContext(context.Background(), "Invalid trusted proxies, trusting none",
			log.FieldError, err)
		_ = engine.SetTrustedProxies(nil)
	}

	s := &Server{
		deps:   deps,
		engine: engine,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
		tracer:   trace.NewMiddleware(),
		logger:   log.Default(log.ComponentHTTP),
		balances: newBalanceVersion(),
	}
	if deps.Ledger != nil {
		deps.Ledger.OnInvalidate(s.balances)
	}

	engine.Use(
		gin.Recovery(),
		s.tracer.Handler(),
		security.Headers(security.DefaultHeadersConfig()),
		security.NewDetector(opts.BlockSuspicious).Handler(),
	)
	s.routes()

	s.Server = http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/health", s.handleHealth)
	r.GET("/healthz", s.handleHealth)
	r.GET("/readyz", s.handleReady)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1", s.limiter.Handler(), actorMiddleware())
	{
		api.POST("/commission/preview", s.handlePreview)

		api.POST("/accounts", s.handleCreateAccount)
		api.GET("/accounts", s.handleListAccounts)
		api.GET("/accounts/:id", s.handleGetAccount)
		api.DELETE("/accounts/:id", s.handleDeleteAccount)
		api.GET("/accounts/:id/balance", s.handleAccountBalance)
		api.GET("/accounts/:id/entries", s.handleAccountEntries)
		api.GET("/accounts/:id/audit", s.handleAccountAudit)
		api.GET("/balances", s.handleBalances)
		api.GET("/balances/total", s.handleTotalBalance)

		api.POST("/transactions", s.handleRecordTransaction)
		api.PUT("/transactions/:kind/:id", s.handleReviseTransaction)
		api.DELETE("/transactions/:kind/:id", s.handleCancelTransaction)

		api.GET("/snapshots", s.handleListSnapshots)
		api.GET("/snapshots/:kind/:id", s.handleGetSnapshot)

		api.GET("/fiscal-years", s.handleListConfigs)
		api.GET("/fiscal-years/:id/commission-config", s.handleGetConfig)
		api.PUT("/fiscal-years/:id/commission-config", s.handleSaveConfig)
	}
}

// Engine exposes the router for tests and embedding.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Shutdown stops accepting requests and releases middleware resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleReady(c *gin.Context) {
	if s.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ping(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Readiness check failed", log.FieldError, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
