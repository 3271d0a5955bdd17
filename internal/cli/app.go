package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"zakatledger/internal/amqp"
	"zakatledger/internal/cache"
	"zakatledger/internal/commission"
	"zakatledger/internal/config"
	"zakatledger/internal/fiscal"
	"zakatledger/internal/ledger"
	"zakatledger/internal/lock"
	"zakatledger/internal/log"
	"zakatledger/internal/sheets"
	gsheet "zakatledger/internal/sheets/google"
	mem "zakatledger/internal/sheets/memory"
	"zakatledger/internal/snapshot"
	"zakatledger/internal/storage"
)

const cacheSweepInterval = time.Minute

// App holds the components every binary shares: storage, locks, caches,
// the ledger store, the fiscal config provider and the snapshot
// orchestrator.
type App struct {
	Config    *config.Config
	Repo      *storage.SQLiteRepository
	Redis     *redis.Client
	Locker    lock.Locker
	Ledger    *ledger.Store
	Configs   *fiscal.Provider
	Snapshots *snapshot.Orchestrator

	caches *cache.Manager
	logger *log.Logger
}

// Bootstrap wires the shared components from cfg. It exits the process when
// a required backend is unreachable.
func Bootstrap(ctx context.Context, logger *log.Logger, cfg *config.Config) *App {
	app := &App{
		Config: cfg,
		Repo:   InitSQLite(logger, cfg.SQLiteDBPath),
		caches: cache.NewManager(),
		logger: logger,
	}

	if cfg.UsesRedis() {
		rdb, err := NewRedisClient(ctx, cfg)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to connect to Redis", log.FieldError, err, "address", cfg.RedisAddress)
			app.Repo.Close()
			os.Exit(1)
		}
		app.Redis = rdb
	}

	app.Locker = newLocker(cfg, app.Redis)
	balances := newCache[decimal.Decimal](app, "zakatledger:balance:", 4096, cfg.BalanceCacheTTL)
	configs := newCache[commission.Config](app, "zakatledger:config:", 64, cfg.ConfigCacheTTL)
	app.caches.StartCleanup(cacheSweepInterval)

	app.Ledger = ledger.NewStore(app.Repo, ledger.Options{
		Locker:   app.Locker,
		Balances: balances,
		MidChain: ledger.MidChainPolicy(cfg.LedgerMidChainEdits),
	})
	app.Configs = fiscal.NewProvider(app.Repo, configs, app.Locker)
	app.Snapshots = snapshot.NewOrchestrator(app.Repo, app.Configs, snapshot.Options{
		Locker:      app.Locker,
		OnCancel:    snapshot.CancelPolicy(cfg.SnapshotOnCancel),
		BasisOnEdit: snapshot.BasisOnEdit(cfg.SnapshotBasisOnEdit),
	})

	logger.InfoContext(ctx, "Components initialized",
		"sqlite_db", cfg.SQLiteDBPath,
		"lock_backend", cfg.LockBackend,
		"cache_backend", cfg.CacheBackend,
		"midchain_edits", cfg.LedgerMidChainEdits)
	return app
}

// Close releases the cache sweeper, Redis and the database.
func (a *App) Close() {
	a.caches.Stop()
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.WarnContext(context.Background(), "Failed to close Redis client", log.FieldError, err)
		}
	}
	if err := a.Repo.Close(); err != nil {
		a.logger.WarnContext(context.Background(), "Failed to close SQLite repository", log.FieldError, err)
	}
}

// NewRedisClient connects to REDIS_ADDRESS and checks it answers.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddress, err)
	}
	return rdb, nil
}

func newLocker(cfg *config.Config, rdb *redis.Client) lock.Locker {
	if cfg.LockBackend == "redis" {
		return lock.NewRedis(rdb, lock.RedisConfig{})
	}
	return lock.NewLocal()
}

func newCache[T any](app *App, prefix string, size int, ttl time.Duration) cache.Cache[T] {
	if app.Config.CacheBackend == "redis" {
		return cache.NewRedisCache[T](app.Redis, prefix, ttl)
	}
	c := cache.NewLRUCache[T](size, ttl)
	app.caches.Register(c)
	return c
}

// NewConfigSource returns the external source of commission configs: the
// Google Sheets tab when GOOGLE_SPREADSHEET_ID is set, else the seed file.
// It returns nil when neither is configured.
func NewConfigSource(ctx context.Context, cfg *config.Config) (sheets.ConfigSource, error) {
	switch {
	case cfg.GoogleSpreadsheetID != "":
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleConfigSheetName)
		if err != nil {
			return nil, err
		}
		return client, nil
	case cfg.ConfigSeedFile != "":
		src, err := mem.NewFromFile(cfg.ConfigSeedFile)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, nil
	}
}

// NewDispatcher builds the snapshot dispatcher selected by SNAPSHOT_DISPATCH.
// The returned close function drains or disconnects it.
func NewDispatcher(cfg *config.Config, applier snapshot.Applier) (snapshot.Dispatcher, func(ctx context.Context) error, error) {
	switch cfg.SnapshotDispatch {
	case "amqp":
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, nil, fmt.Errorf("amqp client: %w", err)
		}
		return amqp.NewPublisher(client), func(context.Context) error { return client.Close() }, nil
	case "async":
		d := snapshot.NewAsyncDispatcher(applier, snapshot.AsyncConfig{
			Timeout:     cfg.SnapshotTimeout,
			MaxInFlight: cfg.SnapshotMaxInFlight,
		})
		return d, d.Close, nil
	default:
		return snapshot.InlineDispatcher{Applier: applier}, func(context.Context) error { return nil }, nil
	}
}
