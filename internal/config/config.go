package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port              string
	RequestsPerMinute int
	BlockSuspicious   bool
	TrustedProxies    []string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Snapshots
	SnapshotDispatch    string
	SnapshotTimeout     time.Duration
	SnapshotMaxInFlight int64
	SnapshotOnCancel    string
	SnapshotBasisOnEdit string

	// Ledger
	LedgerMidChainEdits string

	// Shared state
	LockBackend     string
	CacheBackend    string
	RedisAddress    string
	RedisPassword   string
	RedisDB         int
	BalanceCacheTTL time.Duration
	ConfigCacheTTL  time.Duration

	// Commission config sources
	GoogleSpreadsheetID   string
	GoogleConfigSheetName string
	ConfigSeedFile        string
	ConfigImportInterval  time.Duration

	// Workers
	AuditInterval time.Duration

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:              getEnv("PORT", "8081"),
		RequestsPerMinute: getEnvInt("HTTP_REQUESTS_PER_MINUTE", 120),
		BlockSuspicious:   getEnvBool("HTTP_BLOCK_SUSPICIOUS", false),
		TrustedProxies:    getEnvList("HTTP_TRUSTED_PROXIES"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/zakatledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "zakatledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "commission_snapshots"),

		SnapshotDispatch:    getEnv("SNAPSHOT_DISPATCH", "inline"),
		SnapshotTimeout:     getEnvDuration("SNAPSHOT_TIMEOUT", 30*time.Second),
		SnapshotMaxInFlight: int64(getEnvInt("SNAPSHOT_MAX_INFLIGHT", 16)),
		SnapshotOnCancel:    getEnv("SNAPSHOT_ON_CANCEL", "retain"),
		SnapshotBasisOnEdit: getEnv("SNAPSHOT_BASIS_ON_EDIT", "refresh"),

		LedgerMidChainEdits: getEnv("LEDGER_MIDCHAIN_EDITS", "reject"),

		LockBackend:     getEnv("LOCK_BACKEND", "local"),
		CacheBackend:    getEnv("CACHE_BACKEND", "memory"),
		RedisAddress:    getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		BalanceCacheTTL: getEnvDuration("BALANCE_CACHE_TTL", 5*time.Minute),
		ConfigCacheTTL:  getEnvDuration("CONFIG_CACHE_TTL", 10*time.Minute),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleConfigSheetName: getEnv("GOOGLE_CONFIG_SHEET_NAME", "Commission"),
		ConfigSeedFile:        getEnv("CONFIG_SEED_FILE", ""),
		ConfigImportInterval:  getEnvDuration("CONFIG_IMPORT_INTERVAL", 15*time.Minute),

		AuditInterval: getEnvDuration("AUDIT_INTERVAL", time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// UsesRedis reports whether any component needs the Redis client.
func (c *Config) UsesRedis() bool {
	return c.LockBackend == "redis" || c.CacheBackend == "redis"
}

// sharedConfigReason names the setting that makes a second process read
// commission configs, or returns "" when only the API does.
func (c *Config) sharedConfigReason() string {
	switch {
	case c.SnapshotDispatch == "amqp":
		return "SNAPSHOT_DISPATCH is amqp"
	case c.GoogleSpreadsheetID != "":
		return "GOOGLE_SPREADSHEET_ID is set"
	case c.ConfigSeedFile != "":
		return "CONFIG_SEED_FILE is set"
	default:
		return ""
	}
}

// Validate validates the configuration and returns every problem found
func (c *Config) Validate() error {
	var errors []string

	oneOf := func(name, value string, allowed ...string) {
		if !slices.Contains(allowed, value) {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': must be one of %v", name, value, allowed))
		}
	}

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	if c.RequestsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid requests per minute %d: must be at least 1", c.RequestsPerMinute))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	oneOf("snapshot dispatch", c.SnapshotDispatch, "inline", "async", "amqp")
	if c.SnapshotDispatch == "amqp" && c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required when SNAPSHOT_DISPATCH is amqp")
	}
	if c.SnapshotTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid snapshot timeout %v: must be at least 1 second", c.SnapshotTimeout))
	}
	if c.SnapshotMaxInFlight < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshot max in-flight %d: must be at least 1", c.SnapshotMaxInFlight))
	}
	oneOf("snapshot cancel policy", c.SnapshotOnCancel, "retain", "delete")
	oneOf("snapshot basis on edit", c.SnapshotBasisOnEdit, "refresh", "preserve")
	oneOf("ledger mid-chain edits", c.LedgerMidChainEdits, "reject", "allow")

	oneOf("lock backend", c.LockBackend, "local", "redis")
	oneOf("cache backend", c.CacheBackend, "memory", "redis")
	if c.UsesRedis() && c.RedisAddress == "" {
		errors = append(errors, "REDIS_ADDRESS is required when a redis backend is selected")
	}
	// The snapshot worker resolves and imports commission configs in its own
	// process, so config caches and their locks must be shared with the API.
	if reason := c.sharedConfigReason(); reason != "" {
		if c.CacheBackend != "redis" {
			errors = append(errors, fmt.Sprintf("CACHE_BACKEND must be redis when %s", reason))
		}
		if c.LockBackend != "redis" {
			errors = append(errors, fmt.Sprintf("LOCK_BACKEND must be redis when %s", reason))
		}
	}
	if c.BalanceCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid balance cache TTL %v: must be positive", c.BalanceCacheTTL))
	}
	if c.ConfigCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid config cache TTL %v: must be positive", c.ConfigCacheTTL))
	}

	if c.ConfigSeedFile != "" {
		if _, err := os.Stat(c.ConfigSeedFile); err != nil {
			errors = append(errors, fmt.Sprintf("config seed file '%s' is not readable: %v", c.ConfigSeedFile, err))
		}
	}
	if c.ConfigImportInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid config import interval %v: must be at least 1 minute", c.ConfigImportInterval))
	}
	if c.AuditInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid audit interval %v: must be at least 1 minute", c.AuditInterval))
	} else if c.AuditInterval > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid audit interval %v: must be at most 7 days", c.AuditInterval))
	}

	oneOf("log level", strings.ToLower(c.LogLevel), "debug", "info", "warn", "error")

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
