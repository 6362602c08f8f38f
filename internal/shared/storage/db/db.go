package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"docflow-backend/internal/shared/telemetry"
)

const applicationName = "docflow-backend"

// Options controls pool sizing and the startup connectivity check.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	// PingAttempts > 1 retries the initial ping, for databases that start
	// alongside the service.
	PingAttempts int
	RetryDelay   time.Duration
}

var openDB = sql.Open

// DefaultServerOptions suits the long-running API process.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		PingTimeout:     5 * time.Second,
		PingAttempts:    5,
		RetryDelay:      2 * time.Second,
	}
}

// DefaultMigrateOptions suits one-shot commands such as migrate and seed.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  10 * time.Second,
		PingAttempts: 1,
	}
}

type envOverride struct {
	key   string
	apply func(o *Options, raw string) error
}

var envOverrides = []envOverride{
	{"DB_MAX_OPEN_CONNS", func(o *Options, raw string) (err error) { o.MaxOpenConns, err = strconv.Atoi(raw); return }},
	{"DB_MAX_IDLE_CONNS", func(o *Options, raw string) (err error) { o.MaxIdleConns, err = strconv.Atoi(raw); return }},
	{"DB_CONN_MAX_LIFETIME", func(o *Options, raw string) (err error) { o.ConnMaxLifetime, err = time.ParseDuration(raw); return }},
	{"DB_CONN_MAX_IDLE_TIME", func(o *Options, raw string) (err error) { o.ConnMaxIdleTime, err = time.ParseDuration(raw); return }},
	{"DB_PING_TIMEOUT", func(o *Options, raw string) (err error) { o.PingTimeout, err = time.ParseDuration(raw); return }},
	{"DB_PING_ATTEMPTS", func(o *Options, raw string) (err error) { o.PingAttempts, err = strconv.Atoi(raw); return }},
}

// OptionsFromEnv applies DB_* overrides on top of defaults. Malformed values
// are logged and ignored.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	for _, ov := range envOverrides {
		raw := strings.TrimSpace(os.Getenv(ov.key))
		if raw == "" {
			continue
		}
		next := opts
		if err := ov.apply(&next, raw); err != nil {
			telemetry.Warn("db.env_invalid", map[string]any{"key": ov.key, "error": err.Error()})
			continue
		}
		opts = next
	}
	return opts
}

// Connect parses databaseURL with pgx, opens a pooled *sql.DB and pings it.
// The pool is meant to be shared for the life of the process.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	connCfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if _, ok := connCfg.RuntimeParams["application_name"]; !ok {
		connCfg.RuntimeParams["application_name"] = applicationName
	}

	db, err := openDB("pgx", stdlib.RegisterConnConfig(connCfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	configurePool(db, opts)

	if err := pingWithRetry(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}

	stats := db.Stats()
	telemetry.Info("db.connected", map[string]any{
		"host":     connCfg.Host,
		"database": connCfg.Database,
		"max_open": stats.MaxOpenConnections,
	})
	return db, nil
}

func configurePool(db *sql.DB, opts Options) {
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func pingWithRetry(ctx context.Context, db *sql.DB, opts Options) error {
	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	attempts := max(opts.PingAttempts, 1)

	var err error
	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		telemetry.Warn("db.ping_retry", map[string]any{"attempt": i, "error": err.Error()})
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(opts.RetryDelay):
		}
	}
	return fmt.Errorf("ping database after %d attempt(s): %w", attempts, err)
}
