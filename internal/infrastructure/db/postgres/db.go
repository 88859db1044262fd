package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultConnectTimeout = 2 * time.Second
	defaultOpTimeout      = 5 * time.Second
	defaultMaxConns       = 20
)

// Config captures the pool settings for the relational store.
type Config struct {
	URL             string
	Schema          string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	// ConnectTimeout bounds dialing a new connection. Waiting for a free pooled
	// connection is bounded by the per-operation timeout.
	ConnectTimeout time.Duration
	// OpTimeout bounds every repository call, including the wait for a free
	// connection when the pool is exhausted.
	OpTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxConns <= 0 {
		c.MaxConns = defaultMaxConns
	}
	if c.MaxIdleConns <= 0 || c.MaxIdleConns > c.MaxConns {
		c.MaxIdleConns = c.MaxConns
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = defaultOpTimeout
	}
	return c
}

// Connect opens a bounded database/sql pool through the pgx driver and
// validates connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	cfg = cfg.withDefaults()

	connCfg, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	connCfg.ConnectTimeout = cfg.ConnectTimeout
	if cfg.Schema != "" {
		connCfg.RuntimeParams["search_path"] = cfg.Schema
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return db, nil
}
