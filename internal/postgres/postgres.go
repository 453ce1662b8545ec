package postgres

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/awaistahir/grid-analytics/internal/config"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pingTimeout = 5 * time.Second

// NewPool creates a connection pool and pings the database until it answers
// or the retry budget runs out.
func NewPool(ctx context.Context, conf config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(conf.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse config failed: %w", err)
	}

	poolConfig.MaxConns = conf.MaxConns
	poolConfig.MinConns = conf.MinConns
	poolConfig.MaxConnLifetime = conf.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("pool creation error: %w", err)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	err = backoff.RetryNotify(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return pool.Ping(pingCtx)
	}, bo, func(err error, wait time.Duration) {
		log.Printf("Postgres at %s:%d not ready (%v), retrying in %s", conf.Host, conf.Port, err, wait)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return pool, nil
}
