package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres owns the connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	conf Config
	log  *zap.Logger
}

// New parses conf and creates a lazy pool. No connection is opened until Connect.
func New(log *zap.Logger, conf Config) (*Postgres, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(conf.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	if conf.MaxConns > 0 {
		poolConfig.MaxConns = conf.MaxConns
	}
	poolConfig.MinConns = conf.MinConns
	if conf.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = conf.MaxConnIdleTime
	}
	if conf.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = conf.MaxConnLifetime
	}
	if conf.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = conf.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	return &Postgres{pool: pool, conf: conf, log: log}, nil
}

// Connect pings the database with exponential backoff, so the relay can
// start before the database accepts connections.
func (p *Postgres) Connect(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	ping := func() error {
		c, cancel := context.WithTimeout(ctx, p.conf.ConnectTimeout)
		defer cancel()
		return p.pool.Ping(c)
	}
	notify := func(err error, next time.Duration) {
		p.log.Warn("postgres not reachable, retrying", zap.Error(err), zap.Duration("retry_in", next))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, p.conf.ConnectRetries), ctx)
	if err := backoff.RetryNotify(ping, b, notify); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	stat := p.pool.Stat()
	p.log.Info("connected to postgres",
		zap.String("database", p.pool.Config().ConnConfig.Database),
		zap.Int32("max-conns", stat.MaxConns()),
	)
	return nil
}

func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *Postgres) Close() {
	p.pool.Close()
	p.log.Info("disconnected from postgres")
}
