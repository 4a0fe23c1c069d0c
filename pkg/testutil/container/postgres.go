package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps the testcontainers Postgres container with a pool
type PostgresContainer struct {
	Container        *postgres.PostgresContainer
	Pool             *pgxpool.Pool
	ConnectionString string
}

// PostgresContainerOption configures the Postgres container
type PostgresContainerOption func(*postgresContainerOptions)

type postgresContainerOptions struct {
	image    string
	database string
}

// WithPostgresImage sets the Postgres image to use
func WithPostgresImage(image string) PostgresContainerOption {
	return func(o *postgresContainerOptions) {
		o.image = image
	}
}

// WithDatabase sets the database name
func WithDatabase(name string) PostgresContainerOption {
	return func(o *postgresContainerOptions) {
		o.database = name
	}
}

// StartPostgresContainer starts a Postgres container and returns a wrapper with a connected pool
func StartPostgresContainer(ctx context.Context, opts ...PostgresContainerOption) (*PostgresContainer, error) {
	options := &postgresContainerOptions{
		image:    "postgres:16-alpine",
		database: "relay",
	}
	for _, opt := range opts {
		opt(options)
	}

	pgContainer, err := postgres.Run(ctx, options.image,
		postgres.WithDatabase(options.database),
		postgres.WithUsername("relay"),
		postgres.WithPassword("relay"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connectionString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(pgContainer)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		_ = testcontainers.TerminateContainer(pgContainer)
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		_ = testcontainers.TerminateContainer(pgContainer)
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresContainer{
		Container:        pgContainer,
		Pool:             pool,
		ConnectionString: connectionString,
	}, nil
}

// Terminate closes the pool and terminates the container
func (p *PostgresContainer) Terminate(ctx context.Context) error {
	if p.Pool != nil {
		p.Pool.Close()
	}
	if p.Container != nil {
		if err := testcontainers.TerminateContainer(p.Container); err != nil {
			return fmt.Errorf("failed to terminate postgres container: %w", err)
		}
	}
	return nil
}
