package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Migrator applies golang-migrate migrations from an embedded filesystem.
type Migrator interface {
	// UpFromFS applies every pending migration in dir, tracking versions in table.
	UpFromFS(table string, fsys fs.FS, dir string) error
	// DownFromFS rolls back every migration in dir.
	DownFromFS(table string, fsys fs.FS, dir string) error
	// Version reports the applied version and whether the last run left it dirty.
	Version(table string, fsys fs.FS, dir string) (uint, bool, error)
}

type migrator struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewMigrator(pool *pgxpool.Pool, log *zap.Logger) Migrator {
	return &migrator{pool: pool, log: log}
}

func (m *migrator) open(table string, fsys fs.FS, dir string) (*migrate.Migrate, error) {
	if table == "" {
		return nil, fmt.Errorf("migrations table is required")
	}
	if fsys == nil {
		return nil, fmt.Errorf("filesystem is required")
	}

	// The *sql.DB is a view over the pool; closing it would not release the pool's
	// connections, so it is left to the garbage collector together with the driver.
	db := stdlib.OpenDBFromPool(m.pool)
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{MigrationsTable: table})
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx migrate driver: %w", err)
	}

	source, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations in %s: %w", dir, err)
	}

	mi, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mi, nil
}

func (m *migrator) UpFromFS(table string, fsys fs.FS, dir string) error {
	mi, err := m.open(table, fsys, dir)
	if err != nil {
		return err
	}

	if err := mi.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.log.Info("no new migrations to apply", zap.String("table", table))
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, _ := mi.Version()
	m.log.Info("migrations applied", zap.String("table", table), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func (m *migrator) DownFromFS(table string, fsys fs.FS, dir string) error {
	mi, err := m.open(table, fsys, dir)
	if err != nil {
		return err
	}

	if err := mi.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	m.log.Info("migrations rolled back", zap.String("table", table))
	return nil
}

func (m *migrator) Version(table string, fsys fs.FS, dir string) (uint, bool, error) {
	mi, err := m.open(table, fsys, dir)
	if err != nil {
		return 0, false, err
	}

	version, dirty, err := mi.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
