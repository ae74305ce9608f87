// Package migrations applies the embedded recipes schema with golang-migrate
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var schema embed.FS

// MigrationsTable records the applied schema version
const MigrationsTable = "schema_migrations"

// ErrDirty means an earlier run stopped halfway. Someone has to inspect the
// schema and force the version before the server may start.
var ErrDirty = errors.New("schema is in a dirty state")

// Status describes the schema version in the database
type Status struct {
	Version uint
	Dirty   bool
	Applied bool
}

// Migrator runs the embedded migrations against one database
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New builds a migrator on db. An empty databaseName lets the driver ask the
// server for the current database. Closing the migrator closes db.
func New(db *sql.DB, databaseName string, logger *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(schema, "sql")
	if err != nil {
		return nil, fmt.Errorf("open embedded schema: %w", err)
	}

	target, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: MigrationsTable,
		DatabaseName:    databaseName,
	})
	if err != nil {
		return nil, fmt.Errorf("prepare postgres target: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", target)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}

	return &Migrator{m: m, logger: logger.Named("migrations")}, nil
}

// Status reports the current version
func (mg *Migrator) Status() (Status, error) {
	version, dirty, err := mg.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return Status{}, nil
	case err != nil:
		return Status{}, fmt.Errorf("read schema version: %w", err)
	}
	return Status{Version: version, Dirty: dirty, Applied: true}, nil
}

// Version returns the current version and dirty flag
func (mg *Migrator) Version() (uint, bool, error) {
	st, err := mg.Status()
	return st.Version, st.Dirty, err
}

// Up applies every pending migration. A dirty schema is refused.
func (mg *Migrator) Up(ctx context.Context) error {
	before, err := mg.Status()
	if err != nil {
		return err
	}
	if before.Dirty {
		return fmt.Errorf("%w at version %d", ErrDirty, before.Version)
	}

	stop := mg.stopOnCancel(ctx)
	defer stop()

	started := time.Now()
	err = mg.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Info("Schema up to date", zap.Uint("version", before.Version))
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	after, _ := mg.Status()
	mg.logger.Info("Schema migrated",
		zap.Uint("from", before.Version),
		zap.Uint("to", after.Version),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

// Down reverts the latest migration
func (mg *Migrator) Down() error {
	if err := mg.m.Steps(-1); err != nil {
		return fmt.Errorf("revert migration: %w", err)
	}
	st, _ := mg.Status()
	mg.logger.Warn("Reverted one migration", zap.Uint("version", st.Version))
	return nil
}

// Close releases the source and the database handle
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// stopOnCancel asks migrate to stop after the current step when ctx ends
func (mg *Migrator) stopOnCancel(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			select {
			case mg.m.GracefulStop <- true:
			default:
			}
		case <-done:
		}
	}()
	return func() { close(done) }
}

// Run applies pending migrations over its own pgx pool, closed before
// returning, so the application pool never holds the migration lock.
func Run(ctx context.Context, dsn, databaseName string, logger *zap.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}

	mg, err := New(db, databaseName, logger)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		if err := mg.Close(); err != nil {
			logger.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	return mg.Up(ctx)
}
