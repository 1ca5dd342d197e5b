// Package db provides storage for application records and usage accounts,
// backed by PostgreSQL or held in memory.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/application-assistant/internal/types"
)

// ErrStorageUnavailable is the class of all storage failures.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrNotFound is returned by mutations that target a missing record.
var ErrNotFound = errors.New("not found")

// RecordStore persists application records.
// GetByID returns nil, nil when the record does not exist.
type RecordStore interface {
	Save(ctx context.Context, record *types.ApplicationRecord) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.ApplicationRecord, error)
	QueryByOwner(ctx context.Context, ownerID string) ([]types.ApplicationRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status types.ApplicationStatus) error
}

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks database connectivity.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

// Migrate applies every embedded migration that has not been recorded yet.
// It returns the versions applied by this call.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	var applied []string
	for _, name := range names {
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")

		done, err := db.migrationApplied(ctx, version)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}

		sql, err := migrationFiles.ReadFile(name)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.pool.Exec(ctx, string(sql)); err != nil {
			return applied, fmt.Errorf("failed to apply migration %s: %w", version, err)
		}
		if _, err := db.pool.Exec(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING`, version,
		); err != nil {
			return applied, fmt.Errorf("failed to record migration %s: %w", version, err)
		}
		applied = append(applied, version)
	}
	return applied, nil
}

func (db *DB) migrationApplied(ctx context.Context, version string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables WHERE table_name = 'schema_migrations'
		)`,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migrations table: %w", err)
	}
	if !exists {
		return false, nil
	}

	var done bool
	err = db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
	).Scan(&done)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", version, err)
	}
	return done, nil
}

// storageError places err in the ErrStorageUnavailable class.
func storageError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStorageUnavailable, op, err)
}
