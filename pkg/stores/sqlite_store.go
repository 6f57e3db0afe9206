package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// Open database with SQLite-specific connection parameters
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection and set PRAGMAs
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// PutTransform inserts or replaces a cached transform
func (s *SQLiteStore) PutTransform(ctx context.Context, entry *TransformEntry) error {
	query := `
		INSERT INTO transforms (path, source_hash, plugin, output, content_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path, source_hash) DO UPDATE SET
			plugin = excluded.plugin,
			output = excluded.output,
			content_type = excluded.content_type,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.Path,
		entry.SourceHash,
		entry.Plugin,
		entry.Output,
		entry.ContentType,
		entry.CreatedAt,
		entry.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to put transform: %w", err)
	}

	return nil
}

// GetTransform retrieves a cached transform. Returns nil without error on
// a cache miss.
func (s *SQLiteStore) GetTransform(ctx context.Context, path, sourceHash string) (*TransformEntry, error) {
	query := `
		SELECT path, source_hash, plugin, output, content_type, created_at, updated_at
		FROM transforms
		WHERE path = ? AND source_hash = ?
	`

	entry := &TransformEntry{}
	err := s.db.QueryRowContext(ctx, query, path, sourceHash).Scan(
		&entry.Path,
		&entry.SourceHash,
		&entry.Plugin,
		&entry.Output,
		&entry.ContentType,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transform: %w", err)
	}

	return entry, nil
}

// InvalidateTransforms deletes every cached transform for a module path
func (s *SQLiteStore) InvalidateTransforms(ctx context.Context, path string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM transforms WHERE path = ?", path)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate transforms: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// PruneTransforms deletes cached transforms not touched since olderThan
func (s *SQLiteStore) PruneTransforms(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM transforms WHERE updated_at < ?", olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transforms: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// CreateTestRun creates a new test run record
func (s *SQLiteStore) CreateTestRun(ctx context.Context, run *TestRun) error {
	query := `
		INSERT INTO test_runs (id, environment, status, files_total, files_passed, files_failed, coverage_ratio, started_at, completed_at, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Environment,
		run.Status,
		run.FilesTotal,
		run.FilesPassed,
		run.FilesFailed,
		run.CoverageRatio,
		run.StartedAt,
		run.CompletedAt,
		run.Error,
		run.CreatedAt,
		run.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create test run: %w", err)
	}

	return nil
}

// GetTestRun retrieves a test run by ID
func (s *SQLiteStore) GetTestRun(ctx context.Context, id string) (*TestRun, error) {
	query := `
		SELECT id, environment, status, files_total, files_passed, files_failed, coverage_ratio, started_at, completed_at, error, created_at, updated_at
		FROM test_runs
		WHERE id = ?
	`

	run := &TestRun{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Environment,
		&run.Status,
		&run.FilesTotal,
		&run.FilesPassed,
		&run.FilesFailed,
		&run.CoverageRatio,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Error,
		&run.CreatedAt,
		&run.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("test run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test run: %w", err)
	}

	return run, nil
}

// CompleteTestRun finalizes a test run with its outcome
func (s *SQLiteStore) CompleteTestRun(ctx context.Context, id string, status TestRunStatus, passed, failed int, coverage *float64, errMsg *string) error {
	query := `
		UPDATE test_runs
		SET status = ?, files_passed = ?, files_failed = ?, coverage_ratio = ?, error = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query, status, passed, failed, coverage, errMsg, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to complete test run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("test run not found: %s", id)
	}

	return nil
}

// ListTestRuns lists test runs with pagination, newest first
func (s *SQLiteStore) ListTestRuns(ctx context.Context, limit, offset int) ([]*TestRun, error) {
	query := `
		SELECT id, environment, status, files_total, files_passed, files_failed, coverage_ratio, started_at, completed_at, error, created_at, updated_at
		FROM test_runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list test runs: %w", err)
	}
	defer rows.Close()

	runs := []*TestRun{}
	for rows.Next() {
		run := &TestRun{}
		err := rows.Scan(
			&run.ID,
			&run.Environment,
			&run.Status,
			&run.FilesTotal,
			&run.FilesPassed,
			&run.FilesFailed,
			&run.CoverageRatio,
			&run.StartedAt,
			&run.CompletedAt,
			&run.Error,
			&run.CreatedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate test runs: %w", err)
	}

	return runs, nil
}

// HealthCheck verifies the database connection is alive
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
