package stores

import (
	"context"
	"database/sql"
	"time"
)

// TestRunStatus represents the status of a test run
type TestRunStatus string

const (
	TestRunStatusRunning TestRunStatus = "running"
	TestRunStatusPassed  TestRunStatus = "passed"
	TestRunStatusFailed  TestRunStatus = "failed"
)

// TransformEntry represents a cached module transform. Entries are keyed
// by module path and source hash, so an edited file naturally misses the
// cache while its stale entries wait for invalidation.
type TransformEntry struct {
	Path        string    `json:"path"`
	SourceHash  string    `json:"source_hash"` // SHA256 of the source content
	Plugin      string    `json:"plugin"`
	Output      string    `json:"output"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TestRun represents a recorded test run
type TestRun struct {
	ID            string        `json:"id"`
	Environment   string        `json:"environment"`
	Status        TestRunStatus `json:"status"`
	FilesTotal    int           `json:"files_total"`
	FilesPassed   int           `json:"files_passed"`
	FilesFailed   int           `json:"files_failed"`
	CoverageRatio *float64      `json:"coverage_ratio,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	Error         *string       `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Transform cache operations. GetTransform returns nil without error
	// on a cache miss.
	PutTransform(ctx context.Context, entry *TransformEntry) error
	GetTransform(ctx context.Context, path, sourceHash string) (*TransformEntry, error)
	InvalidateTransforms(ctx context.Context, path string) (int64, error)
	PruneTransforms(ctx context.Context, olderThan time.Time) (int64, error)

	// Test run operations
	CreateTestRun(ctx context.Context, run *TestRun) error
	GetTestRun(ctx context.Context, id string) (*TestRun, error)
	CompleteTestRun(ctx context.Context, id string, status TestRunStatus, passed, failed int, coverage *float64, errMsg *string) error
	ListTestRuns(ctx context.Context, limit, offset int) ([]*TestRun, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
