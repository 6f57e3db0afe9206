package stores

import (
	"context"
	"testing"
	"time"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Check that tables exist by querying them
	tables := []string{"transforms", "test_runs"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

// TestMissingConfig tests that a path is required
func TestMissingConfig(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

// TestTransformCache tests transform cache operations
func TestTransformCache(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	entry := &TransformEntry{
		Path:        "src/App.svelte",
		SourceHash:  "abc123",
		Plugin:      "svelte",
		Output:      "export default {};",
		ContentType: "application/javascript",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := store.PutTransform(ctx, entry); err != nil {
		t.Fatalf("failed to put transform: %v", err)
	}

	// Hit
	got, err := store.GetTransform(ctx, entry.Path, entry.SourceHash)
	if err != nil {
		t.Fatalf("failed to get transform: %v", err)
	}
	if got == nil {
		t.Fatal("expected cache hit, got miss")
	}
	if got.Plugin != entry.Plugin {
		t.Errorf("expected plugin %s, got %s", entry.Plugin, got.Plugin)
	}
	if got.Output != entry.Output {
		t.Errorf("expected output %s, got %s", entry.Output, got.Output)
	}

	// Miss on a different hash
	got, err = store.GetTransform(ctx, entry.Path, "other-hash")
	if err != nil {
		t.Fatalf("unexpected error on miss: %v", err)
	}
	if got != nil {
		t.Errorf("expected cache miss, got %+v", got)
	}

	// Upsert replaces the output
	entry.Output = "export default { updated: true };"
	entry.UpdatedAt = now.Add(time.Second)
	if err := store.PutTransform(ctx, entry); err != nil {
		t.Fatalf("failed to upsert transform: %v", err)
	}

	got, err = store.GetTransform(ctx, entry.Path, entry.SourceHash)
	if err != nil {
		t.Fatalf("failed to get transform after upsert: %v", err)
	}
	if got.Output != entry.Output {
		t.Errorf("expected updated output, got %s", got.Output)
	}
}

// TestInvalidateTransforms tests path-level cache invalidation
func TestInvalidateTransforms(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	for _, hash := range []string{"v1", "v2", "v3"} {
		entry := &TransformEntry{
			Path:        "src/App.svelte",
			SourceHash:  hash,
			Plugin:      "svelte",
			Output:      "export default {};",
			ContentType: "application/javascript",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := store.PutTransform(ctx, entry); err != nil {
			t.Fatalf("failed to put transform: %v", err)
		}
	}

	other := &TransformEntry{
		Path:        "src/logo.png",
		SourceHash:  "v1",
		Plugin:      "asset",
		Output:      `export default "/@asset/src/logo.png";`,
		ContentType: "application/javascript",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.PutTransform(ctx, other); err != nil {
		t.Fatalf("failed to put transform: %v", err)
	}

	deleted, err := store.InvalidateTransforms(ctx, "src/App.svelte")
	if err != nil {
		t.Fatalf("failed to invalidate transforms: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted entries, got %d", deleted)
	}

	// Unrelated path survives
	got, err := store.GetTransform(ctx, other.Path, other.SourceHash)
	if err != nil {
		t.Fatalf("failed to get surviving transform: %v", err)
	}
	if got == nil {
		t.Error("unrelated entry was invalidated")
	}
}

// TestPruneTransforms tests age-based cache pruning
func TestPruneTransforms(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()

	stale := &TransformEntry{
		Path:        "src/old.svelte",
		SourceHash:  "v1",
		Plugin:      "svelte",
		Output:      "export default {};",
		ContentType: "application/javascript",
		CreatedAt:   old,
		UpdatedAt:   old,
	}
	recent := &TransformEntry{
		Path:        "src/new.svelte",
		SourceHash:  "v1",
		Plugin:      "svelte",
		Output:      "export default {};",
		ContentType: "application/javascript",
		CreatedAt:   fresh,
		UpdatedAt:   fresh,
	}

	for _, e := range []*TransformEntry{stale, recent} {
		if err := store.PutTransform(ctx, e); err != nil {
			t.Fatalf("failed to put transform: %v", err)
		}
	}

	pruned, err := store.PruneTransforms(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("failed to prune transforms: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned entry, got %d", pruned)
	}

	got, err := store.GetTransform(ctx, recent.Path, recent.SourceHash)
	if err != nil {
		t.Fatalf("failed to get recent transform: %v", err)
	}
	if got == nil {
		t.Error("recent entry was pruned")
	}
}

// TestTestRunCRUD tests test run operations
func TestTestRunCRUD(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	run := &TestRun{
		ID:          "run-001",
		Environment: "node",
		Status:      TestRunStatusRunning,
		FilesTotal:  12,
		StartedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := store.CreateTestRun(ctx, run); err != nil {
		t.Fatalf("failed to create test run: %v", err)
	}

	retrieved, err := store.GetTestRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get test run: %v", err)
	}
	if retrieved.Environment != run.Environment {
		t.Errorf("expected environment %s, got %s", run.Environment, retrieved.Environment)
	}
	if retrieved.Status != TestRunStatusRunning {
		t.Errorf("expected status %s, got %s", TestRunStatusRunning, retrieved.Status)
	}
	if retrieved.CompletedAt != nil {
		t.Error("expected nil completed_at on a running run")
	}

	coverage := 0.87
	if err := store.CompleteTestRun(ctx, run.ID, TestRunStatusPassed, 12, 0, &coverage, nil); err != nil {
		t.Fatalf("failed to complete test run: %v", err)
	}

	completed, err := store.GetTestRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get completed test run: %v", err)
	}
	if completed.Status != TestRunStatusPassed {
		t.Errorf("expected status %s, got %s", TestRunStatusPassed, completed.Status)
	}
	if completed.FilesPassed != 12 {
		t.Errorf("expected 12 passed files, got %d", completed.FilesPassed)
	}
	if completed.CoverageRatio == nil || *completed.CoverageRatio != coverage {
		t.Errorf("expected coverage %v, got %v", coverage, completed.CoverageRatio)
	}
	if completed.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

// TestTestRunNotFound tests error handling for missing runs
func TestTestRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	if _, err := store.GetTestRun(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing test run")
	}

	if err := store.CompleteTestRun(ctx, "missing", TestRunStatusFailed, 0, 1, nil, nil); err == nil {
		t.Fatal("expected error for completing missing test run")
	}
}

// TestListTestRuns tests pagination and ordering
func TestListTestRuns(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		run := &TestRun{
			ID:          string(rune('a' + i)),
			Environment: "node",
			Status:      TestRunStatusPassed,
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			CreatedAt:   base,
			UpdatedAt:   base,
		}
		if err := store.CreateTestRun(ctx, run); err != nil {
			t.Fatalf("failed to create test run: %v", err)
		}
	}

	runs, err := store.ListTestRuns(ctx, 3, 0)
	if err != nil {
		t.Fatalf("failed to list test runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}

	// Newest first
	if runs[0].ID != "e" {
		t.Errorf("expected newest run first, got %s", runs[0].ID)
	}

	rest, err := store.ListTestRuns(ctx, 10, 3)
	if err != nil {
		t.Fatalf("failed to list remaining runs: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("expected 2 remaining runs, got %d", len(rest))
	}
}
