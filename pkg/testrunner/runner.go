package testrunner

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fresnel-build/fresnel/pkg/config"
	"github.com/fresnel-build/fresnel/pkg/stores"
	"github.com/fresnel-build/fresnel/pkg/telemetry"
)

// FileStatus is the outcome of executing a single test file.
type FileStatus string

const (
	FileStatusPassed FileStatus = "passed"
	FileStatusFailed FileStatus = "failed"
)

// FileResult is the recorded outcome for one test file.
type FileResult struct {
	Path     string
	Status   FileStatus
	Duration time.Duration
	Error    string

	// Statements and Covered feed the coverage collector when coverage
	// is enabled.
	Statements int
	Covered    int
}

// ExecuteRequest carries one file to the executor along with the
// prepared environment and the stylesheet toggle.
type ExecuteRequest struct {
	Path        string
	Environment Environment

	// CSS controls whether stylesheet imports are processed or stubbed.
	CSS bool
}

// Executor runs a single test file. Implementations wrap the actual
// execution engine; the runner only schedules and collects.
type Executor interface {
	Execute(ctx context.Context, req ExecuteRequest) (*FileResult, error)
}

// RunResult is the aggregate outcome of a run.
type RunResult struct {
	ID          string
	Environment string
	Status      stores.TestRunStatus
	FilesTotal  int
	FilesPassed int
	FilesFailed int
	Duration    time.Duration
	Results     []FileResult
	Coverage    *CoverageSummary
}

const defaultWorkers = 4

var testFileSuffixes = []string{".test.js", ".test.ts", ".spec.js", ".spec.ts"}

// DiscoverTestFiles walks root and returns test files in walk order,
// as paths relative to root. Dependency and output directories are
// skipped.
func DiscoverTestFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "node_modules", "dist", ".fresnel":
				if path != root {
					return filepath.SkipDir
				}
			}
			return nil
		}
		for _, suffix := range testFileSuffixes {
			if strings.HasSuffix(d.Name(), suffix) {
				rel, relErr := filepath.Rel(root, path)
				if relErr != nil {
					return relErr
				}
				files = append(files, filepath.ToSlash(rel))
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering test files: %w", err)
	}
	return files, nil
}

// Runner executes test files on a bounded worker pool and persists the
// run record.
type Runner struct {
	cfg     *config.Config
	root    string
	store   stores.Store
	tel     *telemetry.Telemetry
	exec    Executor
	workers int
	logger  *telemetry.Logger
}

// NewRunner creates a runner for a resolved configuration. A nil
// executor selects the simulated one; workers <= 0 selects the default
// pool size.
func NewRunner(cfg *config.Config, root string, store stores.Store, tel *telemetry.Telemetry, exec Executor, workers int) *Runner {
	if exec == nil {
		exec = &SimulatedExecutor{Root: root}
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Runner{
		cfg:     cfg,
		root:    root,
		store:   store,
		tel:     tel,
		exec:    exec,
		workers: workers,
		logger:  tel.Logger.NewComponentLogger("testrunner"),
	}
}

// Run executes the given test files and returns the aggregate result.
// The run record is created up front and completed when the pool
// drains, so interrupted runs remain visible as running in history.
func (r *Runner) Run(ctx context.Context, files []string) (*RunResult, error) {
	env, err := NewEnvironment(r.cfg.Test.Environment)
	if err != nil {
		return nil, err
	}
	if err := env.Setup(ctx); err != nil {
		return nil, fmt.Errorf("preparing %s environment: %w", env.Name(), err)
	}
	defer env.Teardown(ctx)

	runID := uuid.New().String()
	started := time.Now()

	record := &stores.TestRun{
		ID:          runID,
		Environment: env.Name(),
		Status:      stores.TestRunStatusRunning,
		FilesTotal:  len(files),
		StartedAt:   started,
	}
	if err := r.store.CreateTestRun(ctx, record); err != nil {
		return nil, fmt.Errorf("recording test run: %w", err)
	}

	r.logger.WithField("run_id", runID).
		WithField("environment", env.Name()).
		WithField("files", len(files)).
		Info("test run started")

	var collector *Collector
	if r.cfg.Test.Coverage.Enabled {
		collector = NewCollector()
	}

	results := r.executePool(ctx, env, files, collector)

	passed, failed := 0, 0
	for _, res := range results {
		if res.Status == FileStatusPassed {
			passed++
		} else {
			failed++
		}
	}

	status := stores.TestRunStatusPassed
	if failed > 0 {
		status = stores.TestRunStatusFailed
	}

	result := &RunResult{
		ID:          runID,
		Environment: env.Name(),
		Status:      status,
		FilesTotal:  len(files),
		FilesPassed: passed,
		FilesFailed: failed,
		Duration:    time.Since(started),
		Results:     results,
	}

	var ratio *float64
	if collector != nil {
		result.Coverage = collector.Summary()
		v := result.Coverage.Ratio
		ratio = &v
		r.tel.Metrics.SetCoverageRatio(v)
	}

	if err := r.store.CompleteTestRun(ctx, runID, status, passed, failed, ratio, nil); err != nil {
		return nil, fmt.Errorf("completing test run: %w", err)
	}

	r.tel.Metrics.RecordTestRun(env.Name(), result.Duration)
	r.logger.WithField("run_id", runID).
		WithField("status", string(status)).
		WithField("passed", passed).
		WithField("failed", failed).
		Info("test run completed")

	return result, nil
}

// executePool fans the files out to the worker pool and collects
// results in file order.
func (r *Runner) executePool(ctx context.Context, env Environment, files []string, collector *Collector) []FileResult {
	workers := r.workers
	if workers > len(files) {
		workers = len(files)
	}
	if workers == 0 {
		return nil
	}

	type indexed struct {
		idx  int
		file string
	}
	queue := make(chan indexed, len(files))
	for i, f := range files {
		queue <- indexed{idx: i, file: f}
	}
	close(queue)

	results := make([]FileResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				results[item.idx] = r.executeFile(ctx, env, item.file, collector)
			}
		}()
	}
	wg.Wait()

	return results
}

func (r *Runner) executeFile(ctx context.Context, env Environment, file string, collector *Collector) FileResult {
	fileCtx, span := r.tel.Tracer.StartTestFileSpan(ctx, file, env.Name())
	defer span.End()

	started := time.Now()
	res, err := r.exec.Execute(fileCtx, ExecuteRequest{
		Path:        file,
		Environment: env,
		CSS:         r.cfg.Test.CSS,
	})
	if err != nil {
		res = &FileResult{
			Path:   file,
			Status: FileStatusFailed,
			Error:  err.Error(),
		}
	}
	if res.Duration == 0 {
		res.Duration = time.Since(started)
	}

	span.SetAttributes(telemetry.AttrTestStatus.String(string(res.Status)))
	r.tel.Metrics.RecordTestFile(string(res.Status))

	if res.Status == FileStatusFailed {
		r.logger.WithTestFile(file).WithField("error", res.Error).Warn("test file failed")
	} else {
		r.logger.WithTestFile(file).Debug("test file passed")
	}

	if collector != nil && res.Statements > 0 {
		collector.Record(file, res.Statements, res.Covered)
	}

	return *res
}

// Report emits the configured coverage reporters for a completed run.
// Text output goes to w; file reporters write under dir. A run without
// coverage reports nothing.
func (r *Runner) Report(result *RunResult, w io.Writer, dir string) error {
	if result.Coverage == nil {
		return nil
	}
	return EmitCoverage(w, dir, r.cfg.Test.Coverage.Reporters, result.Coverage)
}

// SimulatedExecutor models execution for environments without a real
// engine attached. A file passes when it can be read; its non-blank,
// non-comment lines count as executed statements. Stylesheet imports are
// stubbed out of the statement count when CSS processing is off.
type SimulatedExecutor struct {
	Root string
}

func (e *SimulatedExecutor) Execute(_ context.Context, req ExecuteRequest) (*FileResult, error) {
	data, err := os.ReadFile(filepath.Join(e.Root, filepath.FromSlash(req.Path)))
	if err != nil {
		return nil, fmt.Errorf("reading test file: %w", err)
	}

	statements := 0
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if !req.CSS && isStylesheetImport(trimmed) {
			continue
		}
		statements++
	}

	return &FileResult{
		Path:       req.Path,
		Status:     FileStatusPassed,
		Statements: statements,
		Covered:    statements,
	}, nil
}

func isStylesheetImport(line string) bool {
	if !strings.HasPrefix(line, "import ") && !strings.HasPrefix(line, "import\"") {
		return false
	}
	return strings.Contains(line, ".css") || strings.Contains(line, ".scss") || strings.Contains(line, ".less")
}
