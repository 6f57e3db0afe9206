package testrunner

import (
	"sort"
	"sync"
)

// FileCoverage holds per-file statement counters.
type FileCoverage struct {
	Path       string  `json:"path"`
	Statements int     `json:"statements"`
	Covered    int     `json:"covered"`
	Ratio      float64 `json:"ratio"`
}

// CoverageSummary aggregates file counters for a completed run.
type CoverageSummary struct {
	Files      []FileCoverage `json:"files"`
	Statements int            `json:"statements"`
	Covered    int            `json:"covered"`
	Ratio      float64        `json:"ratio"`
}

// Collector accumulates coverage counters from concurrently executing
// files. Safe for use from multiple workers.
type Collector struct {
	mu    sync.Mutex
	files map[string]*FileCoverage
}

// NewCollector creates an empty coverage collector.
func NewCollector() *Collector {
	return &Collector{
		files: make(map[string]*FileCoverage),
	}
}

// Record adds counters for a file. Repeated records for the same path
// accumulate.
func (c *Collector) Record(path string, statements, covered int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fc, ok := c.files[path]
	if !ok {
		fc = &FileCoverage{Path: path}
		c.files[path] = fc
	}
	fc.Statements += statements
	fc.Covered += covered
}

// Summary computes the aggregate view, files sorted by path.
func (c *Collector) Summary() *CoverageSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	sum := &CoverageSummary{
		Files: make([]FileCoverage, 0, len(c.files)),
	}
	for _, fc := range c.files {
		entry := *fc
		if entry.Statements > 0 {
			entry.Ratio = float64(entry.Covered) / float64(entry.Statements)
		}
		sum.Files = append(sum.Files, entry)
		sum.Statements += entry.Statements
		sum.Covered += entry.Covered
	}
	sort.Slice(sum.Files, func(i, j int) bool {
		return sum.Files[i].Path < sum.Files[j].Path
	})
	if sum.Statements > 0 {
		sum.Ratio = float64(sum.Covered) / float64(sum.Statements)
	}
	return sum
}
