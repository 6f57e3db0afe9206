// Package testrunner executes discovered test files in a configured
// environment and aggregates coverage.
//
// The runner consumes the resolved test configuration: the execution
// environment (node or dom), the CSS processing toggle, and the coverage
// reporter list. Files are dispatched to an Executor on a bounded worker
// pool; the Executor is the boundary to the actual execution engine, and
// the default implementation simulates execution so the runner's
// scheduling, persistence, and reporting paths work end to end.
//
// Run records are persisted through the stores package and coverage is
// emitted through every configured reporter in order.
package testrunner
