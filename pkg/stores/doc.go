// Package stores provides persistence layer implementations for fresnel.
// It includes SQLite-based storage with WAL mode, connection pooling, the
// dev server's transform cache, and recorded test runs.
package stores
