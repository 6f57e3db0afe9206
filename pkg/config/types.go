package config

import (
	"github.com/fresnel-build/fresnel/pkg/plugins"
)

// DefaultPort is the standard Fresnel development port. Both the dev
// server and the preview server default to it when their port is omitted.
const DefaultPort = 5173

// Environment selects the simulated execution context for test runs.
type Environment string

const (
	// EnvironmentNode is the non-DOM, node-like context.
	EnvironmentNode Environment = "node"

	// EnvironmentDOM is the browser-like context with a simulated DOM.
	EnvironmentDOM Environment = "dom"
)

// Reporter is a coverage output format.
type Reporter string

const (
	ReporterText        Reporter = "text"
	ReporterJSON        Reporter = "json"
	ReporterJSONSummary Reporter = "json-summary"
	ReporterHTML        Reporter = "html"
	ReporterLCOV        Reporter = "lcov"
)

// RawOptions is the declared option mapping before defaulting and
// validation. Scalar fields are pointers so an omitted value can be told
// apart from an explicitly declared zero: server.port left out defaults to
// DefaultPort, server.port declared as 0 fails validation as out-of-range.
type RawOptions struct {
	// Plugins declares the transform pipeline in application order.
	Plugins []plugins.Descriptor `json:"plugins,omitempty" yaml:"plugins,omitempty"`

	// Server holds dev server options.
	Server *RawServer `json:"server,omitempty" yaml:"server,omitempty"`

	// Preview holds preview server options.
	Preview *RawPreview `json:"preview,omitempty" yaml:"preview,omitempty"`

	// Test holds test runner options.
	Test *RawTest `json:"test,omitempty" yaml:"test,omitempty"`
}

// RawServer declares dev server options.
type RawServer struct {
	// Port is the TCP port the dev server binds to.
	Port *int `json:"port,omitempty" yaml:"port,omitempty"`

	// FS holds filesystem access options.
	FS *RawFS `json:"fs,omitempty" yaml:"fs,omitempty"`
}

// RawFS declares dev server filesystem access options.
type RawFS struct {
	// Allow lists path prefixes, relative to the project root or
	// absolute, that the dev server may read from outside the root.
	Allow []string `json:"allow,omitempty" yaml:"allow,omitempty"`
}

// RawPreview declares preview server options.
type RawPreview struct {
	// Port is the TCP port the preview server binds to.
	Port *int `json:"port,omitempty" yaml:"port,omitempty"`
}

// RawTest declares test runner options.
type RawTest struct {
	// Environment is the simulated execution context: "node" or "dom".
	Environment *string `json:"environment,omitempty" yaml:"environment,omitempty"`

	// CSS enables stylesheet processing during test runs.
	CSS *bool `json:"css,omitempty" yaml:"css,omitempty"`

	// Coverage holds coverage collection options.
	Coverage *RawCoverage `json:"coverage,omitempty" yaml:"coverage,omitempty"`
}

// RawCoverage declares coverage collection options.
type RawCoverage struct {
	// Enabled turns coverage collection on.
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Reporter lists the coverage output formats in emission order.
	Reporter []string `json:"reporter,omitempty" yaml:"reporter,omitempty"`
}

// Config is the resolved, immutable configuration record. It is
// constructed once per invocation by Resolve and handed to each consumer;
// consumers must not mutate it and the resolver retains no reference to
// it after returning.
type Config struct {
	// Plugins is the transform pipeline in declared order.
	Plugins []plugins.Descriptor `json:"plugins"`

	// Server is the dev server configuration.
	Server ServerConfig `json:"server"`

	// Preview is the preview server configuration.
	Preview PreviewConfig `json:"preview"`

	// Test is the test runner configuration.
	Test TestConfig `json:"test"`
}

// ServerConfig configures the dev server.
type ServerConfig struct {
	// Port is the TCP port the dev server binds to.
	Port int `json:"port" validate:"min=1,max=65535"`

	// FS is the filesystem access configuration.
	FS FSConfig `json:"fs"`
}

// FSConfig configures dev server filesystem access.
type FSConfig struct {
	// Allow lists absolute path prefixes the dev server may serve from
	// outside the project root. Entries are resolved against the project
	// root at load time, not at request time.
	Allow []string `json:"allow"`
}

// PreviewConfig configures the preview server.
type PreviewConfig struct {
	// Port is the TCP port the preview server binds to. It may equal the
	// dev server port: the two servers never run in the same invocation.
	Port int `json:"port" validate:"min=1,max=65535"`
}

// TestConfig configures the test runner.
type TestConfig struct {
	// Environment is the simulated execution context.
	Environment Environment `json:"environment" validate:"oneof=node dom"`

	// CSS enables stylesheet processing during test runs.
	CSS bool `json:"css"`

	// Coverage is the coverage collection configuration.
	Coverage CoverageConfig `json:"coverage"`
}

// CoverageConfig configures coverage collection.
type CoverageConfig struct {
	// Enabled turns coverage collection on.
	Enabled bool `json:"enabled"`

	// Reporters lists the output formats in emission order. Must be
	// non-empty when coverage is enabled.
	Reporters []Reporter `json:"reporter" validate:"dive,oneof=text json json-summary html lcov"`
}
