// Package config resolves the declared Fresnel project configuration into
// the immutable record consumed by the dev server, preview server, test
// runner, and plugin pipeline.
//
// # Overview
//
// Resolution is a single-pass, synchronous, side-effect-free transform with
// exactly two outcomes: a valid *Config, or a field-attributed *ConfigError.
// It runs once per invocation, before any consumer starts; on failure the
// process terminates without partial startup.
//
// The pipeline is:
//
//  1. applyDefaults fills every omitted option group with its documented
//     default (explicit and independently testable).
//  2. Plugin descriptors are carried over in declared order, never
//     reordered or deduplicated.
//  3. server.fs.allow entries are resolved against the project root at
//     load time; enforcement later is a pure prefix check.
//  4. Validation checks ports (1-65535), path syntax, and the test
//     environment and coverage reporter enums.
//
// # Configuration Sources
//
// The declared options come from a static config file: fresnel.cue (CUE)
// or fresnel.yaml. An optional fresnel.star Starlark script may compute
// options procedurally before resolution; its output merges under the
// declared file. See Loader and StarlarkEvaluator.
//
// # Usage Example
//
//	raw, err := config.NewLoader().Load("fresnel.cue")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg, err := config.Resolve(raw, projectRoot)
//	if err != nil {
//	    var cfgErr *config.ConfigError
//	    if errors.As(err, &cfgErr) {
//	        fmt.Printf("%s: %s\n", cfgErr.Field, cfgErr.Reason)
//	    }
//	    os.Exit(1)
//	}
//
// # Error Handling
//
// Every validation failure is a ConfigError naming the offending field and
// a reason code (missing-required, out-of-range, unrecognized-enum-value,
// malformed-path). No generic "configuration invalid" failures exist at
// this boundary.
//
// # Thread Safety
//
// The resolved Config is immutable; consumers must not mutate it. Resolver
// and Loader are safe for concurrent use.
package config
