// Package telemetry provides observability instrumentation for fresnel.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), and metrics (Prometheus) into a unified system for
// monitoring the dev server, the preview server, and test runs.
//
// # Architecture
//
// The telemetry system is built on three pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DevelopmentConfig()
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context
// propagation:
//
//	logger := tel.Logger.NewComponentLogger("devserver")
//	logger = logger.WithRequestID(requestID).WithPlugin("svelte")
//	logger.Info("module transformed")
//	logger.WithError(err).Error("transform failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Tracing provides visibility into request flow and performance:
//
//	ctx, span := tel.Tracer.StartTransformSpan(ctx, plugin, path)
//	defer span.End()
//
// Supported exporters: stdout (development), otlp (production), none.
//
// # Metrics
//
// Prometheus metrics cover served requests, module transforms, the transform
// cache, filesystem watch activity, and test runs. The registry is private to
// each Metrics instance; expose it with Handler or StartMetricsServer.
package telemetry
