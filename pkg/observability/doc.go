// Package observability provides logging, Prometheus metrics, and OpenTelemetry
// tracing for extension loading and creation.
//
// # Logging
//
//	logger := observability.NewLogger("debug", "json", os.Stderr)
//	extension.Configure(extension.WithLogger(logger))
//
// # Prometheus Metrics
//
// Metrics are off until a collector set is installed:
//
//	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
//	extension.Configure(extension.WithMetrics(metrics))
//
// A nil *Metrics records nothing, so callers never need to check.
//
// # OpenTelemetry
//
// Spans are emitted through the global tracer provider and are no-ops until
// one is installed, for example with InitOTel:
//
//	tp, err := observability.InitOTel(ctx, observability.OTelConfig{
//	    Enabled:     true,
//	    Endpoint:    "localhost:4317",
//	    ServiceName: "my-service",
//	    Insecure:    true,
//	}, logger)
//	defer observability.ShutdownOTel(ctx, tp, logger)
package observability
