// Package tracing wraps OpenTelemetry so that every update pass can be
// recorded as a span. Tracing is off until Init or InitWithExporter installs
// a provider; until then spans are no-ops.
package tracing
