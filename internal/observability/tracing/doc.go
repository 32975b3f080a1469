// Package tracing sets up OpenTelemetry for the service and starts a server
// span per HTTP request.
//
// No exporter is configured by default; spans exist so trace IDs reach the
// logs, the X-Trace-Id header and the resilience attempt spans. Install an
// exporter through Init's options when a collector is available.
package tracing
