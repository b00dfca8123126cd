package observability

import (
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Metrics holds every metric instrument the gateway records, created once
// at startup and shared with middleware, handlers, and the scheduler.
type Metrics struct {
	// HTTP metrics
	HTTPRequestDuration otelmetric.Float64Histogram
	HTTPRequestTotal    otelmetric.Int64Counter
	HTTPRequestErrors   otelmetric.Int64Counter

	// Classification metrics
	ClassificationRequestsTotal otelmetric.Int64Counter
	ClassificationBatchSize     otelmetric.Int64Histogram
	ClassificationFlushLatency  otelmetric.Float64Histogram
	ClassificationBackendErrors otelmetric.Int64Counter
}

// NewMetrics creates every instrument from meter. Each is named and
// described following OpenTelemetry semantic-convention style.
func NewMetrics(meter otelmetric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.request.duration",
		otelmetric.WithUnit("ms"),
		otelmetric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestTotal, err = meter.Int64Counter(
		"http.request.total",
		otelmetric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestErrors, err = meter.Int64Counter(
		"http.request.errors",
		otelmetric.WithDescription("HTTP request errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, err
	}

	m.ClassificationRequestsTotal, err = meter.Int64Counter(
		"classification.requests.total",
		otelmetric.WithDescription("Total classification requests accepted at the fanout edge"),
	)
	if err != nil {
		return nil, err
	}

	m.ClassificationBatchSize, err = meter.Int64Histogram(
		"classification.batch.size",
		otelmetric.WithDescription("Number of requests coalesced into each flushed batch"),
	)
	if err != nil {
		return nil, err
	}

	m.ClassificationFlushLatency, err = meter.Float64Histogram(
		"classification.flush.latency",
		otelmetric.WithUnit("ms"),
		otelmetric.WithDescription("Backend call duration per flush, in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	m.ClassificationBackendErrors, err = meter.Int64Counter(
		"classification.backend.errors",
		otelmetric.WithDescription("Classification requests that failed due to a backend error"),
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}
