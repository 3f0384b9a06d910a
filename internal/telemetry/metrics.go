package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter    metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	TokensUsed        metric.Int64Counter
	IngestDuration    metric.Float64Histogram
	FilesProcessed    metric.Int64Counter
	SummaryCacheHits  metric.Int64Counter
	BreakerStateFlips metric.Int64Counter
}

// defaultMetrics is set by InitMetrics so code without a handle can still
// record. The package-level helpers are no-ops until then.
var defaultMetrics *Metrics

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("medvault-rag")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram(
		"ingest.file.duration",
		metric.WithDescription("Per-file ingest duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	filesProcessed, err := meter.Int64Counter(
		"ingest.files.total",
		metric.WithDescription("Files ingested, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	summaryCacheHits, err := meter.Int64Counter(
		"summary.cache.lookups",
		metric.WithDescription("Summary cache lookups, by result"),
	)
	if err != nil {
		return nil, err
	}

	breakerStateFlips, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		RequestCounter:    requestCounter,
		RequestDuration:   requestDuration,
		TokensUsed:        tokensUsed,
		IngestDuration:    ingestDuration,
		FilesProcessed:    filesProcessed,
		SummaryCacheHits:  summaryCacheHits,
		BreakerStateFlips: breakerStateFlips,
	}
	defaultMetrics = m
	return m, nil
}

// RecordTokens records token usage against the default metrics handle.
func RecordTokens(tokens int64, model string) {
	if defaultMetrics != nil {
		defaultMetrics.RecordTokensUsed(tokens, model)
	}
}

// RecordIngestOutcome records one file's ingest result against the default
// metrics handle.
func RecordIngestOutcome(duration float64, status string) {
	if defaultMetrics != nil {
		defaultMetrics.RecordFileIngest(duration, status)
	}
}

// RecordCacheLookup records a summary cache hit or miss against the default
// metrics handle.
func RecordCacheLookup(hit bool) {
	if defaultMetrics != nil {
		defaultMetrics.RecordSummaryCacheLookup(hit)
	}
}

// RecordBreakerChange records a circuit breaker transition against the
// default metrics handle.
func RecordBreakerChange(service, state string) {
	if defaultMetrics != nil {
		defaultMetrics.RecordCircuitBreakerState(service, state)
	}
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordTokensUsed records Gemini token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	attrs := []attribute.KeyValue{
		attribute.String("gemini.model", model),
		attribute.String("service", "gemini"),
	}

	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

// RecordFileIngest records a per-file ingest outcome and its duration
func (m *Metrics) RecordFileIngest(duration float64, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("ingest.status", status),
	}

	m.IngestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
	m.FilesProcessed.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordSummaryCacheLookup records a cache hit or miss
func (m *Metrics) RecordSummaryCacheLookup(hit bool) {
	attrs := []attribute.KeyValue{
		attribute.Bool("cache.hit", hit),
	}

	m.SummaryCacheHits.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.BreakerStateFlips.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
