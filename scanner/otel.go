package scanner

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// scanMetrics holds the OpenTelemetry metric instruments for the scanner.
// They are created once at construction and reused for every scan.
type scanMetrics struct {
	// scanCounter increments for each file scanned
	scanCounter metric.Int64Counter

	// findingCounter increments for each aggregated finding produced
	findingCounter metric.Int64Counter

	// cacheHits and cacheMisses track accuracy-cache effectiveness
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter

	// scanDuration records per-file scan duration in milliseconds
	scanDuration metric.Float64Histogram
}

func newScanMetrics(meter metric.Meter) (*scanMetrics, error) {
	m := &scanMetrics{}
	var err error

	m.scanCounter, err = meter.Int64Counter(
		"scan.count",
		metric.WithDescription("Number of files scanned"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create scan counter: %w", err)
	}

	m.findingCounter, err = meter.Int64Counter(
		"scan.findings",
		metric.WithDescription("Number of aggregated findings produced"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create finding counter: %w", err)
	}

	m.cacheHits, err = meter.Int64Counter(
		"scan.cache.hits",
		metric.WithDescription("Accuracy-cache hits during scoring"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache hit counter: %w", err)
	}

	m.cacheMisses, err = meter.Int64Counter(
		"scan.cache.misses",
		metric.WithDescription("Accuracy-cache misses during scoring"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache miss counter: %w", err)
	}

	m.scanDuration, err = meter.Float64Histogram(
		"scan.duration",
		metric.WithDescription("Per-file scan duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return m, nil
}
