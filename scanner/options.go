package scanner

import (
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/patternsec/engine/snapshot"
)

const (
	// DefaultMaxMemoryMB is the default cache memory budget.
	DefaultMaxMemoryMB = 64

	// avgEntryBytes is the estimated in-memory footprint of one cache entry
	// (fingerprint, verdict, queue bookkeeping). Used to convert a memory
	// budget into an entry-count capacity.
	avgEntryBytes = 512
)

// Config holds scanner configuration. Use DefaultConfig and Options to
// construct one.
type Config struct {
	// MaxMemoryMB bounds the accuracy cache. It converts to an entry-count
	// capacity via an average-entry-size estimate.
	MaxMemoryMB int

	// AdaptiveRouting enables historical-precision blending. When false,
	// final confidence uses only the agents' base confidence.
	AdaptiveRouting bool

	// Workers bounds how many agents evaluate a file concurrently.
	Workers int

	// EvalBudget is each agent's per-file evaluation time budget.
	EvalBudget time.Duration

	// Logger receives structured scan diagnostics.
	Logger *slog.Logger

	// Store persists the cache snapshot across runs. Nil disables persistence.
	Store snapshot.Store

	// TracerProvider supplies the tracer for scan spans. Nil uses the
	// global OpenTelemetry provider.
	TracerProvider trace.TracerProvider

	// MeterProvider supplies the meter for scan metrics. Nil uses the
	// global OpenTelemetry provider.
	MeterProvider metric.MeterProvider
}

// DefaultConfig returns the default scanner configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxMemoryMB:     DefaultMaxMemoryMB,
		AdaptiveRouting: true,
		Workers:         runtime.NumCPU(),
		EvalBudget:      0, // agent default
		Logger:          slog.Default(),
	}
}

// cacheCapacity converts the memory budget into an entry-count capacity.
func (c *Config) cacheCapacity() int {
	mb := c.MaxMemoryMB
	if mb <= 0 {
		mb = DefaultMaxMemoryMB
	}
	return mb * 1024 * 1024 / avgEntryBytes
}

// Option configures a Scanner.
type Option func(*Config)

// WithMaxMemoryMB sets the cache memory budget in megabytes.
func WithMaxMemoryMB(mb int) Option {
	return func(c *Config) {
		c.MaxMemoryMB = mb
	}
}

// WithAdaptiveRouting enables or disables historical-precision blending.
func WithAdaptiveRouting(enabled bool) Option {
	return func(c *Config) {
		c.AdaptiveRouting = enabled
	}
}

// WithWorkers bounds concurrent agent evaluation per file.
func WithWorkers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Workers = n
		}
	}
}

// WithEvalBudget sets each agent's per-file evaluation time budget.
func WithEvalBudget(d time.Duration) Option {
	return func(c *Config) {
		c.EvalBudget = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithSnapshotStore enables cache persistence through the given store.
func WithSnapshotStore(store snapshot.Store) Option {
	return func(c *Config) {
		c.Store = store
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for scan spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for scan metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Config) {
		c.MeterProvider = mp
	}
}
