package bindex

import (
	"log/slog"

	"github.com/hupe1980/bindex/binning"
)

type options struct {
	scheme           binning.Scheme
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Builder and Index construction behavior.
type Option func(*options)

// WithScheme configures the binning scheme used by a Builder. The default is
// binning.Default (14/5, positions up to 1<<29).
func WithScheme(s binning.Scheme) Option {
	return func(o *options) {
		o.scheme = s
	}
}

// WithMetricsCollector configures a metrics collector for build, query, and
// serialization operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &bindex.BasicMetricsCollector{}
//	b := bindex.NewBuilder(bindex.WithMetricsCollector(metrics))
//	// ... build and query ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := bindex.NewJSONLogger(slog.LevelInfo)
//	b := bindex.NewBuilder(bindex.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		scheme:           binning.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
