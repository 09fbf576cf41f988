package bindex

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    queryCounter   prometheus.Counter
//	    queryHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordQuery(chunks int, duration time.Duration, err error) {
//	    p.queryCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordBuild is called after each Builder.Build call.
	// records is the number of records ingested, err is nil if successful.
	RecordBuild(records uint64, duration time.Duration, err error)

	// RecordQuery is called after each query.
	// chunks is the number of candidate chunks returned.
	RecordQuery(chunks int, duration time.Duration, err error)

	// RecordWrite is called after each index serialization.
	// bytes is the number of bytes produced.
	RecordWrite(bytes int64, duration time.Duration, err error)

	// RecordRead is called after each index deserialization.
	// bytes is the number of bytes consumed.
	RecordRead(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordWrite(int64, time.Duration, error)  {}
func (NoopMetricsCollector) RecordRead(int64, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildRecords    atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryChunks     atomic.Int64
	QueryTotalNanos atomic.Int64
	WriteCount      atomic.Int64
	WriteErrors     atomic.Int64
	WriteBytes      atomic.Int64
	ReadCount       atomic.Int64
	ReadErrors      atomic.Int64
	ReadBytes       atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(records uint64, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildRecords.Add(int64(records))
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(chunks int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryChunks.Add(int64(chunks))
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(bytes int64, duration time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteBytes.Add(bytes)
	if err != nil {
		b.WriteErrors.Add(1)
	}
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(bytes int64, duration time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadBytes.Add(bytes)
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:    b.BuildCount.Load(),
		BuildErrors:   b.BuildErrors.Load(),
		BuildRecords:  b.BuildRecords.Load(),
		QueryCount:    b.QueryCount.Load(),
		QueryErrors:   b.QueryErrors.Load(),
		QueryChunks:   b.QueryChunks.Load(),
		QueryAvgNanos: b.getAvgQueryNanos(),
		WriteCount:    b.WriteCount.Load(),
		WriteErrors:   b.WriteErrors.Load(),
		WriteBytes:    b.WriteBytes.Load(),
		ReadCount:     b.ReadCount.Load(),
		ReadErrors:    b.ReadErrors.Load(),
		ReadBytes:     b.ReadBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount    int64
	BuildErrors   int64
	BuildRecords  int64
	QueryCount    int64
	QueryErrors   int64
	QueryChunks   int64
	QueryAvgNanos int64
	WriteCount    int64
	WriteErrors   int64
	WriteBytes    int64
	ReadCount     int64
	ReadErrors    int64
	ReadBytes     int64
}
