package geopartition

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
//	    planCounter    prometheus.Counter
//	    writeHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordPlan(strategy string, rows, partitions int, duration time.Duration, err error) {
//	    p.planCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordPlan is called after each plan phase.
	// rows is the input row count, partitions the mapping size,
	// err is nil if successful.
	RecordPlan(strategy string, rows, partitions int, duration time.Duration, err error)

	// RecordAnalysis is called after each analysis phase.
	// warnings is the number of findings.
	RecordAnalysis(partitions, warnings int, duration time.Duration)

	// RecordDownload is called after each dataset download attempt. The
	// admin cache invokes it through admin.WithDownloadObserver; pass the
	// collector's method value when opening the cache.
	RecordDownload(dataset string, bytes int64, duration time.Duration, err error)

	// RecordWrite is called after each write phase.
	RecordWrite(files int, rows uint64, bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPlan(string, int, int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordAnalysis(int, int, time.Duration)                {}
func (NoopMetricsCollector) RecordDownload(string, int64, time.Duration, error)    {}
func (NoopMetricsCollector) RecordWrite(int, uint64, int64, time.Duration, error)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	PlanCount       atomic.Int64
	PlanErrors      atomic.Int64
	PlanTotalNanos  atomic.Int64
	RowsPlanned     atomic.Int64
	PartitionCount  atomic.Int64
	AnalysisCount   atomic.Int64
	WarningCount    atomic.Int64
	DownloadCount   atomic.Int64
	DownloadErrors  atomic.Int64
	DownloadBytes   atomic.Int64
	WriteCount      atomic.Int64
	WriteErrors     atomic.Int64
	FilesWritten    atomic.Int64
	RowsWritten     atomic.Int64
	BytesWritten    atomic.Int64
	WriteTotalNanos atomic.Int64
}

// RecordPlan implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPlan(strategy string, rows, partitions int, duration time.Duration, err error) {
	b.PlanCount.Add(1)
	b.PlanTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PlanErrors.Add(1)
		return
	}
	b.RowsPlanned.Add(int64(rows))
	b.PartitionCount.Add(int64(partitions))
}

// RecordAnalysis implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAnalysis(partitions, warnings int, duration time.Duration) {
	b.AnalysisCount.Add(1)
	b.WarningCount.Add(int64(warnings))
}

// RecordDownload implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDownload(dataset string, bytes int64, duration time.Duration, err error) {
	b.DownloadCount.Add(1)
	if err != nil {
		b.DownloadErrors.Add(1)
		return
	}
	b.DownloadBytes.Add(bytes)
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(files int, rows uint64, bytes int64, duration time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WriteErrors.Add(1)
		return
	}
	b.FilesWritten.Add(int64(files))
	b.RowsWritten.Add(int64(rows))
	b.BytesWritten.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		PlanCount:      b.PlanCount.Load(),
		PlanErrors:     b.PlanErrors.Load(),
		PlanAvgNanos:   b.avgPlanNanos(),
		RowsPlanned:    b.RowsPlanned.Load(),
		PartitionCount: b.PartitionCount.Load(),
		AnalysisCount:  b.AnalysisCount.Load(),
		WarningCount:   b.WarningCount.Load(),
		DownloadCount:  b.DownloadCount.Load(),
		DownloadErrors: b.DownloadErrors.Load(),
		DownloadBytes:  b.DownloadBytes.Load(),
		WriteCount:     b.WriteCount.Load(),
		WriteErrors:    b.WriteErrors.Load(),
		FilesWritten:   b.FilesWritten.Load(),
		RowsWritten:    b.RowsWritten.Load(),
		BytesWritten:   b.BytesWritten.Load(),
	}
}

func (b *BasicMetricsCollector) avgPlanNanos() int64 {
	count := b.PlanCount.Load()
	if count == 0 {
		return 0
	}
	return b.PlanTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	PlanCount      int64
	PlanErrors     int64
	PlanAvgNanos   int64
	RowsPlanned    int64
	PartitionCount int64
	AnalysisCount  int64
	WarningCount   int64
	DownloadCount  int64
	DownloadErrors int64
	DownloadBytes  int64
	WriteCount     int64
	WriteErrors    int64
	FilesWritten   int64
	RowsWritten    int64
	BytesWritten   int64
}
