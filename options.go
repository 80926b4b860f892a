package geopartition

import (
	"github.com/cholmes/geopartition/analyze"
	"github.com/cholmes/geopartition/write"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	thresholds       analyze.Thresholds
	writeOptions     []write.Option
	preview          bool
	previewLimit     int
	force            bool
	skipAnalysis     bool
	sourceBytes      uint64
}

// Option configures Engine behavior.
type Option func(*options)

// WithLogger configures structured logging for the run phases.
//
// If nil is passed, logging is disabled.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &geopartition.BasicMetricsCollector{}
//	engine, _ := geopartition.New(strategy, sink,
//	    geopartition.WithMetricsCollector(metrics))
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(o *options) {
		if collector == nil {
			collector = NoopMetricsCollector{}
		}
		o.metricsCollector = collector
	}
}

// WithThresholds overrides the analysis warning thresholds. Zero-value
// fields keep their defaults.
func WithThresholds(t analyze.Thresholds) Option {
	return func(o *options) { o.thresholds = t }
}

// WithWriteOptions passes options through to the partition writer (style,
// compression, workers, overwrite, column retention, Hilbert ordering).
func WithWriteOptions(opts ...write.Option) Option {
	return func(o *options) { o.writeOptions = append(o.writeOptions, opts...) }
}

// WithPreview plans and analyzes without writing anything. limit bounds how
// many partitions the run result previews; non-positive means all.
func WithPreview(limit int) Option {
	return func(o *options) {
		o.preview = true
		o.previewLimit = limit
	}
}

// WithForce proceeds with the write despite analysis warnings.
func WithForce() Option {
	return func(o *options) { o.force = true }
}

// WithSkipAnalysis skips the analysis phase entirely. Implies no warning
// gate; use with care.
func WithSkipAnalysis() Option {
	return func(o *options) { o.skipAnalysis = true }
}

// WithSourceSizeHint supplies the source's total byte size so analysis can
// estimate per-partition output sizes.
func WithSourceSizeHint(bytes uint64) Option {
	return func(o *options) { o.sourceBytes = bytes }
}
