package geopartition

import (
	"context"
	"fmt"
	"time"

	"github.com/cholmes/geopartition/analyze"
	"github.com/cholmes/geopartition/partition"
	"github.com/cholmes/geopartition/table"
	"github.com/cholmes/geopartition/write"
)

// Engine runs one partition operation end to end: plan, analyze, write.
type Engine struct {
	strategy partition.Strategy
	sink     write.Sink
	opts     options
}

// PartitionPreview is one partition in a preview listing.
type PartitionPreview struct {
	Key  string
	Rows uint64
}

// RunResult is the outcome of one run. Summary is nil when nothing was
// written (preview, skipped, or aborted); Report is nil when analysis was
// skipped.
type RunResult struct {
	Plan    *partition.Result
	Report  *analyze.Report
	Preview []PartitionPreview
	Summary *write.Summary
}

// New creates an engine over a strategy and an output sink. sink may be nil
// only in preview mode, which never touches the output root.
func New(strategy partition.Strategy, sink write.Sink, opts ...Option) (*Engine, error) {
	if strategy == nil {
		return nil, fmt.Errorf("%w: strategy is required", ErrValidation)
	}
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if sink == nil && !o.preview {
		return nil, fmt.Errorf("%w: sink is required outside preview mode", ErrValidation)
	}
	return &Engine{strategy: strategy, sink: sink, opts: o}, nil
}

// Run executes the operation over src. Analysis warnings block the write
// phase unless force was set; preview mode stops after analysis regardless.
func (e *Engine) Run(ctx context.Context, src table.Source) (*RunResult, error) {
	log := e.opts.logger.WithStrategy(e.strategy.Name())

	planStart := time.Now()
	res, err := e.strategy.Plan(ctx, src)
	planDur := time.Since(planStart)
	if err != nil {
		log.LogPlan(ctx, e.strategy.Name(), src.NumRows(), 0, planDur, err)
		e.opts.metricsCollector.RecordPlan(e.strategy.Name(), src.NumRows(), 0, planDur, err)
		return nil, translateError(err)
	}
	log.LogPlan(ctx, e.strategy.Name(), src.NumRows(), res.Mapping.Partitions(), planDur, nil)
	e.opts.metricsCollector.RecordPlan(e.strategy.Name(), src.NumRows(), res.Mapping.Partitions(), planDur, nil)

	out := &RunResult{Plan: res}

	if !e.opts.skipAnalysis {
		analysisStart := time.Now()
		report := analyze.AnalyzeWithSizeHint(res.Mapping, e.opts.thresholds, e.opts.sourceBytes)
		out.Report = &report

		log.LogAnalysis(ctx, report.Stats.Partitions, len(report.Warnings), report.Stats.CV)
		e.opts.metricsCollector.RecordAnalysis(report.Stats.Partitions, len(report.Warnings), time.Since(analysisStart))
		for _, w := range report.Warnings {
			log.WarnContext(ctx, "analysis warning", "kind", w.Kind.String(), "detail", w.Message)
		}
	}

	if e.opts.preview {
		out.Preview = previewOf(res.Mapping, e.opts.previewLimit)
		return out, nil
	}

	if out.Report != nil && out.Report.Blocked() && !e.opts.force {
		return out, fmt.Errorf("%w: %d warnings (pass force to proceed)",
			ErrAnalysisAborted, len(out.Report.Warnings))
	}

	writer := write.NewWriter(e.sink, e.opts.writeOptions...)
	writeStart := time.Now()
	sum, err := writer.Write(ctx, res)
	writeDur := time.Since(writeStart)
	if err != nil {
		log.LogWrite(ctx, 0, 0, 0, writeDur, err)
		e.opts.metricsCollector.RecordWrite(0, 0, 0, writeDur, err)
		return out, translateError(err)
	}
	log.LogWrite(ctx, sum.Files, sum.Rows, sum.Bytes, writeDur, nil)
	e.opts.metricsCollector.RecordWrite(sum.Files, sum.Rows, sum.Bytes, writeDur, nil)

	out.Summary = sum
	return out, nil
}

func previewOf(m *partition.Mapping, limit int) []PartitionPreview {
	keys := m.Keys()
	counts := m.RowCounts()
	n := len(keys)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]PartitionPreview, n)
	for i := 0; i < n; i++ {
		out[i] = PartitionPreview{Key: keys[i].String(), Rows: counts[i]}
	}
	return out
}
