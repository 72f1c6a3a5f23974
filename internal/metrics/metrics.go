// Package metrics exposes OpenTelemetry counters for the analysis core.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/thebtf/soilsense"

// Recorder records analysis and reminder counters. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	started    metric.Int64Counter
	completed  metric.Int64Counter
	failed     metric.Int64Counter
	rejected   metric.Int64Counter
	reminders  metric.Int64Counter
	reportSize metric.Int64Histogram
}

// New creates a Recorder on the global meter provider.
func New() (*Recorder, error) {
	return NewWithMeter(otel.Meter(meterName))
}

// NewWithMeter creates a Recorder on meter.
func NewWithMeter(meter metric.Meter) (*Recorder, error) {
	var (
		r   Recorder
		err error
	)
	if r.started, err = meter.Int64Counter("soilsense.analyses.started",
		metric.WithDescription("Analyses started")); err != nil {
		return nil, err
	}
	if r.completed, err = meter.Int64Counter("soilsense.analyses.completed",
		metric.WithDescription("Analyses recorded to history")); err != nil {
		return nil, err
	}
	if r.failed, err = meter.Int64Counter("soilsense.analyses.failed",
		metric.WithDescription("Analyses whose record could not be persisted")); err != nil {
		return nil, err
	}
	if r.rejected, err = meter.Int64Counter("soilsense.analyses.rejected",
		metric.WithDescription("Starts rejected while an analysis was running")); err != nil {
		return nil, err
	}
	if r.reminders, err = meter.Int64Counter("soilsense.reminders.scheduled",
		metric.WithDescription("Reminders scheduled")); err != nil {
		return nil, err
	}
	if r.reportSize, err = meter.Int64Histogram("soilsense.report.size",
		metric.WithDescription("Rendered report length"), metric.WithUnit("By")); err != nil {
		return nil, err
	}
	return &r, nil
}

// AnalysisStarted counts a started analysis.
func (r *Recorder) AnalysisStarted(ctx context.Context, plantType string) {
	if r == nil {
		return
	}
	r.started.Add(ctx, 1, metric.WithAttributes(attribute.String("plant_type", plantType)))
}

// AnalysisCompleted counts a persisted analysis.
func (r *Recorder) AnalysisCompleted(ctx context.Context, reportLen int) {
	if r == nil {
		return
	}
	r.completed.Add(ctx, 1)
	r.reportSize.Record(ctx, int64(reportLen))
}

// AnalysisFailed counts an analysis that failed to persist.
func (r *Recorder) AnalysisFailed(ctx context.Context, reason string) {
	if r == nil {
		return
	}
	r.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// AnalysisRejected counts a start rejected by the re-entrancy guard.
func (r *Recorder) AnalysisRejected(ctx context.Context) {
	if r == nil {
		return
	}
	r.rejected.Add(ctx, 1)
}

// ReminderScheduled counts a scheduled reminder.
func (r *Recorder) ReminderScheduled(ctx context.Context) {
	if r == nil {
		return
	}
	r.reminders.Add(ctx, 1)
}
