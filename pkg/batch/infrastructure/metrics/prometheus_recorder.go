package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"

	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/foottraffic/pkg/batch/core/metrics"
	logger "github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// Metrics live in a private registry. A batch process is too short-lived to be scraped, so
// Flush pushes the registry to a Pushgateway when one is configured.
type PrometheusRecorder struct {
	registry       *prometheus.Registry
	pushgatewayURL string
	pushJobName    string

	// Job Metrics
	jobDurationSeconds *prometheus.HistogramVec
	jobStatusCounter   *prometheus.CounterVec

	// Step Metrics
	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec

	// Pipeline Metrics
	rowsExtracted     *prometheus.CounterVec
	rowsRejected      *prometheus.CounterVec
	mergeOutcomes     *prometheus.CounterVec
	bucketsExported   prometheus.Counter
	operationDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
// An empty pushgatewayURL disables pushing.
func NewPrometheusRecorder(pushgatewayURL, pushJobName string) *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry:       registry,
		pushgatewayURL: pushgatewayURL,
		pushJobName:    pushJobName,
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_job_duration_seconds",
			Help:    "Duration of batch job executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "status", "exit_status"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_job_status_total",
			Help: "Total number of finished batch job executions by status.",
		}, []string{"job_name", "status"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_step_duration_seconds",
			Help:    "Duration of batch step executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "step_name", "status", "exit_status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_status_total",
			Help: "Total number of finished batch step executions by status.",
		}, []string{"job_name", "step_name", "status"}),
		rowsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foottraffic_rows_extracted_total",
			Help: "Raw rows parsed from report attachments.",
		}, []string{"source"}),
		rowsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foottraffic_rows_rejected_total",
			Help: "Rows dropped at row level by stage and reason.",
		}, []string{"stage", "reason"}),
		mergeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foottraffic_merge_records_total",
			Help: "Records handled by the merge by outcome.",
		}, []string{"outcome"}),
		bucketsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foottraffic_buckets_exported_total",
			Help: "Aggregate buckets written to the dashboard export.",
		}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "foottraffic_operation_duration_seconds",
			Help:    "Duration of collaborator operations (mail fetch, store load/save, export).",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),
	}

	registry.MustRegister(
		r.jobDurationSeconds,
		r.jobStatusCounter,
		r.stepDurationSeconds,
		r.stepStatusCounter,
		r.rowsExtracted,
		r.rowsRejected,
		r.mergeOutcomes,
		r.bucketsExported,
		r.operationDuration,
	)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	logger.Debugf("Metrics: Job '%s' started.", execution.JobName)
}

func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	r.jobDurationSeconds.WithLabelValues(
		execution.JobName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)
	logger.Debugf("Metrics: Job '%s' ended. Duration: %.3fs", execution.JobName, duration)
}

func (r *PrometheusRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	logger.Debugf("Metrics: Step '%s' started.", execution.StepName)
}

func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	jobName := ""
	if execution.JobExecution != nil {
		jobName = execution.JobExecution.JobName
	}
	r.stepStatusCounter.WithLabelValues(jobName, execution.StepName, execution.Status.String()).Inc()
	if execution.EndTime == nil {
		return
	}
	duration := execution.Duration().Seconds()
	r.stepDurationSeconds.WithLabelValues(
		jobName,
		execution.StepName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)
	logger.Debugf("Metrics: Step '%s' ended. Duration: %.3fs", execution.StepName, duration)
}

func (r *PrometheusRecorder) RecordRowsExtracted(ctx context.Context, source string, count int) {
	r.rowsExtracted.WithLabelValues(source).Add(float64(count))
}

func (r *PrometheusRecorder) RecordRowsRejected(ctx context.Context, stage, reason string, count int) {
	r.rowsRejected.WithLabelValues(stage, reason).Add(float64(count))
}

func (r *PrometheusRecorder) RecordMergeOutcome(ctx context.Context, outcome string, count int) {
	r.mergeOutcomes.WithLabelValues(outcome).Add(float64(count))
}

func (r *PrometheusRecorder) RecordBucketsExported(ctx context.Context, count int) {
	r.bucketsExported.Add(float64(count))
}

// RecordDuration observes duration under the "status" tag; a missing tag is recorded as "unknown".
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	status := tags["status"]
	if status == "" {
		status = "unknown"
	}
	r.operationDuration.WithLabelValues(name, status).Observe(duration.Seconds())
}

// Flush pushes all collected metrics to the configured Pushgateway.
func (r *PrometheusRecorder) Flush(ctx context.Context) error {
	if r.pushgatewayURL == "" {
		return nil
	}
	logger.Debugf("Metrics: pushing to Pushgateway %s as job '%s'.", r.pushgatewayURL, r.pushJobName)
	return push.New(r.pushgatewayURL, r.pushJobName).Gatherer(r.registry).PushContext(ctx)
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
