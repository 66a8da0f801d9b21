package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobsClaimedTotal, jobsProcessedTotal, jobsReapedTotal, stageLatencyMs)
}

var (
	jobsClaimedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_claimed_total",
			Help: "Jobs claimed by the dispatcher, labeled by job type.",
		},
		[]string{"job_type"},
	)

	jobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_processed_total",
			Help: "Finished dispatcher runs, labeled by job type and outcome.",
		},
		[]string{"job_type", "status"}, // 'done', 'retry', 'exhausted', 'superseded'
	)

	jobsReapedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_reaped_total",
			Help: "Running jobs reset by the stuck-job reaper.",
		},
		[]string{"status"},
	)

	stageLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_latency_ms",
			Help:    "Latency of pipeline stages in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000, 300000},
		},
		[]string{"stage", "success"}, // stage: extract_image, extract_audio, extract_video, reconstruct, translate
	)
)

func IncJobClaimed(jobType string) {
	jobsClaimedTotal.WithLabelValues(norm(jobType)).Inc()
}

func IncJobProcessed(jobType, status string) {
	jobsProcessedTotal.WithLabelValues(norm(jobType), norm(status)).Inc()
}

func IncJobReaped(status string) {
	jobsReapedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveStage(stage string, latencyMs int64, success bool) {
	stageLatencyMs.WithLabelValues(norm(stage), strconv.FormatBool(success)).Observe(float64(latencyMs))
}
