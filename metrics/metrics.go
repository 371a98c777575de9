// Package metrics exposes Prometheus metrics for the pipeline, the vote
// ledger and the task queue.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services report into.
type Recorder interface {
	RecordPipelineRun(outcome string, duration time.Duration)
	RecordStage(stage string, duration time.Duration, err error)
	RecordDispatch(result string)
	RecordVote(action string)
	RecordReprocess(result string, count int)
}

type Collector struct {
	pipelineRuns     *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	stageDuration    *prometheus.HistogramVec
	stageFailures    *prometheus.CounterVec
	dispatches       *prometheus.CounterVec
	votes            *prometheus.CounterVec
	reprocessed      *prometheus.CounterVec
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meriawaaz_pipeline_runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "meriawaaz_pipeline_duration_seconds",
			Help:    "Duration of whole pipeline runs.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "meriawaaz_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meriawaaz_pipeline_stage_failures_total",
			Help: "Failed pipeline stage calls.",
		}, []string{"stage"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meriawaaz_dispatch_total",
			Help: "Pipeline dispatch attempts by result.",
		}, []string{"result"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meriawaaz_votes_total",
			Help: "Vote ledger mutations by action.",
		}, []string{"action"}),
		reprocessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meriawaaz_reprocess_total",
			Help: "Issues handled by the failed-issue reprocessor by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.pipelineRuns,
		c.pipelineDuration,
		c.stageDuration,
		c.stageFailures,
		c.dispatches,
		c.votes,
		c.reprocessed,
	)

	return c
}

func (c *Collector) RecordPipelineRun(outcome string, duration time.Duration) {
	c.pipelineRuns.WithLabelValues(outcome).Inc()
	c.pipelineDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordStage(stage string, duration time.Duration, err error) {
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		c.stageFailures.WithLabelValues(stage).Inc()
	}
}

func (c *Collector) RecordDispatch(result string) {
	c.dispatches.WithLabelValues(result).Inc()
}

func (c *Collector) RecordVote(action string) {
	c.votes.WithLabelValues(action).Inc()
}

func (c *Collector) RecordReprocess(result string, count int) {
	c.reprocessed.WithLabelValues(result).Add(float64(count))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type nop struct{}

// Nop discards everything.
var Nop Recorder = nop{}

func (nop) RecordPipelineRun(string, time.Duration) {}
func (nop) RecordStage(string, time.Duration, error) {}
func (nop) RecordDispatch(string) {}
func (nop) RecordVote(string) {}
func (nop) RecordReprocess(string, int) {}
