package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "docbinder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration      *prom.HistogramVec
	stageResults       *prom.CounterVec
	publishDuration    prom.Histogram
	publishOutcome     *prom.CounterVec
	fetchDuration      *prom.HistogramVec
	fetches            *prom.CounterVec
	brokenLinks        prom.Gauge
	resolveConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers the publish metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual publish stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		publishDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Total publish duration",
			Buckets:   prom.DefBuckets,
		}),
		publishOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "publish_outcomes_total",
			Help:      "Publish outcomes by final status",
		}, []string{"outcome"}),
		fetchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of remote snapshot fetches",
			Buckets:   prom.DefBuckets,
		}, []string{"repo", "result"}),
		fetches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "section_materializations_total",
			Help:      "Section materializations by source",
		}, []string{"source"}),
		brokenLinks: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "broken_links",
			Help:      "Broken internal links found by the last crawl",
		}),
		resolveConcurrency: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "resolve_concurrency",
			Help:      "Worker limit used for the last resolution stage",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.publishDuration, pr.publishOutcome,
		pr.fetchDuration, pr.fetches, pr.brokenLinks, pr.resolveConcurrency)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObservePublishDuration(d time.Duration) {
	p.publishDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPublishOutcome(outcome PublishOutcome) {
	p.publishOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveFetchDuration(repo string, d time.Duration, success bool) {
	res := "failed"
	if success {
		res = "success"
	}
	p.fetchDuration.WithLabelValues(repo, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncFetch(source FetchSource) {
	p.fetches.WithLabelValues(string(source)).Inc()
}

func (p *PrometheusRecorder) SetBrokenLinks(n int) {
	p.brokenLinks.Set(float64(n))
}

func (p *PrometheusRecorder) SetResolveConcurrency(n int) {
	p.resolveConcurrency.Set(float64(n))
}
