package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kiln"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	registry      *prom.Registry
	stepDuration  *prom.HistogramVec
	stepResults   *prom.CounterVec
	written       *prom.CounterVec
	buildDuration prom.Histogram
	buildResults  *prom.CounterVec
	watchRuns     *prom.CounterVec
	reloads       *prom.CounterVec
	clients       prom.Gauge
}

// NewPrometheusRecorder registers kiln's collectors on reg, or on a fresh
// registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	p := &PrometheusRecorder{
		registry: reg,
		stepDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of step runs",
			Buckets:   prom.DefBuckets,
		}, []string{"step"}),
		stepResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "step_results_total",
			Help:      "Step runs by outcome",
		}, []string{"step", "result"}),
		written: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Artifacts written by step",
		}, []string{"step"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of full builds",
			Buckets:   prom.DefBuckets,
		}),
		buildResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_results_total",
			Help:      "Full builds by outcome",
		}, []string{"result"}),
		watchRuns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_runs_total",
			Help:      "Step runs triggered by file changes",
		}, []string{"step"}),
		reloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Reload notifications broadcast to browsers",
		}, []string{"kind"}),
		clients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "reload_clients",
			Help:      "Connected live-reload clients",
		}),
	}
	reg.MustRegister(p.stepDuration, p.stepResults, p.written, p.buildDuration,
		p.buildResults, p.watchRuns, p.reloads, p.clients)
	return p
}

func (p *PrometheusRecorder) ObserveStep(step string, d time.Duration, result Result) {
	p.stepDuration.WithLabelValues(step).Observe(d.Seconds())
	p.stepResults.WithLabelValues(step, string(result)).Inc()
}

func (p *PrometheusRecorder) AddWritten(step string, n int) {
	p.written.WithLabelValues(step).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveBuild(d time.Duration, result Result) {
	p.buildDuration.Observe(d.Seconds())
	p.buildResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncWatchRun(step string) {
	p.watchRuns.WithLabelValues(step).Inc()
}

func (p *PrometheusRecorder) IncReload(kind string) {
	p.reloads.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetReloadClients(n int) {
	p.clients.Set(float64(n))
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
