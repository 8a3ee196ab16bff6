package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	registry        *prom.Registry
	compileDuration prom.Histogram
	compileOutcomes *prom.CounterVec
	superseded      prom.Counter
	debounceFires   prom.Counter
	renderDuration  prom.Histogram
	backupResults   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.compileDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "texpreview",
			Name:      "compile_duration_seconds",
			Help:      "Duration of full compile cycles (persist, stage, compiler, classify)",
			Buckets:   prom.DefBuckets,
		})
		pr.compileOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "texpreview",
			Name:      "compile_outcomes_total",
			Help:      "Compile outcomes by classification kind",
		}, []string{"outcome"})
		pr.superseded = prom.NewCounter(prom.CounterOpts{
			Namespace: "texpreview",
			Name:      "compile_superseded_total",
			Help:      "Compile cycles whose result was dropped in favor of a newer request",
		})
		pr.debounceFires = prom.NewCounter(prom.CounterOpts{
			Namespace: "texpreview",
			Name:      "debounce_triggers_total",
			Help:      "Pipeline invocations fired by the edit debouncer",
		})
		pr.renderDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "texpreview",
			Name:      "render_duration_seconds",
			Help:      "Duration of page-one rasterization",
			Buckets:   prom.DefBuckets,
		})
		pr.backupResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "texpreview",
			Name:      "backup_results_total",
			Help:      "Backup snapshot results by success/failure",
		}, []string{"result"})
		reg.MustRegister(pr.compileDuration, pr.compileOutcomes, pr.superseded,
			pr.debounceFires, pr.renderDuration, pr.backupResults)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveCompileDuration(d time.Duration) {
	if p == nil || p.compileDuration == nil {
		return
	}
	p.compileDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCompileOutcome(outcome string) {
	if p == nil || p.compileOutcomes == nil {
		return
	}
	p.compileOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncSuperseded() {
	if p == nil || p.superseded == nil {
		return
	}
	p.superseded.Inc()
}

func (p *PrometheusRecorder) IncDebounceTrigger() {
	if p == nil || p.debounceFires == nil {
		return
	}
	p.debounceFires.Inc()
}

func (p *PrometheusRecorder) ObserveRenderDuration(d time.Duration) {
	if p == nil || p.renderDuration == nil {
		return
	}
	p.renderDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBackupResult(success bool) {
	if p == nil || p.backupResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.backupResults.WithLabelValues(res).Inc()
}

// Handler returns an http.Handler serving the recorder's registry.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
