package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adcanvas",
		Name:      "pipeline_requests_total",
		Help:      "Image-flow requests by terminal outcome.",
	}, []string{"outcome"})

	stageDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "adcanvas",
		Name:      "pipeline_stage_duration_seconds",
		Help:      "Wall time spent per pipeline stage.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"stage"})

	providerFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "adcanvas",
		Name:      "image_provider_fallbacks_total",
		Help:      "Times the primary image generator was quota-exhausted and the fallback was used.",
	})

	proxyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adcanvas",
		Name:      "image_proxy_requests_total",
		Help:      "Image-proxy requests by result class.",
	}, []string{"result"})
)

// Terminal outcomes for RecordPipelineOutcome.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation_rejected"
	OutcomeRefusal    = "prompt_refused"
	OutcomeUpstream   = "upstream_error"
	OutcomeStorage    = "storage_error"
)

// RecordPipelineOutcome counts a finished image-flow request.
func RecordPipelineOutcome(outcome string) {
	pipelineRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordStageDuration observes the elapsed wall time of one pipeline stage.
func RecordStageDuration(stage string, start time.Time) {
	stageDurationSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordProviderFallback counts a quota-triggered switch to the fallback generator.
func RecordProviderFallback() {
	providerFallbacksTotal.Inc()
}

// RecordProxyResult counts an image-proxy request by result class.
func RecordProxyResult(result string) {
	proxyRequestsTotal.WithLabelValues(result).Inc()
}
