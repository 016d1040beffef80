package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pipelineStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cv_pipeline_started_total",
		Help: "Total CV pipeline runs started",
	}, []string{"variant"})

	pipelineCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cv_pipeline_completed_total",
		Help: "Total CV pipeline runs completed",
	}, []string{"variant"})

	pipelineFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cv_pipeline_failed_total",
		Help: "Total CV pipeline runs failed, by stage",
	}, []string{"variant", "stage"})

	pipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cv_pipeline_duration_seconds",
		Help:    "CV pipeline duration in seconds",
		Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
	}, []string{"variant"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cv_pipeline_stage_duration_seconds",
		Help:    "Duration of individual pipeline stages",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	checkoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_created_total",
		Help: "Checkout sessions created, by service option",
	}, []string{"service_option"})

	webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Verified payment webhook events, by type",
	}, []string{"type"})

	funnelEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "funnel_events_total",
		Help: "Analytics funnel events received",
	}, []string{"event"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served, by route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
	}, []string{"route"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by route group",
	}, []string{"group"})

	panics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_panics_recovered_total",
		Help: "Handler panics turned into 500 responses",
	})
)

// IncPipelineStarted increments the started counter.
func IncPipelineStarted(variant string) {
	pipelineStarted.WithLabelValues(variant).Inc()
}

// IncPipelineCompleted increments the completed counter.
func IncPipelineCompleted(variant string) {
	pipelineCompleted.WithLabelValues(variant).Inc()
}

// IncPipelineFailed increments the failed counter.
func IncPipelineFailed(variant, stage string) {
	pipelineFailed.WithLabelValues(variant, stage).Inc()
}

// ObservePipelineDuration records a full pipeline run.
func ObservePipelineDuration(variant string, d time.Duration) {
	pipelineDuration.WithLabelValues(variant).Observe(d.Seconds())
}

// ObserveStageDuration records a single stage.
func ObserveStageDuration(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncCheckoutSession counts a created checkout session.
func IncCheckoutSession(option string) {
	checkoutSessions.WithLabelValues(option).Inc()
}

// IncWebhookEvent counts a verified webhook event.
func IncWebhookEvent(eventType string) {
	webhookEvents.WithLabelValues(eventType).Inc()
}

// Funnel events the client emits. Any other name is counted as "other"
// since the analytics route is public.
var funnelEventNames = map[string]struct{}{
	"page_view":         {},
	"step_1_success":    {},
	"step_2_start":      {},
	"payment_initiated": {},
	"payment_success":   {},
	"coupon_applied":    {},
}

// IncFunnelEvent counts an analytics funnel event.
func IncFunnelEvent(event string) {
	funnelEvents.WithLabelValues(funnelLabel(event)).Inc()
}

func funnelLabel(event string) string {
	if event == "" {
		return "unknown"
	}
	if _, ok := funnelEventNames[event]; !ok {
		return "other"
	}
	return event
}

// ObserveHTTPRequest records one served request. route is the gin route
// pattern, or "unmatched" for 404s, to keep label cardinality bounded.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func IncRateLimited(group string) {
	rateLimited.WithLabelValues(group).Inc()
}

func IncPanic() {
	panics.Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
