// Package metrics provides Prometheus metrics recording and querying for
// plan-generation operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder records generation and lifecycle metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	plansCompleted  prometheus.Counter
	emailsTotal     *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder registered on the default registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plangen_requests_total",
				Help: "Total number of week-generation requests by model and status",
			},
			[]string{"model", "status", "error_kind"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plangen_tokens_total",
				Help: "Total number of tokens used in week-generation requests",
			},
			[]string{"model", "type"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plangen_request_duration_seconds",
				Help:    "Duration of week-generation requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		plansCompleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "plangen_plans_completed_total",
				Help: "Total number of plans generated to completion",
			},
		),
		emailsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plangen_emails_total",
				Help: "Total number of completion email attempts by status",
			},
			[]string{"status"},
		),
	}
}

// ObserveGeneration records metrics for one week-generation call.
func (p *PrometheusRecorder) ObserveGeneration(model string, promptTokens, completionTokens int, success bool, errorKind string, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}

	p.requestsTotal.WithLabelValues(model, status, errorKind).Inc()
	p.requestDuration.WithLabelValues(model).Observe(duration.Seconds())

	if promptTokens > 0 {
		p.tokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if success && completionTokens > 0 {
		p.tokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordPlanCompleted records one plan reaching completed.
func (p *PrometheusRecorder) RecordPlanCompleted() {
	p.plansCompleted.Inc()
}

// RecordEmail records one completion-email attempt.
func (p *PrometheusRecorder) RecordEmail(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	p.emailsTotal.WithLabelValues(status).Inc()
}
