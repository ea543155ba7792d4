package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astrobot_webhook_events_total",
		Help: "Payment webhook events received, by event and outcome",
	}, []string{"event", "outcome"})

	PaymentsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astrobot_payments_created_total",
		Help: "Payment rows created at checkout, by payment type",
	}, []string{"type"})

	JobsEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astrobot_jobs_enqueued_total",
		Help: "Analysis jobs published to the queue, by topic",
	}, []string{"topic"})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astrobot_jobs_processed_total",
		Help: "Queue jobs handled by workers, by topic and outcome",
	}, []string{"topic", "outcome"})

	JobRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astrobot_job_retries_total",
		Help: "Failed analyses re-enqueued by the retry pass",
	})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astrobot_llm_request_duration_seconds",
		Help:    "Latency of LLM completion requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astrobot_deliveries_total",
		Help: "Generated content deliveries to users, by kind and outcome",
	}, []string{"kind", "outcome"})
)
