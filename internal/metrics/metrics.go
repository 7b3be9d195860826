// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EmailsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_emails_sent_total",
		Help: "Outbound emails accepted by the delivery provider.",
	})

	EmailsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_emails_failed_total",
		Help: "Outbound emails that exhausted all delivery attempts.",
	})

	ItemsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_queue_items_skipped_total",
		Help: "Queue items released without penalty (rate limit).",
	})

	ItemsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_queue_items_cancelled_total",
		Help: "Queue items cancelled because the recipient opted out.",
	})

	BatchRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_worker_batches_total",
		Help: "Completed worker batch passes.",
	})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_webhook_events_total",
		Help: "Provider webhook events processed, by type.",
	}, []string{"type"})
)
