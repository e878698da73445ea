// Package services: domain metrics.
//
// Prometheus counters for the two ingestion surfaces. Label values are drawn
// from small fixed sets to keep cardinality bounded.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// ingestPostsTotal counts ingested posts by outcome. Outcomes form a
	// partition: every post in a batch increments exactly one of
	// inserted | duplicate | no_intent | invalid | error.
	ingestPostsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_posts_total",
			Help: "Total number of ingested posts by outcome.",
		},
		[]string{"outcome"},
	)

	// stripeEventsTotal counts received payment webhook events by type.
	stripeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_events_total",
			Help: "Total number of Stripe webhook events by event type.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(ingestPostsTotal, stripeEventsTotal)
}
