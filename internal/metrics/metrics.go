package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activityportal_backend_requests_total",
			Help: "Requests sent to the activities backend",
		},
		[]string{"operation", "outcome"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "activityportal_backend_request_duration_seconds",
			Help:    "Duration of activities backend requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	Actions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activityportal_actions_total",
			Help: "Signup and unregister actions by message kind",
		},
		[]string{"action", "kind"},
	)

	StoreReplacements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activityportal_store_replacements_total",
			Help: "Times the activity store snapshot was replaced",
		},
	)

	StaleResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activityportal_stale_responses_total",
			Help: "Activity list responses discarded because a newer fetch was already applied",
		},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "activityportal_ws_clients",
			Help: "Connected live update clients",
		},
	)
)
