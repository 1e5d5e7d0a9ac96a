package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmlink_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// PostsCreated counts posts by whether they carried a poll.
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmlink_posts_created_total",
		Help: "Total number of posts created",
	}, []string{"with_poll"})

	// VotesCast counts vote attempts by outcome.
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmlink_poll_votes_total",
		Help: "Total number of poll vote attempts by outcome",
	}, []string{"outcome"})

	// Registrations counts account registration attempts by outcome.
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmlink_registrations_total",
		Help: "Total number of registration attempts by outcome",
	}, []string{"outcome"})

	// UpstreamRequests counts calls to external data providers.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmlink_upstream_requests_total",
		Help: "Total number of upstream requests by service and outcome",
	}, []string{"service", "outcome"})

	// UpstreamLatency records upstream call latency.
	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farmlink_upstream_latency_seconds",
		Help:    "Upstream request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"service"})

	// WebSocketConnections is the number of connected feed clients.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "farmlink_websocket_connections",
		Help: "Number of active feed WebSocket connections",
	})

	// FeedEvents counts realtime feed events by type.
	FeedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmlink_feed_events_total",
		Help: "Total number of realtime feed events published",
	}, []string{"event_type"})

	// WebSocketDrops counts messages dropped for slow clients.
	WebSocketDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farmlink_websocket_dropped_messages_total",
		Help: "Total number of feed messages dropped due to backpressure",
	})
)

// ObserveUpstream records one upstream call.
func ObserveUpstream(service string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	UpstreamRequests.WithLabelValues(service, outcome).Inc()
	UpstreamLatency.WithLabelValues(service).Observe(time.Since(start).Seconds())
}
