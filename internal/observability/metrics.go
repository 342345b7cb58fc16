package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resort_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnectionsTotal is the number of registered realtime clients.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resort_websocket_connections",
		Help: "Number of realtime clients registered with the hub",
	})

	// WebSocketEventsTotal counts realtime events delivered to clients by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_websocket_events_total",
		Help: "Realtime events delivered by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts frames dropped because a client was too slow.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_websocket_backpressure_drops_total",
		Help: "Realtime frames dropped due to backpressure",
	}, []string{"hub", "reason"})

	// ChangeEventsPublished counts row change events by table and event.
	ChangeEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_change_events_published_total",
		Help: "Row change events published to the change feed",
	}, []string{"table", "event"})

	// MessagesSent counts direct messages persisted.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resort_messages_sent_total",
		Help: "Direct messages sent",
	})

	// ConnectionRequests counts connection request transitions by outcome.
	ConnectionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_connection_requests_total",
		Help: "Connection requests by outcome",
	}, []string{"outcome"})

	// ListingsCreated counts listings created by content type.
	ListingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_listings_created_total",
		Help: "Listings created by content type",
	}, []string{"content_type"})

	// HostApplications counts host application events by status.
	HostApplications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_host_applications_total",
		Help: "Host applications by resulting status",
	}, []string{"status"})

	// EngagementEvents counts recorded engagement events by type.
	EngagementEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_engagement_events_total",
		Help: "Engagement events recorded by type",
	}, []string{"event_type"})

	// AnalyticsRequests counts analytics RPC responses by name and data source.
	AnalyticsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_analytics_requests_total",
		Help: "Analytics responses by RPC and source (live, cache, fallback)",
	}, []string{"rpc", "source"})

	// UploadsTotal counts storage uploads by bucket and result.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_storage_uploads_total",
		Help: "Storage uploads by bucket and result",
	}, []string{"bucket", "result"})

	// JobRuns counts scheduled job executions by job and result.
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resort_job_runs_total",
		Help: "Scheduled job executions by job and result",
	}, []string{"job", "result"})
)

// TrackQuery returns a func that records latency for operation on table
// when called, typically with defer.
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ResultLabel maps an error to the "ok"/"error" label used by result counters.
func ResultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
