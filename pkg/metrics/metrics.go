package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	translationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talklink_translation_requests_total",
			Help: "Total number of oracle translation requests",
		},
		[]string{"engine", "status"},
	)

	translationRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talklink_translation_request_duration_seconds",
			Help:    "Duration of oracle translation requests in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"engine", "status"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talklink_translation_cache_lookups_total",
			Help: "Translation cache lookups by result",
		},
		[]string{"result"},
	)

	relayMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talklink_relay_messages_total",
			Help: "Inbound messages processed by the relay, by origin and final state",
		},
		[]string{"origin", "state"},
	)

	relayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talklink_relay_pipeline_duration_seconds",
			Help:    "Time from submission to the end of fan-out",
			Buckets: []float64{0.01, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"origin"},
	)

	fanoutDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talklink_fanout_deliveries_total",
			Help: "Events handed to live subscribers",
		},
		[]string{"event", "status"},
	)

	bridgePostsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talklink_bridge_posts_total",
			Help: "Messages posted to external bridges",
		},
		[]string{"kind", "status"},
	)

	liveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "talklink_live_subscribers",
			Help: "Connections currently attached to a conversation",
		},
	)

	assistantRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talklink_assistant_requests_total",
			Help: "Email and proposal assistant runs by task",
		},
		[]string{"task", "status"},
	)

	activeBridges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "talklink_active_bridges",
			Help: "Conversations with an attached bridge",
		},
	)
)

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// RecordTranslation records one oracle call.
func RecordTranslation(engine string, duration time.Duration, ok bool) {
	translationRequestsTotal.WithLabelValues(engine, status(ok)).Inc()
	translationRequestDuration.WithLabelValues(engine, status(ok)).Observe(duration.Seconds())
}

// RecordAssistant records one email or proposal assistant run.
func RecordAssistant(task string, ok bool) {
	assistantRequestsTotal.WithLabelValues(task, status(ok)).Inc()
}

// RecordCacheLookup records a translation cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordRelay records the final state of one relay pipeline.
func RecordRelay(origin, state string, duration time.Duration) {
	relayMessagesTotal.WithLabelValues(origin, state).Inc()
	relayDuration.WithLabelValues(origin).Observe(duration.Seconds())
}

// RecordDelivery records one event handed to a subscriber.
func RecordDelivery(event string, ok bool) {
	fanoutDeliveriesTotal.WithLabelValues(event, status(ok)).Inc()
}

// RecordBridgePost records one outbound bridge post.
func RecordBridgePost(kind string, ok bool) {
	bridgePostsTotal.WithLabelValues(kind, status(ok)).Inc()
}

// SubscriberJoined and SubscriberLeft track the live subscriber gauge.
func SubscriberJoined() { liveSubscribers.Inc() }
func SubscriberLeft()   { liveSubscribers.Dec() }

// SetActiveBridges publishes the number of attached bridges.
func SetActiveBridges(n int) { activeBridges.Set(float64(n)) }
