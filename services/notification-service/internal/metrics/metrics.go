package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	sent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "notifications_sent_total",
			Help:      "Notification delivery attempts by channel and status.",
		},
		[]string{"channel", "status"},
	)

	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "notification_events_total",
			Help:      "Consumed events by type and outcome (rendered, skipped, invalid).",
		},
		[]string{"event_type", "outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(sent, events)
	})
}

func IncSent(channel, status string) {
	sent.WithLabelValues(channel, status).Inc()
}

func IncEvent(eventType, outcome string) {
	events.WithLabelValues(eventType, outcome).Inc()
}
