package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "bookings_total",
			Help:      "Appointment creation attempts by result.",
		},
		[]string{"result"},
	)

	availabilityLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "availability_lookups_total",
			Help:      "Availability lookups by result (open, full, error).",
		},
		[]string{"result"},
	)

	payments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "payments_total",
			Help:      "Deposit payment events by stage and status.",
		},
		[]string{"stage", "status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookings, availabilityLookups, payments)
	})
}

// IncBooking counts a booking attempt: created, replayed, slot_taken,
// rejected or error.
func IncBooking(result string) {
	bookings.WithLabelValues(result).Inc()
}

func IncAvailability(result string) {
	availabilityLookups.WithLabelValues(result).Inc()
}

func IncPayment(stage, status string) {
	payments.WithLabelValues(stage, status).Inc()
}
