package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(bookings.WithLabelValues("created"))
	IncBooking("created")
	assert.Equal(t, before+1, testutil.ToFloat64(bookings.WithLabelValues("created")))

	assert.NotPanics(t, func() {
		IncAvailability("open")
		IncPayment("intent", "pending")
	})
}
