package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
)

func TestNewEventMarshalsPayload(t *testing.T) {
	evt, err := NewEvent("appointment", "appt-1", TypeAppointmentCreated, AppointmentPayload{
		AppointmentID: "appt-1",
		Date:          "2026-03-02",
		Time:          "10:00",
		Status:        "pending",
		ContactName:   "Ana",
		Guest:         true,
	})
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(evt.Payload, &decoded); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if decoded["appointment_time"] != "10:00" || decoded["guest"] != true {
		t.Fatalf("unexpected payload %v", decoded)
	}
	if _, ok := decoded["previous_status"]; ok {
		t.Fatal("empty previous_status should be omitted")
	}
}

func TestToMessageCarriesMetaAndTrace(t *testing.T) {
	if _, err := otelx.Setup(context.Background(), otelx.Config{}); err != nil {
		t.Fatalf("otel setup: %v", err)
	}
	rec := Record{
		ID:          7,
		EventID:     "evt-7",
		AggregateID: "appt-1",
		EventType:   TypePaymentSucceeded,
		Payload:     []byte(`{"payment_id":"p1"}`),
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	msg := toMessage(context.Background(), rec)
	if msg.Topic != TypePaymentSucceeded || string(msg.Key) != "appt-1" {
		t.Fatalf("unexpected topic/key %q %q", msg.Topic, msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-7" || meta.AggregateID != "appt-1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != rec.Traceparent {
		t.Fatalf("traceparent not propagated: %q", got)
	}
}
