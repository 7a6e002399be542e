package kafkax

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractEventMetaFallbacks(t *testing.T) {
	msg := kafka.Message{
		Topic: "salon.appointment.created.v1",
		Key:   []byte("evt-1"),
		Headers: []kafka.Header{
			{Key: HeaderAggregateID, Value: []byte("appt-9")},
		},
	}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != "salon.appointment.created.v1" || meta.AggregateID != "appt-9" {
		t.Fatalf("unexpected meta %+v", meta)
	}

	msg.Headers = append(msg.Headers,
		kafka.Header{Key: HeaderEventID, Value: []byte("evt-2")},
		kafka.Header{Key: HeaderEventType, Value: []byte("custom")},
	)
	meta = ExtractEventMeta(msg)
	if meta.EventID != "evt-2" || meta.EventType != "custom" {
		t.Fatalf("headers should win over key/topic: %+v", meta)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092,, kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: HeaderEventID, Value: []byte("evt-1")}})
	if HeaderValue(headers, "traceparent") == "" {
		t.Fatalf("traceparent not injected: %v", headers)
	}

	restored := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), kafka.Message{Headers: headers}))
	if restored.TraceID() != traceID {
		t.Fatalf("trace id not restored: %v", restored.TraceID())
	}
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	if err := ReadyCheck(" , ")(context.Background()); err == nil {
		t.Fatal("expected error for empty broker list")
	}
}

func TestReadyCheckReportsEveryBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := ReadyCheck("127.0.0.1:1,127.0.0.1:2")(ctx)
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !strings.Contains(err.Error(), "127.0.0.1:1") || !strings.Contains(err.Error(), "127.0.0.1:2") {
		t.Fatalf("expected both brokers in error, got %v", err)
	}
}

func TestInjectReplacesExistingTraceparent(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: "traceparent", Value: []byte("stale")}})
	if len(headers) != 1 || HeaderValue(headers, "traceparent") == "stale" {
		t.Fatalf("expected traceparent to be replaced in place, got %v", headers)
	}

	spanCtx, span := StartConsumeSpan(context.Background(), kafka.Message{Topic: "salon.payment.succeeded.v1", Headers: headers})
	defer span.End()
	if trace.SpanContextFromContext(spanCtx).TraceID() != traceID {
		t.Fatal("consumer span should continue the producer trace")
	}
}
