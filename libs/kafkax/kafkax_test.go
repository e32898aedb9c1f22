package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestEventHeaders(t *testing.T) {
	headers := EventHeaders(context.Background(), "evt-1", "booking.appointment.requested.v1")
	if HeaderValue(headers, HeaderEventID) != "evt-1" {
		t.Fatalf("missing event id header: %+v", headers)
	}
	if HeaderValue(headers, HeaderEventType) != "booking.appointment.requested.v1" {
		t.Fatalf("missing event type header: %+v", headers)
	}
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	if err := ReadyCheck("")(context.Background()); err == nil {
		t.Fatal("expected error when no brokers are configured")
	}
}

func TestExtractEventMetaFallbacks(t *testing.T) {
	meta := ExtractEventMeta(kafka.Message{Topic: "booking.appointment.status.v1", Partition: 2, Offset: 41})
	if meta.EventType != "booking.appointment.status.v1" || meta.EventID != "booking.appointment.status.v1/2/41" {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	meta = ExtractEventMeta(kafka.Message{Topic: "t", Headers: EventHeaders(context.Background(), "evt-9", "x.v1")})
	if meta.EventID != "evt-9" || meta.EventType != "x.v1" {
		t.Fatalf("headers should win: %+v", meta)
	}
}

func TestTraceContextRoundTrip(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	msg := kafka.Message{Headers: EventHeaders(ctx, "evt-1", "x.v1")}
	got := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), msg))
	if got.TraceID() != traceID || got.SpanID() != spanID {
		t.Fatalf("trace context lost: %v", got)
	}
}
