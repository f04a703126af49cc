package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestEndSpanRecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, good := StartSpan(context.Background(), "storage.commit", attribute.String("flashcard_id", "f1"))
	EndSpan(good, nil)
	_, bad := StartSpan(context.Background(), "comparison.create")
	EndSpan(bad, errors.New("slot taken"))

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans: want=2 got=%d", len(spans))
	}
	if spans[0].Name() != "storage.commit" || spans[0].Status().Code != codes.Unset {
		t.Fatalf("first span: name=%q status=%v", spans[0].Name(), spans[0].Status())
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != "slot taken" {
		t.Fatalf("second span status: got=%v", spans[1].Status())
	}
}

func TestOtelHeadersParsing(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, bad, =v,k=")
	h := otelHeaders()
	if len(h) != 1 || h["x-api-key"] != "abc" {
		t.Fatalf("otelHeaders: got=%v", h)
	}
	t.Setenv("OTEL_SAMPLER_RATIO", "3")
	if got := otelSampleRatio(); got != 1 {
		t.Fatalf("otelSampleRatio: want=1 got=%v", got)
	}
}
