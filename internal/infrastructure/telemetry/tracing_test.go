package telemetry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zaptest"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "production_order", "release",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, int64(42)),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, "12.5"),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "production_order.release", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	attrs := attrMap(spans[0])
	assert.Equal(t, int64(42), attrs[telemetry.SpanAttrOrderID].AsInt64())
	assert.Equal(t, "12.5", attrs[telemetry.SpanAttrQuantity].AsString())
}

func TestSetAttributes_SkipsNonStringKeys(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "bom.explode")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBOMID, int64(7),
		99, "ignored",
		"levels", 3,
		"phantom", true,
		"dangling",
	)
	telemetry.SetAttribute(span, telemetry.SpanAttrWarehouseID, []int64{1, 2})
	span.End()

	attrs := attrMap(sr.Ended()[0])
	assert.Len(t, attrs, 4)
	assert.Equal(t, int64(7), attrs[telemetry.SpanAttrBOMID].AsInt64())
	assert.Equal(t, int64(3), attrs["levels"].AsInt64())
	assert.True(t, attrs["phantom"].AsBool())
	assert.Equal(t, []int64{1, 2}, attrs[telemetry.SpanAttrWarehouseID].AsInt64Slice())
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "stock_ledger.reserve")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("connection reset"))
	span.End()

	recorded := sr.Ended()[0]
	assert.Equal(t, codes.Error, recorded.Status().Code)
	assert.Equal(t, "connection reset", recorded.Status().Description)
	require.Len(t, recorded.Events(), 1)
	assert.Equal(t, "exception", recorded.Events()[0].Name)
}

func TestRecordError_DomainRejection(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "stock_ledger.reserve")
	telemetry.RecordError(span, fmt.Errorf("reserve: %w", shared.NewDomainError(shared.CodeInsufficientStock, "short by 2")))
	span.End()

	_, conflict := telemetry.StartSpan(context.Background(), "stock_ledger.issue")
	telemetry.RecordError(conflict, shared.NewDomainError(shared.CodeConcurrencyConflict, "stale balance"))
	conflict.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, shared.CodeInsufficientStock, attrMap(spans[0])[telemetry.SpanAttrErrorCode].AsString())
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestSetAttribute_Decimal(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "production_order.complete")
	telemetry.SetAttribute(span, telemetry.SpanAttrQuantity, decimal.RequireFromString("2.500"))
	span.End()

	assert.Equal(t, "2.5", attrMap(sr.Ended()[0])[telemetry.SpanAttrQuantity].AsString())
}

func TestAddEventAndTraceID(t *testing.T) {
	sr := setupTestTracer(t)

	assert.Empty(t, telemetry.GetTraceID(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "material_requisition.pick")
	telemetry.AddEvent(span, "shortage", telemetry.SpanAttrProductID, int64(3), "missing", "4")
	telemetry.SetOK(span)
	traceID := telemetry.GetTraceID(ctx)
	span.End()

	recorded := sr.Ended()[0]
	assert.Equal(t, recorded.SpanContext().TraceID().String(), traceID)
	assert.Equal(t, codes.Ok, recorded.Status().Code)
	require.Len(t, recorded.Events(), 1)
	assert.Equal(t, "shortage", recorded.Events()[0].Name)
	assert.Len(t, recorded.Events()[0].Attributes, 2)
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{ServiceName: "test"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(context.Background()))
	assert.NoError(t, tp.Shutdown(context.Background()))
}
