package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const parentTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"

// installRecorder installs a provider backed by an in-memory span recorder
// and restores the previous globals when the test ends.
func installRecorder(t *testing.T, ratio float64) (*TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	originalProvider := otel.GetTracerProvider()
	originalPropagator := otel.GetTextMapPropagator()

	sr := tracetest.NewSpanRecorder()
	tp, err := install(Config{ServiceName: "foodexplorer-test", SamplingRatio: ratio}, zap.NewNop(),
		sdktrace.WithSpanProcessor(sr))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(originalProvider)
		otel.SetTextMapPropagator(originalPropagator)
	})
	return tp, sr
}

func serve(t *testing.T, traceparent string) {
	t.Helper()
	h := otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), "foodexplorer")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	if traceparent != "" {
		req.Header.Set("traceparent", traceparent)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	before := otel.GetTracerProvider()

	tp, err := NewTracerProvider(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.False(t, tp.Enabled())
	assert.Same(t, before, otel.GetTracerProvider())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestInstall_RecordsServerSpanAndJoinsIncomingTrace(t *testing.T) {
	tp, sr := installRecorder(t, 1)
	assert.True(t, tp.Enabled())
	assert.ElementsMatch(t, []string{"traceparent", "baggage"}, otel.GetTextMapPropagator().Fields())

	serve(t, "00-"+parentTraceID+"-00f067aa0ba902b7-01")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, parentTraceID, spans[0].SpanContext().TraceID().String())
	assert.True(t, spans[0].Parent().IsRemote())

	name, ok := spans[0].Resource().Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "foodexplorer-test", name.AsString())
}

func TestInstall_ZeroRatioSamplesNothingButHonoursSampledParent(t *testing.T) {
	_, sr := installRecorder(t, 0)

	serve(t, "")
	assert.Empty(t, sr.Ended())

	serve(t, "00-"+parentTraceID+"-00f067aa0ba902b7-01")
	assert.Len(t, sr.Ended(), 1)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(2).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), sampler(0.25).Description())
}
