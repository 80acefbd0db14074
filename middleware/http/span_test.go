package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestNewSpanMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var inner trace.SpanContext

	handler := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inner = trace.SpanContextFromContext(r.Context())

			w.WriteHeader(http.StatusBadGateway)
		}),
		NewClientIPMiddleware(NotProvided),
		NewSpanMiddleware("proxy.request", attribute.String("mode", "serve")),
	)

	req := httptest.NewRequest(http.MethodGet, "/private", http.NoBody)
	req.RemoteAddr = "10.0.0.1:5555"

	handler.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "proxy.request", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, span.SpanContext().SpanID(), inner.SpanID())
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Contains(t, span.Attributes(), attribute.String("mode", "serve"))
	assert.Contains(t, span.Attributes(), attribute.String("client.address", "10.0.0.1"))
	assert.Contains(t, span.Attributes(), attribute.Int("http.response.status_code", http.StatusBadGateway))
}
