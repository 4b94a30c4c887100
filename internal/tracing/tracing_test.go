package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/frankli0324/go-wget/internal/header"
	"github.com/frankli0324/go-wget/internal/model"
	"github.com/frankli0324/go-wget/internal/transport"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp.Tracer("test")
}

func TestMiddlewareInjectsTraceContext(t *testing.T) {
	exporter, tracer := setupTestTracer(t)
	var seen *model.Request
	h := Middleware(tracer, propagation.TraceContext{})(func(ctx context.Context, req *model.Request) (*model.Result, error) {
		seen = req
		return &model.Result{StatusCode: 204}, nil
	})

	orig := &model.Request{Method: "GET", URL: "http://x/", Header: header.New()}
	_, err := h(context.Background(), orig)
	require.NoError(t, err)

	tp, ok := seen.Header.Get("traceparent")
	assert.True(t, ok)
	assert.NotEmpty(t, tp)
	assert.Equal(t, 0, orig.Header.Len())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET", spans[0].Name)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestMiddlewareRecordsFailures(t *testing.T) {
	exporter, tracer := setupTestTracer(t)
	h := Middleware(tracer, propagation.TraceContext{})(func(ctx context.Context, req *model.Request) (*model.Result, error) {
		return &model.Result{}, &transport.Error{Code: transport.CodeConnect, Message: "refused"}
	})
	_, err := h(context.Background(), &model.Request{Method: "POST", URL: "http://x/", Header: header.New()})
	require.Error(t, err)

	h = Middleware(tracer, propagation.TraceContext{})(func(ctx context.Context, req *model.Request) (*model.Result, error) {
		return &model.Result{StatusCode: 503}, nil
	})
	_, err = h(context.Background(), &model.Request{Method: "GET", URL: "http://x/", Header: header.New()})
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Len(t, spans[0].Events, 1)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}
