// Package tracing opens an OpenTelemetry client span around every request a
// builder issues.
package tracing

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/frankli0324/go-wget/internal/builder"
	"github.com/frankli0324/go-wget/internal/model"
	"github.com/frankli0324/go-wget/internal/transport"
)

const instrumentation = "github.com/frankli0324/go-wget"

// Middleware starts a span per request and injects its context into the
// outgoing headers. A nil tracer or propagator falls back to the global one.
func Middleware(tracer trace.Tracer, propagator propagation.TextMapPropagator) builder.Middleware {
	if tracer == nil {
		tracer = otel.Tracer(instrumentation)
	}
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	return func(next builder.Handler) builder.Handler {
		return func(ctx context.Context, req *model.Request) (*model.Result, error) {
			ctx, span := tracer.Start(ctx, "HTTP "+req.Method,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("url.full", req.URL),
				),
			)
			defer span.End()

			carrier := propagation.MapCarrier{}
			propagator.Inject(ctx, carrier)
			for _, k := range carrier.Keys() {
				req = req.WithHeader(k, carrier.Get(k))
			}

			res, err := next(ctx, req)
			end(span, res, err)
			return res, err
		}
	}
}

func end(span trace.Span, res *model.Result, err error) {
	if err != nil {
		var te *transport.Error
		if errors.As(err, &te) {
			span.SetAttributes(attribute.Int("wget.error.code", te.Code))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))
	if res.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", res.StatusCode))
		return
	}
	span.SetStatus(codes.Ok, "")
}
