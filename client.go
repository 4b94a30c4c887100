package wget

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/frankli0324/go-wget/internal/metrics"
	"github.com/frankli0324/go-wget/internal/tracing"
	"github.com/frankli0324/go-wget/internal/transport"
)

type Options = transport.Options
type Option = transport.Option

// Error is a transport failure; Code follows libcurl's numbering.
type Error = transport.Error

const (
	BackendWire  = transport.BackendWire
	BackendResty = transport.BackendResty
)

const (
	CodeUnsupportedProtocol = transport.CodeUnsupportedProtocol
	CodeMalformedURL        = transport.CodeMalformedURL
	CodeResolveProxy        = transport.CodeResolveProxy
	CodeResolveHost         = transport.CodeResolveHost
	CodeConnect             = transport.CodeConnect
	CodePartialFile         = transport.CodePartialFile
	CodeTimeout             = transport.CodeTimeout
	CodeTLSConnect          = transport.CodeTLSConnect
	CodeAborted             = transport.CodeAborted
	CodeTooManyRedirects    = transport.CodeTooManyRedirects
	CodeEmptyReply          = transport.CodeEmptyReply
	CodeSend                = transport.CodeSend
	CodeReceive             = transport.CodeReceive
	CodePeerCertificate     = transport.CodePeerCertificate
	CodeBadEncoding         = transport.CodeBadEncoding
)

// Defaults returns the options every builder starts from.
func Defaults() Options { return transport.Defaults() }

var (
	WithRequestHeaderCapture = transport.WithRequestHeaderCapture
	WithResponseHeaders      = transport.WithResponseHeaders
	WithFreshConnect         = transport.WithFreshConnect
	WithAcceptEncoding       = transport.WithAcceptEncoding
	WithFollowRedirects      = transport.WithFollowRedirects
	WithTimeout              = transport.WithTimeout
	WithBackend              = transport.WithBackend
	WithAutoReset            = transport.WithAutoReset
)

// Tracing returns a middleware opening a client span per request. Nil
// arguments fall back to the global otel tracer provider and propagator.
func Tracing(tracer trace.Tracer, propagator propagation.TextMapPropagator) Middleware {
	return tracing.Middleware(tracer, propagator)
}

// Metrics gathers the wget_* metrics: live builders and requests by method
// and outcome.
func Metrics() prometheus.Gatherer { return metrics.Registry }

// MetricsHandler serves Metrics in the Prometheus exposition format.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}
