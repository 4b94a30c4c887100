// Package builder accumulates request configuration and issues requests
// against a transport handle it owns.
package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http/httpguts"

	"github.com/frankli0324/go-wget/internal/codec"
	"github.com/frankli0324/go-wget/internal/header"
	"github.com/frankli0324/go-wget/internal/logger"
	"github.com/frankli0324/go-wget/internal/metrics"
	"github.com/frankli0324/go-wget/internal/model"
	"github.com/frankli0324/go-wget/internal/query"
	"github.com/frankli0324/go-wget/internal/response"
	"github.com/frankli0324/go-wget/internal/transport"
)

// Handler executes a built request.
type Handler = func(ctx context.Context, req *model.Request) (*model.Result, error)

// Middleware wraps the execution of every request a builder issues.
type Middleware func(next Handler) Handler

var ErrClosed = errors.New("builder: closed")

// errNoResult stands in for a handler that returned neither a result nor an error.
var errNoResult = errors.New("no result")

// Builder is a request session: headers, body mode and port accumulate until
// a verb method sends a request. With auto reset on (the default) that state
// and the transport handle are discarded after every completed exchange.
//
// A Builder is not safe for concurrent use; use one per goroutine.
type Builder struct {
	opts        transport.Options
	tr          transport.Transport
	middlewares []Middleware

	headers *header.Set
	mode    codec.Mode
	port    int
	closed  bool
}

// New returns a builder over transport.Defaults with opts applied.
func New(opts ...transport.Option) (*Builder, error) {
	o := transport.Defaults().Apply(opts...)
	tr, err := transport.New(o)
	if err != nil {
		return nil, err
	}
	metrics.BuildersActive.Inc()
	return &Builder{opts: o, tr: tr, headers: header.New()}, nil
}

// Options returns a copy of the options in effect.
func (b *Builder) Options() transport.Options { return b.opts.Clone() }

// Configure applies opts on top of the current options and replaces the
// transport handle. On error the builder is left unchanged.
func (b *Builder) Configure(opts ...transport.Option) error {
	if b.closed {
		return ErrClosed
	}
	o := b.opts.Apply(opts...)
	tr, err := transport.New(o)
	if err != nil {
		return err
	}
	b.tr.Close()
	b.opts, b.tr = o, tr
	return nil
}

// SetHeaders merges name/value pairs, in name order. A later value replaces
// an earlier one of the same name regardless of case.
func (b *Builder) SetHeaders(headers map[string]string) *Builder {
	b.headers.AddMap(headers)
	return b
}

// SetHeaderLines merges raw "Name: Value" lines. Lines without a colon or
// with an invalid name are ignored.
func (b *Builder) SetHeaderLines(lines ...string) *Builder {
	b.headers.AddLines(lines...)
	return b
}

func (b *Builder) SetBearerAuthorization(token string, extra map[string]string) *Builder {
	b.headers.Add("Authorization", "Bearer "+token)
	return b.SetHeaders(extra)
}

func (b *Builder) AsJSON() *Builder      { return b.as(codec.JSON) }
func (b *Builder) AsXML() *Builder       { return b.as(codec.XML) }
func (b *Builder) AsForm() *Builder      { return b.as(codec.Form) }
func (b *Builder) AsMultipart() *Builder { return b.as(codec.Multipart) }

func (b *Builder) as(m codec.Mode) *Builder {
	b.headers.Add("Content-Type", m.ContentType())
	b.mode = m
	return b
}

// Mode reports the current body encoding mode.
func (b *Builder) Mode() codec.Mode { return b.mode }

// Headers returns the accumulated header lines in insertion order.
func (b *Builder) Headers() []string { return b.headers.Lines() }

// SetPort overrides the port of every URL requested until the next reset.
func (b *Builder) SetPort(port int) *Builder {
	b.port = port
	return b
}

// Use appends mws to the chain. The first one added is the outermost.
func (b *Builder) Use(mws ...Middleware) *Builder {
	b.middlewares = append(b.middlewares, mws...)
	return b
}

// Request builds an immutable request from the current state without
// sending it. data is serialized per the current mode.
func (b *Builder) Request(method, url string, data interface{}) (*model.Request, error) {
	if method == "" || !httpguts.ValidHeaderFieldName(method) {
		return nil, fmt.Errorf("builder: invalid method %q", method)
	}
	body, err := codec.Encode(b.mode, data)
	if err != nil {
		return nil, err
	}
	req := &model.Request{Method: method, URL: url, Header: b.headers.Clone(), Port: b.port}
	if body != nil {
		req.Body = body.Data
		if body.ContentType != "" {
			req.Header.Add("Content-Type", body.ContentType)
		} else if _, ok := req.Header.Get("Content-Type"); !ok {
			req.Header.Add("Content-Type", b.mode.ContentType())
		}
	}
	return req, nil
}

// Get sends a GET with params appended to url as a query string.
func (b *Builder) Get(ctx context.Context, url string, params interface{}) (*response.Response, error) {
	return b.get(ctx, "GET", url, params, nil)
}

// GetWithBody sends a GET that also carries body, serialized per the current
// mode. Many servers and proxies ignore or reject a GET body.
func (b *Builder) GetWithBody(ctx context.Context, url string, params, body interface{}) (*response.Response, error) {
	return b.get(ctx, "GET", url, params, body)
}

func (b *Builder) Head(ctx context.Context, url string, params interface{}) (*response.Response, error) {
	return b.get(ctx, "HEAD", url, params, nil)
}

func (b *Builder) Post(ctx context.Context, url string, data interface{}) (*response.Response, error) {
	return b.Send(ctx, "POST", url, data)
}

func (b *Builder) Put(ctx context.Context, url string, data interface{}) (*response.Response, error) {
	return b.Send(ctx, "PUT", url, data)
}

func (b *Builder) Patch(ctx context.Context, url string, data interface{}) (*response.Response, error) {
	return b.Send(ctx, "PATCH", url, data)
}

func (b *Builder) Delete(ctx context.Context, url string, data interface{}) (*response.Response, error) {
	return b.Send(ctx, "DELETE", url, data)
}

func (b *Builder) get(ctx context.Context, method, url string, params, body interface{}) (*response.Response, error) {
	if params != nil {
		rendered, err := query.Encode(params)
		if err != nil {
			metrics.ObserveRequest(method, metrics.OutcomeEncodeError, 0)
			return nil, err
		}
		url = query.Append(url, rendered)
	}
	return b.Send(ctx, method, url, body)
}

// Send builds a request with any method and executes it. The error is
// non-nil only when nothing was sent: data could not be serialized or the
// builder is closed. Transport failures are reported by the response.
func (b *Builder) Send(ctx context.Context, method, url string, data interface{}) (*response.Response, error) {
	if b.closed {
		return nil, ErrClosed
	}
	req, err := b.Request(method, url, data)
	if err != nil {
		metrics.ObserveRequest(method, metrics.OutcomeEncodeError, 0)
		return nil, err
	}
	return b.Do(ctx, req)
}

// Do executes req through the middleware chain and the transport handle.
func (b *Builder) Do(ctx context.Context, req *model.Request) (*response.Response, error) {
	if b.closed {
		return nil, ErrClosed
	}
	next := b.tr.RoundTrip
	for i := len(b.middlewares) - 1; i >= 0; i-- {
		next = b.middlewares[i](next)
	}

	start := time.Now()
	res, err := next(ctx, req)
	took := time.Since(start)
	if res == nil && err == nil {
		err = errNoResult
	}

	if err != nil {
		fields := []zap.Field{zap.String("method", req.Method), zap.String("url", req.URL), zap.Error(err)}
		var te *transport.Error
		if errors.As(err, &te) {
			fields = append(fields, zap.Int("code", te.Code))
		}
		logger.L().Warn("request failed", fields...)
		metrics.ObserveRequest(req.Method, metrics.OutcomeTransportError, took)
		return response.New(res, err), nil
	}

	logger.L().Debug("request completed",
		zap.String("method", req.Method),
		zap.String("url", res.URL),
		zap.Int("status", res.StatusCode),
		zap.Duration("took", took),
	)
	metrics.ObserveRequest(req.Method, metrics.OutcomeResponse, took)
	if b.opts.AutoReset {
		if err := b.Reset(); err != nil {
			logger.L().Warn("reset after request", zap.Error(err))
		}
	}
	return response.New(res, nil), nil
}

// Reset replaces the transport handle and clears headers, mode and port.
// Options and middlewares are kept.
func (b *Builder) Reset() error {
	if b.closed {
		return ErrClosed
	}
	tr, err := transport.New(b.opts)
	if err != nil {
		return err
	}
	b.tr.Close()
	b.tr = tr
	b.headers = header.New()
	b.mode = codec.Form
	b.port = 0
	return nil
}

// Close releases the transport handle. The builder is unusable afterwards.
func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	metrics.BuildersActive.Dec()
	return b.tr.Close()
}
