package transport

import (
	"context"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/frankli0324/go-wget/internal/model"
)

const (
	BackendWire  = "wire"
	BackendResty = "resty"
)

// Transport performs one blocking exchange. A transport is a handle owned by
// a single builder; it is discarded with Close and never shared.
//
// On failure RoundTrip returns an *Error and, when the request head was
// already written, a partial Result carrying RequestHeader.
type Transport interface {
	RoundTrip(ctx context.Context, req *model.Request) (*model.Result, error)
	Close() error
}

// Options is the escape hatch over the defaults a builder starts from.
type Options struct {
	Backend string

	VerifyPeer bool // verify the certificate chain
	VerifyHost bool // verify the certificate matches the host name
	RootCAs    *x509.CertPool

	CaptureRequestHeaders  bool // keep the written request head in Result
	CaptureResponseHeaders bool // keep the response head in front of the body
	FreshConnect           bool // never reuse a connection

	// AcceptEncoding is advertised to the server and decoded transparently.
	// Empty disables automatic decompression.
	AcceptEncoding string

	FollowRedirects bool
	MaxRedirects    int

	Timeout time.Duration // zero means no deadline beyond the context's

	Proxy                string // proxy URL; takes precedence over the environment
	ProxyFromEnvironment bool   // HTTP_PROXY, HTTPS_PROXY and NO_PROXY

	Resolve   map[string]string // host -> address, resembles /etc/hosts
	DNSServer string            // host:port of a DNS server to resolve with

	// AutoReset makes a builder replace its handle and clear its state
	// after every completed request.
	AutoReset bool
}

// Defaults are secure: full TLS verification, both header blocks captured,
// a new connection per request and gzip decoding.
func Defaults() Options {
	return Options{
		Backend:                BackendWire,
		VerifyPeer:             true,
		VerifyHost:             true,
		CaptureRequestHeaders:  true,
		CaptureResponseHeaders: true,
		FreshConnect:           true,
		AcceptEncoding:         "gzip",
		MaxRedirects:           10,
		AutoReset:              true,
	}
}

func (o Options) Clone() Options {
	c := o
	if o.Resolve != nil {
		c.Resolve = make(map[string]string, len(o.Resolve))
		for k, v := range o.Resolve {
			c.Resolve[k] = v
		}
	}
	return c
}

type Option func(*Options)

// Apply returns a copy of o with opts applied in order.
func (o Options) Apply(opts ...Option) Options {
	c := o.Clone()
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// WithInsecureSkipVerify disables certificate and host name verification.
// Meant for trusted internal or test environments only.
func WithInsecureSkipVerify() Option {
	return func(o *Options) { o.VerifyPeer, o.VerifyHost = false, false }
}

func WithVerifyPeer(v bool) Option { return func(o *Options) { o.VerifyPeer = v } }
func WithVerifyHost(v bool) Option { return func(o *Options) { o.VerifyHost = v } }

func WithRootCAs(pool *x509.CertPool) Option { return func(o *Options) { o.RootCAs = pool } }

func WithRequestHeaderCapture(v bool) Option {
	return func(o *Options) { o.CaptureRequestHeaders = v }
}

func WithResponseHeaders(v bool) Option {
	return func(o *Options) { o.CaptureResponseHeaders = v }
}

func WithFreshConnect(v bool) Option { return func(o *Options) { o.FreshConnect = v } }

func WithAcceptEncoding(enc string) Option { return func(o *Options) { o.AcceptEncoding = enc } }

// WithFollowRedirects follows up to max Location hops. max <= 0 disables following.
func WithFollowRedirects(max int) Option {
	return func(o *Options) {
		o.FollowRedirects = max > 0
		if max > 0 {
			o.MaxRedirects = max
		}
	}
}

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

func WithProxy(proxyURL string) Option { return func(o *Options) { o.Proxy = proxyURL } }

func WithProxyFromEnvironment() Option {
	return func(o *Options) { o.ProxyFromEnvironment = true }
}

// WithResolve pins host to addr, skipping DNS for it.
func WithResolve(host, addr string) Option {
	return func(o *Options) {
		if o.Resolve == nil {
			o.Resolve = map[string]string{}
		}
		o.Resolve[host] = addr
	}
}

func WithDNSServer(hostport string) Option { return func(o *Options) { o.DNSServer = hostport } }

func WithBackend(name string) Option { return func(o *Options) { o.Backend = name } }

func WithAutoReset(v bool) Option { return func(o *Options) { o.AutoReset = v } }

// New creates a transport handle for opts.
func New(opts Options) (Transport, error) {
	switch opts.Backend {
	case "", BackendWire:
		return newWire(opts)
	case BackendResty:
		return newResty(opts)
	}
	return nil, fmt.Errorf("transport: unknown backend %q", opts.Backend)
}
