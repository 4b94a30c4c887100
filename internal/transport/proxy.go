package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"

	"golang.org/x/net/http/httpproxy"

	"github.com/frankli0324/go-wget/internal/header"
)

var proxyPorts = map[string]string{
	"http": "80", "https": "443",
}

// proxySelector picks the proxy for a target URL; nil means direct.
type proxySelector func(u *url.URL) (*url.URL, error)

func newProxySelector(opts Options) (proxySelector, error) {
	if opts.Proxy != "" {
		pu, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("transport: invalid proxy %q: %w", opts.Proxy, err)
		}
		if pu.Scheme != "http" && pu.Scheme != "https" { // TODO: socks
			return nil, errors.New("transport: unsupported proxy scheme: " + pu.Scheme)
		}
		return func(*url.URL) (*url.URL, error) { return pu, nil }, nil
	}
	if opts.ProxyFromEnvironment {
		return httpproxy.FromEnvironment().ProxyFunc(), nil
	}
	return func(*url.URL) (*url.URL, error) { return nil, nil }, nil
}

func proxyAuthorization(proxy *url.URL) string {
	if proxy.User == nil {
		return ""
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(proxy.User.String()))
}

// dialProxy opens a connection to the proxy itself, over TLS for https proxies.
func (w *wire) dialProxy(ctx context.Context, proxy *url.URL) (net.Conn, error) {
	port := proxy.Port()
	if port == "" {
		port = proxyPorts[proxy.Scheme]
	}
	conn, err := w.dialTCP(ctx, net.JoinHostPort(proxy.Hostname(), port))
	if err != nil {
		return nil, classify(stageProxy, err)
	}
	if proxy.Scheme == "https" {
		c := tls.Client(conn, tlsConfig(w.opts, proxy.Hostname()))
		if err := c.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, classify(stageHandshake, err)
		}
		conn = c
	}
	return conn, nil
}

// tunnel asks the proxy on conn to CONNECT to hostport.
func tunnel(conn net.Conn, proxy *url.URL, hostport string) error {
	h := header.New()
	if auth := proxyAuthorization(proxy); auth != "" {
		h.Add("Proxy-Authorization", auth)
	}
	head := &requestHead{
		Method: "CONNECT", Target: hostport, Host: hostport,
		ContentLength: -1, Header: h,
	}
	if err := writeRequest(conn, head.String(), nil); err != nil {
		return classify(stageProxy, err)
	}
	// one byte at a time: the reader must not swallow the TLS handshake
	msg, err := readMessage(bufio.NewReaderSize(oneByteReader{conn}, 16), "CONNECT")
	if err != nil {
		return classify(stageProxy, err)
	}
	if msg.StatusCode != 200 {
		var s []byte
		if msg.Body != nil {
			s, _ = io.ReadAll(io.LimitReader(msg.Body, 512))
		}
		return &Error{
			Code:    CodeConnect,
			Message: fmt.Sprintf("proxy server returned error. status:%d, body:%s", msg.StatusCode, string(s)),
		}
	}
	return nil
}

type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}
