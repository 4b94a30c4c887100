package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/frankli0324/go-wget/internal/logger"
	"github.com/frankli0324/go-wget/internal/model"
)

// restyTransport runs exchanges through a resty client over net/http. The
// response head is rebuilt from the parsed message, so header casing and
// order may differ from what the server sent.
type restyTransport struct {
	opts   Options
	client *resty.Client
}

func newResty(opts Options) (*restyTransport, error) {
	ps, err := newProxySelector(opts)
	if err != nil {
		return nil, err
	}
	resolve := &resolveConfig{DNSServer: opts.DNSServer, StaticHosts: opts.Resolve}

	ht := &http.Transport{
		Proxy: func(r *http.Request) (*url.URL, error) { return ps(r.URL) },
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return resolve.dialTCP(ctx, addr)
		},
		TLSClientConfig:    tlsConfig(opts, ""),
		DisableKeepAlives:  opts.FreshConnect,
		DisableCompression: opts.AcceptEncoding == "",
	}

	c := resty.New().
		SetTransport(ht).
		SetLogger(logger.S()).
		SetAllowGetMethodPayload(true).
		SetRedirectPolicy(redirectPolicy(opts))
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	return &restyTransport{opts: opts, client: c}, nil
}

func redirectPolicy(opts Options) resty.RedirectPolicy {
	return resty.RedirectPolicyFunc(func(_ *http.Request, via []*http.Request) error {
		if !opts.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) > opts.MaxRedirects {
			return errTooManyRedirects
		}
		return nil
	})
}

func (t *restyTransport) Close() error {
	t.client.GetClient().CloseIdleConnections()
	return nil
}

func (t *restyTransport) RoundTrip(ctx context.Context, req *model.Request) (*model.Result, error) {
	res := &model.Result{}
	pr, err := req.Prepare()
	if err != nil {
		return res, classify(stagePrepare, err)
	}

	r := t.client.R().SetContext(ctx)
	pr.Header.Each(func(k, v string) { r.SetHeaderVerbatim(k, v) })
	if pr.HeaderHost != pr.U.Host {
		r.SetHeader("Host", pr.HeaderHost)
	}
	if t.opts.AcceptEncoding != "" && t.opts.AcceptEncoding != "gzip" {
		if _, ok := pr.Header.Get("Accept-Encoding"); !ok {
			r.SetHeader("Accept-Encoding", t.opts.AcceptEncoding)
		}
	}
	if pr.Body != nil {
		r.SetBody(pr.Body)
	}

	resp, err := r.Execute(pr.Method, pr.U.String())
	if resp != nil && resp.Request != nil && resp.Request.RawRequest != nil && t.opts.CaptureRequestHeaders {
		res.RequestHeader = formatRequestHead(resp.Request.RawRequest)
	}
	if err != nil {
		return res, classifyHTTP(err)
	}
	raw := resp.RawResponse
	if raw == nil {
		return res, &Error{Code: CodeEmptyReply, Message: "no response"}
	}

	buf := &bytes.Buffer{}
	if t.opts.CaptureResponseHeaders {
		fmt.Fprintf(buf, "%s %s\r\n", raw.Proto, raw.Status)
		raw.Header.Write(buf)
		buf.WriteString("\r\n")
	}
	res.HeaderSize = buf.Len()
	buf.Write(resp.Body())

	res.Raw = buf.Bytes()
	res.StatusCode = resp.StatusCode()
	res.URL = pr.U.String()
	if raw.Request != nil && raw.Request.URL != nil {
		res.URL = raw.Request.URL.String()
	}
	return res, nil
}

func formatRequestHead(r *http.Request) string {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "%s %s HTTP/1.1\r\n", r.Method, r.URL.RequestURI())
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	fmt.Fprintf(buf, "Host: %s\r\n", host)
	r.Header.Write(buf)
	buf.WriteString("\r\n")
	return buf.String()
}

// classifyHTTP recovers the failing stage from a net/http client error.
func classifyHTTP(err error) *Error {
	var op *net.OpError
	if errors.As(err, &op) {
		switch op.Op {
		case "proxyconnect":
			return classify(stageProxy, err)
		case "dial":
			return classify(stageDial, err)
		case "write":
			return classify(stageSend, err)
		}
	}
	var rh tls.RecordHeaderError
	if errors.As(err, &rh) {
		return classify(stageHandshake, err)
	}
	return classify(stageReceive, err)
}
