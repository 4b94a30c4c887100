package transport

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/frankli0324/go-wget/internal/model"
)

// wire is the built-in HTTP/1.1 backend. It holds configuration only; each
// exchange dials a fresh connection and closes it afterwards.
type wire struct {
	opts    Options
	resolve *resolveConfig
	proxy   proxySelector
	dialTCP func(ctx context.Context, hostport string) (net.Conn, error)
}

func newWire(opts Options) (*wire, error) {
	ps, err := newProxySelector(opts)
	if err != nil {
		return nil, err
	}
	w := &wire{
		opts:    opts,
		resolve: &resolveConfig{DNSServer: opts.DNSServer, StaticHosts: opts.Resolve},
		proxy:   ps,
	}
	w.dialTCP = w.resolve.dialTCP
	return w, nil
}

func (w *wire) Close() error { return nil }

func (w *wire) RoundTrip(ctx context.Context, req *model.Request) (*model.Result, error) {
	if w.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.Timeout)
		defer cancel()
	}

	res := &model.Result{}
	heads := &bytes.Buffer{}
	target := req.URL
	for hops := 0; ; hops++ {
		pr, err := req.PrepareURL(target)
		if err != nil {
			return res, classify(stagePrepare, err)
		}
		ex, err := w.exchange(ctx, pr)
		if w.opts.CaptureRequestHeaders && ex != nil {
			res.RequestHeader = ex.requestHead
		}
		if err != nil {
			return res, err
		}
		if w.opts.CaptureResponseHeaders {
			heads.Write(ex.responseHead)
		}
		res.URL = pr.U.String()
		res.StatusCode = ex.statusCode

		if next, ok := w.redirect(pr.U, ex); ok {
			if hops >= w.opts.MaxRedirects {
				return res, classify(stageReceive, errTooManyRedirects)
			}
			target = next.String()
			req = redirected(req, ex.statusCode, pr.U, next)
			continue
		}

		res.HeaderSize = heads.Len()
		heads.Write(ex.body)
		res.Raw = heads.Bytes()
		return res, nil
	}
}

func (w *wire) redirect(base *url.URL, ex *exchange) (*url.URL, bool) {
	if !w.opts.FollowRedirects {
		return nil, false
	}
	switch ex.statusCode {
	case 301, 302, 303, 307, 308:
	default:
		return nil, false
	}
	loc := ex.location
	if loc == "" {
		return nil, false
	}
	next, err := base.Parse(loc)
	if err != nil {
		return nil, false
	}
	return next, true
}

// redirected turns POST into GET on 301/302 and everything but HEAD into
// GET on 303, dropping the body, like browsers and curl do. Credentials and
// a Host override only follow redirects that stay on the same host.
func redirected(req *model.Request, status int, from, to *url.URL) *model.Request {
	var toGET bool
	switch status {
	case 303:
		toGET = req.Method != "HEAD"
	case 301, 302:
		toGET = req.Method == "POST"
	}
	crossHost := !strings.EqualFold(from.Hostname(), to.Hostname())
	if !toGET && !crossHost {
		return req
	}
	c := *req
	c.Header = req.Header.Clone()
	if toGET {
		c.Method, c.Body = "GET", nil
		c.Header.Del("Content-Type")
		c.Header.Del("Content-Length")
	}
	if crossHost {
		for _, name := range crossHostHeaders {
			c.Header.Del(name)
		}
	}
	return &c
}

var crossHostHeaders = []string{"Authorization", "Cookie", "Proxy-Authorization", "Host"}

type exchange struct {
	requestHead  string
	responseHead []byte // every head read, informational ones included
	statusCode   int
	location     string
	body         []byte
}

func (w *wire) exchange(ctx context.Context, pr *model.PreparedRequest) (*exchange, error) {
	proxy, err := w.proxy(pr.U)
	if err != nil {
		return nil, classify(stageProxy, err)
	}
	conn, absolute, err := w.dial(ctx, pr, proxy)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0)) // unblock pending reads and writes
	})
	defer stop()

	h := pr.Header
	if w.opts.AcceptEncoding != "" {
		if _, ok := h.Get("Accept-Encoding"); !ok {
			h = h.Clone()
			h.Add("Accept-Encoding", w.opts.AcceptEncoding)
		}
	}
	if _, ok := h.Get("Accept"); !ok {
		h = h.Clone()
		h.Add("Accept", "*/*")
	}
	target := pr.U.RequestURI()
	if absolute {
		u := *pr.U
		u.User, u.Fragment, u.RawFragment = nil, "", ""
		target = u.String()
		if auth := proxyAuthorization(proxy); auth != "" {
			if _, ok := h.Get("Proxy-Authorization"); !ok {
				h = h.Clone()
				h.Add("Proxy-Authorization", auth)
			}
		}
	}
	head := (&requestHead{
		Method: pr.Method, Target: target, Host: pr.HeaderHost,
		ContentLength: pr.ContentLength, Header: h,
	}).String()

	ex := &exchange{requestHead: head}
	if err := writeRequest(conn, head, pr.Body); err != nil {
		return ex, classify(stageSend, ctxErr(ctx, err))
	}

	br := bufio.NewReader(conn)
	var msg *message
	for {
		msg, err = readMessage(br, pr.Method)
		if err != nil {
			return ex, classify(stageReceive, ctxErr(ctx, err))
		}
		ex.responseHead = append(ex.responseHead, msg.Head...)
		// informational responses precede the final one, 101 ends the exchange
		if msg.StatusCode/100 != 1 || msg.StatusCode == 101 {
			break
		}
	}
	ex.statusCode = msg.StatusCode
	ex.location = msg.Header.Get("Location")

	if msg.Body == nil {
		return ex, nil
	}
	raw, err := io.ReadAll(msg.Body)
	if err != nil {
		return ex, classify(stageBody, ctxErr(ctx, err))
	}
	if w.opts.AcceptEncoding == "" || len(raw) == 0 {
		ex.body = raw
		return ex, nil
	}
	decoded, err := decodeBody(bytes.NewReader(raw), msg.Header.Get("Content-Encoding"))
	if err == nil {
		ex.body, err = io.ReadAll(decoded)
	}
	if err != nil {
		return ex, classify(stageDecode, err)
	}
	return ex, nil
}

// dial connects to the origin, directly or through proxy. absolute reports
// whether the request must use absolute-form because a plain http proxy
// forwards it.
func (w *wire) dial(ctx context.Context, pr *model.PreparedRequest, proxy *url.URL) (conn net.Conn, absolute bool, err error) {
	if proxy == nil {
		conn, err = w.dialTCP(ctx, pr.HostPort)
		if err != nil {
			return nil, false, classify(stageDial, ctxErr(ctx, err))
		}
	} else {
		conn, err = w.dialProxy(ctx, proxy)
		if err != nil {
			return nil, false, err
		}
		if pr.U.Scheme == "http" {
			return conn, true, nil
		}
		if err := tunnel(conn, proxy, pr.HostPort); err != nil {
			conn.Close()
			return nil, false, err
		}
	}

	if pr.U.Scheme == "https" {
		c := tls.Client(conn, tlsConfig(w.opts, pr.U.Hostname()))
		if err := c.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, false, classify(stageHandshake, ctxErr(ctx, err))
		}
		conn = c
	}
	return conn, false, nil
}

// ctxErr prefers the context's error so deadlines surface as timeouts
// rather than as the closed-connection error they cause.
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}
