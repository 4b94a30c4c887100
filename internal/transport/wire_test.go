package transport

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-wget/internal/header"
	"github.com/frankli0324/go-wget/internal/model"
)

func newRequest(method, u string, lines ...string) *model.Request {
	h := header.New()
	h.AddLines(lines...)
	return &model.Request{Method: method, URL: u, Header: h}
}

type tCase struct {
	data []byte
	req  *model.Request
}

var reqShouldBe = map[string]tCase{
	"BasicRequest": {
		req:  newRequest("GET", "http://www.example.com"),
		data: []byte("GET / HTTP/1.1\r\nHost: www.example.com\r\nAccept: */*\r\n\r\n"),
	},
	"QueryNonStandard": {
		req:  newRequest("GET", "http://www.example.com/test?1=33=1"),
		data: []byte("GET /test?1=33=1 HTTP/1.1\r\nHost: www.example.com\r\nAccept: */*\r\n\r\n"),
	},
	"HeaderNotCanonicalized": {
		req:  newRequest("GET", "http://www.example.com/", "x-123-vv: 1"),
		data: []byte("GET / HTTP/1.1\r\nHost: www.example.com\r\nx-123-vv: 1\r\nAccept: */*\r\n\r\n"),
	},
	"URIFragmentNotIncluded": {
		req:  newRequest("GET", "http://www.example.com/?test=1#frag"),
		data: []byte("GET /?test=1 HTTP/1.1\r\nHost: www.example.com\r\nAccept: */*\r\n\r\n"),
	},
	"CustomVerbWithBody": {
		req: func() *model.Request {
			r := newRequest("PURGE", "http://www.example.com/c", "Accept: text/plain")
			r.Body = []byte("a=1")
			return r
		}(),
		data: []byte("PURGE /c HTTP/1.1\r\nHost: www.example.com\r\nContent-Length: 3\r\nAccept: text/plain\r\n\r\na=1"),
	},
	"HostOverride": {
		req:  newRequest("GET", "http://127.0.0.1:8080/", "Host: virtual.example"),
		data: []byte("GET / HTTP/1.1\r\nHost: virtual.example\r\nAccept: */*\r\n\r\n"),
	},
}

// pipeWire returns a wire transport whose connections are served by serve.
func pipeWire(t *testing.T, opts Options, serve func(net.Conn)) *wire {
	w, err := newWire(opts)
	require.NoError(t, err)
	w.dialTCP = func(ctx context.Context, hostport string) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			defer server.Close()
			serve(server)
		}()
		return client, nil
	}
	return w
}

// readRawRequest reads one request head and its Content-Length body.
func readRawRequest(br *bufio.Reader) []byte {
	var raw []byte
	cl := 0
	for {
		line, err := br.ReadString('\n')
		raw = append(raw, line...)
		if err != nil || line == "\r\n" {
			break
		}
		if name, value, ok := header.Parse(line); ok && strings.EqualFold(name, "Content-Length") {
			cl, _ = strconv.Atoi(value)
		}
	}
	body := make([]byte, cl)
	io.ReadFull(br, body)
	return append(raw, body...)
}

func sendSingleRequest(t *testing.T, req *model.Request, response string) (io.Reader, *model.Result, error) {
	opts := Defaults()
	opts.AcceptEncoding = ""
	got := make(chan []byte, 1)
	w := pipeWire(t, opts, func(c net.Conn) {
		got <- readRawRequest(bufio.NewReader(c))
		io.WriteString(c, response)
	})
	res, err := w.RoundTrip(context.Background(), req)
	return strings.NewReader(string(<-got)), res, err
}

func TestRequestSerialize(t *testing.T) {
	for name, cas := range reqShouldBe {
		tCase := cas
		t.Run(name, func(t *testing.T) {
			req, res, err := sendSingleRequest(t, tCase.req, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\nConnection: close\r\n\r\n")
			if err != nil {
				t.Fatal(err)
			}
			if err := iotest.TestReader(req, tCase.data); err != nil {
				t.Error(err)
			}
			if res.RequestHeader != string(tCase.data[:len(tCase.data)-len(tCase.req.Body)]) {
				t.Errorf("request head not captured: %q", res.RequestHeader)
			}
		})
	}
}

func TestResponseHeadKeptVerbatim(t *testing.T) {
	const head = "HTTP/1.1 404 Not Found\r\nx-lower: a\r\nContent-Length: 4\r\n\r\n"
	_, res, err := sendSingleRequest(t, newRequest("GET", "http://www.example.com/"), head+"nope")
	require.NoError(t, err)

	assert.Equal(t, 404, res.StatusCode)
	assert.Equal(t, len(head), res.HeaderSize)
	assert.Equal(t, head+"nope", string(res.Raw))
	assert.Equal(t, "http://www.example.com/", res.URL)
}

func TestInformationalResponsesKept(t *testing.T) {
	const cont = "HTTP/1.1 100 Continue\r\n\r\n"
	const final = "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n"
	_, res, err := sendSingleRequest(t, newRequest("GET", "http://www.example.com/"), cont+final+"2\r\nok\r\n0\r\n\r\n")
	require.NoError(t, err)

	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, cont+final, string(res.Raw[:res.HeaderSize]))
	assert.Equal(t, "ok", string(res.Raw[res.HeaderSize:]))
}

func TestReadUntilClose(t *testing.T) {
	_, res, err := sendSingleRequest(t, newRequest("GET", "http://www.example.com/"), "HTTP/1.0 200 OK\r\n\r\nstreamed until close")
	require.NoError(t, err)
	assert.Equal(t, "streamed until close", string(res.Raw[res.HeaderSize:]))
}

func TestMalformedResponses(t *testing.T) {
	cases := []struct {
		resp string
		code int
	}{
		{"", CodeEmptyReply},
		{"HTTP/1.1 20 OK\r\n\r\n", CodeReceive},
		{"HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nshort", CodePartialFile},
		{"HTTP/1.1 200 OK\r\nContent-Length: 1\r\nContent-Length: 2\r\n\r\nab", CodeReceive},
	}
	for _, c := range cases {
		_, _, err := sendSingleRequest(t, newRequest("GET", "http://www.example.com/"), c.resp)
		var te *Error
		if assert.ErrorAs(t, err, &te, "%q", c.resp) {
			assert.Equal(t, c.code, te.Code, "%q", c.resp)
		}
	}
}

func TestHeadResponseHasNoBody(t *testing.T) {
	_, res, err := sendSingleRequest(t, newRequest("HEAD", "http://www.example.com/"), "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, res.HeaderSize, len(res.Raw))
}

// redirectOnce answers the first connection with a 302 to location and
// records the request head sent on the second.
func redirectOnce(t *testing.T, req *model.Request, location string) string {
	t.Helper()
	opts := Defaults().Apply(WithFollowRedirects(1))
	got := make(chan []byte, 2)
	w := pipeWire(t, opts, func(c net.Conn) {
		raw := readRawRequest(bufio.NewReader(c))
		got <- raw
		if strings.HasPrefix(string(raw), "GET /start ") {
			io.WriteString(c, "HTTP/1.1 302 Found\r\nLocation: "+location+"\r\nContent-Length: 0\r\n\r\n")
			return
		}
		io.WriteString(c, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")
	})
	res, err := w.RoundTrip(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 200, res.StatusCode)
	<-got
	return string(<-got)
}

func TestRedirectCredentials(t *testing.T) {
	lines := []string{"Authorization: Bearer secret", "Cookie: s=1", "Host: virtual.example", "X-Keep: 1"}

	head := redirectOnce(t, newRequest("GET", "http://origin.example/start", lines...), "http://third.example/next")
	assert.True(t, strings.HasPrefix(head, "GET /next HTTP/1.1\r\nHost: third.example\r\n"), head)
	assert.NotContains(t, head, "Authorization")
	assert.NotContains(t, head, "Cookie")
	assert.NotContains(t, head, "virtual.example")
	assert.Contains(t, head, "X-Keep: 1\r\n")

	head = redirectOnce(t, newRequest("GET", "http://origin.example/start", lines...), "/next")
	assert.Contains(t, head, "Authorization: Bearer secret\r\n")
	assert.Contains(t, head, "Cookie: s=1\r\n")
	assert.Contains(t, head, "Host: virtual.example\r\n")
}

func TestEmptyEncodedBody(t *testing.T) {
	opts := Defaults()
	w := pipeWire(t, opts, func(c net.Conn) {
		readRawRequest(bufio.NewReader(c))
		io.WriteString(c, "HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\nTransfer-Encoding: chunked\r\n\r\n0\r\n\r\n")
	})
	res, err := w.RoundTrip(context.Background(), newRequest("GET", "http://www.example.com/"))
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, res.HeaderSize, len(res.Raw))
}
