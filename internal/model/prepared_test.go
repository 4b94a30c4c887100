package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-wget/internal/header"
)

func newRequest(method, u string, lines ...string) *Request {
	h := header.New()
	h.AddLines(lines...)
	return &Request{Method: method, URL: u, Header: h}
}

func TestPrepareHostAndLength(t *testing.T) {
	r := newRequest("POST", "https://example.com/a?b=1", "Host: other.example", "X-A: 1")
	r.Body = []byte("abc")
	pr, err := r.Prepare()
	require.NoError(t, err)

	assert.Equal(t, "other.example", pr.HeaderHost)
	assert.Equal(t, "example.com:443", pr.HostPort)
	assert.Equal(t, int64(3), pr.ContentLength)
	assert.Equal(t, []string{"X-A: 1"}, pr.Header.Lines())
	assert.Equal(t, "/a?b=1", pr.U.RequestURI())
}

func TestPreparePortOverride(t *testing.T) {
	r := newRequest("GET", "http://example.com:81/")
	r.Port = 8080
	pr, err := r.Prepare()
	require.NoError(t, err)
	assert.Equal(t, "example.com:8080", pr.HostPort)
	assert.Equal(t, "example.com:8080", pr.HeaderHost)
	assert.Equal(t, int64(-1), pr.ContentLength)
}

func TestPrepareEmptyPost(t *testing.T) {
	pr, err := newRequest("POST", "http://example.com").Prepare()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pr.ContentLength)
}

func TestPrepareErrors(t *testing.T) {
	_, err := newRequest("GET", "ftp://example.com/").Prepare()
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = newRequest("GET", "http:///nohost").Prepare()
	assert.Error(t, err)

	_, err = newRequest("GET", "http://[::1").Prepare()
	assert.Error(t, err)

	r := newRequest("PUT", "http://example.com", "Content-Length: 10")
	r.Body = []byte("short")
	_, err = r.Prepare()
	assert.Error(t, err)
}

func TestWithHeaderCopies(t *testing.T) {
	r := newRequest("GET", "http://example.com", "A: 1")
	c := r.WithHeader("B", "2")
	assert.Equal(t, []string{"A: 1"}, r.Header.Lines())
	assert.Equal(t, []string{"A: 1", "B: 2"}, c.Header.Lines())
}
