package main

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func echoServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		fmt.Fprintf(w, "%s %s %s %s %s", r.Method, r.URL.RawQuery, r.Header.Get("Content-Type"), r.Header.Get("Authorization"), b)
	}))
}

func TestGet(t *testing.T) {
	srv := echoServer()
	defer srv.Close()

	out, err := execute(t, "get", srv.URL, "-q", "b=2", "-q", "a=1", "-q", "b=3", "--bearer", "tok")
	require.NoError(t, err)
	assert.Equal(t, "GET a=1&b=2&b=3  Bearer tok ", out)
}

func TestPostJSONFields(t *testing.T) {
	srv := echoServer()
	defer srv.Close()

	out, err := execute(t, "post", srv.URL, "--json", "-F", "k=v")
	require.NoError(t, err)
	assert.Equal(t, `POST  application/json  {"k":"v"}`, out)
}

func TestRepeatedFields(t *testing.T) {
	srv := echoServer()
	defer srv.Close()

	out, err := execute(t, "post", srv.URL, "--json", "-F", "a=1", "-F", "b=x", "-F", "a=2", "-F", "a=3")
	require.NoError(t, err)
	assert.Equal(t, `POST  application/json  {"a":["1","2","3"],"b":"x"}`, out)
}

func TestPutRawData(t *testing.T) {
	srv := echoServer()
	defer srv.Close()

	out, err := execute(t, "put", srv.URL, "-H", "Content-Type: text/plain", "-d", "hello")
	require.NoError(t, err)
	assert.Equal(t, "PUT  text/plain  hello", out)
}

func TestIncludeAndOutput(t *testing.T) {
	srv := echoServer()
	defer srv.Close()

	out, err := execute(t, "get", srv.URL, "-i")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"), out)

	path := filepath.Join(t.TempDir(), "body.txt")
	out, err = execute(t, "delete", srv.URL, "-o", path)
	require.NoError(t, err)
	assert.Empty(t, out)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "DELETE    ", string(b))

	_, err = execute(t, "get", srv.URL, "-o", filepath.Join(t.TempDir(), "missing", "body.txt"))
	assert.Error(t, err)
}

func TestTransportFailureExitCode(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	_, err = execute(t, "get", "http://"+addr+"/")
	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 7, ee.code)
}

func TestArgs(t *testing.T) {
	_, err := execute(t, "get")
	assert.Error(t, err)
}
