// Package response wraps the raw outcome of one exchange.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"

	"github.com/frankli0324/go-wget/internal/model"
	"github.com/frankli0324/go-wget/internal/transport"
)

// ErrRequestFailed is the first entry of Errors when no response was obtained.
const ErrRequestFailed = "transport: request failed"

// Response is a snapshot taken when a request completes. Body, status and
// response headers are either all present or, after a transport failure,
// all absent.
//
// Only Save mutates a Response, by appending to its error list.
type Response struct {
	url             string
	status          int
	responseHeaders string
	body            string
	ok              bool
	requestHeaders  string

	mu     sync.Mutex
	errors []string
}

// New wraps res. A non-nil err marks a transport failure; res may still carry
// the request head that was written before it.
func New(res *model.Result, err error) *Response {
	r := &Response{}
	if res != nil {
		r.requestHeaders = res.RequestHeader
	}
	if err != nil {
		code := 0
		var te *transport.Error
		msg := err.Error()
		if errors.As(err, &te) {
			code, msg = te.Code, te.Message
		}
		r.errors = []string{ErrRequestFailed, msg, strconv.Itoa(code)}
		return r
	}
	if res == nil {
		r.errors = []string{ErrRequestFailed, "no result", "0"}
		return r
	}

	size := res.HeaderSize
	if size > len(res.Raw) {
		size = len(res.Raw)
	}
	r.url = res.URL
	r.status = res.StatusCode
	r.responseHeaders = string(res.Raw[:size])
	r.body = string(res.Raw[size:])
	r.ok = true
	return r
}

// URL is the effective URL after redirects, empty on failure.
func (r *Response) URL() string { return r.url }

// Status is the HTTP status code, 0 on failure.
func (r *Response) Status() int { return r.status }

func (r *Response) HasStatus() bool { return r.ok }

// Body returns the decoded body; false means there is none because the
// request failed.
func (r *Response) Body() (string, bool) { return r.body, r.ok }

// JSON decodes the body. With an empty key the whole decoded value is
// returned, otherwise the top-level member key. def is returned when the
// body is absent, is not valid JSON or has no such member.
func (r *Response) JSON(key string, def interface{}) interface{} {
	if !r.ok {
		return def
	}
	var decoded interface{}
	if err := sonic.ConfigStd.UnmarshalFromString(r.body, &decoded); err != nil {
		return def
	}
	if key == "" {
		return decoded
	}
	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return def
	}
	v, ok := obj[key]
	if !ok || v == nil {
		return def
	}
	return v
}

// JSONPath looks path up in the body using gjson syntax, e.g. "data.items.0.id".
func (r *Response) JSONPath(path string, def interface{}) interface{} {
	if !r.ok || !gjson.Valid(r.body) {
		return def
	}
	res := gjson.Get(r.body, path)
	if !res.Exists() || res.Type == gjson.Null {
		return def
	}
	return res.Value()
}

// Save writes the body to path. The parent directory must already exist; it
// is never created. Failures, including a failed request having no body, are
// recorded in Errors.
func (r *Response) Save(path string) bool {
	if !r.ok {
		r.addError("nothing to save: request failed")
		return false
	}
	dir := filepath.Dir(path)
	fi, err := os.Stat(dir)
	if err == nil && !fi.IsDir() {
		err = fmt.Errorf("%s is not a directory", dir)
	}
	if err == nil {
		err = os.WriteFile(path, []byte(r.body), 0o644)
	}
	if err != nil {
		r.addError("can't write into this path: " + err.Error())
		return false
	}
	return true
}

func (r *Response) addError(msg string) {
	r.mu.Lock()
	r.errors = append(r.errors, msg)
	r.mu.Unlock()
}

// RequestHeaders returns the request head written last, one line per element.
func (r *Response) RequestHeaders() []string { return splitLines(r.requestHeaders) }

// ResponseHeaders returns every response head received, one line per element.
func (r *Response) ResponseHeaders() []string { return splitLines(r.responseHeaders) }

// Cookies is not implemented and always returns an empty slice.
func (r *Response) Cookies() []*http.Cookie { return []*http.Cookie{} }

// Errors returns a copy of the error list; empty after a successful exchange.
func (r *Response) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

func splitLines(block string) []string {
	if block == "" {
		return nil
	}
	return strings.Split(block, "\n")
}
