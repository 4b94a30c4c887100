package model

import (
	"github.com/frankli0324/go-wget/internal/header"
)

// Request is a fully built request. It is never modified after a builder
// hands it out; transports and middlewares that need different headers
// work on a copy from WithHeader.
type Request struct {
	Method string
	URL    string
	Header *header.Set
	Body   []byte
	Port   int // overrides the port in URL when non-zero
}

// WithHeader returns a copy of r with name: value set.
func (r *Request) WithHeader(name, value string) *Request {
	c := *r
	c.Header = r.Header.Clone()
	c.Header.Add(name, value)
	return &c
}

// Result is the raw outcome of one exchange as a transport reports it.
//
// Raw holds every response header block received (one per redirect hop)
// followed by the decoded body; HeaderSize is the offset where the body starts.
type Result struct {
	URL           string // effective URL after redirects
	StatusCode    int
	Raw           []byte
	HeaderSize    int
	RequestHeader string // last request head written, for diagnostics
}
