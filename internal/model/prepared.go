package model

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/frankli0324/go-wget/internal/header"
)

var defaultPorts = map[string]string{
	"http": "80", "https": "443",
}

// ErrUnsupportedScheme is returned by Prepare for anything but http and https.
var ErrUnsupportedScheme = errors.New("unsupported protocol scheme")

// PreparedRequest is a Request resolved into what goes on the wire.
type PreparedRequest struct {
	*Request

	U          *url.URL
	Header     *header.Set // without Host and Content-Length
	HeaderHost string
	HostPort   string // dial address

	ContentLength int64
}

func (r *Request) Prepare() (*PreparedRequest, error) {
	return r.PrepareURL(r.URL)
}

// PrepareURL prepares r against target instead of r.URL, as redirects do.
func (r *Request) PrepareURL(target string) (*PreparedRequest, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrUnsupportedScheme
	}
	if r.Port != 0 {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(r.Port))
	}

	headers := header.New()
	host := u.Host
	cl := int64(-1)
	// user defined headers has higher priority
	r.Header.Each(func(k, v string) {
		switch strings.ToLower(k) {
		case "host":
			if v != "" {
				host = v
			}
		case "content-length":
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				cl = n
			}
		default:
			headers.Add(k, v)
		}
	})
	if u.Hostname() == "" {
		return nil, url.InvalidHostError("empty host")
	}

	port := u.Port()
	if port == "" {
		port = defaultPorts[u.Scheme]
	}

	pr := &PreparedRequest{
		Request: r, U: u,
		Header: headers, HeaderHost: host,
		HostPort:      net.JoinHostPort(u.Hostname(), port),
		ContentLength: -1,
	}
	if r.Body != nil {
		pr.ContentLength = int64(len(r.Body))
	} else if r.Method == "POST" || r.Method == "PUT" || r.Method == "PATCH" {
		pr.ContentLength = 0
	}
	if cl != -1 && pr.ContentLength != -1 && pr.ContentLength != cl {
		return nil, errors.New("conflicting value between body size and content-length request header")
	}
	return pr, nil
}
