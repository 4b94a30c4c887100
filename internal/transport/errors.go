package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/frankli0324/go-wget/internal/model"
)

// Error codes follow libcurl's CURLcode numbering where one exists.
const (
	CodeUnsupportedProtocol = 1
	CodeMalformedURL        = 3
	CodeResolveProxy        = 5
	CodeResolveHost         = 6
	CodeConnect             = 7
	CodePartialFile         = 18
	CodeTimeout             = 28
	CodeTLSConnect          = 35
	CodeAborted             = 42
	CodeTooManyRedirects    = 47
	CodeEmptyReply          = 52
	CodeSend                = 55
	CodeReceive             = 56
	CodePeerCertificate     = 60
	CodeBadEncoding         = 61
)

// Error is a transport level failure: no HTTP response was obtained.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code int, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Err: err}
}

var errTooManyRedirects = errors.New("maximum redirects followed")

// stage tells classify which step failed when the error itself is ambiguous.
type stage int

const (
	stagePrepare stage = iota
	stageProxy
	stageDial
	stageHandshake
	stageSend
	stageReceive
	stageBody
	stageDecode
)

// classify maps err to an *Error. Errors already classified pass through.
func classify(st stage, err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newError(CodeTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return newError(CodeAborted, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return newError(CodeTimeout, err)
	}
	if errors.Is(err, errTooManyRedirects) {
		return newError(CodeTooManyRedirects, err)
	}
	if errors.Is(err, model.ErrUnsupportedScheme) {
		return newError(CodeUnsupportedProtocol, err)
	}

	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalid          x509.CertificateInvalidError
		verification     *tls.CertificateVerificationError
	)
	if errors.As(err, &unknownAuthority) || errors.As(err, &hostname) ||
		errors.As(err, &invalid) || errors.As(err, &verification) {
		return newError(CodePeerCertificate, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if st == stageProxy {
			return newError(CodeResolveProxy, err)
		}
		return newError(CodeResolveHost, err)
	}

	switch st {
	case stagePrepare:
		return newError(CodeMalformedURL, err)
	case stageProxy, stageDial:
		return newError(CodeConnect, err)
	case stageHandshake:
		return newError(CodeTLSConnect, err)
	case stageSend:
		return newError(CodeSend, err)
	case stageDecode:
		return newError(CodeBadEncoding, err)
	case stageBody:
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return newError(CodePartialFile, err)
		}
	case stageReceive:
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return newError(CodeEmptyReply, err)
		}
	}
	return newError(CodeReceive, err)
}
