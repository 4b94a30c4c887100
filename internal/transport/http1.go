package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/frankli0324/go-wget/internal/header"
	"github.com/frankli0324/go-wget/internal/transport/chunked"
)

const maxHeadSize = 1 << 20

var errHeadTooLarge = errors.New("response head too large")

// requestHead is the status line and header part of an HTTP/1.1 request.
type requestHead struct {
	Method        string
	Target        string // request-target: origin-form, absolute-form or authority-form
	Host          string
	ContentLength int64 // -1 omits the header
	Header        *header.Set
}

// String renders the head, e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
func (h *requestHead) String() string {
	var sb strings.Builder
	sb.WriteString(h.Method)
	sb.WriteByte(' ')
	sb.WriteString(h.Target)
	sb.WriteString(" HTTP/1.1\r\n")

	sb.WriteString("Host: ")
	sb.WriteString(h.Host)
	sb.WriteString("\r\n")
	if h.ContentLength != -1 {
		sb.WriteString("Content-Length: ")
		sb.WriteString(strconv.FormatInt(h.ContentLength, 10))
		sb.WriteString("\r\n")
	}
	for _, l := range h.Header.Lines() {
		sb.WriteString(l)
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
	return sb.String()
}

// writeRequest writes head and body in a single buffered flush.
func writeRequest(w io.Writer, head string, body []byte) error {
	bw := bufio.NewWriter(w) // default bufsize is 4096
	if _, err := bw.WriteString(head); err != nil {
		return err
	}
	if len(body) != 0 {
		if _, err := bw.Write(body); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// message is a response read off the wire.
type message struct {
	Head       []byte // raw status line and header lines, including the final CRLF
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header
	Body       io.Reader // nil when the message has no body
}

// readHead reads the raw response head, byte for byte, up to and including
// the empty line.
func readHead(br *bufio.Reader) ([]byte, error) {
	head := &bytes.Buffer{}
	partial := false
	for {
		line, err := br.ReadSlice('\n')
		head.Write(line)
		if err == bufio.ErrBufferFull {
			if head.Len() > maxHeadSize {
				return nil, errHeadTooLarge
			}
			partial = true
			continue
		}
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if head.Len() > maxHeadSize {
			return nil, errHeadTooLarge
		}
		if partial {
			partial = false
			continue
		}
		if len(line) <= 2 && strings.TrimRight(string(line), "\r\n") == "" {
			if head.Len() == len(line) {
				// stray empty line before the status line
				head.Reset()
				continue
			}
			return head.Bytes(), nil
		}
	}
}

// readMessage reads one response. Bodies are framed but not consumed.
func readMessage(br *bufio.Reader, method string) (*message, error) {
	raw, err := readHead(br)
	if err != nil {
		return nil, err
	}
	msg := &message{Head: raw}
	tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(raw)))

	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		return nil, errors.New("malformed HTTP response")
	}
	msg.Proto = proto
	msg.Status = strings.TrimLeft(status, " ")

	statusCode, _, _ := strings.Cut(msg.Status, " ")
	if len(statusCode) != 3 {
		return nil, errors.New("malformed HTTP status code " + statusCode)
	}
	msg.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || msg.StatusCode < 0 {
		return nil, errors.New("malformed HTTP status code")
	}

	// Parse the response headers.
	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, err
	}
	msg.Header = http.Header(mimeHeader)

	return msg, frameBody(br, method, msg)
}

func frameBody(r *bufio.Reader, method string, msg *message) error {
	if method == "HEAD" || msg.StatusCode/100 == 1 || msg.StatusCode == 204 || msg.StatusCode == 304 {
		return nil
	}
	if strings.EqualFold(msg.Header.Get("Transfer-Encoding"), "chunked") {
		msg.Body = chunked.NewReader(r)
		return nil
	}

	contentLens := msg.Header["Content-Length"]
	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return fmt.Errorf("http: message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}
		contentLens = contentLens[:1]
	}
	if len(contentLens) > 0 {
		n, err := strconv.ParseUint(textproto.TrimString(contentLens[0]), 10, 63)
		if err != nil {
			return fmt.Errorf("http: bad Content-Length %q", contentLens[0])
		}
		if n > 0 {
			msg.Body = &exactReader{r: io.LimitReader(r, int64(n)), left: int64(n)}
		}
		return nil
	}
	// no framing, the body runs until the server closes the connection
	msg.Body = r
	return nil
}

// exactReader reports io.ErrUnexpectedEOF when the connection ends before
// Content-Length bytes arrived.
type exactReader struct {
	r    io.Reader
	left int64
}

func (e *exactReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	e.left -= int64(n)
	if err == io.EOF && e.left > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}
