package transport

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// decodeBody undoes the content codings listed in Content-Encoding, last
// applied first. Unknown codings are left in place and an empty body stays
// empty whatever it claims to be encoded with.
func decodeBody(body io.Reader, contentEncoding string) (io.Reader, error) {
	if contentEncoding == "" {
		return body, nil
	}
	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		var err error
		switch strings.ToLower(strings.TrimSpace(codings[i])) {
		case "gzip", "x-gzip":
			body, err = gzip.NewReader(body)
		case "deflate":
			body, err = newDeflateReader(body)
		case "identity", "":
		default:
			return body, nil
		}
		if err == io.EOF {
			// an empty body carries no coding to undo
			return strings.NewReader(""), nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", codings[i], err)
		}
	}
	return body, nil
}

// "deflate" is zlib-wrapped per RFC9110 but raw deflate is common in the wild.
func newDeflateReader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	hdr, err := br.Peek(2)
	if err != nil {
		return nil, err
	}
	if hdr[0]&0x0f == 8 && (uint16(hdr[0])<<8|uint16(hdr[1]))%31 == 0 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}
