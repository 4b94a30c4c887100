// package chunked decodes the chunked transfer coding (RFC9112 section 7.1).
package chunked

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var (
	ErrMalformed = errors.New("malformed chunked encoding")
	ErrTooLarge  = errors.New("http chunk length too large")
)

// NewReader returns a reader yielding the decoded payload of r. Chunk
// extensions are ignored and trailer fields are consumed and discarded.
func NewReader(r io.Reader) io.Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &reader{Reader: br}
}

type reader struct {
	*bufio.Reader
	chunk      io.Reader
	read, size int64
	done       bool
}

func (c *reader) readLine() ([]byte, error) {
	var line []byte
	for {
		l, isPrefix, err := c.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = append(line, l...)
		if len(line) > 4096 {
			return nil, ErrTooLarge
		}
		if !isPrefix {
			return line, nil
		}
	}
}

func (c *reader) readChunkHeader() (n uint64, err error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimRight(line, " \t")
	if len(line) == 0 {
		return 0, ErrMalformed
	}
	if len(line) > 16 {
		return 0, ErrTooLarge
	}
	for _, b := range line {
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, errors.New("invalid byte in chunk length")
		}
		n <<= 4
		n |= uint64(b)
	}
	return n, nil
}

func (c *reader) skipTrailers() error {
	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
	}
}

func (c *reader) Read(p []byte) (n int, err error) {
	if c.done {
		return 0, io.EOF
	}
	if c.chunk == nil {
		l, err := c.readChunkHeader()
		if err != nil {
			return 0, err
		}
		if l == 0 {
			c.done = true
			if err := c.skipTrailers(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		c.chunk = io.LimitReader(c.Reader, int64(l))
		c.size = int64(l)
	}
	n, err = c.chunk.Read(p)
	c.read += int64(n)
	if err == io.EOF {
		if c.read != c.size {
			return n, io.ErrUnexpectedEOF
		}
		err = nil
		dr, _ := c.Reader.ReadByte()
		dn, rerr := c.Reader.ReadByte()
		if rerr != nil {
			if rerr == io.EOF {
				rerr = io.ErrUnexpectedEOF
			}
			return n, rerr
		}
		if dr != '\r' || dn != '\n' {
			return n, ErrMalformed
		}
		c.chunk = nil
		c.read = 0
	}
	return n, err
}
