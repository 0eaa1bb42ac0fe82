// Package httpwire implements a minimal HTTP/1.1 request/response reader
// and writer that preserves header name casing, using the same
// ReadFrom/WriteTo wire-struct convention as the SOCKS request/reply types
// applied to line-based HTTP framing instead of binary fields. net/http
// and net/textproto are not used here because both canonicalize header
// names on read with no supported opt-out.
package httpwire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/33TU/proxyd/internal"
)

// Errors returned while parsing a start-line, header block, or chunked body.
var (
	ErrMalformedStartLine = errors.New("httpwire: malformed start line")
	ErrMalformedHeader    = errors.New("httpwire: malformed header line")
	ErrHeaderTooLarge     = errors.New("httpwire: header block too large")
	ErrMalformedChunk     = errors.New("httpwire: malformed chunked body")
)

// MaxHeaderBytes bounds how much of a header block is buffered before
// ErrHeaderTooLarge is returned, guarding against an unbounded client.
const MaxHeaderBytes = 1 << 20

// Header is a single (name, value) pair with name casing exactly as the
// wire carried it.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list: unlike net/http.Header, lookups are
// case-insensitive but storage order and original casing are preserved.
type Headers []Header

// Get returns the first value for name, matched case-insensitively, and
// whether it was found.
func (h Headers) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Del removes all headers matching name case-insensitively and returns the
// resulting list.
func (h Headers) Del(name string) Headers {
	out := h[:0]
	for _, f := range h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	return out
}

// Add appends a header, preserving the caller's casing.
func (h Headers) Add(name, value string) Headers {
	return append(h, Header{Name: name, Value: value})
}

// RequestLine is the first line of an HTTP request: "METHOD TARGET VERSION".
type RequestLine struct {
	Method  string
	Target  string
	Version string
}

// Request is an HTTP/1.1 request's start-line and headers. The body is not
// modeled here; callers stream it themselves from the same Reader that
// parsed the headers, so buffered read-ahead bytes are never dropped.
type Request struct {
	Line    RequestLine
	Headers Headers
}

// StatusLine is the first line of an HTTP response: "VERSION CODE REASON".
type StatusLine struct {
	Version string
	Code    int
	Reason  string
}

// Response is an HTTP/1.1 response's start-line and headers.
type Response struct {
	Line    StatusLine
	Headers Headers
}

// Reader reads HTTP/1.1 request and response framing off a single
// underlying connection, one message at a time. It wraps a bufio.Reader so
// the connection's read-ahead buffer survives between ReadRequest/
// ReadResponse and any subsequent body copy — callers read the body (or
// splice it onward) through the same Reader, never through the raw
// underlying conn, or buffered bytes following the header block are lost.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps src for header parsing and subsequent body reads. The
// underlying bufio.Reader comes from internal.ReaderPool rather than a
// fresh allocation per connection; call Release when done with it.
func NewReader(src io.Reader) *Reader {
	return &Reader{br: internal.GetReader(src)}
}

// Release returns the underlying bufio.Reader to internal.ReaderPool. It
// must not be called again on r afterward.
func (r *Reader) Release() {
	internal.PutReader(r.br)
	r.br = nil
}

// Read satisfies io.Reader, draining any buffered bytes before the
// underlying src so callers can pipe a request/response body through
// io.Copy after reading its headers.
func (r *Reader) Read(p []byte) (int, error) {
	return r.br.Read(p)
}

// Buffered drains and returns any bytes already read into the internal
// buffer but not yet consumed. Used when handing a connection off to a raw
// splice after a CONNECT upgrade: those bytes must be written to the
// upstream before the raw copy resumes, or they would be lost.
func (r *Reader) Buffered() []byte {
	n := r.br.Buffered()
	if n == 0 {
		return nil
	}
	buf, _ := r.br.Peek(n)
	out := append([]byte(nil), buf...)
	r.br.Discard(n)
	return out
}

// CopyChunked reads a chunked-encoded body off r, copying each chunk's size
// line, data, and trailing CRLF verbatim to dst, stopping once the
// terminating zero-length chunk and any trailer headers have been
// consumed and forwarded.
func (r *Reader) CopyChunked(dst io.Writer) error {
	for {
		sizeLine, _, err := r.readLine()
		if err != nil {
			return err
		}
		sizeField, _, _ := strings.Cut(sizeLine, ";")
		size, err := strconv.ParseInt(strings.TrimSpace(sizeField), 16, 64)
		if err != nil || size < 0 {
			return fmt.Errorf("%w: bad chunk size %q", ErrMalformedChunk, sizeLine)
		}
		if _, err := io.WriteString(dst, sizeLine+"\r\n"); err != nil {
			return err
		}

		if size == 0 {
			for {
				line, _, err := r.readLine()
				if err != nil {
					return err
				}
				if _, err := io.WriteString(dst, line+"\r\n"); err != nil {
					return err
				}
				if line == "" {
					return nil
				}
			}
		}

		if _, err := io.CopyN(dst, r, size); err != nil {
			return err
		}
		trailing, _, err := r.readLine()
		if err != nil {
			return err
		}
		if trailing != "" {
			return ErrMalformedChunk
		}
		if _, err := io.WriteString(dst, "\r\n"); err != nil {
			return err
		}
	}
}

func (r *Reader) readLine() (string, int64, error) {
	line, err := r.br.ReadString('\n')
	n := int64(len(line))
	if n > MaxHeaderBytes {
		return "", n, ErrHeaderTooLarge
	}
	if err != nil {
		return "", n, err
	}
	return strings.TrimRight(line, "\r\n"), n, nil
}

func (r *Reader) readHeaders() (Headers, int64, error) {
	var (
		headers Headers
		total   int64
	)
	for {
		line, n, err := r.readLine()
		total += n
		if err != nil {
			return headers, total, err
		}
		if total > MaxHeaderBytes {
			return headers, total, ErrHeaderTooLarge
		}
		if line == "" {
			return headers, total, nil
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return headers, total, ErrMalformedHeader
		}
		headers = headers.Add(name, strings.TrimSpace(value))
	}
}

// ReadRequest reads a request-line and header block terminated by a blank
// line.
func (r *Reader) ReadRequest() (Request, error) {
	var req Request

	line, _, err := r.readLine()
	if err != nil {
		return req, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return req, ErrMalformedStartLine
	}
	req.Line = RequestLine{Method: parts[0], Target: parts[1], Version: parts[2]}

	req.Headers, _, err = r.readHeaders()
	return req, err
}

// ReadResponse reads a status-line and header block terminated by a blank
// line.
func (r *Reader) ReadResponse() (Response, error) {
	var resp Response

	line, _, err := r.readLine()
	if err != nil {
		return resp, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return resp, ErrMalformedStartLine
	}
	var code int
	if _, err := fmt.Sscanf(parts[1], "%d", &code); err != nil {
		return resp, fmt.Errorf("%w: bad status code %q", ErrMalformedStartLine, parts[1])
	}
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}
	resp.Line = StatusLine{Version: parts[0], Code: code, Reason: reason}

	resp.Headers, _, err = r.readHeaders()
	return resp, err
}

// WriteTo writes the request-line and headers, followed by the blank line
// terminator. Implements io.WriterTo.
func (r *Request) WriteTo(dst io.Writer) (int64, error) {
	bw := bufio.NewWriter(dst)
	n, err := writeRequestLine(bw, r.Line)
	if err != nil {
		return n, err
	}
	n2, err := writeHeaders(bw, r.Headers)
	n += n2
	if err != nil {
		return n, err
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

// WriteTo writes the status-line and headers, followed by the blank line
// terminator. Implements io.WriterTo.
func (r *Response) WriteTo(dst io.Writer) (int64, error) {
	bw := bufio.NewWriter(dst)
	line := fmt.Sprintf("%s %d %s\r\n", r.Line.Version, r.Line.Code, r.Line.Reason)
	wn, err := bw.WriteString(line)
	n := int64(wn)
	if err != nil {
		return n, err
	}
	n2, err := writeHeaders(bw, r.Headers)
	n += n2
	if err != nil {
		return n, err
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

func writeRequestLine(bw *bufio.Writer, l RequestLine) (int64, error) {
	n, err := bw.WriteString(fmt.Sprintf("%s %s %s\r\n", l.Method, l.Target, l.Version))
	return int64(n), err
}

func writeHeaders(bw *bufio.Writer, headers Headers) (int64, error) {
	var total int64
	for _, h := range headers {
		n, err := bw.WriteString(fmt.Sprintf("%s: %s\r\n", h.Name, h.Value))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err := bw.WriteString("\r\n")
	total += int64(n)
	return total, err
}
