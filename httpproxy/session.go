// Package httpproxy implements the HTTP/1.1 forward-proxy provider:
// per-connection request framing via httpwire, CONNECT tunneling, and
// plain request forwarding with the absolute-to-origin-form transform.
// It follows the same per-connection Handle shape as the SOCKS handlers,
// applied to a request/response loop instead of a single request/reply
// exchange.
package httpproxy

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/33TU/proxyd/httpwire"
	"github.com/33TU/proxyd/internal"
	"github.com/33TU/proxyd/splice"
)

// Upstream is the subset of dialer.Dialer that Handle needs; satisfied by
// *dialer.Dialer.
type Upstream interface {
	DialContext(ctx context.Context, hostPort string) (net.Conn, error)
}

const defaultHTTPPort = "80"

// maxUnframedBodyBytes bounds a close-delimited response body (one with
// neither Content-Length nor chunked Transfer-Encoding), since its true
// length is only known once src hits EOF.
const maxUnframedBodyBytes = 64 << 20

// Handle drives one HTTP/1.1 client connection end to end, serving each
// request in turn until the client closes the connection or a protocol
// error occurs.
func Handle(ctx context.Context, conn net.Conn, up Upstream) error {
	r := httpwire.NewReader(conn)
	defer r.Release()

	for {
		req, err := r.ReadRequest()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if strings.EqualFold(req.Line.Method, "CONNECT") {
			tunneled, err := handleConnect(ctx, conn, r, req, up)
			if tunneled || err != nil {
				return err
			}
			continue
		}
		if err := handleForward(ctx, conn, r, req, up); err != nil {
			return err
		}
	}
}

// handleConnect answers a CONNECT request. A missing authority (400) or a
// failed dial (502) is answered and reported as not tunneled, so Handle
// keeps serving the connection; otherwise the tunnel runs until it ends.
func handleConnect(ctx context.Context, conn net.Conn, r *httpwire.Reader, req httpwire.Request, up Upstream) (tunneled bool, err error) {
	hostPort, ok := httpwire.Authority(req.Line.Target, "")
	if !ok {
		writeStatus(conn, 400, "Bad Request", "CONNECT must be to a socket address")
		return false, nil
	}

	target, err := up.DialContext(ctx, hostPort)
	if err != nil {
		writeStatus(conn, 502, "Bad Gateway", err.Error())
		return false, nil
	}

	if _, err := io.WriteString(conn, "HTTP/1.1 200 OK\r\n\r\n"); err != nil {
		target.Close()
		return true, err
	}

	if residual := r.Buffered(); len(residual) > 0 {
		if _, err := target.Write(residual); err != nil {
			target.Close()
			return true, err
		}
	}
	defer target.Close()

	return true, splice.Bidirectional(ctx, conn, target)
}

func handleForward(ctx context.Context, conn net.Conn, r *httpwire.Reader, req httpwire.Request, up Upstream) error {
	hostPort, ok := httpwire.Authority(req.Line.Target, defaultHTTPPort)
	if !ok {
		writeStatus(conn, 400, "Bad Request", "")
		return nil
	}

	httpwire.Transform(&req)

	target, err := up.DialContext(ctx, hostPort)
	if err != nil {
		writeStatus(conn, 502, "Bad Gateway", err.Error())
		return nil
	}
	defer target.Close()

	if err := forwardRequestResponse(conn, r, target, req); err != nil {
		writeStatus(conn, 500, "Internal Server Error", err.Error())
		return nil
	}
	return nil
}

// forwardRequestResponse writes req to target, relays its body, reads the
// upstream response, and relays the response back to conn unchanged.
func forwardRequestResponse(conn net.Conn, r *httpwire.Reader, target net.Conn, req httpwire.Request) error {
	if _, err := req.WriteTo(target); err != nil {
		return fmt.Errorf("write request to upstream: %w", err)
	}
	if err := copyBody(target, r, req.Headers, false); err != nil {
		return fmt.Errorf("relay request body: %w", err)
	}

	targetReader := httpwire.NewReader(target)
	defer targetReader.Release()
	resp, err := targetReader.ReadResponse()
	if err != nil {
		return fmt.Errorf("read upstream response: %w", err)
	}

	if _, err := resp.WriteTo(conn); err != nil {
		return fmt.Errorf("write response to client: %w", err)
	}
	if err := copyBody(conn, targetReader, resp.Headers, true); err != nil {
		return fmt.Errorf("relay response body: %w", err)
	}
	return nil
}

// copyBody relays a message body from src to dst. A Content-Length governs
// a fixed-size body; a chunked Transfer-Encoding is decoded chunk-by-chunk
// and its framing forwarded verbatim via CopyChunked, so relaying stops at
// the real end of body instead of waiting on a connection close that
// keep-alive upstreams never send. Absent both headers, a request has no
// body (isResponse false); a response is close-delimited and is relayed
// until src reaches EOF, bounded by maxUnframedBodyBytes as a safety net.
func copyBody(dst io.Writer, src *httpwire.Reader, headers httpwire.Headers, isResponse bool) error {
	if cl, ok := headers.Get("Content-Length"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid Content-Length %q", cl)
		}
		if n == 0 {
			return nil
		}
		_, err = io.CopyN(dst, src, n)
		return err
	}
	if enc, ok := headers.Get("Transfer-Encoding"); ok && strings.Contains(strings.ToLower(enc), "chunked") {
		return src.CopyChunked(dst)
	}
	if !isResponse {
		return nil
	}
	var lr internal.LimitedReader
	lr.Init(src, maxUnframedBodyBytes)
	_, err := io.Copy(dst, &lr)
	return err
}

func writeStatus(conn net.Conn, code int, reason, body string) {
	resp := httpwire.Response{
		Line: httpwire.StatusLine{Version: "HTTP/1.1", Code: code, Reason: reason},
		Headers: httpwire.Headers{
			{Name: "Content-Type", Value: "text/plain"},
			{Name: "Content-Length", Value: strconv.Itoa(len(body))},
		},
	}
	resp.WriteTo(conn)
	io.WriteString(conn, body)
}
