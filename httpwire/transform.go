package httpwire

import (
	"net"
	"net/url"
	"strings"
)

// hop-by-hop proxy headers stripped from a forwarded request.
var hopByHopHeaders = []string{"Proxy-Connection", "Proxy-Authorization"}

// Authority reports the request-target's host:port, defaulting the port to
// defaultPort when the target carries none. ok is false when the target has
// no authority component (a bare origin-form path through a forward proxy).
//
// target may be authority-form (CONNECT's bare "host:port", no scheme) or
// absolute-form ("scheme://host[:port]/path?query").
func Authority(target string, defaultPort string) (hostPort string, ok bool) {
	if !strings.Contains(target, "/") {
		if host, port, err := net.SplitHostPort(target); err == nil {
			return net.JoinHostPort(host, port), true
		}
	}

	u, err := url.ParseRequestURI(target)
	if err != nil || u.Host == "" {
		return "", false
	}
	if host, port, err := net.SplitHostPort(u.Host); err == nil {
		return net.JoinHostPort(host, port), true
	}
	return net.JoinHostPort(u.Host, defaultPort), true
}

// Transform rewrites req from absolute-form to origin-form and strips
// hop-by-hop proxy headers. It is idempotent: applying it to an
// already-transformed request is a no-op.
func Transform(req *Request) {
	req.Line.Target = originForm(req.Line.Target)

	headers := req.Headers
	for _, name := range hopByHopHeaders {
		headers = headers.Del(name)
	}
	req.Headers = headers
}

// originForm reduces an absolute-form target to its path+query, leaving an
// already-origin-form or empty target unchanged. An absolute-form target
// with neither path nor query becomes the empty string.
func originForm(target string) string {
	if target == "" {
		return target
	}
	if strings.HasPrefix(target, "/") {
		return target
	}
	u, err := url.ParseRequestURI(target)
	if err != nil {
		return target
	}
	out := u.EscapedPath()
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}
