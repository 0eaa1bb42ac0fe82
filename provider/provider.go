// Package provider resolves a configured protocol name to the handler
// responsible for driving one accepted connection end to end, behind a
// single narrow interface so the listener glue in cmd/proxyd never needs
// to know which protocol it is serving.
package provider

import (
	"context"
	"fmt"
	"net"

	"github.com/33TU/proxyd/dialer"
	"github.com/33TU/proxyd/httpproxy"
	"github.com/33TU/proxyd/socks4"
	"github.com/33TU/proxyd/socks5"
)

// Provider converts one accepted connection into a full proxy session.
type Provider interface {
	Handle(ctx context.Context, conn net.Conn) error
}

// New resolves name ("http" or "socks") to a Provider backed by d. It
// returns a configuration error for any other name.
func New(name string, d *dialer.Dialer) (Provider, error) {
	switch name {
	case "http":
		return httpProvider{d}, nil
	case "socks":
		return socksProvider{d}, nil
	default:
		return nil, fmt.Errorf("provider: unknown provider %q (want \"http\" or \"socks\")", name)
	}
}

type httpProvider struct {
	d *dialer.Dialer
}

func (p httpProvider) Handle(ctx context.Context, conn net.Conn) error {
	return httpproxy.Handle(ctx, conn, p.d)
}

// socksProvider dispatches on the SOCKS version byte before handing the
// still-attached stream to the matching handler. The
// consumed version byte is replayed via prefixedConn, since both
// socks4.Handle and socks5.Handle read their own version byte off the wire
// first.
type socksProvider struct {
	d *dialer.Dialer
}

func (p socksProvider) Handle(ctx context.Context, conn net.Conn) error {
	var version [1]byte
	if _, err := conn.Read(version[:]); err != nil {
		return fmt.Errorf("provider: read SOCKS version byte: %w", err)
	}

	// Both socks4.Handle and socks5.Handle decode the version byte as part
	// of their own request framing, so the byte already consumed above is
	// replayed in front of the rest of the stream rather than dropped.
	replayed := &prefixedConn{Conn: conn, prefix: version[:]}

	switch version[0] {
	case socks4.SocksVersion:
		return socks4.Handle(ctx, replayed, p.d)
	case socks5.SocksVersion:
		return socks5.Handle(ctx, replayed, p.d)
	default:
		return fmt.Errorf("provider: unsupported SOCKS version 0x%02x", version[0])
	}
}

// prefixedConn replays a handful of already-consumed bytes in front of the
// wrapped conn's remaining stream.
type prefixedConn struct {
	net.Conn
	prefix []byte
}

func (c *prefixedConn) Read(p []byte) (int, error) {
	if len(c.prefix) > 0 {
		n := copy(p, c.prefix)
		c.prefix = c.prefix[n:]
		return n, nil
	}
	return c.Conn.Read(p)
}
