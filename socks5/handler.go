// Package socks5 implements the server and client sides of SOCKS5's no-auth
// method negotiation and CONNECT command, built around a shared Dialer and
// the Provider.Handle shape used by every transport in this proxy.
package socks5

import (
	"context"
	"errors"
	"net"

	"github.com/33TU/proxyd/splice"
)

// Upstream is the subset of dialer.Dialer that Handle needs; satisfied by
// *dialer.Dialer.
type Upstream interface {
	DialContext(ctx context.Context, hostPort string) (net.Conn, error)
}

// Handle drives one SOCKS5 server connection end to end: negotiate the
// no-auth method, read the request, dial the destination through up, reply,
// then splice. BIND and UDP ASSOCIATE are always rejected with
// RepCommandNotSupported (Non-goal).
func Handle(ctx context.Context, conn net.Conn, up Upstream) error {
	var hs HandshakeRequest
	if _, err := hs.ReadFrom(conn); err != nil {
		return err
	}

	if !hs.Offers(MethodNoAuth) {
		reply := &HandshakeReply{}
		reply.Init(SocksVersion, MethodNoAcceptable)
		reply.WriteTo(conn)
		return errors.New("socks5: client did not offer no-auth method")
	}

	hsReply := &HandshakeReply{}
	hsReply.Init(SocksVersion, MethodNoAuth)
	if _, err := hsReply.WriteTo(conn); err != nil {
		return err
	}

	var req Request
	if _, err := req.ReadFrom(conn); err != nil {
		return err
	}

	if req.Command != CmdConnect {
		reply := NewReply(RepCommandNotSupported)
		reply.WriteTo(conn)
		return errors.New("socks5: only CONNECT is supported")
	}

	target, err := up.DialContext(ctx, req.Address.HostPort())
	if err != nil {
		reply := NewReply(RepGeneralFailure)
		reply.WriteTo(conn)
		return err
	}
	defer target.Close()

	reply := NewReply(RepSuccess)
	if _, err := reply.WriteTo(conn); err != nil {
		return err
	}

	return splice.Bidirectional(ctx, conn, target)
}
