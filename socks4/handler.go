// Package socks4 implements the server and client sides of SOCKS4 and
// SOCKS4a CONNECT, built around a shared Dialer and the Provider.Handle
// shape used by every transport in this proxy.
package socks4

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/33TU/proxyd/internal/decode"
	"github.com/33TU/proxyd/splice"
)

// Upstream is the subset of dialer.Dialer that Handle needs; satisfied by
// *dialer.Dialer.
type Upstream interface {
	DialContext(ctx context.Context, hostPort string) (net.Conn, error)
}

// RequestReadTimeout bounds how long Handle waits for the client's initial
// request before giving up. Zero disables the deadline.
var RequestReadTimeout = defaultRequestReadTimeout

const defaultRequestReadTimeout time.Duration = 0

// Handle drives one SOCKS4/4a server connection end to end: read the
// request, dial the destination through up, reply, then splice. BIND is
// always rejected (Non-goal); CONNECT failures get RepRejected.
func Handle(ctx context.Context, conn net.Conn, up Upstream) error {
	if RequestReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(RequestReadTimeout))
	}
	dr := decode.NewReader(conn, 256)
	req, err := DecodeRequest(dr, DefaultMaxUserIDLen, DefaultMaxDomainLen)
	if err != nil {
		return err
	}
	if RequestReadTimeout > 0 {
		conn.SetReadDeadline(time.Time{})
	}

	if req.Command != CmdConnect {
		reply := NewReply(RepRejected)
		reply.WriteTo(conn)
		return errors.New("socks4: BIND is not supported")
	}

	target, err := up.DialContext(ctx, req.Address.HostPort())
	if err != nil {
		reply := NewReply(RepRejected)
		reply.WriteTo(conn)
		return err
	}
	defer target.Close()

	reply := NewReply(RepGranted)
	if _, err := reply.WriteTo(conn); err != nil {
		return err
	}

	if residual := dr.Residual(); len(residual) > 0 {
		if _, err := target.Write(residual); err != nil {
			return err
		}
	}

	return splice.Bidirectional(ctx, conn, target)
}
