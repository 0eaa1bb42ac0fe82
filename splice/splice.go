// Package splice implements the bidirectional byte pump shared by every
// provider once a destination connection is established, with half-close
// propagation so one side finishing doesn't hang the other.
package splice

import (
	"context"
	"io"
	"net"
)

// halfCloser is satisfied by *net.TCPConn and similar stream types that
// support shutting down only the write half.
type halfCloser interface {
	CloseWrite() error
}

// Bidirectional copies data between a and b in both directions until one
// side reaches EOF, propagating a half-close (CloseWrite) to the other
// side's peer rather than tearing down the whole connection immediately,
// then waits for the opposite direction to finish or ctx to be canceled.
//
// It returns the first non-EOF error observed, or nil if both directions
// ended in EOF.
func Bidirectional(ctx context.Context, a, b net.Conn) error {
	errc := make(chan error, 2)

	go func() { errc <- copyHalf(b, a) }()
	go func() { errc <- copyHalf(a, b) }()

	var firstErr error
	for i := 0; i < 2; i++ {
		select {
		case err := <-errc:
			if err != nil && firstErr == nil {
				firstErr = err
			}
		case <-ctx.Done():
			a.Close()
			b.Close()
			if firstErr == nil {
				firstErr = ctx.Err()
			}
		}
	}
	return firstErr
}

// copyHalf copies src to dst until src returns EOF, then half-closes dst's
// write side (or closes dst outright if it does not support CloseWrite).
func copyHalf(dst, src net.Conn) error {
	_, err := io.Copy(dst, src)
	if hc, ok := dst.(halfCloser); ok {
		hc.CloseWrite()
	} else {
		dst.Close()
	}
	return err
}
