// Package dialer implements the resolve-and-race outbound connection
// engine. It is the one place upstream TCP sockets get created, whichever
// provider is in use.
package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
)

// ErrNoCandidates is returned when resolution of a target yields no
// addresses to attempt.
var ErrNoCandidates = errors.New("dialer: no addresses to dial")

// Dialer resolves destinations and races TCP connect attempts across the
// resolved candidates, optionally binding outbound sockets to a fixed
// source address. A zero Dialer is ready to use; construct one with New or
// NewWithBind. Once built, a Dialer is immutable and safe for concurrent
// use by many connections.
type Dialer struct {
	bind     net.Addr
	resolver *net.Resolver
}

// New returns a Dialer with no source-address binding.
func New() *Dialer {
	return &Dialer{resolver: net.DefaultResolver}
}

// NewWithBind resolves source to a single socket address (first
// resolution wins) and returns a Dialer that binds every outbound socket to
// it. It fails if source does not resolve to at least one address.
func NewWithBind(ctx context.Context, source string) (*Dialer, error) {
	d := New()
	host, port, err := net.SplitHostPort(source)
	if err != nil {
		// Allow a bare host with no port: bind address, port left to the OS.
		host, port = source, "0"
	}
	ips, err := d.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dialer: resolve bind address %q: %w", source, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("dialer: resolve bind address %q: %w", source, ErrNoCandidates)
	}
	p, err := net.LookupPort("tcp", port)
	if err != nil {
		return nil, fmt.Errorf("dialer: invalid bind port in %q: %w", source, err)
	}
	d.bind = &net.TCPAddr{IP: ips[0].IP, Zone: ips[0].Zone, Port: p}
	return d, nil
}

// DialContext resolves host:port (or uses the address directly when it is
// already a literal "host:port" pair) and races a connect attempt per
// candidate address, returning the first stream to connect successfully.
// The losing attempts are cancelled. If every candidate fails, the last
// error observed is returned.
func (d *Dialer) DialContext(ctx context.Context, hostPort string) (net.Conn, error) {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return nil, fmt.Errorf("dialer: invalid target %q: %w", hostPort, err)
	}
	port, err := net.LookupPort("tcp", portStr)
	if err != nil {
		return nil, fmt.Errorf("dialer: invalid port in %q: %w", hostPort, err)
	}

	candidates, err := d.resolveCandidates(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("dialer: resolve %q: %w", host, ErrNoCandidates)
	}

	return d.race(ctx, candidates, port)
}

// Dial is a target-as-(host,port) convenience over DialContext.
func (d *Dialer) Dial(ctx context.Context, host string, port uint16) (net.Conn, error) {
	return d.DialContext(ctx, net.JoinHostPort(host, fmt.Sprint(port)))
}

func (d *Dialer) resolveCandidates(ctx context.Context, host string) ([]net.IPAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IPAddr{{IP: ip}}, nil
	}
	return d.resolver.LookupIPAddr(ctx, host)
}

// race starts one connect attempt per candidate concurrently via an
// errgroup sharing a cancelable context: the first successful attempt
// cancels the rest and is returned.
func (d *Dialer) race(ctx context.Context, candidates []net.IPAddr, port int) (net.Conn, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan dialResult, len(candidates))

	g, gctx := errgroup.WithContext(raceCtx)
	for _, cand := range candidates {
		cand := cand
		g.Go(func() error {
			conn, err := d.dialOne(gctx, cand, port)
			select {
			case results <- dialResult{conn, err}:
			case <-raceCtx.Done():
				if conn != nil {
					conn.Close()
				}
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() { g.Wait(); close(done) }()

	var lastErr error
	remaining := len(candidates)
	for remaining > 0 {
		select {
		case r := <-results:
			remaining--
			if r.err == nil {
				cancel()
				<-done
				drainConns(results, remaining)
				return r.conn, nil
			}
			lastErr = r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = ErrNoCandidates
	}
	return nil, fmt.Errorf("dialer: all candidates failed: %w", lastErr)
}

// drainConns closes the connections of up to n results already buffered in
// results. Losing attempts that observed the cancellation send nothing, so
// it stops as soon as the buffer is empty instead of waiting for them.
func drainConns(results chan dialResult, n int) {
	for i := 0; i < n; i++ {
		select {
		case r := <-results:
			if r.conn != nil {
				r.conn.Close()
			}
		default:
			return
		}
	}
}

type dialResult struct {
	conn net.Conn
	err  error
}

// dialOne connects to a single resolved candidate, binding the local
// address to d.bind (matching the candidate's address family) when set.
func (d *Dialer) dialOne(ctx context.Context, addr net.IPAddr, port int) (net.Conn, error) {
	nd := &net.Dialer{}
	if d.bind != nil {
		if tcpBind, ok := d.bind.(*net.TCPAddr); ok && sameFamily(tcpBind.IP, addr.IP) {
			nd.LocalAddr = tcpBind
		}
	}
	return nd.DialContext(ctx, "tcp", net.JoinHostPort(addr.IP.String(), fmt.Sprint(port)))
}

func sameFamily(a, b net.IP) bool {
	return (a.To4() != nil) == (b.To4() != nil)
}
