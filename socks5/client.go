package socks5

import (
	"context"
	"fmt"
	"net"

	"github.com/33TU/proxyd/socksaddr"
)

// DefaultDialer is the default underlying dialer, used when Client.DialFunc is nil.
var DefaultDialer = (&net.Dialer{}).DialContext

// DialFunc is a function compatible with net.Dialer.DialContext.
type DialFunc = func(ctx context.Context, network, address string) (net.Conn, error)

// Client dials through a SOCKS5 proxy using the no-auth handshake and
// CONNECT. It exists as a test-driving and library-user helper alongside
// the server-side Handle; the proxy itself only ever plays the server role.
type Client struct {
	ProxyAddr string   // e.g. "127.0.0.1:1080"
	DialFunc  DialFunc // optional underlying dialer (nil=DefaultDialer)
}

// NewClient creates a new SOCKS5 client instance.
func NewClient(proxyAddr string, dialFunc DialFunc) *Client {
	return &Client{ProxyAddr: proxyAddr, DialFunc: dialFunc}
}

// DialContext establishes a connection via a SOCKS5 proxy using the no-auth
// method and CMD_CONNECT.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	dialFunc := c.DialFunc
	if dialFunc == nil {
		dialFunc = DefaultDialer
	}

	proxyConn, err := dialFunc(ctx, network, c.ProxyAddr)
	if err != nil {
		return nil, fmt.Errorf("connect to proxy: %w", err)
	}

	exitCh := make(chan struct{})
	defer close(exitCh)
	go func() {
		select {
		case <-ctx.Done():
			proxyConn.Close()
		case <-exitCh:
		}
	}()

	hs := &HandshakeRequest{}
	hs.Init(SocksVersion, MethodNoAuth)
	if _, err := hs.WriteTo(proxyConn); err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("send handshake: %w", err)
	}

	var hsReply HandshakeReply
	if _, err := hsReply.ReadFrom(proxyConn); err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("read handshake reply: %w", err)
	}
	if hsReply.Method != MethodNoAuth {
		proxyConn.Close()
		return nil, fmt.Errorf("proxy rejected no-auth (method 0x%02x)", hsReply.Method)
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("invalid target address: %w", err)
	}
	port, err := parsePort(portStr)
	if err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("invalid target port %q: %w", portStr, err)
	}

	var addr socksaddr.Address
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() != nil {
			addr = socksaddr.V4(ip, port)
		} else {
			addr = socksaddr.V6(ip, port)
		}
	} else {
		addr = socksaddr.Domain(host, port)
	}

	var req Request
	req.Init(SocksVersion, CmdConnect, 0, addr)
	if _, err := req.WriteTo(proxyConn); err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("send request: %w", err)
	}

	var reply Reply
	if _, err := reply.ReadFrom(proxyConn); err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if reply.Reply != RepSuccess {
		proxyConn.Close()
		return nil, fmt.Errorf("proxy rejected request (code 0x%02x)", reply.Reply)
	}

	return proxyConn, nil
}

// Dial establishes a connection via a SOCKS5 proxy with a background context.
func (c *Client) Dial(network, address string) (net.Conn, error) {
	return c.DialContext(context.Background(), network, address)
}

func parsePort(p string) (uint16, error) {
	n, err := net.LookupPort("tcp", p)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}
