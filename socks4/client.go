package socks4

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

// Client dials through a SOCKS4/4a proxy using CONNECT. It exists as a
// test-driving and library-user helper alongside the server-side Handle;
// the proxy itself only ever plays the server role.
type Client struct {
	ProxyAddr string   // e.g. "127.0.0.1:1080"
	UserID    string   // optional SOCKS4 user ID
	DialFunc  DialFunc // optional underlying dialer (nil=DefaultDialer)
}

// NewClient creates a new SOCKS4 client instance.
func NewClient(proxyAddr, userID string, dialFunc DialFunc) *Client {
	return &Client{ProxyAddr: proxyAddr, UserID: userID, DialFunc: dialFunc}
}

// DialContext establishes a connection via a SOCKS4/4a proxy (CMD_CONNECT).
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

	var req Request
	req.Version = SocksVersion
	req.Command = CmdConnect
	req.UserID = c.UserID
	if ip := net.ParseIP(host); ip != nil {
		req.Address = socksaddr.V4(ip, port)
	} else {
		req.Address = socksaddr.Domain(host, port)
	}

	if _, err := req.WriteTo(proxyConn); err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp Reply
	if _, err := resp.ReadFrom(proxyConn); err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if !resp.IsGranted() {
		proxyConn.Close()
		return nil, fmt.Errorf("proxy rejected request (code 0x%02x)", resp.Code)
	}

	return proxyConn, nil
}

// Dial establishes a connection via a SOCKS4/4a proxy (CMD_CONNECT) with a
// background context.
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
