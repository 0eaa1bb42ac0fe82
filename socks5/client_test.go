package socks5_test

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/33TU/proxyd/socks5"
)

func startMockSOCKS5Server(t *testing.T, handle func(net.Conn)) (string, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()
	return ln.Addr().String(), func() { ln.Close() }
}

func TestClient_DialContext_Success(t *testing.T) {
	proxyAddr, stop := startMockSOCKS5Server(t, func(c net.Conn) {
		defer c.Close()
		var hs socks5.HandshakeRequest
		if _, err := hs.ReadFrom(c); err != nil {
			t.Errorf("server: read handshake: %v", err)
			return
		}
		hsReply := &socks5.HandshakeReply{}
		hsReply.Init(socks5.SocksVersion, socks5.MethodNoAuth)
		hsReply.WriteTo(c)

		var req socks5.Request
		if _, err := req.ReadFrom(c); err != nil {
			t.Errorf("server: read request: %v", err)
			return
		}
		if req.Command != socks5.CmdConnect {
			t.Errorf("server: expected CONNECT, got %v", req.Command)
			return
		}
		reply := socks5.NewReply(socks5.RepSuccess)
		reply.WriteTo(c)

		buf := make([]byte, 4)
		if _, err := io.ReadFull(c, buf); err != nil {
			return
		}
		c.Write([]byte("pong"))
	})
	defer stop()

	client := &socks5.Client{ProxyAddr: proxyAddr}
	conn, err := client.DialContext(context.Background(), "tcp", "127.0.0.1:1234")
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "pong" {
		t.Fatalf("got %q, want %q", buf, "pong")
	}
}

func TestClient_DialContext_Rejected(t *testing.T) {
	proxyAddr, stop := startMockSOCKS5Server(t, func(c net.Conn) {
		defer c.Close()
		var hs socks5.HandshakeRequest
		hs.ReadFrom(c)
		hsReply := &socks5.HandshakeReply{}
		hsReply.Init(socks5.SocksVersion, socks5.MethodNoAuth)
		hsReply.WriteTo(c)

		var req socks5.Request
		req.ReadFrom(c)
		reply := socks5.NewReply(socks5.RepGeneralFailure)
		reply.WriteTo(c)
	})
	defer stop()

	client := &socks5.Client{ProxyAddr: proxyAddr}
	_, err := client.DialContext(context.Background(), "tcp", "127.0.0.1:9999")
	if err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Fatalf("expected a rejection error, got %v", err)
	}
}

func TestClient_DialContext_NoAcceptableMethod(t *testing.T) {
	proxyAddr, stop := startMockSOCKS5Server(t, func(c net.Conn) {
		defer c.Close()
		var hs socks5.HandshakeRequest
		hs.ReadFrom(c)
		hsReply := &socks5.HandshakeReply{}
		hsReply.Init(socks5.SocksVersion, socks5.MethodNoAcceptable)
		hsReply.WriteTo(c)
	})
	defer stop()

	client := &socks5.Client{ProxyAddr: proxyAddr}
	_, err := client.DialContext(context.Background(), "tcp", "127.0.0.1:9999")
	if err == nil {
		t.Fatal("expected an error when the proxy rejects no-auth")
	}
}
