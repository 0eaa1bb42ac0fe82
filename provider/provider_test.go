package provider_test

import (
	"context"
	"io"
	"net"
	"strconv"
	"testing"

	"github.com/33TU/proxyd/dialer"
	"github.com/33TU/proxyd/provider"
	"github.com/33TU/proxyd/socks4"
)

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := provider.New("carrier-pigeon", dialer.New()); err == nil {
		t.Fatal("expected an error for an unknown provider name")
	}
}

func TestNew_KnownProviders(t *testing.T) {
	for _, name := range []string{"http", "socks"} {
		if _, err := provider.New(name, dialer.New()); err != nil {
			t.Fatalf("provider %q: %v", name, err)
		}
	}
}

func TestSocksProvider_DispatchesV4(t *testing.T) {
	echoLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("echo listen: %v", err)
	}
	defer echoLn.Close()
	go func() {
		c, err := echoLn.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		io.Copy(c, c)
	}()

	p, err := provider.New("socks", dialer.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	client, server := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Handle(ctx, server) }()

	host, portStr, _ := net.SplitHostPort(echoLn.Addr().String())
	port, _ := strconv.Atoi(portStr)

	var req socks4.Request
	req.Init(socks4.SocksVersion, socks4.CmdConnect, uint16(port), net.ParseIP(host), "", "")
	if _, err := req.WriteTo(client); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	var reply socks4.Reply
	if _, err := reply.ReadFrom(client); err != nil {
		t.Fatalf("ReadFrom reply: %v", err)
	}
	if !reply.IsGranted() {
		t.Fatal("expected request to be granted")
	}

	client.Close()
	<-done
}
