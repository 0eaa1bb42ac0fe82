package socks5_test

import (
	"bytes"
	"errors"
	"net"
	"testing"

	"github.com/33TU/proxyd/socks5"
	"github.com/33TU/proxyd/socksaddr"
)

func TestRequest_WriteTo_ReadFrom_RoundTrip_IPv4(t *testing.T) {
	var orig socks5.Request
	orig.Init(socks5.SocksVersion, socks5.CmdConnect, 0, socksaddr.V4(net.IPv4(93, 184, 216, 34), 80))

	var buf bytes.Buffer
	if _, err := orig.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	var parsed socks5.Request
	if _, err := parsed.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if parsed.Address.Port != 80 || !parsed.Address.IP.Equal(orig.Address.IP) {
		t.Fatalf("mismatch: got %+v, want %+v", parsed.Address, orig.Address)
	}
}

func TestRequest_WriteTo_ReadFrom_RoundTrip_Domain(t *testing.T) {
	var orig socks5.Request
	orig.Init(socks5.SocksVersion, socks5.CmdConnect, 0, socksaddr.Domain("example.com", 443))

	var buf bytes.Buffer
	if _, err := orig.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	var parsed socks5.Request
	if _, err := parsed.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if parsed.Address.Domain != "example.com" || parsed.Address.Port != 443 {
		t.Fatalf("mismatch: got %+v", parsed.Address)
	}
}

func TestRequest_WriteTo_ReadFrom_RoundTrip_IPv6(t *testing.T) {
	var orig socks5.Request
	orig.Init(socks5.SocksVersion, socks5.CmdConnect, 0, socksaddr.V6(net.ParseIP("2001:db8::1"), 53))

	var buf bytes.Buffer
	if _, err := orig.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	var parsed socks5.Request
	if _, err := parsed.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if !parsed.Address.IP.Equal(orig.Address.IP) {
		t.Fatalf("IP mismatch: got %v, want %v", parsed.Address.IP, orig.Address.IP)
	}
}

func TestRequest_Validate_InvalidCommand(t *testing.T) {
	var r socks5.Request
	r.Init(socks5.SocksVersion, 0x09, 0, socksaddr.V4(net.IPv4zero, 0))
	if err := r.Validate(); !errors.Is(err, socks5.ErrInvalidCommand) {
		t.Fatalf("err = %v, want ErrInvalidCommand", err)
	}
}

func TestRequest_Validate_RejectsInvalidIDNADomain(t *testing.T) {
	var r socks5.Request
	r.Init(socks5.SocksVersion, socks5.CmdConnect, 0, socksaddr.Domain("--bad..domain", 80))
	if err := r.Validate(); !errors.Is(err, socks5.ErrInvalidDomain) {
		t.Fatalf("err = %v, want ErrInvalidDomain", err)
	}
}

func TestRequest_ReadFrom_InvalidReservedByte(t *testing.T) {
	data := []byte{5, socks5.CmdConnect, 0x01, socks5.AddrTypeIPv4, 1, 2, 3, 4, 0, 80}
	var r socks5.Request
	if _, err := r.ReadFrom(bytes.NewReader(data)); !errors.Is(err, socks5.ErrInvalidRSV) {
		t.Fatalf("err = %v, want ErrInvalidRSV", err)
	}
}
