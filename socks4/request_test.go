package socks4_test

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/33TU/proxyd/socks4"
	"github.com/33TU/proxyd/socksaddr"
)

func TestRequest_WriteTo_ReadFrom_RoundTrip_IPv4(t *testing.T) {
	var orig socks4.Request
	orig.Init(socks4.SocksVersion, socks4.CmdConnect, 8080, net.IPv4(192, 168, 0, 1), "user123", "")

	var buf bytes.Buffer
	if _, err := orig.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	var parsed socks4.Request
	if _, err := parsed.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	if parsed.UserID != orig.UserID || parsed.Address.Port != orig.Address.Port {
		t.Fatalf("mismatch:\n got  %+v\n want %+v", parsed, orig)
	}
	if parsed.Address.Kind != socksaddr.KindV4 || !parsed.Address.IP.Equal(orig.Address.IP) {
		t.Fatalf("address mismatch: got %v, want %v", parsed.Address, orig.Address)
	}
}

func TestRequest_WriteTo_ReadFrom_RoundTrip_SOCKS4a(t *testing.T) {
	var orig socks4.Request
	orig.Init(socks4.SocksVersion, socks4.CmdConnect, 443, net.IPv4(0, 0, 0, 1), "alice", "example.org")

	var buf bytes.Buffer
	if _, err := orig.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	var parsed socks4.Request
	if _, err := parsed.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	if !parsed.IsSOCKS4a() {
		t.Fatal("expected a SOCKS4a request")
	}
	if parsed.Address.Domain != "example.org" {
		t.Errorf("domain = %q, want %q", parsed.Address.Domain, "example.org")
	}
	if parsed.UserID != "alice" {
		t.Errorf("userid = %q, want %q", parsed.UserID, "alice")
	}
}

func TestRequest_ReadFrom_SplitAcrossReads(t *testing.T) {
	var orig socks4.Request
	orig.Init(socks4.SocksVersion, socks4.CmdConnect, 1080, nil, "bob", "split.example")

	var buf bytes.Buffer
	if _, err := orig.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	r := &chunkedReader{data: buf.Bytes(), step: 1}
	var parsed socks4.Request
	if _, err := parsed.ReadFrom(r); err != nil {
		t.Fatalf("ReadFrom over a byte-at-a-time reader: %v", err)
	}
	if parsed.Address.Domain != "split.example" {
		t.Fatalf("domain = %q, want %q", parsed.Address.Domain, "split.example")
	}
}

func TestRequest_Validate_InvalidVersion(t *testing.T) {
	var r socks4.Request
	r.Init(5, socks4.CmdConnect, 1080, net.IPv4(127, 0, 0, 1), "user", "")
	if err := r.Validate(); !errors.Is(err, socks4.ErrInvalidVersion) {
		t.Fatalf("err = %v, want ErrInvalidVersion", err)
	}
}

func TestRequest_ReadFrom_TruncatedUserID(t *testing.T) {
	data := []byte{4, 1, 0x1F, 0x90, 127, 0, 0, 1, 'u'} // no NUL terminator, stream ends
	var r socks4.Request
	_, err := r.ReadFrom(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected an error for a truncated userid field")
	}
}

func TestRequest_ReadFrom_InvalidUTF8UserID(t *testing.T) {
	data := []byte{4, 1, 0x1F, 0x90, 127, 0, 0, 1, 0xFF, 0xFE, 0x00} // invalid UTF-8 userid, then NUL
	var r socks4.Request
	_, err := r.ReadFrom(bytes.NewReader(data))
	if !errors.Is(err, socks4.ErrInvalidUTF8) {
		t.Fatalf("err = %v, want ErrInvalidUTF8", err)
	}
}

func TestRequest_ReadFrom_InvalidUTF8Domain(t *testing.T) {
	data := []byte{4, 1, 0x1F, 0x90, 0, 0, 0, 1, 0x00, 0xFF, 0xFE, 0x00} // empty userid, invalid UTF-8 domain
	var r socks4.Request
	_, err := r.ReadFrom(bytes.NewReader(data))
	if !errors.Is(err, socks4.ErrInvalidUTF8) {
		t.Fatalf("err = %v, want ErrInvalidUTF8", err)
	}
}

// chunkedReader serves data step bytes at a time, to exercise the
// incremental decode path against partial reads.
type chunkedReader struct {
	data []byte
	step int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.step
	if n > len(p) {
		n = len(p)
	}
	if n > len(c.data) {
		n = len(c.data)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}
