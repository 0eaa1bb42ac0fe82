package socks4

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"unicode/utf8"

	"github.com/33TU/proxyd/internal/decode"
	"github.com/33TU/proxyd/socksaddr"
)

var (
	ErrInvalidVersion = errors.New("invalid SOCKS version (must be 4)")
	ErrInvalidCommand = errors.New("invalid command (must be 1=CONNECT or 2=BIND)")
	ErrInvalidIP      = errors.New("invalid IP (must be IPv4)")
	ErrInvalidDomain  = errors.New("invalid SOCKS4a domain usage")
	ErrFieldTooLong   = errors.New("socks4: USERID or DOMAIN field exceeds configured limit")
	ErrInvalidUTF8    = errors.New("socks4: USERID or DOMAIN field is not valid UTF-8")
)

// Request represents a SOCKS4 or SOCKS4a CONNECT/BIND request.
type Request struct {
	Version byte              // VN; SOCKS protocol version (should always be 4)
	Command byte              // CD; command code (1 = CONNECT, 2 = BIND)
	Address socksaddr.Address // DSTPORT/DSTIP, or 0.0.0.x + DOMAIN for SOCKS4a
	UserID  string            // USERID; null-terminated user identifier
}

// isV4aTrigger reports whether ip is the reserved 0.0.0.1-0.0.0.255 range
// that signals a SOCKS4a request carrying a trailing domain name.
func isV4aTrigger(ip net.IP) bool {
	ip4 := ip.To4()
	return ip4 != nil && ip4[0] == 0 && ip4[1] == 0 && ip4[2] == 0 && ip4[3] != 0
}

// IsSOCKS4a returns true if the request is a SOCKS4a request.
func (r *Request) IsSOCKS4a() bool {
	return r.Address.Kind == socksaddr.KindDomain
}

// GetHost returns the destination host.
func (r *Request) GetHost() string {
	return r.Address.Host()
}

// Init initializes a SOCKS4 or SOCKS4a CONNECT/BIND request.
func (r *Request) Init(version, command byte, port uint16, ip net.IP, userID string, domain string) {
	r.Version = version
	r.Command = command
	r.UserID = userID
	if domain != "" {
		r.Address = socksaddr.Domain(domain, port)
	} else {
		r.Address = socksaddr.V4(ip, port)
	}
}

// ValidateHeader validates the fixed 8-byte SOCKS4 header fields.
func (r *Request) ValidateHeader() error {
	if r.Version != SocksVersion {
		return ErrInvalidVersion
	}
	if r.Command != CmdConnect && r.Command != CmdBind {
		return ErrInvalidCommand
	}
	if r.Address.Kind == socksaddr.KindV4 {
		ip := r.Address.IP
		if ip == nil {
			return ErrInvalidIP
		}
		if ip.Equal(net.IPv4zero) && r.Command == CmdConnect {
			return ErrInvalidIP
		}
	}
	return nil
}

// ValidateDomain checks that a DOMAIN field is present exactly when the
// SOCKS4a trigger address requires it.
func (r *Request) ValidateDomain() error {
	if r.Address.Kind == socksaddr.KindDomain && r.Address.Domain == "" {
		return ErrInvalidDomain
	}
	return nil
}

// Validate validates the full SOCKS4 or SOCKS4a request.
func (r *Request) Validate() error {
	if err := r.ValidateHeader(); err != nil {
		return err
	}
	return r.ValidateDomain()
}

type header4 struct {
	command byte
	port    uint16
	ip      net.IP
}

func decodeHeader4(buf []byte) (header4, int, error) {
	if len(buf) < 8 {
		return header4{}, 0, decode.ErrNeedMoreData
	}
	if buf[0] != SocksVersion {
		return header4{}, 0, ErrInvalidVersion
	}
	h := header4{
		command: buf[1],
		port:    binary.BigEndian.Uint16(buf[2:4]),
		ip:      net.IP(append([]byte(nil), buf[4:8]...)),
	}
	return h, 8, nil
}

// cstring returns the NUL-terminated string at the front of buf (excluding
// the NUL) and its consumed length including the terminator, or
// decode.ErrNeedMoreData if no NUL has arrived yet within maxLen+1 bytes.
func cstring(buf []byte, maxLen int) (string, int, error) {
	limit := maxLen + 1
	if limit > len(buf) {
		limit = len(buf)
	}
	i := bytes.IndexByte(buf[:limit], 0x00)
	if i < 0 {
		if len(buf) > maxLen {
			return "", 0, ErrFieldTooLong
		}
		return "", 0, decode.ErrNeedMoreData
	}
	if !utf8.Valid(buf[:i]) {
		return "", 0, ErrInvalidUTF8
	}
	return string(buf[:i]), i + 1, nil
}

// DecodeRequest incrementally decodes a SOCKS4/4a request from r, pulling
// additional bytes as needed. maxUserIDLen and maxDomainLen bound the two
// NUL-terminated string fields; DefaultMaxUserIDLen/DefaultMaxDomainLen are
// reasonable defaults.
func DecodeRequest(r *decode.Reader, maxUserIDLen, maxDomainLen int) (Request, error) {
	var req Request
	var hdr header4

	frame, err := r.Decode(func(buf []byte) (int, error) {
		h, n, err := decodeHeader4(buf)
		if err != nil {
			return 0, err
		}
		hdr = h
		rest := buf[n:]

		userEnd := 0
		if _, ue, err := cstring(rest, maxUserIDLen); err != nil {
			return 0, err
		} else {
			userEnd = ue
		}

		total := n + userEnd
		if isV4aTrigger(hdr.ip) {
			if _, de, err := cstring(rest[userEnd:], maxDomainLen); err != nil {
				return 0, err
			} else {
				total += de
			}
		}
		return total, nil
	})
	if err != nil {
		return Request{}, err
	}

	rest := frame[8:]
	userID, userN, _ := cstring(rest, maxUserIDLen)
	rest = rest[userN:]

	req.Version = SocksVersion
	req.Command = hdr.command
	req.UserID = userID

	if isV4aTrigger(hdr.ip) {
		domain, _, _ := cstring(rest, maxDomainLen)
		req.Address = socksaddr.Domain(domain, hdr.port)
	} else {
		req.Address = socksaddr.V4(hdr.ip, hdr.port)
	}

	return req, req.Validate()
}

// ReadFrom reads a SOCKS4 or SOCKS4a CONNECT/BIND request from src.
// Implements the io.ReaderFrom interface.
func (r *Request) ReadFrom(src io.Reader) (int64, error) {
	dr := decode.NewReader(src, 256)
	req, err := DecodeRequest(dr, DefaultMaxUserIDLen, DefaultMaxDomainLen)
	if err != nil {
		return 0, err
	}
	*r = req
	return int64(8 + len(req.UserID) + 1 + domainWireLen(req)), nil
}

func domainWireLen(r Request) int {
	if r.Address.Kind == socksaddr.KindDomain {
		return len(r.Address.Domain) + 1
	}
	return 0
}

// WriteTo writes a SOCKS4 or SOCKS4a CONNECT/BIND request to dst.
// Implements the io.WriterTo interface.
func (r *Request) WriteTo(dst io.Writer) (int64, error) {
	var (
		hdr   [8]byte
		total int64
	)

	hdr[0] = r.Version
	hdr[1] = r.Command
	binary.BigEndian.PutUint16(hdr[2:4], r.Address.Port)
	if r.Address.Kind == socksaddr.KindDomain {
		copy(hdr[4:8], []byte{0, 0, 0, 1})
	} else {
		copy(hdr[4:8], r.Address.IP.To4())
	}

	n, err := dst.Write(hdr[:])
	total += int64(n)
	if err != nil {
		return total, err
	}

	ns, err := writeCString(dst, r.UserID)
	total += ns
	if err != nil {
		return total, err
	}

	if r.Address.Kind == socksaddr.KindDomain {
		ns, err := writeCString(dst, r.Address.Domain)
		total += ns
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func writeCString(dst io.Writer, s string) (int64, error) {
	var total int64
	if len(s) != 0 {
		n, err := io.WriteString(dst, s)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err := dst.Write([]byte{0})
	total += int64(n)
	return total, err
}

// String returns a string representation of the SOCKS4(a) Request.
func (r *Request) String() string {
	var cmd string
	switch r.Command {
	case CmdConnect:
		cmd = "CONNECT"
	case CmdBind:
		cmd = "BIND"
	default:
		cmd = fmt.Sprintf("UNKNOWN(0x%02x)", r.Command)
	}

	return fmt.Sprintf(
		"SOCKS4 Request{Cmd=%s, Dest=%s, UserID=%q, Version=%d}",
		cmd, r.Address.String(), r.UserID, r.Version,
	)
}
