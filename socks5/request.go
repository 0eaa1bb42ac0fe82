package socks5

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"golang.org/x/net/idna"

	"github.com/33TU/proxyd/socksaddr"
)

// Common validation errors.
var (
	ErrInvalidVersion = errors.New("invalid SOCKS version (must be 5)")
	ErrInvalidCommand = errors.New("invalid command (must be 1=CONNECT, 2=BIND or 3=UDP ASSOCIATE)")
	ErrInvalidAddr    = errors.New("invalid address or address type")
	ErrInvalidDomain  = errors.New("invalid domain (empty, too long, or not a valid IDNA hostname)")
	ErrInvalidRSV     = errors.New("invalid reserved byte (must be 0x00)")
)

// Request represents a SOCKS5 CONNECT/BIND/UDP ASSOCIATE request.
type Request struct {
	Version  byte // VER; SOCKS protocol version (always 5)
	Command  byte // CMD; CONNECT, BIND or UDP ASSOCIATE
	Reserved byte // RSV; reserved byte (must be 0x00)

	Address socksaddr.Address // DST.ADDR / DST.PORT
}

// AddrType returns the ATYP byte implied by Address.Kind.
func (r *Request) AddrType() byte {
	switch r.Address.Kind {
	case socksaddr.KindV4:
		return AddrTypeIPv4
	case socksaddr.KindV6:
		return AddrTypeIPv6
	default:
		return AddrTypeDomain
	}
}

// Init initializes a SOCKS5 request.
func (r *Request) Init(version, command, reserved byte, addr socksaddr.Address) {
	r.Version = version
	r.Command = command
	r.Reserved = reserved
	r.Address = addr
}

// ValidateHeader validates the fixed SOCKS5 request fields.
func (r *Request) ValidateHeader() error {
	if r.Version != SocksVersion {
		return ErrInvalidVersion
	}
	if r.Reserved != 0x00 {
		return ErrInvalidRSV
	}
	switch r.Command {
	case CmdConnect, CmdBind, CmdUDPAssociate:
	default:
		return ErrInvalidCommand
	}
	return nil
}

// Validate validates the full SOCKS5 request, including an IDNA check on
// domain names so garbage hostnames are rejected before a dial is ever
// attempted.
func (r *Request) Validate() error {
	if err := r.ValidateHeader(); err != nil {
		return err
	}
	if r.Address.Kind == socksaddr.KindDomain {
		d := r.Address.Domain
		if len(d) == 0 || len(d) > 255 {
			return ErrInvalidDomain
		}
		if _, err := idna.Lookup.ToASCII(d); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDomain, err)
		}
	} else if r.Address.IP == nil {
		return ErrInvalidAddr
	}
	return nil
}

// ReadFrom reads a SOCKS5 request from src.
// Implements the io.ReaderFrom interface.
func (r *Request) ReadFrom(src io.Reader) (int64, error) {
	var (
		total int64
		hdr   [4]byte
	)

	n, err := io.ReadFull(src, hdr[:])
	total += int64(n)
	if err != nil {
		return total, err
	}

	r.Version = hdr[0]
	r.Command = hdr[1]
	r.Reserved = hdr[2]
	atype := hdr[3]

	if err := r.ValidateHeader(); err != nil {
		return total, err
	}

	var (
		ip     net.IP
		domain string
	)
	switch atype {
	case AddrTypeIPv4:
		var buf [4]byte
		n, err = io.ReadFull(src, buf[:])
		total += int64(n)
		if err != nil {
			return total, err
		}
		ip = net.IP(buf[:])

	case AddrTypeIPv6:
		var buf [16]byte
		n, err = io.ReadFull(src, buf[:])
		total += int64(n)
		if err != nil {
			return total, err
		}
		ip = net.IP(buf[:])

	case AddrTypeDomain:
		var ln [1]byte
		n, err = io.ReadFull(src, ln[:])
		total += int64(n)
		if err != nil {
			return total, err
		}
		buf := make([]byte, ln[0])
		n, err = io.ReadFull(src, buf)
		total += int64(n)
		if err != nil {
			return total, err
		}
		domain = string(buf)

	default:
		return total, ErrInvalidAddr
	}

	var portBuf [2]byte
	n, err = io.ReadFull(src, portBuf[:])
	total += int64(n)
	if err != nil {
		return total, err
	}
	port := binary.BigEndian.Uint16(portBuf[:])

	switch atype {
	case AddrTypeIPv4:
		r.Address = socksaddr.V4(ip, port)
	case AddrTypeIPv6:
		r.Address = socksaddr.V6(ip, port)
	case AddrTypeDomain:
		r.Address = socksaddr.Domain(domain, port)
	}

	return total, r.Validate()
}

// WriteTo writes a SOCKS5 request to dst.
// Implements the io.WriterTo interface.
func (r *Request) WriteTo(dst io.Writer) (int64, error) {
	atype := r.AddrType()
	if atype == AddrTypeDomain {
		domainLen := len(r.Address.Domain)
		if domainLen == 0 || domainLen > 255 {
			return 0, ErrInvalidDomain
		}
	}

	var total int64
	hdr := [4]byte{r.Version, r.Command, r.Reserved, atype}

	n, err := dst.Write(hdr[:])
	total += int64(n)
	if err != nil {
		return total, err
	}

	switch atype {
	case AddrTypeIPv4:
		n, err = dst.Write(r.Address.IP.To4())
	case AddrTypeIPv6:
		n, err = dst.Write(r.Address.IP.To16())
	case AddrTypeDomain:
		n, err = dst.Write([]byte{byte(len(r.Address.Domain))})
		total += int64(n)
		if err == nil {
			n, err = io.WriteString(dst, r.Address.Domain)
		}
	}
	total += int64(n)
	if err != nil {
		return total, err
	}

	var portBuf [2]byte
	binary.BigEndian.PutUint16(portBuf[:], r.Address.Port)
	n, err = dst.Write(portBuf[:])
	total += int64(n)

	return total, err
}

// String returns a string representation of the SOCKS5 Request.
func (r *Request) String() string {
	var cmd string
	switch r.Command {
	case CmdConnect:
		cmd = "CONNECT"
	case CmdBind:
		cmd = "BIND"
	case CmdUDPAssociate:
		cmd = "UDP_ASSOCIATE"
	default:
		cmd = fmt.Sprintf("UNKNOWN(0x%02X)", r.Command)
	}

	return fmt.Sprintf(
		"SOCKS5 Request{Cmd=%s, Dest=%s, Version=%d, RSV=%#02x}",
		cmd, r.Address.String(), r.Version, r.Reserved,
	)
}
