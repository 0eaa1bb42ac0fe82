// Package socksaddr defines the tagged destination-address variant shared by
// the SOCKS4 and SOCKS5 request/reply framing, factored out of each
// version's own field layout so both decode/encode through the same type.
package socksaddr

import (
	"fmt"
	"net"
	"strconv"
)

// Kind distinguishes the three address forms a SOCKS request may carry.
type Kind int

const (
	// KindV4 holds a literal IPv4 address.
	KindV4 Kind = iota
	// KindV6 holds a literal IPv6 address.
	KindV6
	// KindDomain holds an unresolved domain name.
	KindDomain
)

// Address is the tagged destination-address variant: exactly one of V4,
// V6 or Domain, paired with a destination port.
type Address struct {
	Kind   Kind
	IP     net.IP // set when Kind is KindV4 or KindV6
	Domain string // set when Kind is KindDomain; non-empty, valid UTF-8
	Port   uint16
}

// V4 builds a literal IPv4 address.
func V4(ip net.IP, port uint16) Address {
	return Address{Kind: KindV4, IP: ip.To4(), Port: port}
}

// V6 builds a literal IPv6 address.
func V6(ip net.IP, port uint16) Address {
	return Address{Kind: KindV6, IP: ip.To16(), Port: port}
}

// Domain builds an unresolved (host, port) address.
func Domain(name string, port uint16) Address {
	return Address{Kind: KindDomain, Domain: name, Port: port}
}

// Host returns the destination's host part: the domain name, or the
// textual form of the literal IP.
func (a Address) Host() string {
	if a.Kind == KindDomain {
		return a.Domain
	}
	return a.IP.String()
}

// HostPort returns the combined "host:port" form the Dialer accepts.
func (a Address) HostPort() string {
	return net.JoinHostPort(a.Host(), strconv.Itoa(int(a.Port)))
}

// String renders a human-readable form for logging.
func (a Address) String() string {
	var kind string
	switch a.Kind {
	case KindV4:
		kind = "V4"
	case KindV6:
		kind = "V6"
	case KindDomain:
		kind = "Domain"
	default:
		kind = fmt.Sprintf("Kind(%d)", a.Kind)
	}
	return fmt.Sprintf("%s(%s:%d)", kind, a.Host(), a.Port)
}
