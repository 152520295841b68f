// Package urltarget derives the request target and candidate socket
// addresses from a parsed URL.
package urltarget

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/WhileEndless/go-hur/pkg/constants"
	"github.com/WhileEndless/go-hur/pkg/errors"
)

// Scheme is the URL scheme of a target.
type Scheme string

const (
	HTTP  Scheme = "http"
	HTTPS Scheme = "https"
)

// DefaultPort returns 80 or 443.
func (s Scheme) DefaultPort() uint16 {
	if s == HTTPS {
		return constants.DefaultHTTPSPort
	}
	return constants.DefaultHTTPPort
}

// Resolver looks up the addresses of a host. *net.Resolver implements it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Target is everything the request builder needs to know about a URL.
type Target struct {
	Scheme Scheme
	// Path is the URL path, "/" when empty.
	Path string
	// FullPath is the whole URL, used as absolute URI for proxies.
	FullPath string
	Query    string
	// Domain is the ASCII domain name, empty for IP literals.
	Domain string
	// Host is the host as written in a Host header, IPv6 in brackets.
	Host string
	// Port is set only when the URL names one.
	Port uint16
}

// Parse parses and validates a raw URL.
func Parse(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("cannot parse url %q", raw), fmt.Errorf("%w: %w", errors.ErrInvalidURL, err))
	}
	if u.Hostname() == "" {
		return nil, errors.NewValidationError(fmt.Sprintf("no host in %q", raw), errors.ErrMissingHost)
	}
	return u, nil
}

// New derives a Target from u.
func New(u *url.URL) (Target, error) {
	var t Target
	switch strings.ToLower(u.Scheme) {
	case "http":
		t.Scheme = HTTP
	case "https":
		t.Scheme = HTTPS
	default:
		return t, errors.NewValidationError(fmt.Sprintf("scheme %q", u.Scheme), errors.ErrUnsupportedScheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return t, errors.NewValidationError(fmt.Sprintf("no host in %q", u.String()), errors.ErrMissingHost)
	}

	if addr, err := netip.ParseAddr(hostname); err == nil {
		t.Host = hostname
		if addr.Is6() {
			t.Host = "[" + hostname + "]"
		}
	} else {
		domain, err := idna.Lookup.ToASCII(hostname)
		if err != nil {
			return t, errors.NewValidationError(fmt.Sprintf("invalid domain %q", hostname), fmt.Errorf("%w: %w", errors.ErrInvalidURL, err))
		}
		t.Domain = domain
		t.Host = domain
	}

	if p := u.Port(); p != "" {
		port, err := strconv.ParseUint(p, 10, 16)
		if err != nil || port == 0 {
			return t, errors.NewValidationError(fmt.Sprintf("invalid port %q", p), errors.ErrInvalidURL)
		}
		t.Port = uint16(port)
	}

	t.Path = u.EscapedPath()
	if t.Path == "" {
		t.Path = "/"
	}
	t.Query = u.RawQuery

	full := *u
	full.Host = t.HostHeader()
	full.Fragment = ""
	full.RawFragment = ""
	if full.Path == "" {
		full.Path = "/"
	}
	t.FullPath = full.String()
	return t, nil
}

// AbsolutePath returns FullPath without its query, the form put on the
// request line when talking to a plain HTTP proxy.
func (t Target) AbsolutePath() string {
	abs, _, _ := strings.Cut(t.FullPath, "?")
	return abs
}

// HostName returns the name to resolve: the domain, or the bare IP.
func (t Target) HostName() string {
	if t.Domain != "" {
		return t.Domain
	}
	return strings.Trim(t.Host, "[]")
}

// EffectivePort returns the explicit port or the scheme default.
func (t Target) EffectivePort() uint16 {
	if t.Port != 0 {
		return t.Port
	}
	return t.Scheme.DefaultPort()
}

// Address returns "host:port" with the effective port.
func (t Target) Address() string {
	return net.JoinHostPort(t.HostName(), strconv.Itoa(int(t.EffectivePort())))
}

// HostHeader returns the Host header value; the port is included only when
// the URL named one.
func (t Target) HostHeader() string {
	if t.Port == 0 {
		return t.Host
	}
	return net.JoinHostPort(t.HostName(), strconv.Itoa(int(t.Port)))
}

// SocketAddresses resolves the target. Addresses are returned in resolver
// order.
func (t Target) SocketAddresses(ctx context.Context, r Resolver) ([]netip.AddrPort, error) {
	return Resolve(ctx, r, t.HostName(), t.EffectivePort())
}

// Resolve looks host up and pairs every address with port.
func Resolve(ctx context.Context, r Resolver, host string, port uint16) ([]netip.AddrPort, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.AddrPort{netip.AddrPortFrom(addr.Unmap(), port)}, nil
	}
	if r == nil {
		r = net.DefaultResolver
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DNSTimeout)
	defer cancel()

	addrs, err := r.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, errors.NewDNSError(host, err)
	}
	if len(addrs) == 0 {
		return nil, errors.NewDNSError(host, fmt.Errorf("no addresses found"))
	}

	servers := make([]netip.AddrPort, 0, len(addrs))
	for _, a := range addrs {
		servers = append(servers, netip.AddrPortFrom(a.Unmap(), port))
	}
	return servers, nil
}
