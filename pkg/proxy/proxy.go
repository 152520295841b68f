// Package proxy decides whether a request goes through an HTTP proxy and,
// if so, which addresses the proxy has.
package proxy

import (
	"context"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/WhileEndless/go-hur/pkg/errors"
	"github.com/WhileEndless/go-hur/pkg/logger"
	"github.com/WhileEndless/go-hur/pkg/urltarget"
)

// Environment variable names. The lower-case form is tried first.
const (
	EnvHTTPProxy  = "http_proxy"
	EnvHTTPSProxy = "https_proxy"
	EnvNoProxy    = "no_proxy"
)

var ipPattern = regexp.MustCompile(`^(\d+\.?)+$`)

// Config is a snapshot of the proxy environment.
type Config struct {
	HTTPProxy  string `json:"http_proxy,omitempty"`
	HTTPSProxy string `json:"https_proxy,omitempty"`
	NoProxy    string `json:"no_proxy,omitempty"`
}

// FromEnvironment reads the proxy variables of the running process.
func FromEnvironment() *Config {
	return FromLookup(os.Getenv)
}

// FromLookup reads the proxy variables through getenv.
func FromLookup(getenv func(string) string) *Config {
	get := func(name string) string {
		if v := getenv(name); v != "" {
			return v
		}
		return getenv(strings.ToUpper(name))
	}
	return &Config{
		HTTPProxy:  get(EnvHTTPProxy),
		HTTPSProxy: get(EnvHTTPSProxy),
		NoProxy:    get(EnvNoProxy),
	}
}

// Select returns the proxy addresses for target, or nil when the request
// goes direct. servers are the target's own addresses, used to match IP
// patterns in NoProxy.
func (c *Config) Select(ctx context.Context, target urltarget.Target, servers []netip.AddrPort, r urltarget.Resolver) ([]netip.AddrPort, error) {
	if c == nil {
		return nil, nil
	}

	if c.bypass(target, servers) {
		logger.L().Debug("proxy bypassed", zap.String("host", target.Host))
		return nil, nil
	}

	raw := c.HTTPProxy
	if target.Scheme == urltarget.HTTPS {
		raw = c.HTTPSProxy
	}
	if raw == "" {
		return nil, nil
	}

	u, err := ParseURL(raw)
	if err != nil {
		return nil, err
	}
	port, _ := strconv.ParseUint(u.Port(), 10, 16)

	addrs, err := urltarget.Resolve(ctx, r, u.Hostname(), uint16(port))
	if err != nil {
		return nil, errors.NewProxyError(fmt.Sprintf("cannot resolve proxy %s", u.Host), err)
	}

	logger.L().Info("found proxy address",
		zap.String("proxy", u.Host),
		zap.Int("addresses", len(addrs)),
	)
	return addrs, nil
}

// bypass reports whether NoProxy excludes the request.
func (c *Config) bypass(target urltarget.Target, servers []netip.AddrPort) bool {
	for _, entry := range strings.Split(c.NoProxy, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if entry == target.Host {
			return true
		}
		if IsIPPattern(entry) && matchServers(entry, servers) {
			return true
		}
	}
	return false
}

// IsIPPattern reports whether entry looks like an IPv4 address or prefix,
// e.g. "10.0." or "192.168.1.7". Wildcard segments are allowed.
func IsIPPattern(entry string) bool {
	return ipPattern.MatchString(strings.ReplaceAll(entry, "*", "0"))
}

func matchServers(pattern string, servers []netip.AddrPort) bool {
	want := strings.Split(strings.TrimSuffix(pattern, "."), ".")
	for _, s := range servers {
		if matchSegments(want, strings.Split(s.Addr().String(), ".")) {
			return true
		}
	}
	return false
}

// matchSegments compares up to the shorter of the two lists.
func matchSegments(pattern, addr []string) bool {
	n := min(len(pattern), len(addr))
	for i := 0; i < n; i++ {
		if pattern[i] != "*" && pattern[i] != addr[i] {
			return false
		}
	}
	return n > 0
}

// ParseURL parses a proxy URL. It must name a host and an explicit port.
func ParseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.NewProxyError("proxy url cannot be empty", errors.ErrInvalidProxyURL)
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.NewProxyError(fmt.Sprintf("cannot parse proxy url %q", raw), fmt.Errorf("%w: %w", errors.ErrInvalidProxyURL, err))
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return nil, errors.NewProxyError(fmt.Sprintf("unsupported proxy scheme: %s (must be http or https)", u.Scheme), errors.ErrInvalidProxyURL)
	}

	if u.Hostname() == "" {
		return nil, errors.NewProxyError("proxy url must include host", errors.ErrInvalidProxyURL)
	}

	portStr := u.Port()
	if portStr == "" {
		return nil, errors.NewProxyError(fmt.Sprintf("proxy url %q must include port", raw), errors.ErrInvalidProxyURL)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, errors.NewProxyError(fmt.Sprintf("proxy port must be between 1 and 65535, got: %s", portStr), errors.ErrInvalidProxyURL)
	}

	return u, nil
}
