package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// ErrBlockedDestination is returned for URLs that point at internal resources
var ErrBlockedDestination = errors.New("destination is not allowed")

var blockedNetworks = mustParseCIDRs(
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"100.64.0.0/10",
	"0.0.0.0/8",
	"::/128",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

var blockedHostnames = []string{
	"localhost",
	"localhost.localdomain",
	"ip6-localhost",
	"ip6-loopback",
	"metadata.google.internal",
	"kubernetes.default",
	"kubernetes.default.svc",
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR %q: %v", cidr, err))
		}
		out = append(out, network)
	}
	return out
}

// IsPrivateIP reports whether ip is loopback, private, link-local or unspecified
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if ip.IsUnspecified() || ip.IsLoopback() || ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// IsBlockedHostname reports whether hostname (or a parent domain) is on the blocklist
func IsBlockedHostname(hostname string) bool {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	for _, blocked := range blockedHostnames {
		if hostname == blocked || strings.HasSuffix(hostname, "."+blocked) {
			return true
		}
	}
	return false
}

// OutboundGuard decides which URLs the feed fetcher may reach
type OutboundGuard struct {
	AllowPrivate bool
}

// ParseURL checks scheme and host of a user-supplied URL without DNS resolution.
// Resolved addresses are checked again at dial time by DialContext.
func (g OutboundGuard) ParseURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("only http and https schemes are allowed")
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return nil, fmt.Errorf("URL must have a hostname")
	}
	if g.AllowPrivate {
		return parsed, nil
	}

	if IsBlockedHostname(hostname) {
		return nil, fmt.Errorf("%w: internal hostname '%s'", ErrBlockedDestination, hostname)
	}
	if ip := net.ParseIP(hostname); ip != nil && IsPrivateIP(ip) {
		return nil, fmt.Errorf("%w: private IP address '%s'", ErrBlockedDestination, hostname)
	}
	return parsed, nil
}

// Control is a net.Dialer control hook rejecting connections to private
// addresses, which also covers DNS names that resolve to internal hosts
func (g OutboundGuard) Control(network, address string, _ syscall.RawConn) error {
	if g.AllowPrivate {
		return nil
	}

	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("invalid dial address %q: %w", address, err)
	}
	if IsPrivateIP(net.ParseIP(host)) {
		return fmt.Errorf("%w: %s resolves to a private address", ErrBlockedDestination, host)
	}
	return nil
}

// DialContext returns a dial function enforcing the guard
func (g OutboundGuard) DialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	d := *dialer
	d.Control = g.Control
	return d.DialContext
}
