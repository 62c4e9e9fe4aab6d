// Package urlguard implements the URL validator and SSRF guard: the first
// pipeline stage, rejecting any target that is not a globally routable
// HTTPS origin before a single byte is sent toward it.
package urlguard

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/loca555/tls-oracle-near/errs"
)

const MaxURLLength = 2048

// blockedHeaders mirrors BLOCKED_HEADERS: deny-listed request headers that
// are always stripped before a session is opened, since the prover must
// never forward credentials or proxy/forwarding metadata to the origin.
var blockedHeaders = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-forwarded-for":     true,
	"x-forwarded-host":    true,
	"x-forwarded-proto":   true,
	"x-real-ip":           true,
	"proxy-authorization": true,
	"cf-connecting-ip":    true,
	"host":                true,
}

// allowedMethods is the method allow-list: only GET and POST ever
// reach an origin through this oracle.
var allowedMethods = map[string]bool{
	http.MethodGet:  true,
	http.MethodPost: true,
}

// Resolver abstracts DNS resolution so tests can inject canned answers
// without making real network calls.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Guard validates candidate URLs and resolves them to a connect-safe
// address set, in one atomic pass so a later DNS-rebinding attempt cannot
// substitute a different address after validation.
type Guard struct {
	Resolver     Resolver
	AllowedPorts map[int]bool // non-443 ports explicitly permitted
}

// New returns a Guard using the process's default DNS resolver.
func New(allowedPorts []int) *Guard {
	ap := map[int]bool{}
	for _, p := range allowedPorts {
		ap[p] = true
	}
	return &Guard{Resolver: net.DefaultResolver, AllowedPorts: ap}
}

// Target is the outcome of a successful validation: the normalized request
// plus every resolved, connect-safe address.
type Target struct {
	URL          *url.URL
	ServerName   string // lowercased host, no port
	Port         int
	ResolvedIPs  []net.IP // every address that passed the filter
	Method       string
	Headers      map[string]string
}

// Validate runs every SSRF-guard rule against rawURL and returns a safe
// connect Target, or a classified *errs.Error (InvalidRequest or
// SsrfBlocked).
func (g *Guard) Validate(ctx context.Context, rawURL, method string, headers map[string]string) (*Target, error) {
	if len(rawURL) > MaxURLLength {
		return nil, errs.New(errs.InvalidRequest, fmt.Sprintf("url exceeds %d bytes", MaxURLLength))
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		return nil, errs.New(errs.InvalidRequest, "method must be GET or POST")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidRequest, "malformed url", err)
	}
	if parsed.Scheme != "https" {
		return nil, errs.New(errs.InvalidRequest, "scheme must be https")
	}
	host := parsed.Hostname()
	if host == "" {
		return nil, errs.New(errs.InvalidRequest, "url has no host")
	}
	serverName := strings.ToLower(host)

	port := 443
	if p := parsed.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errs.New(errs.InvalidRequest, "invalid port")
		}
		port = n
	}
	if port != 443 && !g.AllowedPorts[port] {
		return nil, errs.New(errs.InvalidRequest, "port not in allow-list")
	}

	if blockedHostname(serverName) {
		return nil, errs.New(errs.SsrfBlocked, fmt.Sprintf("blocked hostname %q", serverName))
	}

	var candidates []net.IP
	if ip := net.ParseIP(serverName); ip != nil {
		if isReservedIP(ip) {
			return nil, errs.New(errs.SsrfBlocked, fmt.Sprintf("ip literal %s is not globally routable", ip))
		}
		candidates = []net.IP{ip}
	} else {
		addrs, err := g.Resolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidRequest, "dns resolution failed", err)
		}
		if len(addrs) == 0 {
			return nil, errs.New(errs.InvalidRequest, "dns returned no addresses")
		}
		for _, a := range addrs {
			if isReservedIP(a.IP) {
				return nil, errs.New(errs.SsrfBlocked, fmt.Sprintf("resolved address %s is not globally routable", a.IP))
			}
			candidates = append(candidates, a.IP)
		}
	}

	filteredHeaders := filterHeaders(headers)

	return &Target{
		URL:         parsed,
		ServerName:  serverName,
		Port:        port,
		ResolvedIPs: candidates,
		Method:      method,
		Headers:     filteredHeaders,
	}, nil
}

func blockedHostname(host string) bool {
	return host == "localhost" ||
		host == "metadata.google.internal" ||
		strings.HasSuffix(host, ".internal") ||
		strings.HasSuffix(host, ".local")
}

// filterHeaders strips the deny-listed header set, case-insensitively.
func filterHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if blockedHeaders[strings.ToLower(k)] {
			continue
		}
		out[k] = v
	}
	return out
}

// isReservedIP reports whether ip falls in any RFC-reserved range that must
// never be reachable from this oracle: loopback, private, link-local,
// unspecified, broadcast, CGNAT (100.64.0.0/10), ULA (fc00::/7),
// documentation (192.0.2.0/24, 198.51.100.0/24, 203.0.113.0/24,
// 2001:db8::/32), and benchmarking (198.18.0.0/15, 2001:2::/48) ranges.
func isReservedIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4.IsLoopback() ||
			ip4.IsPrivate() ||
			ip4.IsLinkLocalUnicast() ||
			ip4.IsLinkLocalMulticast() ||
			ip4.IsUnspecified() ||
			ip4.Equal(net.IPv4bcast) ||
			isCGNAT(ip4) ||
			inExtraReservedRange(ip4)
	}

	return ip.IsLoopback() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		isULA(ip) ||
		inExtraReservedRange(ip)
}

func isCGNAT(ip4 net.IP) bool {
	return ip4[0] == 100 && (ip4[1]&0xC0) == 64
}

func isULA(ip net.IP) bool {
	ip16 := ip.To16()
	if ip16 == nil {
		return false
	}
	return (ip16[0] & 0xFE) == 0xFC
}

// extraReservedRanges are the reserved ranges with no net.IP helper:
// documentation and benchmarking blocks, both v4 and v6.
var extraReservedRanges = parseCIDRsOrPanic(
	"192.0.2.0/24",   // TEST-NET-1, documentation
	"198.51.100.0/24", // TEST-NET-2, documentation
	"203.0.113.0/24",  // TEST-NET-3, documentation
	"198.18.0.0/15",   // benchmarking
	"2001:db8::/32",   // documentation
	"2001:2::/48",     // benchmarking
)

func parseCIDRsOrPanic(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

func inExtraReservedRange(ip net.IP) bool {
	for _, n := range extraReservedRanges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
