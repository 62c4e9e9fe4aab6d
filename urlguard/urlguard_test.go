package urlguard

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loca555/tls-oracle-near/errs"
)

type fakeResolver struct {
	addrs map[string][]net.IPAddr
	err   error
}

func (f *fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.addrs[host], nil
}

func newGuard(resolver Resolver, allowedPorts ...int) *Guard {
	g := New(allowedPorts)
	g.Resolver = resolver
	return g
}

func TestValidate_AcceptsPublicHTTPSHost(t *testing.T) {
	resolver := &fakeResolver{addrs: map[string][]net.IPAddr{
		"example.com": {{IP: net.ParseIP("93.184.216.34")}},
	}}
	g := newGuard(resolver)

	target, err := g.Validate(context.Background(), "https://example.com/path", "GET", nil)
	require.NoError(t, err)
	assert.Equal(t, "example.com", target.ServerName)
	assert.Equal(t, 443, target.Port)
	assert.Equal(t, []net.IP{net.ParseIP("93.184.216.34")}, target.ResolvedIPs)
}

func TestValidate_RejectsNonHTTPSScheme(t *testing.T) {
	g := newGuard(&fakeResolver{})
	_, err := g.Validate(context.Background(), "http://example.com", "GET", nil)
	require.Error(t, err)
	assert.Equal(t, errs.InvalidRequest, errs.KindOf(err))
}

func TestValidate_RejectsOversizedURL(t *testing.T) {
	g := newGuard(&fakeResolver{})
	long := "https://example.com/" + string(make([]byte, MaxURLLength))
	_, err := g.Validate(context.Background(), long, "GET", nil)
	require.Error(t, err)
	assert.Equal(t, errs.InvalidRequest, errs.KindOf(err))
}

func TestValidate_RejectsDisallowedMethod(t *testing.T) {
	g := newGuard(&fakeResolver{})
	_, err := g.Validate(context.Background(), "https://example.com", "DELETE", nil)
	require.Error(t, err)
	assert.Equal(t, errs.InvalidRequest, errs.KindOf(err))
}

func TestValidate_BlocksLocalhost(t *testing.T) {
	g := newGuard(&fakeResolver{})
	_, err := g.Validate(context.Background(), "https://localhost", "GET", nil)
	require.Error(t, err)
	assert.Equal(t, errs.SsrfBlocked, errs.KindOf(err))
}

func TestValidate_BlocksInternalSuffix(t *testing.T) {
	g := newGuard(&fakeResolver{})
	_, err := g.Validate(context.Background(), "https://metadata.google.internal", "GET", nil)
	require.Error(t, err)
	assert.Equal(t, errs.SsrfBlocked, errs.KindOf(err))
}

func TestValidate_BlocksPrivateIPLiteral(t *testing.T) {
	g := newGuard(&fakeResolver{})
	_, err := g.Validate(context.Background(), "https://10.0.0.5", "GET", nil)
	require.Error(t, err)
	assert.Equal(t, errs.SsrfBlocked, errs.KindOf(err))
}

func TestValidate_BlocksDNSRebindingToPrivateAddress(t *testing.T) {
	resolver := &fakeResolver{addrs: map[string][]net.IPAddr{
		"evil.example.com": {{IP: net.ParseIP("169.254.169.254")}},
	}}
	g := newGuard(resolver)
	_, err := g.Validate(context.Background(), "https://evil.example.com", "GET", nil)
	require.Error(t, err)
	assert.Equal(t, errs.SsrfBlocked, errs.KindOf(err))
}

func TestValidate_RejectsDisallowedPort(t *testing.T) {
	resolver := &fakeResolver{addrs: map[string][]net.IPAddr{
		"example.com": {{IP: net.ParseIP("93.184.216.34")}},
	}}
	g := newGuard(resolver)
	_, err := g.Validate(context.Background(), "https://example.com:8443", "GET", nil)
	require.Error(t, err)
	assert.Equal(t, errs.InvalidRequest, errs.KindOf(err))
}

func TestValidate_AllowsExplicitlyAllowedPort(t *testing.T) {
	resolver := &fakeResolver{addrs: map[string][]net.IPAddr{
		"example.com": {{IP: net.ParseIP("93.184.216.34")}},
	}}
	g := newGuard(resolver, 8443)
	target, err := g.Validate(context.Background(), "https://example.com:8443", "GET", nil)
	require.NoError(t, err)
	assert.Equal(t, 8443, target.Port)
}

func TestValidate_StripsBlockedHeaders(t *testing.T) {
	resolver := &fakeResolver{addrs: map[string][]net.IPAddr{
		"example.com": {{IP: net.ParseIP("93.184.216.34")}},
	}}
	g := newGuard(resolver)
	target, err := g.Validate(context.Background(), "https://example.com", "GET", map[string]string{
		"Authorization": "Bearer secret",
		"X-Custom":      "keep-me",
		"Host":          "attacker.example",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-Custom": "keep-me"}, target.Headers)
}

func TestIsReservedIP(t *testing.T) {
	cases := []struct {
		ip       string
		reserved bool
	}{
		{"8.8.8.8", false},
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"192.168.1.1", true},
		{"172.16.0.1", true},
		{"169.254.1.1", true},
		{"100.64.0.1", true},
		{"::1", true},
		{"fc00::1", true},
		{"2001:4860:4860::8888", false},
		{"192.0.2.1", true},
		{"198.51.100.1", true},
		{"203.0.113.1", true},
		{"198.18.0.1", true},
		{"198.19.255.255", true},
		{"2001:db8::1", true},
		{"2001:2::1", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.reserved, isReservedIP(net.ParseIP(c.ip)), "ip %s", c.ip)
	}
}
