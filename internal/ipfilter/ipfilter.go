// Package ipfilter decides whether an inbound connection may proceed, based
// on a configured allowlist and trusted-proxy set. The check runs ahead of
// all other request processing, including CORS preflight and /health.
package ipfilter

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/twentymcp/twenty-mcp/internal/config"
)

// Decision is the verdict for one inbound connection.
type Decision struct {
	Allowed bool
	Reason  string
	// EffectiveAddr is the client address the verdict was computed against.
	// Zero when the address could not be determined.
	EffectiveAddr netip.Addr
}

// Filter matches inbound peers against the configured allowlist.
// All parsing happens at construction; Check never parses configuration.
type Filter struct {
	enabled      bool
	blockUnknown bool

	allowAddrs    []netip.Addr
	allowPrefixes []netip.Prefix
	proxyAddrs    []netip.Addr
	proxyPrefixes []netip.Prefix
}

// New builds a Filter from validated configuration. Malformed allowlist or
// proxy entries fail construction; config.Validate catches them earlier, this
// is the authoritative parse.
func New(cfg config.IPFilterConfig) (*Filter, error) {
	f := &Filter{
		enabled:      cfg.Enabled,
		blockUnknown: cfg.BlockUnknown,
	}

	var err error
	f.allowAddrs, f.allowPrefixes, err = parseEntries(cfg.Allowlist)
	if err != nil {
		return nil, err
	}
	f.proxyAddrs, f.proxyPrefixes, err = parseEntries(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Enabled reports whether filtering is active.
func (f *Filter) Enabled() bool { return f.enabled }

// Check computes the verdict for one connection. remoteAddr is the immediate
// peer ("ip:port" or bare IP); header supplies X-Forwarded-For / X-Real-IP
// which are only honored when the peer is a trusted proxy.
func (f *Filter) Check(remoteAddr string, header http.Header) Decision {
	if !f.enabled {
		return Decision{Allowed: true, Reason: "filter disabled"}
	}

	peer, ok := parsePeer(remoteAddr)
	if !ok {
		if f.blockUnknown {
			return Decision{Allowed: false, Reason: "unparseable peer address"}
		}
		log.Warn().Str("remote", remoteAddr).Msg("unparseable peer address allowed (IP_BLOCK_UNKNOWN=false)")
		return Decision{Allowed: true, Reason: "unparseable peer, blockUnknown disabled"}
	}

	effective := peer
	if f.isTrustedProxy(peer) {
		fwd, ok := forwardedClient(header)
		if !ok {
			if f.blockUnknown {
				return Decision{Allowed: false, Reason: "trusted proxy sent no resolvable client address", EffectiveAddr: peer}
			}
			log.Warn().Stringer("proxy", peer).Msg("forwarded client address unresolvable, allowed (IP_BLOCK_UNKNOWN=false)")
			return Decision{Allowed: true, Reason: "unresolvable forwarded address, blockUnknown disabled", EffectiveAddr: peer}
		}
		effective = fwd
	}

	if effective.IsLoopback() {
		return Decision{Allowed: true, Reason: "loopback", EffectiveAddr: effective}
	}
	if f.inAllowlist(effective) {
		return Decision{Allowed: true, Reason: "allowlist match", EffectiveAddr: effective}
	}
	return Decision{Allowed: false, Reason: "address not in allowlist", EffectiveAddr: effective}
}

func (f *Filter) isTrustedProxy(addr Addr) bool {
	return matches(addr, f.proxyAddrs, f.proxyPrefixes)
}

func (f *Filter) inAllowlist(addr Addr) bool {
	return matches(addr, f.allowAddrs, f.allowPrefixes)
}

// Addr aliases netip.Addr for readability in the matcher signatures.
type Addr = netip.Addr

func matches(addr Addr, addrs []netip.Addr, prefixes []netip.Prefix) bool {
	u := addr.Unmap()
	for _, a := range addrs {
		if a.Unmap() == u {
			return true
		}
	}
	for _, p := range prefixes {
		if p.Contains(u) {
			return true
		}
	}
	return false
}

func parseEntries(entries []string) ([]netip.Addr, []netip.Prefix, error) {
	var addrs []netip.Addr
	var prefixes []netip.Prefix
	for _, e := range entries {
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, nil, err
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, nil, err
		}
		addrs = append(addrs, a)
	}
	return addrs, prefixes, nil
}

func parsePeer(remoteAddr string) (netip.Addr, bool) {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(host))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// forwardedClient extracts the originating client from proxy headers:
// the first hop of X-Forwarded-For, else X-Real-IP.
func forwardedClient(header http.Header) (netip.Addr, bool) {
	if xff := header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if i := strings.IndexByte(xff, ','); i >= 0 {
			first = xff[:i]
		}
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.Unmap(), true
		}
		// Malformed XFF is ambiguous even if X-Real-IP parses.
		return netip.Addr{}, false
	}
	if xri := header.Get("X-Real-IP"); xri != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return addr.Unmap(), true
		}
		return netip.Addr{}, false
	}
	return netip.Addr{}, false
}
