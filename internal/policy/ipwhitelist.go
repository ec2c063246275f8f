package policy

import (
	"net"
	"sync"
)

// IPWhitelist is a thread-safe set of trusted peer IPs, expressed as exact
// literals or CIDR prefixes. It backs `auth_whitelist`: peers inside the set
// have their trusted-username header honored instead of being required to
// present HTTP Basic credentials.
type IPWhitelist struct {
	mu    sync.RWMutex
	ips   map[string]struct{}
	nets  []*net.IPNet
}

// NewIPWhitelist builds a whitelist from a list of IP literals and/or CIDR
// prefixes, as read from `auth_whitelist`. Malformed entries are returned as
// an error; config load treats this as fatal since auth_whitelist entries
// are validated alongside regexes.
func NewIPWhitelist(entries []string) (*IPWhitelist, error) {
	w := &IPWhitelist{ips: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		if err := w.add(e); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *IPWhitelist) add(entry string) error {
	if _, ipnet, err := net.ParseCIDR(entry); err == nil {
		w.nets = append(w.nets, ipnet)
		return nil
	}
	ip := net.ParseIP(entry)
	if ip == nil {
		return &net.ParseError{Type: "auth_whitelist entry", Text: entry}
	}
	w.ips[ip.String()] = struct{}{}
	return nil
}

// Contains reports whether peer is inside the whitelist, either as an exact
// literal match or within one of the configured CIDR prefixes.
func (w *IPWhitelist) Contains(peer net.IP) bool {
	if peer == nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, ok := w.ips[peer.String()]; ok {
		return true
	}
	for _, n := range w.nets {
		if n.Contains(peer) {
			return true
		}
	}
	return false
}
