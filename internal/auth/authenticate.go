package auth

import (
	"net"

	"github.com/gns3/gns3-proxy/internal/policy"
)

// Outcome classifies the result of Authenticate.
type Outcome int

const (
	// OK means a username was established and, if password-based, verified.
	OK Outcome = iota
	// Missing means no Authorization header was present and no trusted
	// header applied (spec.md: AUTH_MISSING).
	Missing
	// BadFormat means the Authorization header was present but could not
	// be decoded as Basic credentials (spec.md: AUTH_BAD_FORMAT).
	BadFormat
	// BadCredentials means a known username's password did not match, or
	// an unknown username was rejected because allow_any_user is false or
	// no users are configured (spec.md: AUTH_BAD_CREDENTIALS).
	BadCredentials
)

// HeaderSource is the minimal header-lookup surface Authenticate needs.
// internal/httpmsg's parsed Headers type satisfies this.
type HeaderSource interface {
	// Get returns the first value of the named header, case-insensitively,
	// and false if the header is absent.
	Get(name string) (string, bool)
}

// Authenticate implements the §4.3 authentication algorithm: a trusted
// header is honored for whitelisted peers, otherwise HTTP Basic credentials
// are required and checked against the configured user store.
func Authenticate(headers HeaderSource, peer net.IP, whitelist *policy.IPWhitelist, authHeaderName string, users *UserStore, allowAnyUser bool) (username string, outcome Outcome) {
	if whitelist != nil && whitelist.Contains(peer) {
		if v, ok := headers.Get(authHeaderName); ok && v != "" {
			return v, OK
		}
	}

	authHeader, ok := headers.Get("Authorization")
	if !ok || authHeader == "" {
		return "", Missing
	}

	user, pass, ok := ParseBasicAuth(authHeader)
	if !ok {
		return "", BadFormat
	}

	if users.Lookup(user) {
		if users.Check(user, pass) {
			return user, OK
		}
		return "", BadCredentials
	}

	if allowAnyUser && !users.Empty() {
		return user, OK
	}
	return "", BadCredentials
}
