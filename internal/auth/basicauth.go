// Package auth implements gns3-proxy's client authentication: parsing HTTP
// Basic credentials, honoring a trusted downstream-proxy header for
// whitelisted peers, and comparing passwords in constant time.
package auth

import (
	"encoding/base64"
	"strings"
)

// ParseBasicAuth extracts the username and password from the value of an
// `Authorization: Basic <base64(user:pass)>` header. ok is false if the
// header does not have the Basic scheme or the payload does not decode to
// a `user:pass` pair.
func ParseBasicAuth(header string) (username, password string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}

	credentials := string(decoded)
	colon := strings.IndexByte(credentials, ':')
	if colon < 0 {
		return "", "", false
	}
	return credentials[:colon], credentials[colon+1:], true
}
