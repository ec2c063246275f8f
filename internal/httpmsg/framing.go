package httpmsg

import (
	"strconv"
	"strings"
)

// Framing describes how a message body is delimited.
type Framing struct {
	Chunked       bool
	ContentLength int64
	HasBody       bool
}

// DetermineFraming inspects headers to decide body framing, per spec.md
// §4.2/§4.4: chunked wins when both Transfer-Encoding: chunked and
// Content-Length are present, and Content-Length is stripped from the
// forwarded headers in that case. Without either header there is no body,
// even for methods like GET that may carry one if a framing header is
// explicitly present.
func DetermineFraming(headers Headers) (Framing, Headers) {
	te, hasTE := headers.Get("Transfer-Encoding")
	if hasTE && strings.Contains(strings.ToLower(te), "chunked") {
		return Framing{Chunked: true, HasBody: true}, headers.Del("Content-Length")
	}

	if cl, hasCL := headers.Get("Content-Length"); hasCL {
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n < 0 {
			return Framing{}, headers
		}
		if n == 0 {
			return Framing{ContentLength: 0, HasBody: false}, headers
		}
		return Framing{ContentLength: n, HasBody: true}, headers
	}

	return Framing{HasBody: false}, headers
}

// ResponseHasBody reports whether a response with the given status code and
// request method is permitted to carry a body at all (RFC 9110 §6.4.1):
// HEAD responses and 1xx/204/304 never do, regardless of framing headers.
func ResponseHasBody(method string, statusCode int) bool {
	if method == "HEAD" {
		return false
	}
	if statusCode >= 100 && statusCode < 200 {
		return false
	}
	return statusCode != 204 && statusCode != 304
}
