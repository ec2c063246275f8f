package httpmsg

import "errors"

// Parse failure modes, all fatal to the connection (spec.md §4.2).
var (
	ErrMalformedStartLine = errors.New("malformed start line")
	ErrHeaderTooLarge     = errors.New("header line exceeds maximum size")
	ErrBadChunk           = errors.New("malformed chunked transfer encoding")
)
