package httpmsg

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// MaxHeaderLineBytes is the per-header-line length cap (spec.md §4.2).
const MaxHeaderLineBytes = 8192

// ReadRequestLine parses `METHOD SP request-target SP HTTP/1.x CRLF`. An
// empty request-target is treated as "/" per spec.md §4.4.
func ReadRequestLine(r *bufio.Reader) (RequestLine, error) {
	line, err := readLine(r, MaxHeaderLineBytes)
	if err != nil {
		return RequestLine{}, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return RequestLine{}, ErrMalformedStartLine
	}
	method, target, version := parts[0], parts[1], parts[2]
	if !isToken(method) {
		return RequestLine{}, ErrMalformedStartLine
	}
	if !strings.HasPrefix(version, "HTTP/1.") {
		return RequestLine{}, ErrMalformedStartLine
	}
	if target == "" {
		target = "/"
	}
	return RequestLine{Method: method, RequestTarget: target, Version: version}, nil
}

// ReadResponseLine parses `HTTP/1.x SP status-code SP reason-phrase CRLF`.
func ReadResponseLine(r *bufio.Reader) (ResponseLine, error) {
	line, err := readLine(r, MaxHeaderLineBytes)
	if err != nil {
		return ResponseLine{}, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return ResponseLine{}, ErrMalformedStartLine
	}
	if !strings.HasPrefix(parts[0], "HTTP/1.") {
		return ResponseLine{}, ErrMalformedStartLine
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return ResponseLine{}, ErrMalformedStartLine
	}
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}
	return ResponseLine{Version: parts[0], StatusCode: code, Reason: reason}, nil
}

// ReadHeaders reads header lines until a blank line terminator. Field names
// are preserved verbatim for forwarding; lookups elsewhere are
// case-insensitive via Headers.Get. Each line is capped at
// MaxHeaderLineBytes.
func ReadHeaders(r *bufio.Reader) (Headers, error) {
	var headers Headers
	for {
		line, err := readLine(r, MaxHeaderLineBytes)
		if err != nil {
			return nil, err
		}
		if line == "" {
			return headers, nil
		}
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(headers) > 0 {
			last := &headers[len(headers)-1]
			last.Value = last.Value + " " + strings.TrimSpace(line)
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, ErrMalformedStartLine
		}
		name := line[:colon]
		value := strings.TrimSpace(line[colon+1:])
		headers = append(headers, HeaderField{Name: name, Value: value})
	}
}

// readLine reads a single CRLF- or LF-terminated line, stripped of its
// terminator, enforcing maxBytes as a cap on raw line length (prevents an
// unbounded-header attack from exhausting memory before the cap is hit).
func readLine(r *bufio.Reader, maxBytes int) (string, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		if len(buf)+len(frag) > maxBytes {
			return "", ErrHeaderTooLarge
		}
		buf = append(buf, frag...)
		if err == nil {
			break
		}
		if err != bufio.ErrBufferFull {
			return "", fmt.Errorf("read line: %w", err)
		}
	}
	line := strings.TrimSuffix(string(buf), "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// isToken reports whether s is a valid HTTP token (used to validate the
// request method). RFC 7230 tokens exclude separators and control chars;
// this proxy only needs to reject obviously malformed input, not perform
// full RFC validation.
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c <= 0x20 || c == 0x7f {
			return false
		}
		switch c {
		case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=', '{', '}':
			return false
		}
	}
	return true
}
