// Package httpmsg implements the incremental HTTP/1.1 message parser that
// fronts gns3-proxy's connection worker: start-line and header parsing,
// chunked/content-length body framing, and a bounded in-memory buffer
// type.
package httpmsg

import (
	"strings"
)

// HeaderField is a single header line, preserving the exact name casing it
// arrived with.
type HeaderField struct {
	Name  string
	Value string
}

// Headers is an ordered list of header fields. Lookups are
// case-insensitive; forwarding preserves both original casing and the
// order and repetition of fields, per spec.md §4.2.
type Headers []HeaderField

// Get returns the value of the first field named name (case-insensitive)
// and true, or ("", false) if no such field exists.
func (h Headers) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// GetAll returns the values of every field named name, in order.
func (h Headers) GetAll(name string) []string {
	var vals []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			vals = append(vals, f.Value)
		}
	}
	return vals
}

// Set replaces every existing occurrence of name with a single field
// holding value. If name was not present, the field is appended.
func (h Headers) Set(name, value string) Headers {
	out := h.Del(name)
	return append(out, HeaderField{Name: name, Value: value})
}

// Del removes every field named name (case-insensitive).
func (h Headers) Del(name string) Headers {
	out := make(Headers, 0, len(h))
	for _, f := range h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	return out
}

// Render renders the header block exactly as it would be written on the
// wire (each field as "Name: Value\r\n", no terminating blank line). This
// is what the deny-rule header-regex matches against.
func (h Headers) Render() string {
	var b strings.Builder
	for _, f := range h {
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteString("\r\n")
	}
	return b.String()
}

// RequestLine holds a parsed HTTP/1.1 request line.
type RequestLine struct {
	Method        string
	RequestTarget string
	Version       string
}

// ResponseLine holds a parsed HTTP/1.1 status line.
type ResponseLine struct {
	Version    string
	StatusCode int
	Reason     string
}

// Request is a fully parsed request head. Body, if any, is framed
// separately (see Framing) and is not held here.
type Request struct {
	Line    RequestLine
	Headers Headers
}

// Response is a fully parsed response head.
type Response struct {
	Line    ResponseLine
	Headers Headers
}
