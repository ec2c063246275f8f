package proxy

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/gns3/gns3-proxy/internal/clog"
	"github.com/gns3/gns3-proxy/internal/httpmsg"
)

func httpBasicEncode(userPass string) string {
	return base64.StdEncoding.EncodeToString([]byte(userPass))
}

// projectFilterCeiling bounds how large a project-list response body the
// filter will buffer in memory before giving up and forwarding the
// response untouched (spec.md §4.5).
const projectFilterCeiling = 4 * 1024 * 1024

// project is the subset of a GNS3 `/projects` listing entry the filter
// needs: everything else in each object is preserved verbatim via
// json.RawMessage round-tripping.
type project struct {
	Name *string `json:"name"`
}

// forwardAndFilterResponse reads the backend's response to a `/projects`
// request off br (a reader possibly already holding buffered bytes from a
// reused, kept-alive backend connection) and, if it is a well-formed 200
// JSON array, removes any entries whose "name" field does not match
// matchProject before relaying it to the client. Any response that isn't
// exactly that shape is forwarded byte-for-byte instead: a non-200 or
// bodiless response as it is, and an oversized, non-JSON-array, or
// malformed body with a warning logged. keepAlive reports whether both the
// request and the response agreed to keep the connection open (spec.md
// §4.4), so the caller can decide whether to loop for another exchange.
func (w *worker) forwardAndFilterResponse(client net.Conn, br *bufio.Reader, reqLine httpmsg.RequestLine, reqHeaders httpmsg.Headers, matchProject func(name string) bool) (status int, bytesWritten int64, keepAlive bool, err error) {
	respLine, err := httpmsg.ReadResponseLine(br)
	if err != nil {
		return 0, 0, false, err
	}
	headers, err := httpmsg.ReadHeaders(br)
	if err != nil {
		return 0, 0, false, err
	}
	framing, headers := httpmsg.DetermineFraming(headers)
	hasBody := framing.HasBody && httpmsg.ResponseHasBody("GET", respLine.StatusCode)
	keepAlive = wantsKeepAlive(reqLine.Version, reqHeaders) && wantsKeepAlive(respLine.Version, headers)

	if respLine.StatusCode != 200 || !hasBody {
		n, err := writeResponsePassthrough(client, respLine, headers, br, framing)
		return respLine.StatusCode, n, keepAlive, err
	}

	if !framing.Chunked && framing.ContentLength > projectFilterCeiling {
		clog.Warn("proxy: project-list filter skipped for a %d-byte response over the buffering ceiling", framing.ContentLength)
		n, err := writeResponsePassthrough(client, respLine, headers, br, framing)
		return respLine.StatusCode, n, keepAlive, err
	}

	filtered, rawFallback, ok := readAndFilterBody(br, framing, matchProject)
	if !ok {
		clog.Warn("proxy: project-list filter fell back to passthrough for a %d response", respLine.StatusCode)
		n, err := writeRawBody(client, respLine, headers, rawFallback)
		return respLine.StatusCode, n, keepAlive, err
	}

	outHeaders := headers.Del("Content-Length").Del("Transfer-Encoding").Set("Content-Length", fmt.Sprintf("%d", len(filtered)))
	if err := writeResponseHead(client, respLine, outHeaders); err != nil {
		return respLine.StatusCode, 0, keepAlive, err
	}
	n, err := client.Write(filtered)
	return respLine.StatusCode, int64(n), keepAlive, err
}

// readAndFilterBody decodes the response body (chunked or
// content-length-framed) and filters its top-level JSON array by project
// name. ok is false if the body could not be fully buffered within the
// filter ceiling or was not a JSON array of objects with a "name" field;
// in that case rawFallback holds the exact wire bytes read so far so the
// caller can forward them unmodified.
func readAndFilterBody(br *bufio.Reader, framing httpmsg.Framing, matchProject func(name string) bool) (filtered []byte, rawFallback []byte, ok bool) {
	var decoded []byte

	if framing.Chunked {
		d, raw, truncated, err := httpmsg.DecodeChunkedBodyForFilter(br, projectFilterCeiling)
		if err != nil || truncated {
			return nil, raw, false
		}
		decoded, rawFallback = d, raw
	} else {
		if framing.ContentLength > projectFilterCeiling {
			return nil, nil, false
		}
		buf := make([]byte, framing.ContentLength)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, buf, false
		}
		decoded, rawFallback = buf, buf
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(decoded, &raw); err != nil {
		return nil, rawFallback, false
	}

	kept := make([]json.RawMessage, 0, len(raw))
	for _, entry := range raw {
		var p project
		if err := json.Unmarshal(entry, &p); err != nil || p.Name == nil {
			return nil, rawFallback, false
		}
		if matchProject(*p.Name) {
			kept = append(kept, entry)
		}
	}

	out, err := json.Marshal(kept)
	if err != nil {
		return nil, rawFallback, false
	}
	return out, rawFallback, true
}

func writeResponseHead(w io.Writer, line httpmsg.ResponseLine, headers httpmsg.Headers) error {
	if _, err := fmt.Fprintf(w, "%s %d %s\r\n", line.Version, line.StatusCode, line.Reason); err != nil {
		return err
	}
	if _, err := io.WriteString(w, headers.Render()); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// writeRawBody writes the response head followed by body bytes already
// captured in raw, used for the filter's passthrough fallback.
func writeRawBody(w io.Writer, line httpmsg.ResponseLine, headers httpmsg.Headers, raw []byte) (int64, error) {
	if err := writeResponseHead(w, line, headers); err != nil {
		return 0, err
	}
	n, err := w.Write(raw)
	return int64(n), err
}

// writeResponsePassthrough relays a response that the project filter does
// not rewrite (non-200, no body, or a Content-Length body over the filter
// ceiling) unchanged.
func writeResponsePassthrough(w io.Writer, line httpmsg.ResponseLine, headers httpmsg.Headers, br *bufio.Reader, framing httpmsg.Framing) (int64, error) {
	if err := writeResponseHead(w, line, headers); err != nil {
		return 0, err
	}
	if !framing.HasBody {
		return 0, nil
	}
	if framing.Chunked {
		var buf bytes.Buffer
		if err := httpmsg.CopyChunkedBody(&buf, br); err != nil {
			return 0, err
		}
		n, err := w.Write(buf.Bytes())
		return int64(n), err
	}
	n, err := io.CopyN(w, br, framing.ContentLength)
	return n, err
}
