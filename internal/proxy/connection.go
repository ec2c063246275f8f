package proxy

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gns3/gns3-proxy/internal/accesslog"
	"github.com/gns3/gns3-proxy/internal/auth"
	"github.com/gns3/gns3-proxy/internal/clog"
	"github.com/gns3/gns3-proxy/internal/config"
	"github.com/gns3/gns3-proxy/internal/httpmsg"
	"github.com/gns3/gns3-proxy/internal/policy"
)

// headReadTimeout bounds how long the worker waits for a client to finish
// sending its request line and headers (spec.md §5).
const headReadTimeout = 30 * time.Second

// denyBodyCeiling bounds how much of a request body is buffered in memory
// to evaluate a deny rule's body pattern against. A body larger than this
// is matched on its truncated prefix only (spec.md §4.3's documented
// default).
const denyBodyCeiling = 1024 * 1024

// projectsPathSuffix identifies the GNS3 project-list endpoint that the
// response filter applies to (spec.md §4.5).
const projectsPathSuffix = "/projects"

// worker holds everything a connection needs to run the full ACCEPT ->
// READ_REQUEST_HEAD -> AUTHORIZE -> DIAL_BACKEND -> FORWARD_REQUEST ->
// TUNNEL_OR_FILTER -> CLOSE state machine (spec.md §4.4).
type worker struct {
	snap           *config.Snapshot
	mapping        *policy.Mapping
	projectFilters *policy.ProjectFilters
	denyRules      *policy.DenyRules
	whitelist      *policy.IPWhitelist
	users          *auth.UserStore
	access         *accesslog.Logger
}

// backendHandle bundles a live backend connection with the bufio.Reader
// already wrapping it, so a reused backend connection does not lose bytes
// buffered between one kept-alive exchange and the next, and the server
// name it is routed to, so a later request's mapping can be compared
// against it before deciding whether to redial.
type backendHandle struct {
	conn       net.Conn
	reader     *bufio.Reader
	serverName string
}

func (b *backendHandle) close() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// handle drives one accepted client connection end to end, looping back to
// READ_REQUEST_HEAD for as long as both client and backend keep the
// connection alive (spec.md §4.4). It never panics on client/backend I/O
// errors; every request, including every one handled after a keep-alive
// loop, is logged and turned into an access-log entry with the
// appropriate disposition.
func (w *worker) handle(conn net.Conn) {
	defer conn.Close()

	peerAddr := conn.RemoteAddr().String()
	peerIP := peerHost(conn)
	br := bufio.NewReader(conn)

	var backend *backendHandle
	defer func() { backend.close() }()

	for iteration := 0; ; iteration++ {
		var keepAlive bool
		backend, keepAlive = w.handleOneExchange(conn, br, peerAddr, peerIP, iteration, backend)
		if !keepAlive {
			return
		}
	}
}

// handleOneExchange runs a single ACCEPT/READ_REQUEST_HEAD -> AUTHORIZE ->
// DIAL_BACKEND -> FORWARD_REQUEST -> TUNNEL_OR_FILTER pass (spec.md §4.4)
// on conn, reusing backend if it is already dialed to the server this
// request's username maps to. It returns the backend handle in effect after
// the exchange (nil if none is open; when the second result is false the
// caller closes any handle returned) and whether the worker should loop
// back to READ_REQUEST_HEAD for another request on the same client socket.
func (w *worker) handleOneExchange(conn net.Conn, br *bufio.Reader, peerAddr string, peerIP net.IP, iteration int, backend *backendHandle) (*backendHandle, bool) {
	start := time.Now()
	ev := &accesslog.Event{Timestamp: start, PeerAddr: peerAddr}
	logEvent := true
	defer func() {
		if logEvent {
			ev.Duration = time.Since(start)
			w.access.Log(ev)
		}
	}()

	if err := conn.SetReadDeadline(time.Now().Add(headReadTimeout)); err != nil {
		clog.Warn("proxy: set head read deadline: %v", err)
	}

	reqLine, err := httpmsg.ReadRequestLine(br)
	if err != nil {
		if iteration > 0 && errors.Is(err, io.EOF) {
			// The client simply closed an idle keep-alive connection
			// without sending another request: nothing new to log.
			logEvent = false
			return backend, false
		}
		ev.Disposition = string(DispositionClientAbort)
		return backend, false
	}
	headers, err := httpmsg.ReadHeaders(br)
	if err != nil {
		ev.Disposition = string(DispositionClientAbort)
		return backend, false
	}
	ev.Method = reqLine.Method
	ev.RequestTarget = reqLine.RequestTarget

	if strings.EqualFold(reqLine.Method, http.MethodConnect) {
		// CONNECT tunneling to network emulation backends is not part of
		// this proxy's surface: every request is routed by username to a
		// configured server, never by client-supplied target.
		writeSimpleResponse(conn, http.StatusBadRequest, "CONNECT not supported")
		ev.Disposition = string(DispositionNoBackend)
		return backend, false
	}

	username, outcome := auth.Authenticate(headers, peerIP, w.whitelist, w.snap.AuthHeaderName, w.users, w.snap.AllowAnyUser)
	if outcome != auth.OK {
		writeSimpleResponse(conn, http.StatusUnauthorized, "authentication required")
		ev.Disposition = string(DispositionAuthFail)
		return backend, false
	}
	ev.Username = username

	framing, headers := httpmsg.DetermineFraming(headers)
	matchBody, forwardBody, err := readRequestBody(br, framing, denyBodyCeiling)
	if err != nil {
		ev.Disposition = string(DispositionClientAbort)
		return backend, false
	}

	if ruleID, hit := w.denyRules.Evaluate(policy.DenyInput{
		Username:      username,
		Method:        reqLine.Method,
		RequestTarget: reqLine.RequestTarget,
		HeaderBlock:   headers.Render(),
		Body:          matchBody,
	}); hit {
		writeSimpleResponse(conn, http.StatusForbidden, "request denied by policy")
		ev.Disposition = string(denyDisposition(ruleID))
		return backend, false
	}

	serverName, ok := w.mapping.Resolve(username)
	if !ok {
		serverName = w.snap.DefaultServerName
	}
	backendAddr, ok := w.snap.Servers[serverName]
	if serverName == "" || !ok {
		writeSimpleResponse(conn, http.StatusBadGateway, "no backend configured for user")
		ev.Disposition = string(DispositionNoBackend)
		return backend, false
	}
	ev.Backend = serverName

	if backend == nil || backend.serverName != serverName {
		backend.close()
		conn2, err := dialBackend(context.Background(), fmt.Sprintf("%s:%d", backendAddr, w.snap.BackendPort))
		if err != nil {
			clog.Warn("proxy: dial backend %s: %v", serverName, err)
			writeSimpleResponse(conn, http.StatusBadGateway, "backend unreachable")
			ev.Disposition = string(DispositionBackendUnreachable)
			return nil, false
		}
		backend = &backendHandle{conn: conn2, reader: bufio.NewReader(conn2), serverName: serverName}
	}

	outHeaders := rewriteRequestHeaders(headers, w.snap, backendAddr)
	if err := writeRequestHead(backend.conn, reqLine, outHeaders); err != nil {
		backend.close()
		ev.Disposition = string(DispositionBackendUnreachable)
		return nil, false
	}
	if forwardBody != nil {
		if err := forwardBody(backend.conn); err != nil {
			backend.close()
			ev.Disposition = string(DispositionBackendUnreachable)
			return nil, false
		}
	}

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		clog.Warn("proxy: clear client read deadline: %v", err)
	}

	filterRegex, filterApplies := w.projectFilters.Resolve(username)
	if filterApplies && isProjectsRequest(reqLine) {
		matchProject := func(name string) bool { return policy.MatchProject(filterRegex, name) }
		status, bytesWritten, keepAlive, err := w.forwardAndFilterResponse(conn, backend.reader, reqLine, headers, matchProject)
		ev.StatusCode = status
		ev.ResponseBytes = bytesWritten
		if err != nil {
			backend.close()
			ev.Disposition = string(DispositionBackendUnreachable)
			return nil, false
		}
		ev.Disposition = string(DispositionOK)
		if !keepAlive {
			backend.close()
			return nil, false
		}
		return backend, true
	}

	status, bytesWritten, keepAlive, upgraded, err := w.forwardResponse(conn, backend.conn, backend.reader, reqLine, headers, w.snap.InactivityTimeout)
	ev.StatusCode = status
	ev.ResponseBytes = bytesWritten
	if err != nil {
		backend.close()
		ev.Disposition = string(DispositionBackendUnreachable)
		return nil, false
	}
	ev.Disposition = string(DispositionOK)
	if upgraded || !keepAlive {
		// A successful upgrade hands the connection to opaque splicing for
		// the rest of its life (spec.md §4.4): there is no HTTP request to
		// read again afterwards, so the worker never loops back for one.
		backend.close()
		return nil, false
	}
	return backend, true
}

// wantsKeepAlive reports whether version/headers indicate the sender wants
// this HTTP/1.x connection kept open for another exchange: HTTP/1.1 is
// persistent by default unless "Connection: close" is present; HTTP/1.0 is
// not persistent unless "Connection: keep-alive" is present.
func wantsKeepAlive(version string, headers httpmsg.Headers) bool {
	if conn, ok := headers.Get("Connection"); ok {
		for _, tok := range strings.Split(conn, ",") {
			switch strings.ToLower(strings.TrimSpace(tok)) {
			case "close":
				return false
			case "keep-alive":
				return true
			}
		}
	}
	return version != "HTTP/1.0"
}

// forwardResponse relays the backend's response head to client, then either
// relays the body with its framing preserved (a content-length body is
// streamed; a chunked body is read in full into memory, then written) or,
// for a 101 handshake, switches to opaque bidirectional
// splicing for the remaining lifetime of the connection. keepAlive is only
// meaningful when upgraded is false: it reports whether both the request
// and the response asked to keep the connection open, per spec.md §4.4.
func (w *worker) forwardResponse(client net.Conn, backendConn net.Conn, br *bufio.Reader, reqLine httpmsg.RequestLine, reqHeaders httpmsg.Headers, idleTimeout time.Duration) (status int, bytesWritten int64, keepAlive bool, upgraded bool, err error) {
	respLine, err := httpmsg.ReadResponseLine(br)
	if err != nil {
		return 0, 0, false, false, err
	}
	respHeaders, err := httpmsg.ReadHeaders(br)
	if err != nil {
		return 0, 0, false, false, err
	}

	if respLine.StatusCode == http.StatusSwitchingProtocols {
		if err := writeResponseHead(client, respLine, respHeaders); err != nil {
			return respLine.StatusCode, 0, false, true, err
		}
		// Any bytes the backend already sent past its header block (the
		// first WebSocket frame, typically) are sitting in br's internal
		// buffer; drain them to the client before handing off to splice,
		// which reads directly off the raw backend socket.
		var drained int64
		if n := br.Buffered(); n > 0 {
			buf, _ := br.Peek(n)
			written, werr := client.Write(buf)
			drained = int64(written)
			if werr != nil {
				return respLine.StatusCode, drained, false, true, werr
			}
			br.Discard(n)
		}
		result := splice(client, backendConn, idleTimeout)
		return respLine.StatusCode, drained + result.backendToClient, false, true, nil
	}

	framing, respHeaders := httpmsg.DetermineFraming(respHeaders)
	if err := writeResponseHead(client, respLine, respHeaders); err != nil {
		return respLine.StatusCode, 0, false, false, err
	}

	var n int64
	if framing.HasBody && httpmsg.ResponseHasBody(reqLine.Method, respLine.StatusCode) {
		if framing.Chunked {
			var buf bytes.Buffer
			if err := httpmsg.CopyChunkedBody(&buf, br); err != nil {
				return respLine.StatusCode, 0, false, false, err
			}
			written, werr := client.Write(buf.Bytes())
			n = int64(written)
			if werr != nil {
				return respLine.StatusCode, n, false, false, werr
			}
		} else {
			n, err = io.CopyN(client, br, framing.ContentLength)
			if err != nil {
				return respLine.StatusCode, n, false, false, err
			}
		}
	}

	keepAlive = wantsKeepAlive(reqLine.Version, reqHeaders) && wantsKeepAlive(respLine.Version, respHeaders)
	return respLine.StatusCode, n, keepAlive, false, nil
}

func peerHost(conn net.Conn) net.IP {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}

func isProjectsRequest(line httpmsg.RequestLine) bool {
	return strings.EqualFold(line.Method, http.MethodGet) && strings.HasSuffix(strings.TrimSuffix(line.RequestTarget, "/"), projectsPathSuffix)
}

// rewriteRequestHeaders applies the request transformations described in
// spec.md §4.4: swap client Basic credentials for the configured backend
// credentials, point Host at the resolved backend, and drop
// Expect: 100-continue since the proxy always reads the full body itself.
func rewriteRequestHeaders(h httpmsg.Headers, snap *config.Snapshot, backendAddr string) httpmsg.Headers {
	out := h.Del("Expect")
	backendAuth := "Basic " + basicAuthValue(snap.BackendUser, snap.BackendPassword)
	out = out.Set("Authorization", backendAuth)
	out = out.Set("Host", fmt.Sprintf("%s:%d", backendAddr, snap.BackendPort))
	return out
}

func basicAuthValue(user, pass string) string {
	return httpBasicEncode(user + ":" + pass)
}

func writeRequestHead(w io.Writer, line httpmsg.RequestLine, headers httpmsg.Headers) error {
	if _, err := fmt.Fprintf(w, "%s %s %s\r\n", line.Method, line.RequestTarget, line.Version); err != nil {
		return err
	}
	if _, err := io.WriteString(w, headers.Render()); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

func writeSimpleResponse(w io.Writer, status int, message string) {
	body := message + "\n"
	fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		status, http.StatusText(status), len(body), body)
}

// readRequestBody consumes the client's request body (if any) according to
// framing, returning up to ceiling bytes decoded for deny-rule body
// matching plus a function that writes the full body (including anything
// beyond the match ceiling) to the backend connection.
func readRequestBody(br *bufio.Reader, framing httpmsg.Framing, ceiling int64) (matchBody string, forwardBody func(io.Writer) error, err error) {
	if !framing.HasBody {
		return "", func(io.Writer) error { return nil }, nil
	}

	if framing.Chunked {
		decoded, raw, _, err := httpmsg.DecodeChunkedBodyForFilter(br, ceiling)
		if err != nil {
			return "", nil, err
		}
		return string(decoded), func(w io.Writer) error {
			_, err := w.Write(raw)
			return err
		}, nil
	}

	capped := framing.ContentLength
	if capped > ceiling {
		capped = ceiling
	}
	buf := make([]byte, capped)
	if _, err := io.ReadFull(br, buf); err != nil {
		return "", nil, err
	}
	remaining := framing.ContentLength - capped
	return string(buf), func(w io.Writer) error {
		if _, err := w.Write(buf); err != nil {
			return err
		}
		if remaining > 0 {
			_, err := io.CopyN(w, br, remaining)
			return err
		}
		return nil
	}, nil
}
