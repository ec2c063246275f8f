package proxy

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gns3/gns3-proxy/internal/clog"
)

// acceptErrorBackoff is how long the acceptor sleeps after a transient
// accept error (e.g. EMFILE) before retrying, per spec.md §4.1.
const acceptErrorBackoff = 50 * time.Millisecond

// listen opens the bind address, raising the process's open-file limit
// towards want (best effort) and enabling SO_REUSEADDR so a restart does
// not have to wait out TIME_WAIT. The configured backlog is only logged: it
// is not applied to the socket, whose listen backlog is chosen by Go's
// runtime (the OS-level maximum).
func listen(addr string, backlog int, openFileLimit int) (net.Listener, error) {
	raiseFileLimit(uint64(openFileLimit))

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	clog.Info("proxy: listening on %s (backlog=%d)", addr, backlog)
	return ln, nil
}

// raiseFileLimit attempts to raise RLIMIT_NOFILE towards want. Failure is
// logged but not fatal: the acceptor still runs, just with less headroom
// before hitting EMFILE under load.
func raiseFileLimit(want uint64) {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		clog.Warn("proxy: getrlimit(NOFILE): %v", err)
		return
	}
	if rlim.Cur >= want {
		return
	}
	target := want
	if rlim.Max < target {
		target = rlim.Max
	}
	rlim.Cur = target
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		clog.Warn("proxy: setrlimit(NOFILE, %d): %v", target, err)
	}
}

// acceptLoop accepts connections until the listener is closed, dispatching
// each to handle in its own goroutine. Transient accept errors back off
// briefly instead of spinning; a closed listener ends the loop cleanly.
func acceptLoop(ln net.Listener, handle func(net.Conn)) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if isTemporary(err) {
				clog.Warn("proxy: accept error: %v", err)
				time.Sleep(acceptErrorBackoff)
				continue
			}
			clog.Info("proxy: acceptor stopping: %v", err)
			return
		}
		go handle(conn)
	}
}

func isTemporary(err error) bool {
	type temporary interface {
		Temporary() bool
	}
	te, ok := err.(temporary)
	return ok && te.Temporary()
}
