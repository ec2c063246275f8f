package proxy

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gns3/gns3-proxy/internal/clog"
)

// spliceResult reports how many bytes moved in each direction during
// tunneling; backendToClient feeds the access-log ResponseBytes field.
type spliceResult struct {
	clientToBackend int64
	backendToClient int64
}

// splice performs a full-duplex byte copy between the client and backend
// connections, closing each write-half as its read-half goes idle or hits
// EOF, and blocks until both directions have finished.
func splice(clientConn, backendConn net.Conn, idleTimeout time.Duration) spliceResult {
	var wg sync.WaitGroup
	var result spliceResult
	wg.Add(2)

	go func() {
		defer wg.Done()
		n := copyWithIdleTimeout(backendConn, clientConn, idleTimeout)
		atomic.StoreInt64(&result.clientToBackend, n)
		if tcpConn, ok := backendConn.(*net.TCPConn); ok {
			if err := tcpConn.CloseWrite(); err != nil {
				clog.Warn("splice: close-write backend: %v", err)
			}
		}
	}()

	go func() {
		defer wg.Done()
		n := copyWithIdleTimeout(clientConn, backendConn, idleTimeout)
		atomic.StoreInt64(&result.backendToClient, n)
		if tcpConn, ok := clientConn.(*net.TCPConn); ok {
			if err := tcpConn.CloseWrite(); err != nil {
				clog.Warn("splice: close-write client: %v", err)
			}
		}
	}()

	wg.Wait()
	return result
}

// copyWithIdleTimeout copies from src to dst, resetting the read/write
// deadlines on every iteration. The copy stops on EOF, any I/O error, or
// once idleTimeout elapses with no data transferred. It returns the number
// of bytes copied.
func copyWithIdleTimeout(dst, src net.Conn, idleTimeout time.Duration) int64 {
	buf := make([]byte, 32*1024)
	var total int64
	for {
		if err := src.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			clog.Warn("copyWithIdleTimeout: set read deadline: %v", err)
		}

		n, err := src.Read(buf)
		if n > 0 {
			if werr := dst.SetWriteDeadline(time.Now().Add(idleTimeout)); werr != nil {
				clog.Warn("copyWithIdleTimeout: set write deadline: %v", werr)
			}
			written, writeErr := dst.Write(buf[:n])
			total += int64(written)
			if writeErr != nil {
				return total
			}
		}
		if err != nil {
			return total
		}
	}
}
