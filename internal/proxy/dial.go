package proxy

import (
	"context"
	"fmt"
	"net"
	"time"
)

const dialTimeout = 10 * time.Second

// dialBackend connects to the given backend address, applying the fixed
// dial timeout from the concurrency and resource model.
func dialBackend(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial backend %s: %w", addr, err)
	}
	return conn, nil
}
