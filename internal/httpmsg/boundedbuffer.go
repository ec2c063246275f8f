package httpmsg

import (
	"bytes"
	"errors"
	"sync"
)

// ErrCeilingExceeded is returned by BoundedBuffer.Write once the configured
// ceiling would be exceeded, and by DecodeChunkedBodyForFilter when a
// chunked body's wire bytes exceed twice its ceiling.
var ErrCeilingExceeded = errors.New("bounded buffer ceiling exceeded")

// BoundedBuffer is an in-memory buffer with a hard size ceiling. Unlike
// go-rawhttp's disk-spilling Buffer, gns3-proxy never spills to disk: once
// the ceiling is reached, writes fail with ErrCeilingExceeded instead of
// growing without bound. The project-list filter and deny-rule body
// matching do not use it; they apply their own ceilings.
type BoundedBuffer struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	ceiling int64
}

// NewBoundedBuffer creates a BoundedBuffer that rejects writes once its
// contents would exceed ceiling bytes.
func NewBoundedBuffer(ceiling int64) *BoundedBuffer {
	return &BoundedBuffer{ceiling: ceiling}
}

// Write implements io.Writer. It either writes all of p or, if doing so
// would exceed the ceiling, writes nothing and returns ErrCeilingExceeded.
func (b *BoundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if int64(b.buf.Len())+int64(len(p)) > b.ceiling {
		return 0, ErrCeilingExceeded
	}
	return b.buf.Write(p)
}

// Bytes returns the buffered content. The returned slice is shared with the
// buffer's internal storage and must not be mutated.
func (b *BoundedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}

// Len returns the number of bytes currently buffered.
func (b *BoundedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

// Reset discards all buffered content, allowing reuse.
func (b *BoundedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
