// Package sse extracts server-sent event frames from a decrypted byte
// stream. The stream arrives in arbitrary fragments, so the package is
// built around a bounded byte queue that tolerates partial delivery and
// supports exact push-back of frames that could not be forwarded yet.
package sse

// Buffer is a growable but bounded byte queue. Bytes are appended at the
// tail, inspected with Peek, and removed from the head with Consume.
// Prepend re-inserts bytes at the head for retry on a later poll.
type Buffer struct {
	data      []byte
	limit     int
	highWater int
}

// NewBuffer creates a buffer holding at most limit bytes.
func NewBuffer(limit int) *Buffer {
	return &Buffer{
		data:  make([]byte, 0, limit),
		limit: limit,
	}
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Free returns the remaining capacity in bytes.
func (b *Buffer) Free() int {
	return b.limit - len(b.data)
}

// HighWater returns the largest observed fill level.
func (b *Buffer) HighWater() int {
	return b.highWater
}

// Peek returns a view of all buffered bytes. The view is only valid until
// the next mutation of the buffer.
func (b *Buffer) Peek() []byte {
	return b.data
}

// Append adds bytes at the tail of the buffer.
// Returns ErrBufferFull (and appends nothing) if p does not fit.
func (b *Buffer) Append(p []byte) (err error) {
	if len(p) > b.Free() {
		err = ErrBufferFull
		return
	}

	b.data = append(b.data, p...)
	if len(b.data) > b.highWater {
		b.highWater = len(b.data)
	}

	return
}

// Consume discards n bytes from the head of the buffer.
func (b *Buffer) Consume(n int) {
	if n > len(b.data) {
		n = len(b.data)
	}
	copy(b.data, b.data[n:])
	b.data = b.data[:len(b.data)-n]
}

// Prepend re-inserts bytes at the head of the buffer, ahead of any bytes
// already queued. Returns ErrBufferFull (and inserts nothing) if p does
// not fit; the caller must treat that as data loss, not retry.
func (b *Buffer) Prepend(p []byte) (err error) {
	if len(p) > b.Free() {
		err = ErrBufferFull
		return
	}

	b.data = b.data[:len(b.data)+len(p)]
	copy(b.data[len(p):], b.data[:len(b.data)-len(p)])
	copy(b.data, p)
	if len(b.data) > b.highWater {
		b.highWater = len(b.data)
	}

	return
}

// Reset discards all buffered bytes. The high-water mark is preserved.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}
