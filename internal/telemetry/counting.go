package telemetry

import (
	"io"
	"sync/atomic"
)

// CountingReader wraps an io.Reader and counts bytes read through it.
// It is safe for concurrent reads of the count while reads are in progress.
type CountingReader struct {
	r     io.Reader
	count atomic.Int64
}

// NewCountingReader returns a CountingReader wrapping r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

// Read reads from the underlying reader and adds the read byte count.
func (cr *CountingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.count.Add(int64(n))
	return n, err
}

// Count returns the total number of bytes read so far.
func (cr *CountingReader) Count() int64 {
	return cr.count.Load()
}
