package parapng

import "github.com/five82/parapng/internal/pipeline"

// countingSink wraps the caller's sink to track total bytes written for
// Stats, while forwarding Write/Flush semantics (including a short write
// being a failure) unchanged.
type countingSink struct {
	inner pipeline.Sink
	n     int
}

func (c *countingSink) Write(p []byte) (int, error) {
	n, err := c.inner.Write(p)
	c.n += n
	return n, err
}

func (c *countingSink) Flush() error {
	if f, ok := c.inner.(pipeline.Flusher); ok {
		return f.Flush()
	}
	return nil
}
