package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// ErrStalled is returned when a transfer makes no progress for the
// configured idle window.
var ErrStalled = errors.New("transfer stalled")

// DefaultIdleTimeout is how long a copy may go without any bytes moving
// before it is abandoned.
const DefaultIdleTimeout = 30 * time.Second

type copyResult struct {
	written int64
	err     error
}

// CopyWithIdleTimeout copies src to dst, failing with ErrStalled if no
// bytes move for idleTimeout, and honoring ctx cancellation.
//
// The copy runs in a goroutine so a Read blocked on a dead peer cannot
// pin the caller; on a stall or cancellation the caller is expected to
// close src's underlying source (an HTTP response body), which unblocks
// the copier and lets it exit.
func CopyWithIdleTimeout(ctx context.Context, dst io.Writer, src io.Reader, idleTimeout time.Duration) (int64, error) {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	var progress atomic.Int64
	done := make(chan copyResult, 1)

	go func() {
		written, err := io.Copy(dst, &countingReader{r: src, n: &progress})
		done <- copyResult{written: written, err: err}
	}()

	ticker := time.NewTicker(idleTimeout / 4)
	defer ticker.Stop()

	last := int64(0)
	lastChange := time.Now()
	for {
		select {
		case res := <-done:
			return res.written, res.err
		case <-ctx.Done():
			return progress.Load(), ctx.Err()
		case <-ticker.C:
			current := progress.Load()
			if current != last {
				last = current
				lastChange = time.Now()
				continue
			}
			if time.Since(lastChange) >= idleTimeout {
				return current, fmt.Errorf("%w after %s without progress", ErrStalled, idleTimeout)
			}
		}
	}
}

type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
