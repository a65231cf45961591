package cache

import "sync/atomic"

// seqClock is a monotonic logical clock. Every cache read is stamped with a
// ticket when it starts and every cache write with a sequence number, so
// "newer" means later in operation order, never later in wall-clock arrival.
type seqClock struct {
	seq atomic.Int64
}

// Next returns the next sequence number
func (c *seqClock) Next() int64 {
	return c.seq.Add(1)
}
