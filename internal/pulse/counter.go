// Package pulse tallies radiation detector events. The counter is the only
// piece of state shared with a concurrent execution context (the pulse
// source), so it is kept lock-free.
package pulse

import "sync/atomic"

// Counter is a monotonically increasing event tally. Pulse sources
// increment it; the aggregator drains it once per sampling window.
type Counter struct {
	n atomic.Uint64
}

// Pulse records one detector event. Safe to call from any goroutine;
// does no I/O and never blocks.
func (c *Counter) Pulse() {
	c.n.Add(1)
}

// Count returns the current tally without resetting it.
func (c *Counter) Count() uint64 {
	return c.n.Load()
}

// ReadAndReset atomically retrieves the tally and zeroes it. A pulse
// arriving during the swap lands in the next window; one arriving exactly
// at the swap boundary may be dropped, which is an accepted approximation.
func (c *Counter) ReadAndReset() uint64 {
	return c.n.Swap(0)
}
