package session

import "sync/atomic"

// Clock allocates journal sequence numbers.
//
// Only state-changing outcomes consume a seq; NoChange and Restart never
// do, so seq numbers in a journal are dense.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start.
// Used to resume a session after replaying its journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last allocated sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
