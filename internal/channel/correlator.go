package channel

import (
	"context"
	"sync"
	"time"

	"deskbridge/internal/domain"
)

// Result is the outcome of a correlated request.
type Result struct {
	Msg domain.ApplicationMessage
	Err error
}

// Correlator matches responses to outstanding requests by message id.
// Each entry settles at most once; later settlements report false.
type Correlator struct {
	mu      sync.Mutex
	entries map[int64]chan Result
	order   []int64
}

// NewCorrelator returns an empty Correlator.
func NewCorrelator() *Correlator {
	return &Correlator{entries: make(map[int64]chan Result)}
}

// Register installs a pending entry for id. The returned channel receives
// exactly one result.
func (c *Correlator) Register(id int64) <-chan Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan Result, 1)
	c.entries[id] = ch
	c.order = append(c.order, id)
	return ch
}

// Settle resolves id with msg.
func (c *Correlator) Settle(id int64, msg domain.ApplicationMessage) bool {
	ch, ok := c.take(id)
	if ok {
		ch <- Result{Msg: msg}
	}
	return ok
}

// Fail rejects id with err.
func (c *Correlator) Fail(id int64, err error) bool {
	ch, ok := c.take(id)
	if ok {
		ch <- Result{Err: err}
	}
	return ok
}

// FailAll rejects every pending entry and returns how many there were.
func (c *Correlator) FailAll(err error) int {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[int64]chan Result)
	c.order = nil
	c.mu.Unlock()

	for _, ch := range entries {
		ch <- Result{Err: err}
	}
	return len(entries)
}

// Forget drops id without settling it.
func (c *Correlator) Forget(id int64) { c.take(id) }

// Has reports whether id is pending.
func (c *Correlator) Has(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// Oldest returns the earliest registered pending id.
func (c *Correlator) Oldest() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.order) == 0 {
		return 0, false
	}
	return c.order[0], true
}

// Len returns the number of pending entries.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// WaitIdle polls until nothing is pending. It returns false when timeout
// elapses or ctx ends first.
func (c *Correlator) WaitIdle(ctx context.Context, timeout, poll time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(poll)
	defer tick.Stop()

	for {
		if c.Len() == 0 {
			return true
		}
		select {
		case <-tick.C:
		case <-deadline.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func (c *Correlator) take(id int64) (chan Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	delete(c.entries, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return ch, true
}
