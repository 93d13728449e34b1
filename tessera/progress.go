package tessera

import "sync/atomic"

// Progress is the cancellation/progress signal polled by tile schedulers.
// Advance is called after each completed work item; Canceled is checked
// between dispatched work items, never mid-tile.
type Progress interface {
	Advance(n int)
	Canceled() bool
}

// NullProgress ignores progress and never cancels.
type NullProgress struct{}

func (NullProgress) Advance(n int)  {}
func (NullProgress) Canceled() bool { return false }

// Counter is a monotonically advancing work counter plus a cancellation flag.
// All methods are safe for concurrent use.
type Counter struct {
	count    int64
	canceled int32
}

func (c *Counter) Advance(n int) {
	atomic.AddInt64(&c.count, int64(n))
}

// Count returns the number of completed work items so far.
func (c *Counter) Count() int64 {
	return atomic.LoadInt64(&c.count)
}

// Cancel requests cooperative termination.
func (c *Counter) Cancel() {
	atomic.StoreInt32(&c.canceled, 1)
}

func (c *Counter) Canceled() bool {
	return atomic.LoadInt32(&c.canceled) != 0
}
