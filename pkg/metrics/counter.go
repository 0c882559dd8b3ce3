package metrics

import "sync/atomic"

// Counter is a monotonically increasing event count.
type Counter struct {
	name  string
	value atomic.Int64
}

func newCounter(name string) *Counter {
	return &Counter{name: name}
}

// Inc adds one to the counter.
func (c *Counter) Inc() {
	if !enabled.Load() {
		return
	}
	c.value.Add(1)
}

// Name returns the counter name.
func (c *Counter) Name() string {
	return c.name
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return c.value.Load()
}

// Reset sets the counter back to zero.
func (c *Counter) Reset() {
	c.value.Store(0)
}

// History and synchronization counters.
var (
	Undos           = newCounter("undo")
	Redos           = newCounter("redo")
	Reloads         = newCounter("reload")
	ReloadConflicts = newCounter("reload_conflict")
)

// AllCounters returns all registered counters.
func AllCounters() []*Counter {
	return []*Counter{Undos, Redos, Reloads, ReloadConflicts}
}
