// Package metrics keeps in-memory timings and counts for netinv: how long
// edit commands, forest extraction and inventory I/O take, and how often
// the history is walked or the inventory reloaded.
//
// Values are updated atomically, so file watcher goroutines and the
// editing goroutine can record concurrently. Collection is on unless
// NI_METRICS=0 is set.
//
//	func (c *InsertNode[V]) Execute() (*tree.Node[V], error) {
//	    defer metrics.Timer(metrics.CommandExecute)()
//	    ...
//	}
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("NI_METRICS") != "0")
}

// Enabled reports whether metrics are collected.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled turns collection on or off.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// TimingMetric accumulates the durations of one operation.
type TimingMetric struct {
	name  string
	count atomic.Int64
	total atomic.Int64 // ns
	max   atomic.Int64 // ns
	min   atomic.Int64 // ns, 0 until the first sample
}

var timings []*TimingMetric

func newTimingMetric(name string) *TimingMetric {
	m := &TimingMetric{name: name}
	timings = append(timings, m)
	return m
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled.Load() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.total.Add(ns)
	for {
		old := m.max.Load()
		if ns <= old || m.max.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.min.Load()
		if (old != 0 && ns >= old) || m.min.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of samples.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// MaxNs returns the longest sample.
func (m *TimingMetric) MaxNs() int64 { return m.max.Load() }

// MinNs returns the shortest sample, 0 when there is none.
func (m *TimingMetric) MinNs() int64 { return m.min.Load() }

// AvgNs returns the mean sample, 0 when there is none.
func (m *TimingMetric) AvgNs() int64 {
	n := m.count.Load()
	if n == 0 {
		return 0
	}
	return m.total.Load() / n
}

// Reset drops every sample.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
	m.min.Store(0)
}

// TimingStats is a snapshot of one TimingMetric in milliseconds.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Stats snapshots the metric.
func (m *TimingMetric) Stats() TimingStats {
	ms := func(ns int64) float64 { return float64(ns) / float64(time.Millisecond) }
	return TimingStats{
		Name:    m.name,
		Count:   m.Count(),
		TotalMs: ms(m.total.Load()),
		AvgMs:   ms(m.AvgNs()),
		MaxMs:   ms(m.MaxNs()),
		MinMs:   ms(m.MinNs()),
	}
}

// Timer starts timing m; call the result to record the elapsed time.
func Timer(m *TimingMetric) func() {
	if m == nil || !enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() { m.Record(time.Since(start)) }
}

// Timing metrics recorded by the other packages.
var (
	CommandExecute = newTimingMetric("command_execute")
	CommandRevoke  = newTimingMetric("command_revoke")
	ForestBuild    = newTimingMetric("forest_build")
	InventoryLoad  = newTimingMetric("inventory_load")
	InventorySave  = newTimingMetric("inventory_save")
	ClipboardCodec = newTimingMetric("clipboard_codec")
)

// AllTimingMetrics returns every timing metric in registration order.
func AllTimingMetrics() []*TimingMetric {
	return timings
}

// AllTimingStats snapshots the timing metrics that have samples.
func AllTimingStats() []TimingStats {
	var stats []TimingStats
	for _, m := range timings {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}

// ResetAll clears every timing metric and counter.
func ResetAll() {
	for _, m := range timings {
		m.Reset()
	}
	for _, c := range AllCounters() {
		c.Reset()
	}
}
