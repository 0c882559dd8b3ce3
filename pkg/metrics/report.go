package metrics

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"
)

// Snapshot is everything collected so far, in a form suitable for JSON.
type Snapshot struct {
	Timings  []TimingStats    `json:"timings"`
	Counters map[string]int64 `json:"counters"`
}

// Take captures the current timings (only those with data) and counters.
func Take() Snapshot {
	s := Snapshot{
		Timings:  AllTimingStats(),
		Counters: make(map[string]int64, len(AllCounters())),
	}
	for _, c := range AllCounters() {
		s.Counters[c.Name()] = c.Value()
	}
	return s
}

// WriteReport prints a human readable table of the snapshot.
func WriteReport(w io.Writer, s Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPERATION\tCOUNT\tAVG ms\tMAX ms\tTOTAL ms")
	for _, t := range s.Timings {
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\t%.3f\n", t.Name, t.Count, t.AvgMs, t.MaxMs, t.TotalMs)
	}
	for _, c := range AllCounters() {
		fmt.Fprintf(tw, "%s\t%d\t\t\t\n", c.Name(), s.Counters[c.Name()])
	}
	return tw.Flush()
}

// WriteJSON encodes the snapshot as indented JSON.
func WriteJSON(w io.Writer, s Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
