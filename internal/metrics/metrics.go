// Package metrics defines the minimal metrics surface the pipeline depends
// on. Concrete backends (Datadog, no-op) live in subpackages or here; the
// pipeline code never imports a vendor SDK.
package metrics

import "time"

// Counter names emitted by the pipeline. Free-form strings are accepted;
// these are the ones dashboards should expect.
const (
	RecordsRead      = "records.read"
	RecordsKept      = "records.kept"
	RecordsMalformed = "records.malformed"
	DedupDropped     = "dedup.dropped"
	RowsWritten      = "rows.written"
	SheetsSealed     = "sheets.sealed"
)

type Backend interface {
	IncCounter(name string, delta float64)
	ObserveDuration(name string, d time.Duration)
	// Flush submits buffered metrics now. Backends also flush periodically
	// and on Close.
	Flush() error
	Close() error
}

// Nop discards everything. The default when no backend is configured.
type Nop struct{}

func (Nop) IncCounter(string, float64)            {}
func (Nop) ObserveDuration(string, time.Duration) {}
func (Nop) Flush() error                          { return nil }
func (Nop) Close() error                          { return nil }
