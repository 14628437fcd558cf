// Package sheet packs an unbounded stream of partition-tagged rows into
// capacity-bounded sheets and hands them to a Sink.
//
// The Writer owns all sheet-numbering and row-count state; Sinks only ever
// see "begin sheet" and "append rows" instructions and can therefore be
// bound to any concrete format (XLSX, delimited files, test fakes).
package sheet

import (
	"fmt"
	"sync"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
)

// Format carries the per-sheet formatting directives applied once at
// header-write time.
type Format struct {
	FreezeHeader bool
	AutoFilter   bool
	// ForceTextCols are 0-based column indexes that must keep a
	// text-preserving format (leading-zero codes and the like).
	ForceTextCols []int
}

// Sink receives sheet-write instructions from the Writer.
//
// Contract:
//   - BeginSheet is called exactly once per sheet, before any rows for it.
//   - AppendRows is called with rows for the most recently begun sheet name;
//     names never repeat.
//   - Close finalizes the output; no calls may follow it.
type Sink interface {
	BeginSheet(name string, header []string, f Format) error
	AppendRows(name string, rows [][]string) error
	Close() error
}

// ---- sink registry (backends self-register from init()) ----

type sinkFactory func(path string, opt config.Options) (Sink, error)

var (
	sinkMu        sync.RWMutex
	sinkFactories = map[string]sinkFactory{}
)

// RegisterSink registers a sink backend under a kind (e.g. "xlsx", "csv").
// Call from an init() function in the backend package. Registering the same
// kind twice panics; ambiguous backend selection should fail fast.
func RegisterSink(kind string, f sinkFactory) {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	if kind == "" {
		panic("sheet: RegisterSink called with empty kind")
	}
	if f == nil {
		panic("sheet: RegisterSink called with nil factory")
	}
	if _, exists := sinkFactories[kind]; exists {
		panic(fmt.Sprintf("sheet: sink factory already registered for kind=%q", kind))
	}
	sinkFactories[kind] = f
}

// NewSink constructs a sink using the registered backend factory.
func NewSink(kind, path string, opt config.Options) (Sink, error) {
	if kind == "" {
		return nil, fmt.Errorf("sheet: missing sink kind")
	}
	sinkMu.RLock()
	f := sinkFactories[kind]
	sinkMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("sheet: unsupported sink kind=%q", kind)
	}
	return f(path, opt)
}
