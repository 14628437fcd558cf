// Package spool stages partition-tagged row streams between the independent
// per-file pipelines and the single sequential merge pass.
//
// Workers append; the merge stage lists sources in deterministic order
// (partition ascending, then configured source index) and reads each
// source's rows back in append sequence. Ordering by the configured index
// rather than registration keeps the merge independent of which worker
// goroutine reached the store first. Reads are repeatable, which is what
// lets the merge run the two-pass last-occurrence dedup without buffering
// rows.
//
// Backends self-register from init(), mirroring the sheet sink registry.
package spool

import (
	"context"
	"fmt"
	"sync"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
)

// SourceInfo identifies one spooled source stream.
type SourceInfo struct {
	Partition string
	Source    string // stable stream id, unique per run
	Index     int    // position of the source in the run's configuration
	Header    []string
}

// Spool is the staging store contract.
//
// Concurrency: AddSource/Append/RemoveSource may be called from concurrent
// worker pipelines (distinct sources); Sources/Read belong to the single
// merge pass after all workers finished.
type Spool interface {
	// Reset clears any content left over from a previous run.
	Reset(ctx context.Context) error

	// AddSource registers a source stream and its header before any Append.
	// index is the source's position in the run configuration; it decides
	// within-partition merge order.
	AddSource(ctx context.Context, partition, source string, index int, header []string) error

	// Append stages a batch of rows for a registered source, preserving
	// order across calls.
	Append(ctx context.Context, source string, rows [][]string) error

	// RemoveSource discards a source stream and everything appended to it.
	// Removing an unknown source is a no-op.
	RemoveSource(ctx context.Context, source string) error

	// Sources lists registered streams ordered by partition ascending, then
	// source index ascending.
	Sources(ctx context.Context) ([]SourceInfo, error)

	// Read streams one source's rows back in append order.
	Read(ctx context.Context, source string, fn func(fields []string) error) error

	Close() error
}

// ---- backend registry ----

type Factory func(ctx context.Context, cfg config.Spool) (Spool, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a spool backend under a kind (e.g. "sqlite").
// Call from an init() function in the backend package. Registering the same
// kind twice panics; ambiguous backend selection should fail fast.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("spool: Register called with empty kind")
	}
	if f == nil {
		panic("spool: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("spool: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a spool using the registered backend factory.
func New(ctx context.Context, cfg config.Spool) (Spool, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("spool: missing kind")
	}
	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("spool: unsupported kind=%q", cfg.Kind)
	}
	return f(ctx, cfg)
}
