// Package pipeline orchestrates a run: concurrent per-source ingest
// pipelines stage filtered rows into the spool, then one sequential merge
// pass unions the schemas, deduplicates, and packs capacity-bounded sheets.
//
// The split matters for correctness, not just throughput: sheet numbering
// and dedup state are single-owner by contract, so everything after the
// spool is one goroutine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/metrics"
	"github.com/sverdz/CSV-and-EXEL/internal/sheet"
	"github.com/sverdz/CSV-and-EXEL/internal/spool"
)

// Logger is the minimal logging interface the pipeline needs.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Runner wires the pipeline's collaborators. The factory fields exist so
// tests can inject a memory spool and a fake sink without touching the
// registries.
type Runner struct {
	Log     Logger
	Metrics metrics.Backend

	NewSpool func(ctx context.Context, cfg config.Spool) (spool.Spool, error)
	NewSink  func(kind, path string, opt config.Options) (sheet.Sink, error)
}

// NewDefaultRunner returns a Runner bound to the registered spool and sink
// backends, stderr logging, and no metrics.
func NewDefaultRunner() *Runner {
	return &Runner{
		Log:      log.Default(),
		Metrics:  metrics.Nop{},
		NewSpool: spool.New,
		NewSink:  sheet.NewSink,
	}
}

const defaultWorkers = 4

// Run executes the full pipeline for cfg and returns the emitted sheets.
// cfg must already be validated and every source's Partition filled in.
func (r *Runner) Run(ctx context.Context, cfg config.Pipeline) ([]sheet.SheetInfo, error) {
	if r.Log == nil {
		r.Log = log.Default()
	}
	if r.Metrics == nil {
		r.Metrics = metrics.Nop{}
	}
	for i, src := range cfg.Sources {
		if src.Partition == "" {
			return nil, fmt.Errorf("pipeline: sources[%d] (%s) has no partition", i, src.Path)
		}
	}

	sp, err := r.NewSpool(ctx, cfg.Spool)
	if err != nil {
		return nil, fmt.Errorf("open spool: %w", err)
	}
	defer sp.Close()

	if err := sp.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset spool: %w", err)
	}

	ingestStart := time.Now()
	if err := r.ingestAll(ctx, sp, cfg); err != nil {
		return nil, err
	}
	r.Metrics.ObserveDuration("stage.ingest", time.Since(ingestStart))

	sink, err := r.NewSink(cfg.Output.Kind, cfg.Output.Path, cfg.Output.Options)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	w, err := sheet.NewWriter(sink, cfg.Output.RowCeiling)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}

	mergeStart := time.Now()
	sheets, err := r.merge(ctx, sp, w, cfg)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}
	if err := sink.Close(); err != nil {
		return nil, fmt.Errorf("close output: %w", err)
	}
	r.Metrics.ObserveDuration("stage.merge", time.Since(mergeStart))

	_ = r.Metrics.Flush()
	return sheets, nil
}

// ingestAll fans the sources out over a bounded worker pool.
//
// A source that fails to ingest aborts only its own contribution: its
// partially spooled stream is dropped, the failure is logged, and the run
// continues on the surviving sources. Cancellation and an all-sources
// failure still abort the run; structural misconfiguration was rejected
// before any worker started.
func (r *Runner) ingestAll(ctx context.Context, sp spool.Spool, cfg config.Pipeline) error {
	workers := cfg.Runtime.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(cfg.Sources) {
		workers = len(cfg.Sources)
	}

	type failure struct {
		src config.Source
		id  string
		err error
	}

	sem := make(chan struct{}, workers)
	failures := make(chan failure, len(cfg.Sources))
	var wg sync.WaitGroup

	for i, src := range cfg.Sources {
		wg.Add(1)
		go func(index int, src config.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sourceID := uuid.NewString()
			if err := r.ingestSource(ctx, sp, cfg, src, index, sourceID); err != nil {
				failures <- failure{src: src, id: sourceID, err: err}
			}
		}(i, src)
	}
	wg.Wait()
	close(failures)

	failed := 0
	for f := range failures {
		if errors.Is(f.err, context.Canceled) || errors.Is(f.err, context.DeadlineExceeded) {
			return fmt.Errorf("ingest %s: %w", f.src.Path, f.err)
		}
		failed++
		r.Log.Printf("ingest %s: %v, source skipped", f.src.Path, f.err)
		if err := sp.RemoveSource(ctx, f.id); err != nil {
			return fmt.Errorf("drop failed source %s: %w", f.src.Path, err)
		}
	}
	if failed == len(cfg.Sources) {
		return fmt.Errorf("pipeline: every source failed to ingest")
	}
	return nil
}
