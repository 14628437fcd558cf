package pipeline

import (
	"context"
	"fmt"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/filter"
	"github.com/sverdz/CSV-and-EXEL/internal/metrics"
	"github.com/sverdz/CSV-and-EXEL/internal/parser/delim"
	"github.com/sverdz/CSV-and-EXEL/internal/rows"
	"github.com/sverdz/CSV-and-EXEL/internal/source"
	"github.com/sverdz/CSV-and-EXEL/internal/spool"
	"github.com/sverdz/CSV-and-EXEL/internal/table"
)

const (
	defaultBatchSize     = 1000
	defaultChannelBuffer = 256
)

// parserOptions derives the effective parser option bag for one source:
// the global parser options with the source's delimiter on top.
func parserOptions(base config.Options, src config.Source) config.Options {
	opt := make(config.Options, len(base)+1)
	for k, v := range base {
		opt[k] = v
	}
	if src.Delimiter != "" {
		opt["delimiter"] = src.Delimiter
	}
	return opt
}

// ingestSource runs one source's ingest pipeline: decode, reassemble logical
// records, compile filters against the source's own header, and stage kept
// rows into the spool under sourceID. index is the source's position in the
// run configuration and fixes its within-partition merge order.
//
// The first logical record is the header. Filters bind to this source's
// header independently of other sources; a spec that resolves on one file
// and not another is skipped only where it fails.
func (r *Runner) ingestSource(ctx context.Context, sp spool.Spool, cfg config.Pipeline, src config.Source, index int, sourceID string) error {
	rc, err := source.Open(src.Path, src.Encoding)
	if err != nil {
		return err
	}

	buf := cfg.Runtime.ChannelBuffer
	if buf <= 0 {
		buf = defaultChannelBuffer
	}
	batchSize := cfg.Runtime.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	out := make(chan *rows.Row, buf)
	errCh := make(chan error, 1)

	onErr := func(line int, err error) {
		r.Metrics.IncCounter(metrics.RecordsMalformed, 1)
		r.Log.Printf("%s: record %d: %v", src.Path, line, err)
	}

	go func() {
		errCh <- delim.StreamRecords(ctx, rc, parserOptions(cfg.Parser.Options, src), out, onErr)
		close(out)
	}()

	var (
		headerSeen bool
		preds      []*filter.Predicate
		batch      [][]string
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := sp.Append(ctx, sourceID, batch); err != nil {
			return fmt.Errorf("spool append: %w", err)
		}
		batch = batch[:0]
		return nil
	}
	fail := func(err error) error {
		for row := range out {
			row.Drop()
		}
		<-errCh
		return err
	}

	for row := range out {
		if !headerSeen {
			headerSeen = true
			h := table.NewHeader(append([]string(nil), row.V...))
			row.Free()
			preds = filter.CompileAll(h, cfg.Filters, r.Log)
			if err := sp.AddSource(ctx, src.Partition, sourceID, index, h.Names); err != nil {
				return fail(fmt.Errorf("spool add source: %w", err))
			}
			continue
		}

		r.Metrics.IncCounter(metrics.RecordsRead, 1)
		if !filter.Evaluate(row.V, preds) {
			row.Free()
			continue
		}
		batch = append(batch, append([]string(nil), row.V...))
		row.Free()
		r.Metrics.IncCounter(metrics.RecordsKept, 1)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return fail(err)
			}
		}
	}

	if err := <-errCh; err != nil {
		return err
	}
	if !headerSeen {
		// Nothing in the file, not even a header. The source contributes no
		// columns and no partition sheet.
		r.Log.Printf("%s: empty source, skipped", src.Path)
		return nil
	}
	return flush()
}
