package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/dedup"
	"github.com/sverdz/CSV-and-EXEL/internal/metrics"
	"github.com/sverdz/CSV-and-EXEL/internal/sheet"
	"github.com/sverdz/CSV-and-EXEL/internal/spool"
	"github.com/sverdz/CSV-and-EXEL/internal/summary"
	"github.com/sverdz/CSV-and-EXEL/internal/table"
)

// merge is the single sequential pass after all ingest workers finished:
// list spooled sources in partition order, union their headers, replay each
// source's rows realigned onto the union schema, deduplicate, and pack the
// survivors into capacity-bounded sheets.
func (r *Runner) merge(ctx context.Context, sp spool.Spool, w *sheet.Writer, cfg config.Pipeline) ([]sheet.SheetInfo, error) {
	infos, err := sp.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list spooled sources: %w", err)
	}
	if len(infos) == 0 {
		r.Log.Printf("merge: nothing staged, no output sheets")
		return w.Flush(), nil
	}

	union := table.NewUnion()
	mappings := make([][]int, len(infos))
	for i, info := range infos {
		mappings[i] = union.Add(table.NewHeader(info.Header))
	}
	header := union.Header
	width := header.Len()

	format := r.outputFormat(cfg, header)

	var eng *dedup.Engine
	if cfg.Dedup != nil {
		keys, err := header.ResolveMulti(cfg.Dedup.Keys)
		if err != nil {
			return nil, fmt.Errorf("dedup keys: %w", err)
		}
		policy := dedup.Policy(strings.ToLower(strings.TrimSpace(cfg.Dedup.Keep)))
		eng = dedup.New(keys, cfg.Dedup.Normalize, policy)
	}

	collectors := summary.NewCollectors(header, cfg.Summaries, r.Log)

	batchSize := cfg.Runtime.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	// Last-occurrence dedup needs to know, before anything is written,
	// which occurrence of each key is final. Pass one replays every source
	// recording the last global sequence number per key; the write pass
	// then keeps exactly the row carrying it.
	var lastSeq map[string]int64
	if eng != nil && eng.Policy() == dedup.KeepLast {
		lastSeq = make(map[string]int64)
		var seq int64
		for i, info := range infos {
			mapping := mappings[i]
			err := sp.Read(ctx, info.Source, func(fields []string) error {
				seq++
				lastSeq[eng.Key(table.Realign(fields, mapping, width))] = seq
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("dedup scan %s: %w", info.Source, err)
			}
		}
	}

	var seq int64
	for i, info := range infos {
		mapping := mappings[i]

		if err := w.Touch(info.Partition, header.Names, format); err != nil {
			return nil, err
		}

		batch := make([][]string, 0, batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := w.WriteChunk(info.Partition, header.Names, format, batch); err != nil {
				return err
			}
			batch = batch[:0]
			return nil
		}

		err := sp.Read(ctx, info.Source, func(fields []string) error {
			row := table.Realign(fields, mapping, width)
			seq++

			if eng != nil {
				if lastSeq != nil {
					if lastSeq[eng.Key(row)] != seq {
						r.Metrics.IncCounter(metrics.DedupDropped, 1)
						return nil
					}
				} else if !eng.IsFirst(row) {
					r.Metrics.IncCounter(metrics.DedupDropped, 1)
					return nil
				}
			}

			for _, c := range collectors {
				c.Observe(row)
			}
			batch = append(batch, row)
			r.Metrics.IncCounter(metrics.RowsWritten, 1)
			if len(batch) >= batchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", info.Source, err)
		}
		if err := flush(); err != nil {
			return nil, err
		}
	}

	// Summary sheets come after every data sheet, in spec order.
	for _, c := range collectors {
		f := sheet.Format{FreezeHeader: format.FreezeHeader, AutoFilter: format.AutoFilter}
		if err := w.Touch(c.Label(), c.Header(), f); err != nil {
			return nil, err
		}
		if err := w.WriteChunk(c.Label(), c.Header(), f, c.Rows()); err != nil {
			return nil, err
		}
	}

	sheets := w.Flush()
	r.Metrics.IncCounter(metrics.SheetsSealed, float64(len(sheets)))
	for _, s := range sheets {
		r.Log.Printf("sheet %q: %d rows", s.Name, s.Rows)
	}
	return sheets, nil
}

// outputFormat resolves the per-sheet formatting directives against the
// union header: explicit force-text tokens from the output config, plus the
// column of any filter spec marked force_text.
func (r *Runner) outputFormat(cfg config.Pipeline, header table.Header) sheet.Format {
	f := sheet.Format{
		FreezeHeader: cfg.Output.Options.Bool("freeze_header", true),
		AutoFilter:   cfg.Output.Options.Bool("autofilter", true),
	}

	seen := make(map[int]struct{})
	add := func(idx int) {
		if _, dup := seen[idx]; dup {
			return
		}
		seen[idx] = struct{}{}
		f.ForceTextCols = append(f.ForceTextCols, idx)
	}

	for _, tok := range cfg.Output.ForceTextColumns {
		refs, err := header.ResolveMulti(tok)
		if err != nil {
			r.Log.Printf("output: force-text %v, token skipped", err)
			continue
		}
		for _, ref := range refs {
			add(ref.Index)
		}
	}
	for _, spec := range cfg.Filters {
		if !spec.ForceText {
			continue
		}
		ref, err := header.Resolve(spec.Column)
		if err != nil {
			// The filter itself was already warned about at compile time.
			continue
		}
		add(ref.Index)
	}
	return f
}
