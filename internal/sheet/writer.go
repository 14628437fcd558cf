package sheet

import (
	"fmt"
)

// CapacityInvariantViolation is panicked when a sheet has accepted more than
// capacity-1 data rows. It can only happen through a Writer bug, so it fails
// loudly instead of degrading.
type CapacityInvariantViolation struct {
	Sheet string
	Rows  int
	Max   int
}

func (e *CapacityInvariantViolation) Error() string {
	return fmt.Sprintf("sheet: %q holds %d data rows, max %d", e.Sheet, e.Rows, e.Max)
}

// SheetInfo describes one emitted sheet. Sealed sheets are immutable; an
// unsealed sheet at the time of an abort is discoverable but incomplete.
type SheetInfo struct {
	Name      string
	Partition string
	Index     int // 1-based within the partition
	Rows      int // data rows, header excluded
	Sealed    bool
}

type partState struct {
	label         string
	header        []string
	format        Format
	index         int // current sheet index, starts at 1
	headerWritten bool
	rowsOnSheet   int
	sealed        []SheetInfo
}

// Writer packs (partition, row) pairs into sheets of at most capacity-1 data
// rows plus one header row each. It exclusively owns sheet numbering and
// row-count state per partition; two streams writing the same partition must
// be serialized through one Writer.
type Writer struct {
	sink     Sink
	capacity int
	parts    map[string]*partState
	order    []string
}

// NewWriter wraps a sink. capacity is the row ceiling per sheet INCLUDING
// the header row; it must leave room for the header and at least one data
// row.
func NewWriter(sink Sink, capacity int) (*Writer, error) {
	if capacity < 2 {
		return nil, fmt.Errorf("sheet: capacity %d leaves no room for header plus data", capacity)
	}
	return &Writer{
		sink:     sink,
		capacity: capacity,
		parts:    make(map[string]*partState),
	}, nil
}

// SheetName returns the sheet title for a partition's n-th sheet: the bare
// label first, then "<label> (n)".
func SheetName(label string, index int) string {
	if index == 1 {
		return label
	}
	return fmt.Sprintf("%s (%d)", label, index)
}

func (w *Writer) part(partition string, header []string, f Format) *partState {
	if ps, ok := w.parts[partition]; ok {
		return ps
	}
	ps := &partState{
		label:  partition,
		header: header,
		format: f,
		index:  1,
	}
	w.parts[partition] = ps
	w.order = append(w.order, partition)
	return ps
}

func (ps *partState) sheetName() string { return SheetName(ps.label, ps.index) }

func (ps *partState) seal() {
	if !ps.headerWritten {
		return
	}
	ps.sealed = append(ps.sealed, SheetInfo{
		Name:      ps.sheetName(),
		Partition: ps.label,
		Index:     ps.index,
		Rows:      ps.rowsOnSheet,
		Sealed:    true,
	})
	ps.index++
	ps.rowsOnSheet = 0
	ps.headerWritten = false
}

// Touch opens the partition's current sheet if none is open, writing only
// the header. A partition whose every row was filtered away still yields a
// header-only sheet.
func (w *Writer) Touch(partition string, header []string, f Format) error {
	ps := w.part(partition, header, f)
	if ps.headerWritten {
		return nil
	}
	if err := w.sink.BeginSheet(ps.sheetName(), ps.header, ps.format); err != nil {
		return fmt.Errorf("begin sheet %q: %w", ps.sheetName(), err)
	}
	ps.headerWritten = true
	return nil
}

// Write appends one row to a partition. The header and format stick on the
// partition's first write; later values are ignored.
func (w *Writer) Write(partition string, header []string, f Format, row []string) error {
	return w.WriteChunk(partition, header, f, [][]string{row})
}

// WriteChunk appends a pre-batched chunk of rows. A chunk that overflows the
// current sheet is split at the exact offset that fills the sheet; the
// remainder continues onto freshly opened sheets, so one call may span and
// fill several sheets — but never over-fills one and never splits a row.
func (w *Writer) WriteChunk(partition string, header []string, f Format, rows [][]string) error {
	ps := w.part(partition, header, f)

	for len(rows) > 0 {
		if ps.rowsOnSheet >= w.capacity-1 {
			ps.seal()
		}
		if !ps.headerWritten {
			if err := w.sink.BeginSheet(ps.sheetName(), ps.header, ps.format); err != nil {
				return fmt.Errorf("begin sheet %q: %w", ps.sheetName(), err)
			}
			ps.headerWritten = true
		}

		n := w.capacity - 1 - ps.rowsOnSheet
		if n > len(rows) {
			n = len(rows)
		}
		if err := w.sink.AppendRows(ps.sheetName(), rows[:n]); err != nil {
			return fmt.Errorf("append to sheet %q: %w", ps.sheetName(), err)
		}
		ps.rowsOnSheet += n
		if ps.rowsOnSheet > w.capacity-1 {
			panic(&CapacityInvariantViolation{Sheet: ps.sheetName(), Rows: ps.rowsOnSheet, Max: w.capacity - 1})
		}
		rows = rows[n:]
	}
	return nil
}

// Flush seals every open sheet and returns all sheet infos in emission
// order. The Writer can keep accepting rows afterwards; new rows open new
// sheets.
func (w *Writer) Flush() []SheetInfo {
	for _, p := range w.order {
		w.parts[p].seal()
	}
	return w.Sheets()
}

// Sheets returns the current sheet inventory without sealing. An in-progress
// sheet appears with Sealed=false, which is how an aborted run reports its
// partial output.
func (w *Writer) Sheets() []SheetInfo {
	var out []SheetInfo
	for _, p := range w.order {
		ps := w.parts[p]
		out = append(out, ps.sealed...)
		if ps.headerWritten {
			out = append(out, SheetInfo{
				Name:      ps.sheetName(),
				Partition: ps.label,
				Index:     ps.index,
				Rows:      ps.rowsOnSheet,
			})
		}
	}
	return out
}
