// Package rows defines a pooled Row type shared across parser → filter →
// dedup → spool to reduce heap churn on multi-gigabyte inputs.
package rows

import "sync"

// Row is a pooled container holding one logical record's field values.
//
// Ownership contract:
//   - Exactly one goroutine "owns" a Row at a time.
//   - A Row may be passed downstream via channels (ownership transfer).
//   - The final consumer must call Free() AFTER it is fully done with the Row
//     (and anything referencing r.V).
//
// On cancellation paths, call Drop() instead of Free(): a Row returned to the
// pool during an unwind can be reused by the parser while a drain-safe stage
// downstream still reads it.
type Row struct {
	V    []string
	Line int // 1-based logical record number within the source, if known
}

var rowPool sync.Pool

// Get returns a pooled Row with length fieldCount, all elements cleared.
func Get(fieldCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < fieldCount {
			r.V = make([]string, fieldCount)
		}
		r.V = r.V[:fieldCount]
		for i := range r.V {
			r.V[i] = ""
		}
		r.Line = 0
		return r
	}
	return &Row{V: make([]string, fieldCount)}
}

// Free returns the Row to the pool.
// Call this ONLY when no other goroutine can observe r or r.V.
func (r *Row) Free() {
	rowPool.Put(r)
}

// Drop discards the Row WITHOUT returning it to the pool.
func (r *Row) Drop() {
	r.V = nil
	r.Line = 0
}
