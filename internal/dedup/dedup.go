// Package dedup detects repeat occurrences of records by a normalized key
// tuple drawn from one or more key columns.
//
// An Engine owns its seen-key set for the lifetime of one merge run; the set
// only grows, linearly with distinct keys. State is an explicit owned
// object, never package-level, so each merge pass holds exactly one.
//
// The first-occurrence policy streams through IsFirst. The last-occurrence
// policy is its mirror and is driven by the caller as two passes over a
// re-readable row stream: pass one records the final sequence number per Key,
// pass two keeps only the row carrying it (see pipeline.Merge).
package dedup

import (
	"strings"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/table"
)

// Policy selects which of the duplicate records survives.
type Policy string

const (
	KeepFirst Policy = "first"
	KeepLast  Policy = "last"
)

// keySep separates tuple components inside the flattened key. 0x1F (unit
// separator) cannot appear in decoded text fields.
const keySep = "\x1f"

type Engine struct {
	keys      []table.ColumnRef
	normalize *config.Normalize
	policy    Policy
	seen      map[string]struct{}
}

// New builds an Engine for the given resolved key columns. normalize may be
// nil, in which case raw field text is the key.
func New(keys []table.ColumnRef, normalize *config.Normalize, policy Policy) *Engine {
	if policy == "" {
		policy = KeepFirst
	}
	return &Engine{
		keys:      keys,
		normalize: normalize,
		policy:    policy,
		seen:      make(map[string]struct{}),
	}
}

func (e *Engine) Policy() Policy { return e.policy }

// Key builds the normalized dedup key for one record. A key column index
// beyond the record's field count reads as the empty field.
func (e *Engine) Key(fields []string) string {
	parts := make([]string, len(e.keys))
	for i, k := range e.keys {
		v := ""
		if k.Index < len(fields) {
			v = fields[k.Index]
		}
		parts[i] = NormalizeKey(v, e.normalize)
	}
	return strings.Join(parts, keySep)
}

// IsFirst reports whether the record is the first occurrence of its key, and
// records the key.
func (e *Engine) IsFirst(fields []string) bool {
	k := e.Key(fields)
	if _, dup := e.seen[k]; dup {
		return false
	}
	e.seen[k] = struct{}{}
	return true
}

// NormalizeKey canonicalizes one key component. Order matters and mirrors
// the source tool: trim, drop internal spaces, drop hyphens, uppercase.
func NormalizeKey(v string, n *config.Normalize) string {
	if n == nil {
		return v
	}
	s := strings.TrimSpace(v)
	if n.DropSpaces {
		s = strings.ReplaceAll(s, " ", "")
	}
	if n.DropDashes {
		s = strings.ReplaceAll(s, "-", "")
	}
	if n.Upper {
		s = strings.ToUpper(s)
	}
	return s
}
