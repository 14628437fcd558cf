// Package summary computes report sheets over the merged output stream:
// a value-frequency table or a distinct-value list for one column.
package summary

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/table"
)

// Logger is the minimal logging interface used for spec warnings.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

const (
	KindFrequency = "frequency"
	KindUnique    = "unique"
)

func canonicalKind(k string) string {
	switch strings.ToLower(strings.TrimSpace(k)) {
	case KindFrequency, "freq", "counts":
		return KindFrequency
	case KindUnique, "distinct":
		return KindUnique
	}
	return ""
}

// Collector accumulates one summary over rows already projected onto the
// output schema. Observe is not safe for concurrent use; the merge pass is
// sequential by contract.
type Collector struct {
	kind     string
	col      table.ColumnRef
	label    string
	caseMode string
	counts   map[string]int
}

// NewCollector compiles one spec against the output header. Like filter
// specs, a summary that cannot be compiled degrades to a warning and is
// skipped.
func NewCollector(h table.Header, spec config.SummarySpec, log Logger) (*Collector, bool) {
	if log == nil {
		log = nopLogger{}
	}

	kind := canonicalKind(spec.Kind)
	if kind == "" {
		log.Printf("summary: unknown kind %q, spec skipped", spec.Kind)
		return nil, false
	}
	col, err := h.Resolve(spec.Column)
	if err != nil {
		log.Printf("summary: %v, spec skipped", err)
		return nil, false
	}

	label := spec.Sheet
	if label == "" {
		label = "Summary " + col.Name
	}
	return &Collector{
		kind:     kind,
		col:      col,
		label:    label,
		caseMode: strings.ToLower(spec.Case),
		counts:   make(map[string]int),
	}, true
}

// NewCollectors compiles every spec, reporting each skipped one independently.
func NewCollectors(h table.Header, specs []config.SummarySpec, log Logger) []*Collector {
	out := make([]*Collector, 0, len(specs))
	for _, s := range specs {
		if c, ok := NewCollector(h, s, log); ok {
			out = append(out, c)
		}
	}
	return out
}

// Observe folds one output row into the summary. Empty values (after
// trimming) are not counted.
func (c *Collector) Observe(fields []string) {
	v := ""
	if c.col.Index < len(fields) {
		v = fields[c.col.Index]
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	switch c.caseMode {
	case "upper":
		v = strings.ToUpper(v)
	case "lower":
		v = strings.ToLower(v)
	}
	c.counts[v]++
}

// Label is the sheet label the summary emits under.
func (c *Collector) Label() string { return c.label }

// Header is the summary sheet's header row.
func (c *Collector) Header() []string {
	if c.kind == KindFrequency {
		return []string{c.col.Name, "Count"}
	}
	return []string{c.col.Name}
}

// Rows materializes the summary. Frequency rows sort by count descending,
// then value ascending; unique rows sort by value ascending.
func (c *Collector) Rows() [][]string {
	values := make([]string, 0, len(c.counts))
	for v := range c.counts {
		values = append(values, v)
	}

	if c.kind == KindUnique {
		sort.Strings(values)
		out := make([][]string, len(values))
		for i, v := range values {
			out[i] = []string{v}
		}
		return out
	}

	sort.Slice(values, func(i, j int) bool {
		ci, cj := c.counts[values[i]], c.counts[values[j]]
		if ci != cj {
			return ci > cj
		}
		return values[i] < values[j]
	})
	out := make([][]string, len(values))
	for i, v := range values {
		out[i] = []string{v, strconv.Itoa(c.counts[v])}
	}
	return out
}
