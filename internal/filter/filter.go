// Package filter compiles user filter specs into row predicates.
//
// The open config form (config.FilterSpec) is narrowed here into a closed
// set of six predicate kinds, validated once at compile time. A spec that
// cannot be compiled (unresolvable column, invalid pattern, unknown mode)
// degrades to a warning and is skipped; it never aborts the batch.
package filter

import (
	"math"
	"regexp"
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

// Predicate is one compiled filter bound to a column of a specific header.
type Predicate struct {
	Col       table.ColumnRef
	ForceText bool
	keep      func(v string) bool
}

// Keep evaluates the predicate against one record's fields. A column index
// beyond the record's field count reads as the empty field.
func (p *Predicate) Keep(fields []string) bool {
	v := ""
	if p.Col.Index < len(fields) {
		v = fields[p.Col.Index]
	}
	return p.keep(v)
}

// Mode names accepted in config, alongside the source tool's numeric codes.
const (
	ModeEquals    = "equals"     // "1"
	ModeContains  = "contains"   // "2"
	ModeIn        = "in"         // "3"
	ModeNumEquals = "num_equals" // "4"
	ModeRange     = "range"      // "5"
	ModeRegex     = "regex"      // "6"
)

func canonicalMode(m string) string {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "1", ModeEquals:
		return ModeEquals
	case "2", ModeContains:
		return ModeContains
	case "3", ModeIn, "isin", "list":
		return ModeIn
	case "4", ModeNumEquals:
		return ModeNumEquals
	case "5", ModeRange:
		return ModeRange
	case "6", ModeRegex, "pattern":
		return ModeRegex
	case "", "0", "none":
		return ""
	}
	return "?"
}

// Compile builds a predicate for one spec against one header. The second
// return is false when the spec is skipped (with a warning); the caller
// treats a skipped spec as vacuously true.
func Compile(h table.Header, spec config.FilterSpec, log Logger) (*Predicate, bool) {
	if log == nil {
		log = nopLogger{}
	}

	mode := canonicalMode(spec.Mode)
	if mode == "" {
		return nil, false // filtering disabled, not worth a warning
	}
	if mode == "?" {
		log.Printf("filter: unknown mode %q, spec skipped", spec.Mode)
		return nil, false
	}

	col, err := h.Resolve(spec.Column)
	if err != nil {
		log.Printf("filter: %v, spec skipped", err)
		return nil, false
	}

	p := &Predicate{Col: col, ForceText: spec.ForceText}
	trim := spec.Trim()
	caseMode := spec.Case
	if caseMode == "" {
		caseMode = "upper"
	}

	switch mode {
	case ModeEquals:
		want := normalizeValue(spec.Value, caseMode, trim)
		p.keep = func(v string) bool {
			return normalizeValue(v, caseMode, trim) == want
		}

	case ModeContains:
		// The needle is matched literally; no pattern semantics leak in.
		needle := foldCase(spec.Value, caseMode)
		p.keep = func(v string) bool {
			return strings.Contains(normalizeValue(v, caseMode, trim), needle)
		}

	case ModeIn:
		set := make(map[string]struct{}, len(spec.Values))
		for _, val := range spec.Values {
			set[foldCase(val, caseMode)] = struct{}{}
		}
		p.keep = func(v string) bool {
			_, ok := set[normalizeValue(v, caseMode, trim)]
			return ok
		}

	case ModeNumEquals:
		target, ok := ParseNumber(spec.Value)
		p.keep = func(v string) bool {
			if !ok {
				return false
			}
			x, xok := ParseNumber(v)
			return xok && x == target
		}

	case ModeRange:
		lo, ok := ParseNumber(spec.Min)
		if !ok {
			lo = math.Inf(-1)
		}
		hi, ok := ParseNumber(spec.Max)
		if !ok {
			hi = math.Inf(1)
		}
		p.keep = func(v string) bool {
			x, xok := ParseNumber(v)
			return xok && x >= lo && x <= hi
		}

	case ModeRegex:
		pattern := spec.Pattern
		if pattern == "" {
			pattern = ".*"
		}
		rx, err := regexp.Compile(pattern)
		if err != nil {
			log.Printf("filter: invalid pattern %q: %v, spec skipped", pattern, err)
			return nil, false
		}
		rxCase := spec.Case
		if rxCase == "" {
			rxCase = "keep"
		}
		p.keep = func(v string) bool {
			return rx.MatchString(normalizeValue(v, rxCase, trim))
		}
	}

	return p, true
}

// CompileAll compiles every spec, reporting each skipped one independently.
func CompileAll(h table.Header, specs []config.FilterSpec, log Logger) []*Predicate {
	out := make([]*Predicate, 0, len(specs))
	for _, s := range specs {
		if p, ok := Compile(h, s, log); ok {
			out = append(out, p)
		}
	}
	return out
}

// Evaluate combines predicates by logical AND over one record.
func Evaluate(fields []string, preds []*Predicate) bool {
	for _, p := range preds {
		if !p.Keep(fields) {
			return false
		}
	}
	return true
}

// ParseNumber parses a decimal number, tolerating a comma as the decimal
// separator. Returns false for anything unparseable; numeric coercion
// failure is a condition, never an error.
func ParseNumber(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, false
	}
	t = strings.ReplaceAll(t, ",", ".")
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func foldCase(s, mode string) string {
	switch mode {
	case "upper":
		return strings.ToUpper(s)
	case "lower":
		return strings.ToLower(s)
	}
	return s
}

func normalizeValue(s, caseMode string, trim bool) string {
	if trim {
		s = strings.TrimSpace(s)
	}
	return foldCase(s, caseMode)
}
