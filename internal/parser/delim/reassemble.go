// Package delim reassembles logical records from irregular delimited text.
//
// Inputs this package exists for (bulk registry exports, hand-edited dumps)
// legally contain raw newlines inside quoted fields, typographic quote
// variants, and backslash-escaped quotes. encoding/csv rejects or mangles
// those, so the record boundary decision is made here by an explicit
// quote-parity state machine:
//
//   - physical lines accumulate into a buffer,
//   - the whole buffer is quote-normalized after every appended line,
//   - the buffer is one complete record exactly when a left-to-right scan
//     ends outside any quoted region (even quote parity).
//
// Delimiter and quote character are configuration; dialect detection is the
// caller's problem.
package delim

import "strings"

// quoteFolder folds typographic double/single quote variants to their ASCII
// counterparts. Mirrors the quote map the source data was produced against.
var quoteFolder = strings.NewReplacer(
	"“", `"`, // “
	"”", `"`, // ”
	"„", `"`, // „
	"‟", `"`, // ‟
	"«", `"`, // «
	"»", `"`, // »
	"‚", "'", // ‚
	"‘", "'", // ‘
	"’", "'", // ’
	"‹", "'", // ‹
	"›", "'", // ›
	"´", "'", // ´
	"`", "'",
)

// NormalizeQuotes folds typographic quotes to ASCII and rewrites
// backslash-escaped double quotes to the doubled-quote form, so the parity
// scan and the field splitter see one canonical escape style.
func NormalizeQuotes(s string) string {
	if s == "" {
		return s
	}
	s = quoteFolder.Replace(s)
	return strings.ReplaceAll(s, `\"`, `""`)
}

// Balanced reports whether a left-to-right scan of s ends outside any quoted
// region. A doubled quote inside a quoted region is literal content and does
// not toggle the state.
func Balanced(s string, quote rune) bool {
	inq := false
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		if rs[i] != quote {
			continue
		}
		if inq && i+1 < len(rs) && rs[i+1] == quote {
			i++ // escaped quote, consume both
			continue
		}
		inq = !inq
	}
	return !inq
}

// SplitFields splits one complete record into its ordered field values.
// A delimiter inside a quoted region is literal text; a doubled quote inside
// a quoted region yields one literal quote; enclosing quotes of a fully
// quoted field are stripped.
func SplitFields(s string, delim, quote rune) []string {
	out := make([]string, 0, 8)
	var buf strings.Builder
	inq := false
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		ch := rs[i]
		switch {
		case ch == quote:
			if inq && i+1 < len(rs) && rs[i+1] == quote {
				buf.WriteRune(quote)
				i++
				continue
			}
			inq = !inq
		case ch == delim && !inq:
			out = append(out, buf.String())
			buf.Reset()
		default:
			buf.WriteRune(ch)
		}
	}
	out = append(out, buf.String())
	return out
}

// JoinFields re-emits fields as one record line, quoting any field that
// contains the delimiter, the quote character, or a newline. Inverse of
// SplitFields up to quoting style.
func JoinFields(fields []string, delim, quote rune) string {
	var b strings.Builder
	qs := string(quote)
	for i, f := range fields {
		if i > 0 {
			b.WriteRune(delim)
		}
		if strings.ContainsRune(f, delim) || strings.ContainsRune(f, quote) || strings.ContainsRune(f, '\n') {
			b.WriteString(qs)
			b.WriteString(strings.ReplaceAll(f, qs, qs+qs))
			b.WriteString(qs)
		} else {
			b.WriteString(f)
		}
	}
	return b.String()
}
