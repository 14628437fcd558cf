// Package table models a logical table's header and resolves user-supplied
// column tokens against it.
//
// Resolution is a pure function of (header, token); no state survives a call.
// A ColumnRef is bound to the header it was resolved against and must be
// re-resolved for a different header.
package table

import (
	"fmt"
	"regexp"
	"strings"
)

// Header is the record that defines column identity, by position, for every
// record that follows it in one table.
type Header struct {
	Names []string
}

func NewHeader(names []string) Header {
	return Header{Names: names}
}

func (h Header) Len() int { return len(h.Names) }

// ColumnRef is a resolved (index, display-name) pair bound to one Header.
type ColumnRef struct {
	Index int
	Name  string
}

// ColumnNotFoundError reports a token no resolution rule matched.
// The caller decides whether that skips the spec or aborts the run.
type ColumnNotFoundError struct {
	Token string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("table: column %q not found", e.Token)
}

// cyrillicFold maps visually-identical Cyrillic letters to their Latin
// look-alikes so "Назва" headers and Latin tokens cross-match.
var cyrillicFold = strings.NewReplacer(
	"А", "A", "В", "B", "С", "C", "Е", "E", "Н", "H", "К", "K", "М", "M", "О", "O",
	"Р", "P", "Т", "T", "Х", "X", "У", "Y", "І", "I", "Ї", "I", "Й", "I", "Ґ", "G",
	"а", "a", "в", "b", "с", "c", "е", "e", "н", "h", "к", "k", "м", "m", "о", "o",
	"р", "p", "т", "t", "х", "x", "у", "y", "і", "i", "ї", "i", "й", "i", "ґ", "g",
)

var squeezeRE = regexp.MustCompile(`[\s\-\x{00A0}]+`)

// normName canonicalizes a column name for fuzzy matching: trim, lowercase,
// fold Cyrillic look-alikes, remove whitespace/hyphen/NBSP runs.
func normName(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	t = cyrillicFold.Replace(t)
	return squeezeRE.ReplaceAllString(t, "")
}

var lettersRE = regexp.MustCompile(`^[A-Za-z]+$`)

// letterIndex converts a spreadsheet-style column address to a 0-based index
// ("A"→0, "Z"→25, "AA"→26). s must be ASCII letters only.
func letterIndex(s string) int {
	n := 0
	for _, r := range strings.ToUpper(s) {
		n = n*26 + int(r-'A') + 1
	}
	return n - 1
}

// LetterFor is the inverse of letterIndex, for messages and sheet tooling.
func LetterFor(index int) string {
	n := index + 1
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// Resolve maps a user token to a column. Resolution order, first match wins:
//
//  1. exact, case-sensitive display-name match
//  2. letters-only token as a 1-based positional address, if within bounds
//  3. exact match on normalized names
//  4. normalized substring match in either direction, first column in
//     declared order
func (h Header) Resolve(token string) (ColumnRef, error) {
	for i, name := range h.Names {
		if name == token {
			return ColumnRef{Index: i, Name: name}, nil
		}
	}

	tok := strings.TrimSpace(token)
	if lettersRE.MatchString(tok) {
		if i := letterIndex(tok); i >= 0 && i < len(h.Names) {
			return ColumnRef{Index: i, Name: h.Names[i]}, nil
		}
	}

	target := normName(tok)
	if target != "" {
		for i, name := range h.Names {
			if normName(name) == target {
				return ColumnRef{Index: i, Name: name}, nil
			}
		}
		for i, name := range h.Names {
			nn := normName(name)
			if nn == "" {
				continue
			}
			if strings.Contains(nn, target) || strings.Contains(target, nn) {
				return ColumnRef{Index: i, Name: name}, nil
			}
		}
	}

	return ColumnRef{}, &ColumnNotFoundError{Token: token}
}

var (
	rangeRE      = regexp.MustCompile(`^[A-Za-z]+:[A-Za-z]+$`)
	letterListRE = regexp.MustCompile(`^[A-Za-z]+(,[A-Za-z]+)+$`)
)

// ResolveMulti resolves a token addressing one or more columns: a positional
// range "B:D" (inclusive, order-normalized), a comma-separated list of
// positional letters, or a comma-separated list of names each resolved via
// Resolve.
func (h Header) ResolveMulti(token string) ([]ColumnRef, error) {
	tok := strings.TrimSpace(token)

	if rangeRE.MatchString(tok) {
		parts := strings.SplitN(tok, ":", 2)
		lo, hi := letterIndex(parts[0]), letterIndex(parts[1])
		if lo > hi {
			lo, hi = hi, lo
		}
		if lo < 0 {
			lo = 0
		}
		if hi > len(h.Names)-1 {
			hi = len(h.Names) - 1
		}
		out := make([]ColumnRef, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			out = append(out, ColumnRef{Index: i, Name: h.Names[i]})
		}
		return out, nil
	}

	if letterListRE.MatchString(tok) {
		parts := strings.Split(tok, ",")
		out := make([]ColumnRef, 0, len(parts))
		for _, p := range parts {
			i := letterIndex(strings.TrimSpace(p))
			if i < 0 || i >= len(h.Names) {
				return nil, &ColumnNotFoundError{Token: p}
			}
			out = append(out, ColumnRef{Index: i, Name: h.Names[i]})
		}
		return out, nil
	}

	var out []ColumnRef
	for _, p := range strings.Split(tok, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ref, err := h.Resolve(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	if len(out) == 0 {
		return nil, &ColumnNotFoundError{Token: token}
	}
	return out, nil
}
