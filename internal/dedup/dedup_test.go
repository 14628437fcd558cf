package dedup

import (
	"testing"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/table"
)

func keyCols(idx ...int) []table.ColumnRef {
	out := make([]table.ColumnRef, len(idx))
	for i, j := range idx {
		out[i] = table.ColumnRef{Index: j}
	}
	return out
}

func TestNormalizeKey(t *testing.T) {
	full := &config.Normalize{Upper: true, DropSpaces: true, DropDashes: true}

	cases := []struct {
		in   string
		n    *config.Normalize
		want string
	}{
		{"  ab-c ", full, "ABC"},
		{"ABC", full, "ABC"},
		{"a b c", &config.Normalize{DropSpaces: true}, "abc"},
		{"a-b", &config.Normalize{DropDashes: true}, "ab"},
		{"ab", &config.Normalize{Upper: true}, "AB"},
		{"  padded  ", &config.Normalize{}, "padded"}, // empty normalize still trims
		{"  raw-As Is  ", nil, "  raw-As Is  "},       // nil normalize keeps raw text
	}
	for _, tc := range cases {
		if got := NormalizeKey(tc.in, tc.n); got != tc.want {
			t.Errorf("NormalizeKey(%q, %+v) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestIsFirstCollapsesNormalizedKeys(t *testing.T) {
	e := New(keyCols(0), &config.Normalize{Upper: true, DropSpaces: true, DropDashes: true}, KeepFirst)

	if !e.IsFirst([]string{"  ab-c "}) {
		t.Fatal("first occurrence rejected")
	}
	if e.IsFirst([]string{"ABC"}) {
		t.Fatal("normalized duplicate accepted")
	}
	if !e.IsFirst([]string{"ABD"}) {
		t.Fatal("distinct key rejected")
	}
}

func TestKeyTupleBoundaries(t *testing.T) {
	e := New(keyCols(0, 1), nil, KeepFirst)

	// ("ab", "c") and ("a", "bc") must not collide.
	if e.Key([]string{"ab", "c"}) == e.Key([]string{"a", "bc"}) {
		t.Fatal("tuple components leaked across the separator")
	}
}

func TestKeyShortRow(t *testing.T) {
	e := New(keyCols(0, 5), nil, KeepFirst)
	if e.Key([]string{"x"}) != e.Key([]string{"x", "", "", "", "", ""}) {
		t.Fatal("missing key field did not read as empty")
	}
}

func TestDefaultPolicy(t *testing.T) {
	if e := New(keyCols(0), nil, ""); e.Policy() != KeepFirst {
		t.Fatalf("default policy = %q, want %q", e.Policy(), KeepFirst)
	}
}
