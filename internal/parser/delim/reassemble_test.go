package delim

import (
	"reflect"
	"testing"
)

func TestNormalizeQuotes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", `a,b,c`, `a,b,c`},
		{"typographic double", `“Acme” Ltd`, `"Acme" Ltd`},
		{"guillemets", `«Acme»`, `"Acme"`},
		{"low nine", `„quoted‟`, `"quoted"`},
		{"typographic single", `it’s`, `it's`},
		{"backtick and acute", "a`b´c", "a'b'c"},
		{"escaped quote becomes doubled", `"say \"hi\""`, `"say ""hi"""`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeQuotes(tc.in); got != tc.want {
				t.Fatalf("NormalizeQuotes(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestBalanced(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{``, true},
		{`a,b,c`, true},
		{`"a",b`, true},
		{`"a,b`, false},
		{`"a""b"`, true},
		{`"a""b`, false},
		{`"a","b","c"`, true},
		{`"multi` + "\n" + `line"`, true},
		{`"multi` + "\n" + `line`, false},
	}
	for _, tc := range cases {
		if got := Balanced(tc.in, '"'); got != tc.want {
			t.Errorf("Balanced(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSplitFields(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", `a,b,c`, []string{"a", "b", "c"}},
		{"quoted delimiter", `"a,b",c`, []string{"a,b", "c"}},
		{"doubled quote", `"say ""hi""",x`, []string{`say "hi"`, "x"}},
		{"embedded newline", "\"line1\nline2\",tail", []string{"line1\nline2", "tail"}},
		{"empty fields", `,,`, []string{"", "", ""}},
		{"trailing delimiter", `a,`, []string{"a", ""}},
		{"semicolon dialect stays literal", `a;b,c`, []string{"a;b", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitFields(tc.in, ',', '"')
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("SplitFields(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestSplitFieldsSemicolon(t *testing.T) {
	got := SplitFields(`a;"b;c";d`, ';', '"')
	want := []string{"a", "b;c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestJoinFieldsRoundTrip(t *testing.T) {
	rows := [][]string{
		{"a", "b", "c"},
		{"a,b", "plain", ""},
		{`has "quote"`, "x"},
		{"multi\nline", "y"},
	}
	for _, fields := range rows {
		line := JoinFields(fields, ',', '"')
		if !Balanced(line, '"') {
			t.Fatalf("JoinFields(%#v) produced unbalanced %q", fields, line)
		}
		got := SplitFields(line, ',', '"')
		if !reflect.DeepEqual(got, fields) {
			t.Fatalf("round trip of %#v: got %#v via %q", fields, got, line)
		}
	}
}
