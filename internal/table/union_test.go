package table

import (
	"reflect"
	"testing"
)

func TestUnionAdd(t *testing.T) {
	u := NewUnion()

	m1 := u.Add(NewHeader([]string{"Code", "Name", "City"}))
	if !reflect.DeepEqual(m1, []int{0, 1, 2}) {
		t.Fatalf("first mapping = %v", m1)
	}

	// Second source: same columns by normalized name (case differs), plus a
	// new one.
	m2 := u.Add(NewHeader([]string{"NAME", "code", "Phone"}))
	if !reflect.DeepEqual(m2, []int{1, 0, 3}) {
		t.Fatalf("second mapping = %v", m2)
	}

	want := []string{"Code", "Name", "City", "Phone"}
	if !reflect.DeepEqual(u.Header.Names, want) {
		t.Fatalf("union header = %v, want %v", u.Header.Names, want)
	}
}

func TestUnionUnnamedColumnsStayDistinct(t *testing.T) {
	u := NewUnion()
	u.Add(NewHeader([]string{"Code", ""}))
	m := u.Add(NewHeader([]string{"", "Code"}))

	// The second source's unnamed column must not collapse onto the first
	// source's unnamed column.
	if m[0] == 1 {
		t.Fatalf("unnamed column mapped onto a foreign unnamed slot: %v", m)
	}
	if m[1] != 0 {
		t.Fatalf("named column mapping = %v, want Code at 0", m)
	}
}

func TestRealign(t *testing.T) {
	u := NewUnion()
	u.Add(NewHeader([]string{"Code", "Name"}))
	m := u.Add(NewHeader([]string{"Name", "Code", "Phone"}))

	got := Realign([]string{"Anna", "123", "555"}, m, u.Header.Len())
	want := []string{"123", "Anna", "555"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Realign = %v, want %v", got, want)
	}
}

func TestRealignShortAndLongRows(t *testing.T) {
	u := NewUnion()
	m := u.Add(NewHeader([]string{"A1", "B2", "C3"}))

	short := Realign([]string{"x"}, m, u.Header.Len())
	if !reflect.DeepEqual(short, []string{"x", "", ""}) {
		t.Fatalf("short row = %v", short)
	}

	long := Realign([]string{"x", "y", "z", "extra"}, m, u.Header.Len())
	if !reflect.DeepEqual(long, []string{"x", "y", "z"}) {
		t.Fatalf("long row = %v", long)
	}
}
