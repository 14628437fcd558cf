package sheet

import (
	"fmt"
	"reflect"
	"testing"
)

// fakeSink records the sink call sequence for assertions.
type fakeSink struct {
	begun  []string
	rows   map[string][][]string
	closed bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{rows: make(map[string][][]string)}
}

func (s *fakeSink) BeginSheet(name string, header []string, f Format) error {
	if _, dup := s.rows[name]; dup {
		return fmt.Errorf("sheet %q begun twice", name)
	}
	s.begun = append(s.begun, name)
	s.rows[name] = nil
	return nil
}

func (s *fakeSink) AppendRows(name string, rows [][]string) error {
	if _, ok := s.rows[name]; !ok {
		return fmt.Errorf("append before BeginSheet on %q", name)
	}
	for _, r := range rows {
		s.rows[name] = append(s.rows[name], append([]string(nil), r...))
	}
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

func row(i int) []string { return []string{fmt.Sprintf("r%d", i)} }

func TestWriterSplitsAtCapacity(t *testing.T) {
	sink := newFakeSink()
	w, err := NewWriter(sink, 5) // 4 data rows per sheet
	if err != nil {
		t.Fatal(err)
	}

	header := []string{"col"}
	for i := 1; i <= 10; i++ {
		if err := w.Write("P", header, Format{}, row(i)); err != nil {
			t.Fatal(err)
		}
	}
	infos := w.Flush()

	wantNames := []string{"P", "P (2)", "P (3)"}
	if !reflect.DeepEqual(sink.begun, wantNames) {
		t.Fatalf("sheets = %v, want %v", sink.begun, wantNames)
	}
	wantRows := []int{4, 4, 2}
	for i, name := range wantNames {
		if got := len(sink.rows[name]); got != wantRows[i] {
			t.Errorf("sheet %q holds %d rows, want %d", name, got, wantRows[i])
		}
		if infos[i].Name != name || infos[i].Rows != wantRows[i] || !infos[i].Sealed {
			t.Errorf("info[%d] = %+v", i, infos[i])
		}
	}
	// Ordering within a sheet follows write order.
	if sink.rows["P (3)"][0][0] != "r9" {
		t.Errorf("third sheet starts with %q, want r9", sink.rows["P (3)"][0][0])
	}
}

func TestWriterChunkSpansSheets(t *testing.T) {
	sink := newFakeSink()
	w, err := NewWriter(sink, 4) // 3 data rows per sheet
	if err != nil {
		t.Fatal(err)
	}

	var chunk [][]string
	for i := 1; i <= 8; i++ {
		chunk = append(chunk, row(i))
	}
	if err := w.WriteChunk("Y", []string{"col"}, Format{}, chunk); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	if !reflect.DeepEqual(sink.begun, []string{"Y", "Y (2)", "Y (3)"}) {
		t.Fatalf("sheets = %v", sink.begun)
	}
	for name, want := range map[string]int{"Y": 3, "Y (2)": 3, "Y (3)": 2} {
		if got := len(sink.rows[name]); got != want {
			t.Errorf("sheet %q holds %d rows, want %d", name, got, want)
		}
	}
}

func TestWriterInterleavedPartitions(t *testing.T) {
	sink := newFakeSink()
	w, err := NewWriter(sink, 3)
	if err != nil {
		t.Fatal(err)
	}

	header := []string{"col"}
	for i := 1; i <= 3; i++ {
		if err := w.Write("2023", header, Format{}, row(i)); err != nil {
			t.Fatal(err)
		}
		if err := w.Write("2024", header, Format{}, row(i)); err != nil {
			t.Fatal(err)
		}
	}
	infos := w.Flush()

	byName := map[string]SheetInfo{}
	for _, inf := range infos {
		byName[inf.Name] = inf
	}
	for name, want := range map[string]int{"2023": 2, "2023 (2)": 1, "2024": 2, "2024 (2)": 1} {
		inf, ok := byName[name]
		if !ok || inf.Rows != want {
			t.Errorf("sheet %q = %+v, want %d rows", name, inf, want)
		}
	}
}

func TestWriterTouchEmitsHeaderOnlySheet(t *testing.T) {
	sink := newFakeSink()
	w, err := NewWriter(sink, 10)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Touch("Empty", []string{"a", "b"}, Format{}); err != nil {
		t.Fatal(err)
	}
	if err := w.Touch("Empty", []string{"a", "b"}, Format{}); err != nil {
		t.Fatal(err)
	}
	infos := w.Flush()

	if !reflect.DeepEqual(sink.begun, []string{"Empty"}) {
		t.Fatalf("sheets = %v, want one Empty", sink.begun)
	}
	if len(infos) != 1 || infos[0].Rows != 0 || !infos[0].Sealed {
		t.Fatalf("infos = %+v", infos)
	}
}

func TestWriterFlushThenContinue(t *testing.T) {
	sink := newFakeSink()
	w, err := NewWriter(sink, 10)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Write("P", []string{"col"}, Format{}, row(1)); err != nil {
		t.Fatal(err)
	}
	w.Flush()
	if err := w.Write("P", []string{"col"}, Format{}, row(2)); err != nil {
		t.Fatal(err)
	}
	infos := w.Flush()

	wantNames := []string{"P", "P (2)"}
	if !reflect.DeepEqual(sink.begun, wantNames) {
		t.Fatalf("sheets = %v, want %v", sink.begun, wantNames)
	}
	if len(infos) != 2 {
		t.Fatalf("infos = %+v", infos)
	}
}

func TestWriterSheetsReportsUnsealed(t *testing.T) {
	sink := newFakeSink()
	w, err := NewWriter(sink, 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write("P", []string{"col"}, Format{}, row(1)); err != nil {
		t.Fatal(err)
	}

	infos := w.Sheets()
	if len(infos) != 1 || infos[0].Sealed || infos[0].Rows != 1 {
		t.Fatalf("infos = %+v, want one unsealed sheet with 1 row", infos)
	}
}

func TestNewWriterRejectsTinyCapacity(t *testing.T) {
	for _, c := range []int{-1, 0, 1} {
		if _, err := NewWriter(newFakeSink(), c); err == nil {
			t.Errorf("capacity %d: want error", c)
		}
	}
}

func TestSheetName(t *testing.T) {
	if got := SheetName("2024", 1); got != "2024" {
		t.Errorf("first sheet name = %q", got)
	}
	if got := SheetName("2024", 3); got != "2024 (3)" {
		t.Errorf("third sheet name = %q", got)
	}
}
