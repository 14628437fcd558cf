package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/spool"
)

func openTestSpool(t *testing.T) spool.Spool {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "spool.db")
	s, err := New(context.Background(), config.Spool{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteSpoolRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestSpool(t)

	if err := s.AddSource(ctx, "2024", "s1", 0, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "s1", [][]string{
		{"1", "with\nnewline"},
		{"2", `with "quotes"`},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "s1", [][]string{{"3", ""}}); err != nil {
		t.Fatal(err)
	}

	infos, err := s.Sources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Partition != "2024" || !reflect.DeepEqual(infos[0].Header, []string{"a", "b"}) {
		t.Fatalf("infos = %+v", infos)
	}

	var got [][]string
	read := func(fields []string) error {
		got = append(got, append([]string(nil), fields...))
		return nil
	}
	if err := s.Read(ctx, "s1", read); err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"1", "with\nnewline"},
		{"2", `with "quotes"`},
		{"3", ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}

	// Re-read yields the same order; two-pass dedup depends on it.
	got = nil
	if err := s.Read(ctx, "s1", read); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("second read = %v", got)
	}
}

func TestSQLiteSpoolSourceOrdering(t *testing.T) {
	ctx := context.Background()
	s := openTestSpool(t)

	// Registered out of configured order, as concurrent ingest workers do.
	for _, src := range []struct {
		part, id string
		index    int
	}{
		{"2024", "late-c", 2}, {"2023", "early", 1}, {"2024", "late-b", 0},
	} {
		if err := s.AddSource(ctx, src.part, src.id, src.index, []string{"x"}); err != nil {
			t.Fatal(err)
		}
	}

	infos, err := s.Sources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, i := range infos {
		order = append(order, i.Source)
	}
	// Partition ascending, configured index within a partition; the order
	// sources finished ingesting must not leak through.
	want := []string{"early", "late-b", "late-c"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestSQLiteSpoolRemoveSource(t *testing.T) {
	ctx := context.Background()
	s := openTestSpool(t)

	if err := s.AddSource(ctx, "p", "keep", 0, []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddSource(ctx, "p", "drop", 1, []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "drop", [][]string{{"1"}, {"2"}}); err != nil {
		t.Fatal(err)
	}

	if err := s.RemoveSource(ctx, "drop"); err != nil {
		t.Fatal(err)
	}
	infos, err := s.Sources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Source != "keep" {
		t.Fatalf("sources after remove = %+v", infos)
	}
	count := 0
	if err := s.Read(ctx, "drop", func([]string) error { count++; return nil }); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("rows survived removal: %d", count)
	}

	if err := s.RemoveSource(ctx, "never-registered"); err != nil {
		t.Fatalf("remove of unknown source: %v", err)
	}
}

func TestSQLiteSpoolReset(t *testing.T) {
	ctx := context.Background()
	s := openTestSpool(t)

	if err := s.AddSource(ctx, "p", "s1", 0, []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "s1", [][]string{{"1"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatal(err)
	}

	infos, err := s.Sources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 0 {
		t.Fatalf("sources after reset = %+v", infos)
	}
	count := 0
	if err := s.Read(ctx, "s1", func([]string) error { count++; return nil }); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("rows after reset = %d", count)
	}
}

func TestSQLiteSpoolDuplicateSource(t *testing.T) {
	ctx := context.Background()
	s := openTestSpool(t)

	if err := s.AddSource(ctx, "p", "dup", 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.AddSource(ctx, "p", "dup", 0, nil); err == nil {
		t.Fatal("duplicate source id accepted")
	}
}
