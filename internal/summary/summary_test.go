package summary

import (
	"reflect"
	"testing"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/table"
)

func TestFrequencyCollector(t *testing.T) {
	h := table.NewHeader([]string{"Code", "City"})
	c, ok := NewCollector(h, config.SummarySpec{Kind: "frequency", Column: "City", Case: "upper"}, nil)
	if !ok {
		t.Fatal("spec skipped")
	}

	for _, row := range [][]string{
		{"1", "Kyiv"},
		{"2", "KYIV"},
		{"3", " kyiv "},
		{"4", "Lviv"},
		{"5", "Odesa"},
		{"6", "Lviv"},
		{"7", ""},
		{"8", "   "},
	} {
		c.Observe(row)
	}

	if c.Label() != "Summary City" {
		t.Errorf("label = %q", c.Label())
	}
	if got := c.Header(); !reflect.DeepEqual(got, []string{"City", "Count"}) {
		t.Errorf("header = %v", got)
	}

	// Count descending, then value ascending; empties not counted.
	want := [][]string{
		{"KYIV", "3"},
		{"LVIV", "2"},
		{"ODESA", "1"},
	}
	if got := c.Rows(); !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestUniqueCollector(t *testing.T) {
	h := table.NewHeader([]string{"City"})
	c, ok := NewCollector(h, config.SummarySpec{Kind: "unique", Column: "A", Sheet: "Cities"}, nil)
	if !ok {
		t.Fatal("spec skipped")
	}

	for _, v := range []string{"Lviv", "Kyiv", "Lviv", "Odesa"} {
		c.Observe([]string{v})
	}

	if c.Label() != "Cities" {
		t.Errorf("label = %q", c.Label())
	}
	want := [][]string{{"Kyiv"}, {"Lviv"}, {"Odesa"}}
	if got := c.Rows(); !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestNewCollectorSkipsBadSpecs(t *testing.T) {
	h := table.NewHeader([]string{"City"})
	if _, ok := NewCollector(h, config.SummarySpec{Kind: "median", Column: "City"}, nil); ok {
		t.Error("unknown kind compiled")
	}
	if _, ok := NewCollector(h, config.SummarySpec{Kind: "unique", Column: "NoSuch123"}, nil); ok {
		t.Error("unresolvable column compiled")
	}

	got := NewCollectors(h, []config.SummarySpec{
		{Kind: "unique", Column: "City"},
		{Kind: "bogus", Column: "City"},
	}, nil)
	if len(got) != 1 {
		t.Fatalf("compiled %d collectors, want 1", len(got))
	}
}

func TestObserveShortRow(t *testing.T) {
	h := table.NewHeader([]string{"A1", "B2"})
	c, _ := NewCollector(h, config.SummarySpec{Kind: "frequency", Column: "B2"}, nil)
	c.Observe([]string{"only-one"}) // column index beyond the row
	if rows := c.Rows(); len(rows) != 0 {
		t.Fatalf("rows = %v, want none", rows)
	}
}
