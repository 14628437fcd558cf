// Package config defines the JSON pipeline configuration consumed by
// cmd/csvsheets and internal/pipeline.
//
// The config intentionally carries only *decided* facts: encoding and
// delimiter per source are inputs here, never detected by this module.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Pipeline struct {
	Job       string        `json:"job"`
	Sources   []Source      `json:"sources"`
	Parser    Parser        `json:"parser"`
	Filters   []FilterSpec  `json:"filters,omitempty"`
	Dedup     *Dedup        `json:"dedup,omitempty"`
	Summaries []SummarySpec `json:"summaries,omitempty"`
	Spool     Spool         `json:"spool"`
	Output    Output        `json:"output"`
	Runtime   Runtime       `json:"runtime"`
}

// Source is one input file with its externally-decided dialect.
// Partition may be empty; cmd/csvsheets then infers a year from the filename
// or requires an explicit value.
type Source struct {
	Path      string `json:"path"`
	Encoding  string `json:"encoding"`  // "utf-8", "utf-8-sig", "cp1251", "windows-1251", "cp1252", "latin-1"
	Delimiter string `json:"delimiter"` // one character; "," ";" "\t" "|" ":"
	Partition string `json:"partition,omitempty"`
}

type Parser struct {
	Options Options `json:"options"`
}

// FilterSpec is the raw, open config form of one filter. It is validated and
// narrowed into a closed variant by internal/filter at compile time; keeping
// the open form here lets malformed specs degrade to warnings instead of
// failing config load.
type FilterSpec struct {
	Mode      string   `json:"mode"`
	Column    string   `json:"column"`
	Value     string   `json:"value,omitempty"`
	Values    []string `json:"values,omitempty"`
	Min       string   `json:"min,omitempty"`
	Max       string   `json:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Case      string   `json:"case,omitempty"` // "keep" | "upper" | "lower"
	TrimSpace *bool    `json:"trim_space,omitempty"`
	ForceText bool     `json:"force_text,omitempty"`
}

// Trim reports the effective trim_space setting (default true, as in the
// source tool).
func (f FilterSpec) Trim() bool {
	if f.TrimSpace == nil {
		return true
	}
	return *f.TrimSpace
}

type Dedup struct {
	// Keys addresses the key columns: a range "B:D", a letter list "B,D",
	// or a comma-separated list of names.
	Keys      string     `json:"keys"`
	Keep      string     `json:"keep,omitempty"` // "first" (default) | "last"
	Normalize *Normalize `json:"normalize,omitempty"`
}

type Normalize struct {
	Upper      bool `json:"upper"`
	DropSpaces bool `json:"drop_spaces"`
	DropDashes bool `json:"drop_dashes"`
}

// SummarySpec requests an extra report sheet computed over one output
// column after merge: a value-frequency table or a distinct-value list.
type SummarySpec struct {
	Kind   string `json:"kind"` // "frequency" | "unique"
	Column string `json:"column"`
	Sheet  string `json:"sheet,omitempty"` // sheet label, defaults to "Summary <column>"
	Case   string `json:"case,omitempty"`  // "keep" (default) | "upper" | "lower"
}

type Spool struct {
	// Kind: "sqlite" (default) | "postgres" | "mssql" | "memory".
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`
}

type Output struct {
	// Kind: "xlsx" (default) | "csv".
	Kind string `json:"kind"`
	Path string `json:"path"`
	// RowCeiling is the maximum rows per sheet including the header.
	// Defaults to the Excel limit 1,048,576.
	RowCeiling       int      `json:"row_ceiling,omitempty"`
	ForceTextColumns []string `json:"force_text_columns,omitempty"`
	Options          Options  `json:"options,omitempty"`
}

type Runtime struct {
	Workers       int `json:"workers"`
	BatchSize     int `json:"batch_size"`
	ChannelBuffer int `json:"channel_buffer"`
}

// ExcelRowCeiling is the hard per-sheet row limit of the XLSX format,
// header included.
const ExcelRowCeiling = 1_048_576

func Load(path string) (Pipeline, error) {
	var cfg Pipeline
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects structural misconfiguration. Per-filter problems are not
// checked here; those degrade to warnings at compile time.
func (p *Pipeline) Validate() error {
	if len(p.Sources) == 0 {
		return fmt.Errorf("config: sources must not be empty")
	}
	for i, s := range p.Sources {
		if s.Path == "" {
			return fmt.Errorf("config: sources[%d].path is required", i)
		}
	}
	if p.Dedup != nil {
		if p.Dedup.Keys == "" {
			return fmt.Errorf("config: dedup.keys is required when dedup is set")
		}
		switch strings.ToLower(strings.TrimSpace(p.Dedup.Keep)) {
		case "", "first", "last":
		default:
			return fmt.Errorf("config: dedup.keep must be %q or %q, got %q", "first", "last", p.Dedup.Keep)
		}
	}
	if p.Output.Path == "" {
		return fmt.Errorf("config: output.path is required")
	}
	if p.Output.RowCeiling < 0 {
		return fmt.Errorf("config: output.row_ceiling must be >= 0")
	}
	if p.Output.RowCeiling == 0 {
		p.Output.RowCeiling = ExcelRowCeiling
	}
	if p.Output.RowCeiling < 2 {
		return fmt.Errorf("config: output.row_ceiling must leave room for a header and one row")
	}
	if p.Output.Kind == "" {
		p.Output.Kind = "xlsx"
	}
	if p.Spool.Kind == "" {
		p.Spool.Kind = "sqlite"
	}
	return nil
}
