// Package csvsink binds the sheet.Sink contract to plain delimited files,
// one file per sheet, UTF-8. Formatting directives are meaningless for CSV
// and are ignored; capacity bounding and naming still apply, which keeps the
// outputs loadable by tools with the same row ceiling.
package csvsink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/sheet"
)

func init() {
	sheet.RegisterSink("csv", func(path string, opt config.Options) (sheet.Sink, error) {
		return New(path, opt)
	})
}

type Sink struct {
	dir   string
	base  string
	ext   string
	comma rune

	cur  *os.File
	w    *csv.Writer
	name string
}

// New creates a sink writing `<base>_<sheet><ext>` files next to path.
// path is the configured output file; its extension is reused per sheet.
func New(path string, opt config.Options) (*Sink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csvsink: %w", err)
	}
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".csv"
	}
	base := strings.TrimSuffix(filepath.Base(path), ext)
	return &Sink{
		dir:   dir,
		base:  base,
		ext:   ext,
		comma: opt.Rune("delimiter", ','),
	}, nil
}

var unsafeNameRE = regexp.MustCompile(`[^0-9A-Za-z_() -]+`)

func (s *Sink) BeginSheet(name string, header []string, _ sheet.Format) error {
	if err := s.closeCurrent(); err != nil {
		return err
	}
	fname := s.base + "_" + unsafeNameRE.ReplaceAllString(name, "_") + s.ext
	f, err := os.Create(filepath.Join(s.dir, fname))
	if err != nil {
		return fmt.Errorf("csvsink: %w", err)
	}
	s.cur = f
	s.name = name
	s.w = csv.NewWriter(f)
	s.w.Comma = s.comma
	return s.w.Write(header)
}

func (s *Sink) AppendRows(name string, rows [][]string) error {
	if name != s.name {
		return fmt.Errorf("csvsink: append to %q but current sheet is %q", name, s.name)
	}
	for _, r := range rows {
		if err := s.w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) closeCurrent() error {
	if s.cur == nil {
		return nil
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.cur.Close()
		return err
	}
	err := s.cur.Close()
	s.cur, s.w = nil, nil
	return err
}

func (s *Sink) Close() error {
	return s.closeCurrent()
}
