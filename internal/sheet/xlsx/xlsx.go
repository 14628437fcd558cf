// Package xlsx binds the sheet.Sink contract to an XLSX workbook via
// excelize.
package xlsx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/sheet"
)

func init() {
	sheet.RegisterSink("xlsx", func(path string, opt config.Options) (sheet.Sink, error) {
		return New(path, opt)
	})
}

// Sink writes sheets into one workbook and saves it on Close.
type Sink struct {
	f    *excelize.File
	path string

	headerStyle int
	textStyle   int

	autoWidth bool

	// per-sheet cursor state; the Writer begins sheets strictly one after
	// another, so only the current sheet ever advances.
	cur       string // name as the Writer knows it
	curSheet  string // workbook sheet title, sanitized
	nextRow   int    // 1-based row of the next write
	forceText map[int]bool
	widths    []float64
	sheets    int
	used      map[string]bool
}

func New(path string, opt config.Options) (*Sink, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D7E4BC"}},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx: header style: %w", err)
	}
	// NumFmt 49 is the builtin "@" text format.
	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: 49})
	if err != nil {
		return nil, fmt.Errorf("xlsx: text style: %w", err)
	}

	return &Sink{
		f:           f,
		path:        path,
		headerStyle: headerStyle,
		textStyle:   textStyle,
		autoWidth:   opt.Bool("auto_width", true),
		used:        make(map[string]bool),
	}, nil
}

// maxSheetNameLen is the XLSX limit on sheet title length, in characters.
const maxSheetNameLen = 31

var unsafeSheetRE = regexp.MustCompile(`[\[\]:*?/\\]`)

// sheetTitle maps a logical sheet name to a legal, unique workbook title:
// characters the format forbids become "_", the result is clipped to 31
// characters, and collisions get a " (n)" suffix carved out of the base.
func (s *Sink) sheetTitle(name string) string {
	base := unsafeSheetRE.ReplaceAllString(name, "_")
	if base == "" {
		base = "Sheet"
	}
	t := clipRunes(base, maxSheetNameLen)
	for n := 2; s.used[t]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		t = clipRunes(base, maxSheetNameLen-len(suffix)) + suffix
	}
	s.used[t] = true
	return t
}

func clipRunes(v string, n int) string {
	if r := []rune(v); len(r) > n {
		return string(r[:n])
	}
	return v
}

func (s *Sink) BeginSheet(name string, header []string, fm sheet.Format) error {
	if err := s.finishSheet(); err != nil {
		return err
	}

	title := s.sheetTitle(name)
	if s.sheets == 0 {
		// Rename the workbook's default sheet instead of leaving it empty.
		if err := s.f.SetSheetName("Sheet1", title); err != nil {
			return err
		}
	} else if _, err := s.f.NewSheet(title); err != nil {
		return err
	}
	s.sheets++
	s.cur = name
	s.curSheet = title
	s.forceText = make(map[int]bool, len(fm.ForceTextCols))
	for _, i := range fm.ForceTextCols {
		s.forceText[i] = true
	}
	s.widths = make([]float64, 0, len(header))

	for i := range s.forceText {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := s.f.SetColStyle(title, col, s.textStyle); err != nil {
			return err
		}
	}

	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
		s.noteWidth(i, h)
	}
	if err := s.f.SetSheetRow(title, "A1", &cells); err != nil {
		return err
	}
	if len(header) > 0 {
		end, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return err
		}
		if err := s.f.SetCellStyle(title, "A1", end, s.headerStyle); err != nil {
			return err
		}
		if fm.AutoFilter {
			if err := s.f.AutoFilter(title, "A1:"+end, nil); err != nil {
				return err
			}
		}
	}
	if fm.FreezeHeader {
		if err := s.f.SetPanes(title, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return err
		}
	}

	s.nextRow = 2
	return nil
}

func (s *Sink) AppendRows(name string, rows [][]string) error {
	if name != s.cur {
		return fmt.Errorf("xlsx: append to %q but current sheet is %q", name, s.cur)
	}
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			if s.forceText[i] {
				cells[i] = v
			} else if n, ok := SafeNumber(v); ok {
				cells[i] = n
			} else {
				cells[i] = v
			}
			s.noteWidth(i, v)
		}
		if err := s.f.SetSheetRow(s.curSheet, "A"+strconv.Itoa(s.nextRow), &cells); err != nil {
			return err
		}
		s.nextRow++
	}
	return nil
}

func (s *Sink) finishSheet() error {
	if s.cur == "" || !s.autoWidth {
		return nil
	}
	for i, w := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := s.f.SetColWidth(s.curSheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) Close() error {
	if err := s.finishSheet(); err != nil {
		return err
	}
	if err := s.f.SaveAs(s.path); err != nil {
		return fmt.Errorf("xlsx: save %s: %w", s.path, err)
	}
	return s.f.Close()
}

func (s *Sink) noteWidth(col int, v string) {
	if !s.autoWidth {
		return
	}
	for col >= len(s.widths) {
		s.widths = append(s.widths, 5)
	}
	w := float64(len([]rune(v)))
	if w < 5 {
		w = 5
	}
	if w > 50 {
		w = 50
	}
	if w > s.widths[col] {
		s.widths[col] = w
	}
}

var (
	longCodeRE = regexp.MustCompile(`^[0-9]{11,}$`)
	numberRE   = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)
)

// SafeNumber decides whether a cell value may be written as a numeric cell.
// Long all-digit codes (11+ digits, e.g. registry identifiers) and anything
// beyond 15 significant digits stay text so Excel cannot corrupt them.
// A comma is tolerated as the decimal separator.
func SafeNumber(v string) (float64, bool) {
	t := strings.TrimSpace(v)
	if t == "" || longCodeRE.MatchString(t) {
		return 0, false
	}
	t = strings.ReplaceAll(t, ",", ".")
	if !numberRE.MatchString(t) {
		return 0, false
	}
	if len(strings.TrimLeft(strings.ReplaceAll(t, ".", ""), "+-")) > 15 {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
