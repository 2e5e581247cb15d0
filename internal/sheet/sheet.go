// Package sheet converts between spreadsheets and typed records.
//
// Reading is a two step affair: a file is first read into a Table of raw
// cell text, which ParseItems and ParseRepairs then turn into model values or
// a list of row errors. Nothing downstream sees an untyped row.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
)

// Format is a spreadsheet file format.
type Format string

// Formats.
const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat parses a format name. Empty means XLSX.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// ContentType returns the MIME type of files in format f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// ErrEmpty is returned for files without a header or without data rows.
var ErrEmpty = errors.New("empty file")

// Table is a header row followed by data rows of raw cell text.
type Table struct {
	Header []string
	Rows   [][]string
}

var zipMagic = []byte("PK\x03\x04")

// Decode reads a table from an XLSX or CSV file, telling them apart by content.
func Decode(data []byte) (*Table, error) {
	if bytes.HasPrefix(data, zipMagic) {
		return ReadXLSX(bytes.NewReader(data))
	}
	return ReadCSV(bytes.NewReader(data))
}

// Encode writes t to w in format f. The sheet name only applies to XLSX.
func Encode(w io.Writer, f Format, sheetName string, t *Table) error {
	if f == FormatCSV {
		return WriteCSV(w, t)
	}
	return WriteXLSX(w, sheetName, t)
}

// newTable builds a table from raw records, dropping blank rows.
func newTable(records [][]string) (*Table, error) {
	var t Table
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		if t.Header == nil {
			t.Header = rec
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	if len(t.Rows) == 0 {
		return nil, ErrEmpty
	}
	return &t, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// RowError describes one rejected cell or row. Row is the spreadsheet line
// number, the header being line 1.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Message)
}

// ImportError collects every row error of a rejected import.
type ImportError struct {
	Errors []RowError
}

func (e *ImportError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d invalid rows, first: %s", len(e.Errors), e.Errors[0].Error())
}

// rows gives named access to the cells of a table.
type rows struct {
	t   *Table
	idx map[string]int
}

func newRows(t *Table) rows {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		key := headerKey(h)
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return rows{t: t, idx: idx}
}

func headerKey(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// cell returns the trimmed value of the first of names present and non-empty
// in row i.
func (r rows) cell(i int, names ...string) string {
	rec := r.t.Rows[i]
	for _, n := range names {
		c, ok := r.idx[headerKey(n)]
		if !ok || c >= len(rec) {
			continue
		}
		if v := strings.TrimSpace(rec[c]); v != "" {
			return v
		}
	}
	return ""
}

// line returns the spreadsheet line number of row i.
func line(i int) int {
	return i + 2
}

// dateLayouts are tried in order for text dates.
var dateLayouts = []string{model.DateFormat, "2/1/2006", "2006-01-02 15:04:05", time.RFC3339}

// ParseDate normalizes a spreadsheet date to YYYY-MM-DD. It accepts ISO
// dates, DD/MM/YYYY and Excel serial day numbers. Empty stays empty.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(model.DateFormat), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t.Format(model.DateFormat), nil
		}
	}
	return "", fmt.Errorf("invalid date %q", s)
}

// parseYes reports whether a cell holds an affirmative answer such as OUI.
func parseYes(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OUI", "YES", "TRUE", "1", "X":
		return true
	}
	return false
}

func yesNo(b bool) string {
	if b {
		return "OUI"
	}
	return "NON"
}

// parsePoses reads the leading integer of s. Anything below one, or no
// number at all, gives one.
func parsePoses(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
