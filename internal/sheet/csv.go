package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a CSV table. The text may be UTF-8, with or without a BOM,
// or Windows-1252 as written by older Excel versions. The delimiter is ';'
// or ',' depending on which appears first in the header line.
func ReadCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	data, err = toUTF8(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	return newTable(records)
}

func toUTF8(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return data[len(utf8BOM):], nil
	}
	if utf8.Valid(data) {
		return data, nil
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("decoding windows-1252: %w", err)
	}
	return out, nil
}

func detectDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	semi := bytes.IndexByte(first, ';')
	comma := bytes.IndexByte(first, ',')
	if semi >= 0 && (comma < 0 || semi < comma) {
		return ';'
	}
	return ','
}

// WriteCSV writes t as semicolon separated UTF-8 with a BOM, which is what
// Excel expects in French locales.
func WriteCSV(w io.Writer, t *Table) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	cw.UseCRLF = true
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
