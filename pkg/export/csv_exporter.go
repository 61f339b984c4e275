package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOption customises a CSVExporter.
type CSVOption func(*CSVExporter)

// WithUTF8BOM prefixes output with a byte order mark so spreadsheet
// applications detect UTF-8 names correctly.
func WithUTF8BOM() CSVOption {
	return func(e *CSVExporter) { e.bom = true }
}

// WithDelimiter overrides the field separator.
func WithDelimiter(comma rune) CSVOption {
	return func(e *CSVExporter) { e.comma = comma }
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct {
	bom   bool
	comma rune
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{comma: ','}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render produces CSV encoded bytes for the dataset. Cells are written in
// header order and missing keys become empty cells. Values that a spreadsheet
// would evaluate as formulas are quoted with a leading apostrophe.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	if e.bom {
		buf.Write(utf8BOM)
	}
	writer := csv.NewWriter(buf)
	writer.Comma = e.comma
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = neutralizeFormula(row[header])
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func neutralizeFormula(cell string) string {
	if cell == "" {
		return cell
	}
	if strings.ContainsRune("=@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
