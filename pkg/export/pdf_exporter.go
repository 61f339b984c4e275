package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFOption customises a PDFExporter.
type PDFOption func(*PDFExporter)

// WithColumnWeights sizes columns proportionally. Headers without a weight get 1.
func WithColumnWeights(weights map[string]float64) PDFOption {
	return func(e *PDFExporter) {
		for header, w := range weights {
			if w > 0 {
				e.weights[header] = w
			}
		}
	}
}

// WithRightAligned right-aligns the named columns, typically amounts.
func WithRightAligned(headers ...string) PDFOption {
	return func(e *PDFExporter) {
		for _, h := range headers {
			e.rightAligned[h] = true
		}
	}
}

// PDFExporter renders datasets into a landscape A4 table. The header row is
// repeated on every page and pages are numbered.
type PDFExporter struct {
	weights      map[string]float64
	rightAligned map[string]bool
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter(opts ...PDFOption) *PDFExporter {
	e := &PDFExporter{weights: map[string]float64{}, rightAligned: map[string]bool{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render writes the dataset as a table under an optional title.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	widths := e.columnWidths(pdf, data.Headers)

	titled := false
	pdf.SetHeaderFunc(func() {
		if title != "" && !titled {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
			pdf.Ln(4)
			titled = true
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			align := "L"
			if e.rightAligned[header] {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, tr(row[header]), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) columnWidths(pdf *gofpdf.Fpdf, headers []string) []float64 {
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	var total float64
	weights := make([]float64, len(headers))
	for i, h := range headers {
		w, ok := e.weights[h]
		if !ok {
			w = 1
		}
		weights[i] = w
		total += w
	}
	widths := make([]float64, len(headers))
	for i, w := range weights {
		widths[i] = usable * w / total
	}
	return widths
}
