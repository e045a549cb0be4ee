package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// columnWeights widens the free-text columns of observation logs. Headers
// not listed here share the remaining width evenly.
var columnWeights = map[string]float64{
	"Content": 3,
	"Student": 1.5,
	"Writer":  1.5,
}

// PDFExporter renders datasets into a tabular PDF, landscape to fit
// observation text.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	widths := columnWidths(data.Headers, 277.0)

	pdf.SetFont("Arial", "B", 10)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], 7, truncate(row[header], 90), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(headers []string, total float64) []float64 {
	weights := make([]float64, len(headers))
	sum := 0.0
	for i, header := range headers {
		w, ok := columnWeights[header]
		if !ok {
			w = 1
		}
		weights[i] = w
		sum += w
	}
	widths := make([]float64, len(headers))
	for i, w := range weights {
		widths[i] = total * w / sum
	}
	return widths
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
