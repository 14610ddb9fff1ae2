package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Document is a single-page-style report: a title, a block of label/value
// facts and any number of tables. Long tables flow onto new pages.
type Document struct {
	Title  string
	Facts  []Fact
	Tables []Table
}

type Fact struct {
	Label string
	Value string
}

type Table struct {
	Heading string
	Columns []Column
	Rows    [][]string
}

type Column struct {
	Title string
	Width float64
}

// Render lays out doc on A4 portrait and returns the PDF bytes.
func Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	for _, fact := range doc.Facts {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 7, tr(fact.Label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, tr(fact.Value), "", 1, "L", false, 0, "")
	}

	for _, table := range doc.Tables {
		pdf.Ln(4)
		if table.Heading != "" {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.CellFormat(0, 8, tr(table.Heading), "", 1, "L", false, 0, "")
		}
		writeHeader(pdf, tr, table.Columns)
		pdf.SetFont("Helvetica", "", 10)
		for _, row := range table.Rows {
			if pdf.GetY() > 270 {
				pdf.AddPage()
				writeHeader(pdf, tr, table.Columns)
				pdf.SetFont("Helvetica", "", 10)
			}
			for i, col := range table.Columns {
				value := ""
				if i < len(row) {
					value = row[i]
				}
				pdf.CellFormat(col.Width, 7, tr(value), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(pdf *gofpdf.Fpdf, tr func(string) string, columns []Column) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range columns {
		pdf.CellFormat(col.Width, 8, tr(col.Title), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}
