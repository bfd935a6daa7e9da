package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/callsight/callsight/internal/storage"
)

func renderPDF(record storage.CallRecord) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle(reportTitle, false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.MultiCell(0, 10, reportTitle, "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(fmt.Sprintf("File: %s", record.Filename)), "", "L", false)
	pdf.MultiCell(0, 6, fmt.Sprintf("Date: %s", formatDate(record)), "", "L", false)
	pdf.MultiCell(0, 6, fmt.Sprintf("Overall Score: %s", formatScore(record)), "", "L", false)
	pdf.Ln(4)

	sectionHeading(pdf, "Call Summary")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(summaryText(record)), "", "L", false)
	pdf.Ln(4)

	sectionHeading(pdf, "Sentiment Analysis")
	writeSentimentTable(pdf, record)
	pdf.Ln(4)

	sectionHeading(pdf, "Positive Highlights")
	writeBullets(pdf, tr, record.PositiveHighlights)
	pdf.Ln(4)

	sectionHeading(pdf, "Improvement Suggestions")
	writeBullets(pdf, tr, record.ImprovementSuggestions)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sectionHeading(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, title, "", "L", false)
	pdf.Ln(1)
}

func writeSentimentTable(pdf *fpdf.Fpdf, record storage.CallRecord) {
	widths := []float64{60, 50, 50}
	rows := sentimentRows(record)

	// Header row gets its own fill so it reads apart from the body.
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(54, 96, 146)
	pdf.SetTextColor(255, 255, 255)
	for i, cell := range rows[0] {
		pdf.CellFormat(widths[i], 8, cell, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetFillColor(237, 242, 248)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range rows[1:] {
		for i, cell := range row {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
}

func writeBullets(pdf *fpdf.Fpdf, tr func(string) string, items []string) {
	pdf.SetFont("Helvetica", "", 11)
	if len(items) == 0 {
		pdf.MultiCell(0, 6, "N/A", "", "L", false)
		return
	}
	for _, item := range items {
		pdf.MultiCell(0, 6, tr("- "+item), "", "L", false)
	}
}
