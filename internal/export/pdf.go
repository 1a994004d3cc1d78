package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
)

const (
	pdfFont       = "Helvetica"
	pdfLineHeight = 8.0
	pdfPageBottom = 270.0
	pdfTopMargin  = 20.0
	pdfLeft       = 20.0
)

type pdfColumn struct {
	title string
	x     float64
}

var pdfColumns = []pdfColumn{
	{"S.No", 8},
	{"Call ID", 20},
	{"Citizen", 35},
	{"Mobile", 55},
	{"Query", 75},
	{"Department", 95},
	{"Selected Option", 120},
	{"Status", 150},
	{"Date", 170},
	{"Executive", 185},
}

// WritePDF renders the report as an A4 table and writes it to w.
func WritePDF(w io.Writer, r *Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pageWidth, _ := pdf.GetPageSize()

	pdf.SetFont(pdfFont, "", 18)
	pdf.SetTextColor(0, 0, 0)
	title := tr(r.Title)
	pdf.Text((pageWidth-pdf.GetStringWidth(title))/2, pdfTopMargin, title)

	pdf.SetFontSize(10)
	y := 35.0
	lines := []string{
		"Department: " + departmentLabel(r.Filters.Department),
		"Satisfaction Filter: " + satisfactionLabel(r.Filters.SatisfactionOption),
		"Date Range: " + FormatDateRange(r.Filters.DateRange),
		"Generated: " + generatedLabel(r.GeneratedAt),
		fmt.Sprintf("Total Records: %d", len(r.Feedbacks)),
	}
	for i, line := range lines {
		if i > 0 {
			y += 5
		}
		pdf.Text(pdfLeft, y, tr(line))
	}

	y += 10
	pdf.Text(pdfLeft, y, fmt.Sprintf("Statistics: Satisfied: %d | Not Satisfied: %d | Resolved: %d | Pending: %d",
		r.Stats.Satisfied, r.Stats.NotSatisfied, r.Stats.Resolved, r.Stats.Pending))

	y += 15
	pdf.SetFontSize(7)
	y = writePDFHeader(pdf, y)

	for i, f := range r.Feedbacks {
		if y > pdfPageBottom {
			pdf.AddPage()
			y = writePDFHeader(pdf, pdfTopMargin)
		}
		cells := []string{
			strconv.Itoa(i + 1),
			truncate(f.CallID, 6),
			truncate(f.CitizenName, 10),
			f.CitizenMobile,
			truncate(f.QueryType, 10),
			truncate(orDefault(f.Department, "N/A"), 12),
			truncate(FormatSatisfaction(string(f.Satisfaction)), 15),
			string(f.Status),
			r.localDate(f.SubmittedAt),
			truncate(f.SubmittedBy, 8),
		}
		for c, text := range cells {
			pdf.Text(pdfColumns[c].x, y, tr(text))
		}
		y += pdfLineHeight
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// writePDFHeader prints the column titles in bold and returns the first row position.
func writePDFHeader(pdf *fpdf.Fpdf, y float64) float64 {
	pdf.SetFont(pdfFont, "B", 7)
	for _, col := range pdfColumns {
		pdf.Text(col.x, y, col.title)
	}
	pdf.SetFont(pdfFont, "", 7)
	return y + pdfLineHeight
}
