package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	DataSheet    = "Feedback Data"
	SummarySheet = "Summary"
)

type excelColumn struct {
	title string
	width float64
}

var excelColumns = []excelColumn{
	{"S.No", 8},
	{"Call ID", 15},
	{"Citizen Name", 20},
	{"Mobile Number", 15},
	{"Query Type", 20},
	{"Department", 20},
	{"Selected Option", 20},
	{"Status", 12},
	{"Submitted Date", 15},
	{"Submitted Time", 15},
	{"Submitted By", 15},
	{"Description", 40},
}

// WriteExcel renders the report as a workbook with a data sheet and a summary sheet.
func WriteExcel(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	header := make([]interface{}, len(excelColumns))
	for i, col := range excelColumns {
		header[i] = col.title
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(DataSheet, name, name, col.width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	if err := f.SetSheetRow(DataSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(DataSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, fb := range r.Feedbacks {
		row := []interface{}{
			i + 1,
			fb.CallID,
			fb.CitizenName,
			fb.CitizenMobile,
			fb.QueryType,
			orDefault(fb.Department, "N/A"),
			FormatSatisfaction(string(fb.Satisfaction)),
			string(fb.Status),
			r.localDate(fb.SubmittedAt),
			r.localTime(fb.SubmittedAt),
			fb.SubmittedBy,
			fb.Description,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(DataSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := writeSummary(f, r, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, r *Report, bold int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 25); err != nil {
		return err
	}
	if err := f.SetColWidth(SummarySheet, "B", "B", 30); err != nil {
		return err
	}

	s := r.Stats
	rows := [][]interface{}{
		{"Filter", "Value"},
		{"Department", departmentLabel(r.Filters.Department)},
		{"Satisfaction Option", satisfactionLabel(r.Filters.SatisfactionOption)},
		{"Date Range", FormatDateRange(r.Filters.DateRange)},
		{"Generated On", generatedLabel(r.GeneratedAt)},
		{"Total Records", s.Total},
		{"Satisfied", s.Satisfied},
		{"Not Satisfied", s.NotSatisfied},
		{"Mobile Missing", s.MobileMissing},
		{"Number Incorrect", s.NumberIncorrect},
		{"Call Not Picked", s.CallNotPicked},
		{"Person Doesn't Exist", s.PersonNotExist},
		{"Resolved", s.Resolved},
		{"Pending", s.Pending},
		{"Satisfaction Rate (%)", s.SatisfactionRate},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return f.SetRowStyle(SummarySheet, 1, 1, bold)
}
