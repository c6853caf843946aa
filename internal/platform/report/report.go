// Package report renders printable XLSX workbooks from the coordination state.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ehr/homecare/internal/domain/coordination"
	"github.com/ehr/homecare/internal/domain/roster"
	"github.com/ehr/homecare/internal/domain/visit"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var VisitScheduleHeader = []string{
	"Patient ID",
	"Name",
	"Area",
	"Phone",
	"Team",
	"Status",
	"Doctor",
	"Nurse",
}

var CriticalCasesHeader = []string{
	"Cohort",
	"Patient ID",
	"Name",
	"Area",
	"Phone",
	"Risk",
	"Days Since Admission",
}

// VisitSchedule lists the visits scheduled on date, one row per visit, in
// the order they were scheduled.
func VisitSchedule(st coordination.State, date string) ([]byte, error) {
	visits := visit.OnDate(st.Visits, date)
	rows := make([][]any, 0, len(visits))
	for _, v := range visits {
		p, _ := st.Patient(v.PatientID)
		teamName := v.TeamID
		if team, ok := st.Team(v.TeamID); ok {
			teamName = team.Name
		}
		rows = append(rows, []any{
			v.PatientID,
			p.Name,
			p.Area,
			p.Phone,
			teamName,
			string(v.Status),
			v.DoctorSignature,
			v.NurseSignature,
		})
	}
	return build("Visits "+date, VisitScheduleHeader, []float64{15, 25, 15, 15, 15, 18, 20, 20}, rows)
}

// CriticalCases lists every cohort member, one row per (cohort, patient).
// A patient in several cohorts appears once in each.
func CriticalCases(st coordination.State, now time.Time) ([]byte, error) {
	var rows [][]any
	for _, cohort := range st.CriticalCases.Cohorts() {
		for _, id := range cohort.PatientIDs {
			p, _ := st.Patient(id)
			rows = append(rows, []any{
				cohort.Name,
				id,
				p.Name,
				p.Area,
				p.Phone,
				string(roster.ClassifyRisk(p.AdmissionDate, now)),
				roster.DaysSince(p.AdmissionDate, now),
			})
		}
	}
	return build("Critical Cases", CriticalCasesHeader, []float64{15, 15, 25, 15, 15, 10, 20}, rows)
}

func build(sheetName string, headers []string, widths []float64, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// sheet names are capped at 31 characters
	if len(sheetName) > 31 {
		sheetName = sheetName[:31]
	}
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("set header style: %w", err)
		}
		if col < len(widths) {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return nil, fmt.Errorf("convert column number: %w", err)
			}
			if err := f.SetColWidth(sheetName, name, name, widths[col]); err != nil {
				return nil, fmt.Errorf("set column width: %w", err)
			}
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("convert coordinates: %w", err)
		}
		r := row
		if err := f.SetSheetRow(sheetName, cell, &r); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
