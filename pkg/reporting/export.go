package reporting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"p9e.in/rigops/models"
)

const exportSheet = "Daily Reports"

var exportHeaders = []string{
	"Report Date", "Time Slot", "Well ID", "Well Name", "Drilling Depth (m)",
	"Mud Weight (ppg)", "Pump Pressure (psi)", "Incidents", "Remarks", "Submitted By", "Submitted At",
}

// BuildWorkbook renders reports as a single-sheet workbook. wells and users
// resolve identifiers to display names; missing entries fall back to the id.
func BuildWorkbook(reports []models.DailyReport, wells map[uuid.UUID]models.Well, users map[uuid.UUID]models.User, generated time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	f.SetCellValue(exportSheet, "A1", "Daily Drilling Reports")
	f.SetCellStyle(exportSheet, "A1", "A1", titleStyle)
	f.SetCellValue(exportSheet, "A2", fmt.Sprintf("Generated: %s", generated.Format("2006-01-02 15:04:05")))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		f.SetCellValue(exportSheet, cell, h)
		f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	f.SetColWidth(exportSheet, "A", lastCol, 18)

	for i, r := range reports {
		row := i + 5
		well, hasWell := wells[r.WellID]
		wellID, wellName := r.WellID.String(), ""
		if hasWell {
			wellID, wellName = well.WellID, well.DisplayName()
		}
		submitter := r.SubmittedBy.String()
		if u, ok := users[r.SubmittedBy]; ok {
			submitter = u.FullName()
		}

		values := []interface{}{
			r.ReportDate.String(),
			r.TimeSlot,
			wellID,
			wellName,
			floatOrBlank(r.DrillingDepth),
			floatOrBlank(r.MudWeight),
			floatOrBlank(r.PumpPressure),
			r.Incidents,
			r.Remarks,
			submitter,
			r.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
	}
	return f, nil
}

func floatOrBlank(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
