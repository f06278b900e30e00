// Package report renders admin-facing progress reports.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/prepdesk/prepdesk/internal/learnpath"
)

const progressSheet = "Progress"

// WriteProgressWorkbook writes an XLSX workbook with one row per student:
// name, email, assigned company, completed/total topics and completion
// percentage. Unassigned students appear with a dash and zero progress.
func WriteProgressWorkbook(w io.Writer, store learnpath.Store) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(progressSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{"Student", "Email", "Company", "Completed", "Total", "Completion (%)"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(progressSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for row, student := range store.Students() {
		company := "—"
		var progress learnpath.Progress
		if student.Assigned() {
			path, err := store.LearningPathByID(*student.AssignedLearningPathID)
			if err != nil {
				return fmt.Errorf("resolve path for %s: %w", student.ID, err)
			}
			company = path.Company
			progress = learnpath.PathProgress(path)
		}

		values := []any{
			student.Name,
			student.Email,
			company,
			progress.Completed,
			progress.Total,
			progress.Percentage,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(progressSheet, cell, v); err != nil {
				return fmt.Errorf("write row for %s: %w", student.ID, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
