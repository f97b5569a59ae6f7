package report

import (
	"fmt"

	"workhours/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	tasksSheet     = "Tasks"
	employeesSheet = "Employees"
	ordersSheet    = "Orders"
)

// BuildTasksWorkbook renders the task export: one sheet with a row per entry
// and a second sheet with the per-employee daily totals.
func BuildTasksWorkbook(tasks []models.TaskEntry, totals []EmployeeTotal) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", tasksSheet)

	headers := []string{
		"Employee", "Personnel number", "Category", "Department",
		"Date", "Order number", "Order name", "Work", "Hours",
	}
	if err := writeHeaders(f, tasksSheet, headers); err != nil {
		return nil, err
	}
	for i, task := range tasks {
		row := i + 2
		setRow(f, tasksSheet, row,
			task.EmployeeName,
			task.PersonnelNumber,
			task.EmployeeCategory.DisplayName(),
			task.Department,
			task.OperationDate.Format(models.DateFormat),
			task.OrderNumber,
			task.OrderName,
			task.WorkName,
		)
		setHours(f, tasksSheet, 9, row, task.Hours)
	}
	if err := styleSheet(f, tasksSheet, len(headers), len(tasks)+1, []int{9}); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(employeesSheet); err != nil {
		return nil, err
	}
	headers = []string{
		"Employee", "Personnel number", "Category", "Department", "Date", "Hours",
	}
	if err := writeHeaders(f, employeesSheet, headers); err != nil {
		return nil, err
	}
	for i, total := range totals {
		row := i + 2
		setRow(f, employeesSheet, row,
			total.EmployeeName,
			total.PersonnelNumber,
			total.Category.DisplayName(),
			total.Department,
			total.OperationDate.Format(models.DateFormat),
		)
		setHours(f, employeesSheet, 6, row, total.Hours)
	}
	if err := styleSheet(f, employeesSheet, len(headers), len(totals)+1, []int{6}); err != nil {
		return nil, err
	}

	return f, nil
}

// BuildOrdersWorkbook renders the per-order planned/spent/remaining report
// and appends a synthetic totals row.
func BuildOrdersWorkbook(rows []OrderTotal) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", ordersSheet)

	headers := []string{
		"Order number", "Order name", "Planned hours", "Spent hours", "Remaining hours",
	}
	if err := writeHeaders(f, ordersSheet, headers); err != nil {
		return nil, err
	}

	var totalPlanned, totalSpent, totalRemaining decimal.Decimal
	for i, r := range rows {
		rowNo := i + 2
		setRow(f, ordersSheet, rowNo, r.OrderNumber, r.OrderName)
		setHours(f, ordersSheet, 3, rowNo, r.PlannedHours)
		setHours(f, ordersSheet, 4, rowNo, r.SpentHours)
		setHours(f, ordersSheet, 5, rowNo, r.RemainingHours)

		totalPlanned = totalPlanned.Add(r.PlannedHours)
		totalSpent = totalSpent.Add(r.SpentHours)
		totalRemaining = totalRemaining.Add(r.RemainingHours)
	}

	totalsRow := len(rows) + 2
	setRow(f, ordersSheet, totalsRow, "Total", "")
	setHours(f, ordersSheet, 3, totalsRow, totalPlanned)
	setHours(f, ordersSheet, 4, totalsRow, totalSpent)
	setHours(f, ordersSheet, 5, totalsRow, totalRemaining)

	if err := styleSheet(f, ordersSheet, len(headers), totalsRow, []int{3, 4, 5}); err != nil {
		return nil, err
	}
	return f, nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...string) {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			continue
		}
		f.SetCellValue(sheet, cell, value)
	}
}

// setHours writes an hour figure as a number; the 0.00 display format is
// applied per column by styleSheet.
func setHours(f *excelize.File, sheet string, col, row int, hours decimal.Decimal) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return
	}
	f.SetCellFloat(sheet, cell, hours.InexactFloat64(), 2, 64)
}

func styleSheet(f *excelize.File, sheet string, cols, lastRow int, hourCols []int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	endHeader, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", endHeader, bold); err != nil {
		return err
	}

	for c := 1; c <= cols; c++ {
		name, err := excelize.ColumnNumberToName(c)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, 22); err != nil {
			return err
		}
	}

	if lastRow < 2 {
		return nil
	}
	// NumFmt 2 is the built-in "0.00" format.
	number, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}
	for _, c := range hourCols {
		top, err := excelize.CoordinatesToCellName(c, 2)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(c, lastRow)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, top, bottom, number); err != nil {
			return err
		}
	}
	return nil
}

// ExportFilename names a workbook download for the given report date.
func ExportFilename(prefix, date string) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, date)
}
