package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/model"
)

const sheetName = "Отчет"

var header = []string{"Накладная", "Дата", "Пользователь"}

// Write serializes the rows into an XLSX workbook at path: one header
// row, then one row per record in the given order.
func Write(rows []model.Record, path string) error {
	wb := excelize.NewFile()
	defer wb.Close()

	index, err := wb.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	wb.SetActiveSheet(index)
	if err := wb.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	if err := writeRow(wb, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := writeRow(wb, i+2, []string{row.Invoice, row.RawDate, row.User}); err != nil {
			return err
		}
	}

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func writeRow(wb *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := wb.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// Filename derives the default report name from the search window.
func Filename(since, until time.Time) string {
	return fmt.Sprintf("nakladnye_%s-%s.xlsx", since.Format("02.01.2006"), until.Format("02.01.2006"))
}
