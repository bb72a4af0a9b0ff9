package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/model"
)

func TestFilename(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	got := Filename(since, until)
	want := "nakladnye_01.01.2024-31.01.2024.xlsx"
	if got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}

func TestWrite(t *testing.T) {
	rows := []model.Record{
		{Invoice: "12345", RawDate: "01.02.2024", User: "Иванов И.И."},
		{Invoice: "777", RawDate: "", User: "Неизвестно"},
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := Write(rows, path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) != 1 || sheets[0] != sheetName {
		t.Fatalf("sheets = %v, want [%s]", sheets, sheetName)
	}

	cells := []struct {
		cell string
		want string
	}{
		{"A1", "Накладная"},
		{"B1", "Дата"},
		{"C1", "Пользователь"},
		{"A2", "12345"},
		{"B2", "01.02.2024"},
		{"C2", "Иванов И.И."},
		{"A3", "777"},
		{"B3", ""},
		{"C3", "Неизвестно"},
	}
	for _, tt := range cells {
		got, err := wb.GetCellValue(sheetName, tt.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", tt.cell, err)
		}
		if got != tt.want {
			t.Errorf("cell %s = %q, want %q", tt.cell, got, tt.want)
		}
	}
}

func TestWriteEmptyReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := Write(nil, path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer wb.Close()

	got, err := wb.GetCellValue(sheetName, "A1")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if got != "Накладная" {
		t.Errorf("A1 = %q, want header even with no rows", got)
	}
}
