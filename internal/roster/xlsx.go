package roster

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ErrMissingNameColumn is returned when an XLSX roster has no recognizable name header.
var ErrMissingNameColumn = errors.New("roster sheet has no name column")

// ExportHeaders are the column titles written by WriteXLSX.
var ExportHeaders = []string{"NIS", "Nama", "Kelas"}

// LoadXLSX reads the first sheet of a workbook. The first row is the header.
func LoadXLSX(r io.Reader) (*Roster, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open roster workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return Empty(), nil
	}

	nameCol, idCol, classCol := -1, -1, -1
	for i, h := range rows[0] {
		switch {
		case matchKey(h, nameKeys):
			nameCol = i
		case matchKey(h, idKeys):
			idCol = i
		case matchKey(h, classKeys):
			classCol = i
		}
	}
	if nameCol < 0 {
		return nil, ErrMissingNameColumn
	}

	entries := make([]Entry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		entries = append(entries, Entry{
			Name:       cell(row, nameCol),
			ExternalID: cell(row, idCol),
			ClassLabel: cell(row, classCol),
		})
	}
	return New(entries), nil
}

// WriteXLSX writes entries as a single-sheet workbook with ExportHeaders.
func WriteXLSX(w io.Writer, sheetName string, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("drop default sheet: %w", err)
		}
	}

	for i, h := range ExportHeaders {
		cellName, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cellName, h); err != nil {
			return err
		}
	}
	for idx, e := range entries {
		row := idx + 2
		if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), e.ExternalID); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), e.Name); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), e.ClassLabel); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 14)
	_ = f.SetColWidth(sheetName, "B", "B", 32)
	_ = f.SetColWidth(sheetName, "C", "C", 14)

	return f.Write(w)
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
