package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNotWorkbook  = errors.New("file is not a readable xlsx workbook")
	ErrEmptySheet   = errors.New("first sheet has no header row")
	ErrNoDataRows   = errors.New("first sheet has no data rows")
	invalidSheetRep = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", " ", "]", " ")
)

const defaultSheet = "Sheet1"

func XLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Sheet)
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, err
		}
	}

	row := 1
	if t.Title != "" {
		if err := f.SetCellValue(sheet, "A1", t.Title); err != nil {
			return nil, err
		}
		row = 3
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	if len(t.Headers) > 0 {
		headers := make([]any, len(t.Headers))
		for i, h := range t.Headers {
			headers[i] = h
		}
		if err := setRow(f, sheet, row, headers); err != nil {
			return nil, err
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(t.Headers), row)
		if err := f.SetCellStyle(sheet, first, last, headerStyle); err != nil {
			return nil, err
		}
		row++
	}
	for _, r := range t.Rows {
		if err := setRow(f, sheet, row, r); err != nil {
			return nil, err
		}
		row++
	}
	if len(t.Footer) > 0 {
		if err := setRow(f, sheet, row, t.Footer); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		switch v.(type) {
		case string, int, int64, float64, bool, nil:
			cells[i] = v
		default:
			cells[i] = cellText(v)
		}
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func sheetName(name string) string {
	name = strings.TrimSpace(invalidSheetRep.Replace(name))
	if name == "" {
		return defaultSheet
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

// Sheet summarizes the first worksheet of an uploaded workbook.
type Sheet struct {
	Name     string   `json:"name"`
	Headers  []string `json:"headers"`
	DataRows int      `json:"dataRows"`
}

// Inspect checks that data is an xlsx workbook whose first sheet has a
// header row and at least one data row.
func Inspect(data []byte) (Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Sheet{}, fmt.Errorf("%w: %v", ErrNotWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Sheet{}, fmt.Errorf("%w: %v", ErrNotWorkbook, err)
	}

	nonEmpty := make([][]string, 0, len(rows))
	for _, r := range rows {
		if !blank(r) {
			nonEmpty = append(nonEmpty, r)
		}
	}
	if len(nonEmpty) == 0 {
		return Sheet{}, ErrEmptySheet
	}
	out := Sheet{Name: sheets[0], Headers: nonEmpty[0], DataRows: len(nonEmpty) - 1}
	if out.DataRows == 0 {
		return out, ErrNoDataRows
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
