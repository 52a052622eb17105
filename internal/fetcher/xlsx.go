package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures the XLSX parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX reads one sheet of an XLSX file and returns all rows as string slices.
// Rows are padded to the width of the first row.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	width := 0
	for i, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := rowToStrings(row)
		if i == 0 {
			width = len(cells)
		}
		for len(cells) < width {
			cells = append(cells, "")
		}
		rows = append(rows, cells)
	}

	return rows, nil
}

// DropUnnamedColumns removes columns whose header is blank or starts with "Unnamed",
// the placeholder spreadsheet exports give index columns.
func DropUnnamedColumns(rows [][]string) [][]string {
	if len(rows) == 0 {
		return rows
	}

	var keep []int
	for i, name := range rows[0] {
		name = strings.TrimSpace(name)
		if name == "" || strings.HasPrefix(name, "Unnamed") {
			continue
		}
		keep = append(keep, i)
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(keep))
		for j, idx := range keep {
			if idx < len(row) {
				cells[j] = row[idx]
			}
		}
		out = append(out, cells)
	}
	return out
}

// XLSXToCSV converts the first sheet of an XLSX file to a UTF-8 CSV file with unnamed
// columns removed.
func XLSXToCSV(xlsxPath, csvPath string) error {
	rows, err := ReadXLSX(xlsxPath, XLSXOptions{})
	if err != nil {
		return err
	}
	return WriteCSVFile(csvPath, DropUnnamedColumns(rows))
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
