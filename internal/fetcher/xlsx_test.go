package fetcher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	err := f.Save(path)
	require.NoError(t, err)
	return path
}

func TestReadXLSX_Basic(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"name", "lng", "lat"},
			{"museum", "116.39", "39.91"},
		},
	})

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"name", "lng", "lat"}, rows[0])
	assert.Equal(t, []string{"museum", "116.39", "39.91"}, rows[1])
}

func TestReadXLSX_SheetName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"First":  {{"a", "b"}},
		"Second": {{"x", "y"}, {"1", "2"}},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "Second"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"x", "y"}, rows[0])
}

func TestReadXLSX_SheetNameNotFound(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadXLSX_SheetIndexOutOfRange(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})

	_, err := ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLSX_NotAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, writeTestFile(path, "not a zip"))

	_, err := ReadXLSX(path, XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open")
}

func TestDropUnnamedColumns(t *testing.T) {
	rows := [][]string{
		{"Unnamed: 0", "name", "", "lng", "lat"},
		{"0", "park", "x", "116.4", "39.9"},
		{"1", "zoo"},
	}

	got := DropUnnamedColumns(rows)
	assert.Equal(t, [][]string{
		{"name", "lng", "lat"},
		{"park", "116.4", "39.9"},
		{"zoo", "", ""},
	}, got)
}

func TestDropUnnamedColumns_Empty(t *testing.T) {
	assert.Empty(t, DropUnnamedColumns(nil))
}

func TestXLSXToCSV(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Unnamed: 0", "name", "lng", "lat"},
			{"0", "mall", "116.45", "39.93"},
		},
	})
	out := filepath.Join(t.TempDir(), "shopping.csv")

	require.NoError(t, XLSXToCSV(path, out))

	rows, err := ReadCSVFile(context.Background(), out, CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "lng", "lat"}, {"mall", "116.45", "39.93"}}, rows)
}
