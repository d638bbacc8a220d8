package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/market-intel/internal/model"
)

// WriteWorkbook writes a two-sheet XLSX workbook: one sheet of data
// points, one of detected changes. Either slice may be empty; the sheet
// still gets its header row.
func WriteWorkbook(path string, points []model.DataPoint, changes []model.Change) error {
	f := xlsx.NewFile()

	if err := addSheet(f, "Data Points", dataPointHeader(), len(points), func(i int) []string {
		return dataPointRow(points[i])
	}); err != nil {
		return err
	}
	if err := addSheet(f, "Detected Changes", changeHeader(), len(changes), func(i int) []string {
		return changeRow(changes[i])
	}); err != nil {
		return err
	}

	return eris.Wrapf(f.Save(path), "xlsx: save %s", path)
}

func addSheet(f *xlsx.File, name string, header []string, n int, rowAt func(int) []string) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "xlsx: add sheet %s", name)
	}

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}
	for i := 0; i < n; i++ {
		row := sheet.AddRow()
		for _, cell := range rowAt(i) {
			row.AddCell().SetString(cell)
		}
	}
	return nil
}
