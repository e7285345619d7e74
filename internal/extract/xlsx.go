// Package extract turns raw spreadsheet bytes into ordered rows and locates
// the header row for each sheet.
package extract

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/shipment-ingest/internal/model"
)

// Sheet holds the filtered rows of one worksheet.
type Sheet struct {
	Name string
	Rows []model.RawRow
}

// ReadWorkbook parses an XLSX byte buffer into sheets of non-empty rows.
// Sheets that are empty after filtering are dropped, not an error.
func ReadWorkbook(data []byte) ([]Sheet, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "extract: open workbook")
	}

	var sheets []Sheet
	for _, sh := range f.Sheets {
		grid := make([][]string, len(sh.Rows))
		for i, row := range sh.Rows {
			cells := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				cells[j] = cell.String()
			}
			grid[i] = cells
		}

		rows := FilterRows(grid)
		if len(rows) == 0 {
			continue
		}
		sheets = append(sheets, Sheet{Name: sh.Name, Rows: rows})
	}

	return sheets, nil
}

// FilterRows drops fully-empty rows and assigns 1-based positions in the
// filtered sequence. All downstream indices refer to this sequence.
func FilterRows(grid [][]string) []model.RawRow {
	var rows []model.RawRow
	for _, cells := range grid {
		r := model.RawRow{Cells: cells}
		if r.IsEmpty() {
			continue
		}
		r.Position = len(rows) + 1
		rows = append(rows, r)
	}
	return rows
}
