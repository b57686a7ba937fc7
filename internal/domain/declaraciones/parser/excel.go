package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadExcelRows reads the first sheet of a workbook and returns every data row
// as a header-keyed map, in sheet order. Row 1 is the header row; a sheet with
// fewer than 2 rows yields no records. Spreadsheet formats have no safe
// partial-read path, so the workbook is materialized in memory.
func ReadExcelRows(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}

	if len(cells) < 2 {
		return nil, nil
	}

	headers := make([]string, len(cells[0]))
	for i, h := range cells[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(cells)-1)
	for _, record := range cells[1:] {
		rows = append(rows, recordToRow(headers, record))
	}
	return rows, nil
}
