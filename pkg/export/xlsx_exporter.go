package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter writes the dataset into a single worksheet. Numeric cells are stored as
// numbers so spreadsheet formulas work on percentages and counts.
type XLSXExporter struct {
	SheetName string
}

func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{SheetName: "Report"}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) Extension() string { return FormatXLSX }

func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if e.SheetName != "" && e.SheetName != sheet {
		if err := f.SetSheetName(sheet, e.SheetName); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
		sheet = e.SheetName
	}

	for i, h := range data.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("write xlsx header: %w", err)
		}
	}
	for r, row := range data.Rows {
		for i, value := range data.cells(row) {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			var v interface{} = value
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				v = n
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write xlsx cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}
