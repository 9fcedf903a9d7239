// Package excel adapts excelize to the row-oriented read/write capability
// the merge engine consumes. Only the first sheet of a workbook is used;
// every cell travels as a string.
package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

type Codec struct{}

func NewCodec() *Codec { return &Codec{} }

// ReadRows returns the rows of the first sheet starting at headerRow
// (zero-based), so the first returned row is the header itself. Rows above
// headerRow are discarded — templates may carry title banners there.
func (c *Codec) ReadRows(path string, headerRow int) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows from %s: %w", path, err)
	}
	if headerRow < 0 || headerRow >= len(rows) {
		return nil, nil
	}
	return rows[headerRow:], nil
}

// WriteRows creates a fresh workbook at path containing rows on the first
// sheet. An existing file at path is overwritten.
func (c *Codec) WriteRows(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("address row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
