// Package cellref converts between 1-based grid positions and A1-style
// spreadsheet addresses. Every builder computes cell and range addresses
// through this package.
package cellref

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ColumnName returns the letters for a 1-based column index: 1 → A,
// 26 → Z, 27 → AA. Panics outside the sheet's column range.
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		panic(fmt.Sprintf("cellref: %v", err))
	}
	return name
}

// ColumnIndex is the inverse of ColumnName. It returns 0 for invalid input.
func ColumnIndex(name string) int {
	n, err := excelize.ColumnNameToNumber(name)
	if err != nil {
		return 0
	}
	return n
}

// Cell returns the address of a 1-based column and row, e.g. Cell(2, 5) = "B5".
func Cell(col, row int) string {
	return fmt.Sprintf("%s%d", ColumnName(col), row)
}

// Range returns "A1:C9" style references.
func Range(fromCol, fromRow, toCol, toRow int) string {
	return Cell(fromCol, fromRow) + ":" + Cell(toCol, toRow)
}

// ColumnRange returns the range of one column between two rows, e.g. "B2:B4".
func ColumnRange(col, fromRow, toRow int) string {
	return Range(col, fromRow, col, toRow)
}

// SheetRange qualifies a range with a quoted sheet name: 'My Sheet'!A2:A9.
// Single quotes inside the name are doubled.
func SheetRange(sheet, ref string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + ref
}

// Sum returns the formula text SUM(<range>) without a leading '='.
func Sum(ref string) string {
	return "SUM(" + ref + ")"
}

// Rows returns the formula text ROWS(<range>) without a leading '='.
func Rows(ref string) string {
	return "ROWS(" + ref + ")"
}
