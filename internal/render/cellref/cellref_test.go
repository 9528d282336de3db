package cellref

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnName(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{1, "A"},
		{2, "B"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
		{703, "AAA"},
		{16384, "XFD"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ColumnName(tt.col))
			assert.Equal(t, tt.col, ColumnIndex(tt.want))
		})
	}
}

func TestColumnNamePanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { ColumnName(0) })
}

func TestColumnIndexInvalid(t *testing.T) {
	assert.Equal(t, 0, ColumnIndex("A1"))
	assert.Equal(t, 28, ColumnIndex("ab"))
}

func TestRanges(t *testing.T) {
	assert.Equal(t, "B5", Cell(2, 5))
	assert.Equal(t, "A1:C9", Range(1, 1, 3, 9))
	assert.Equal(t, "B2:B4", ColumnRange(2, 2, 4))
	assert.Equal(t, "SUM(B2:B4)", Sum(ColumnRange(2, 2, 4)))
	assert.Equal(t, "'Donor''s List'!A2:A4", SheetRange("Donor's List", "A2:A4"))
	assert.Equal(t, "ROWS('Projects'!A2:A11)", Rows(SheetRange("Projects", ColumnRange(1, 2, 11))))
}
