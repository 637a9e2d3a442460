package poolimport

import (
	"strconv"
	"strings"
	"time"
)

// CellKind tells how a spreadsheet value was encoded.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
)

// Cell is one spreadsheet value. Only the field matching Kind is set.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
}

func TextCell(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

func DateCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Time: t}
}

// IsBlank reports whether the cell is absent or holds only whitespace.
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case CellEmpty:
		return true
	case CellText:
		return strings.TrimSpace(c.Text) == ""
	default:
		return false
	}
}

// String renders the cell the way a spreadsheet user would read it.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDate:
		return c.Time.Format("2006-01-02")
	default:
		return ""
	}
}

// Row is an ordered list of cells; trailing empty cells may be missing.
type Row []Cell

// At returns the cell at col, or an empty cell when the row is shorter.
func (r Row) At(col int) Cell {
	if col < 0 || col >= len(r) {
		return Cell{}
	}
	return r[col]
}

func (r Row) IsBlank() bool {
	for _, c := range r {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

// Grid is the raw content of the first sheet, addressed by zero-based row and column.
type Grid []Row

func (g Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g) {
		return Cell{}
	}
	return g[row].At(col)
}
