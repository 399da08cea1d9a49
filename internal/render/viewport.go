// Package render draws the fixed-size terminal viewport over a sheet and
// tracks the scroll position the w/a/s/d/scroll_to commands manipulate.
package render

import (
	"fmt"
	"strings"

	"github.com/vogtb/gitsap/internal/engine"
)

const viewportSize = 10

// Viewport tracks the 1-indexed top-left corner of the visible 10x10 window
// and whether output is currently enabled.
type Viewport struct {
	Row    int
	Col    int
	Output bool
	rows   int
	cols   int
}

// New returns a Viewport anchored at (1,1) over a sheet of the given
// extent, with output enabled, so the grid is printed without an explicit
// enable_output toggle.
func New(rows, cols int) *Viewport {
	return &Viewport{Row: 1, Col: 1, Output: true, rows: rows, cols: cols}
}

// Up scrolls the viewport ten rows toward the origin, clamped at row 1.
func (v *Viewport) Up() {
	if v.Row > viewportSize {
		v.Row -= viewportSize
	} else {
		v.Row = 1
	}
}

// Left scrolls the viewport ten columns toward the origin, clamped at
// column 1.
func (v *Viewport) Left() {
	if v.Col > viewportSize {
		v.Col -= viewportSize
	} else {
		v.Col = 1
	}
}

// Down scrolls the viewport ten rows away from the origin, clamped so the
// top-left corner never exceeds the sheet's row count.
func (v *Viewport) Down() {
	v.Row = min(v.Row+viewportSize, v.rows)
}

// Right scrolls the viewport ten columns away from the origin, clamped so
// the top-left corner never exceeds the sheet's column count.
func (v *Viewport) Right() {
	v.Col = min(v.Col+viewportSize, v.cols)
}

// ScrollTo repositions the viewport's top-left corner directly to the
// given 1-indexed cell.
func (v *Viewport) ScrollTo(row, col int) {
	v.Row = row
	v.Col = col
}

// Render draws the header row of column letters followed by up to
// viewportSize data rows, each prefixed with its 1-indexed row number. A
// cell in the Err state renders as the literal ERR.
func (v *Viewport) Render(sheet *engine.Sheet) string {
	var b strings.Builder

	lastCol := min(v.Col+viewportSize-1, v.cols)
	lastRow := min(v.Row+viewportSize-1, v.rows)

	b.WriteByte('\t')
	for col := v.Col; col <= lastCol; col++ {
		b.WriteString(engine.ColumnLetters(col))
		b.WriteByte('\t')
	}
	b.WriteByte('\n')

	for row := v.Row; row <= lastRow; row++ {
		fmt.Fprintf(&b, "%d\t", row)
		for col := v.Col; col <= lastCol; col++ {
			value := sheet.ReadValue(engine.Coordinate{Row: row - 1, Col: col - 1})
			if value.IsErr() {
				b.WriteString("ERR\t")
			} else {
				fmt.Fprintf(&b, "%d\t", value.N)
			}
		}
		b.WriteByte('\n')
	}

	return b.String()
}
