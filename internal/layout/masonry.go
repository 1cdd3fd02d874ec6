// Package layout implements the masonry layout used by feed clients:
// a viewport-width-to-column-count mapping and a round-robin distribution
// of pins across columns.
package layout

import "pinboard/internal/model"

// Viewport breakpoints (pixels) and the column counts they select.
const (
	BreakpointSM = 640
	BreakpointLG = 1024
	BreakpointXL = 1280

	MinColumns = 2
	MaxColumns = 5
)

// ColumnCount maps a viewport width to a column count:
// <640 -> 2, <1024 -> 3, <1280 -> 4, otherwise 5.
func ColumnCount(width int) int {
	switch {
	case width < BreakpointSM:
		return 2
	case width < BreakpointLG:
		return 3
	case width < BreakpointXL:
		return 4
	default:
		return 5
	}
}

// Distribute assigns the pin at input index i to column i mod columns,
// preserving relative order within each column. This is round-robin
// placement, not height-balanced packing: columns of uneven visual height
// are expected and intentional.
func Distribute(pins []model.FeedPin, columns int) [][]model.FeedPin {
	if columns < 1 {
		columns = 1
	}

	out := make([][]model.FeedPin, columns)
	for i := range out {
		out[i] = []model.FeedPin{}
	}
	for i, pin := range pins {
		col := i % columns
		out[col] = append(out[col], pin)
	}
	return out
}
