package op

import (
	"fmt"
	"strings"

	"github.com/tessera-io/tessera/tessera"
)

// Order is the tile iteration order of a work plan.
type Order uint8

const (
	// RowMajor visits all tiles of row 0 (all bands per item), then row 1, ...
	RowMajor Order = iota

	// ColumnMajor visits all tiles of column 0, then column 1, ...
	ColumnMajor

	// Banded visits, for each band in turn, all of that band's tiles in
	// row-major order, one band per item.
	Banded
)

func (o Order) String() string {
	switch o {
	case RowMajor:
		return "row-major"
	case ColumnMajor:
		return "column-major"
	case Banded:
		return "banded"
	default:
		return fmt.Sprintf("unknown order (%d)", uint8(o))
	}
}

// ParseOrder maps a configuration string to an Order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "row", "row-major", "":
		return RowMajor, nil
	case "column", "col", "column-major":
		return ColumnMajor, nil
	case "banded", "band":
		return Banded, nil
	default:
		return RowMajor, tessera.NewConfigError("unknown scheduling order %q", s)
	}
}

// WorkItem identifies one tile coordinate and the bands to compute for it.
type WorkItem struct {
	Index int
	Coord tessera.TileCoord
	Rect  tessera.Rect
	Bands []string
}

// Plan is the scheduler's declared iteration over an output raster's tile
// grid.  Work items are produced lazily through Iter; within an ordering,
// tile coordinates are visited in strictly increasing row then column (or
// the transposed order for column-major), so destinations may rely on
// sequential, non-overlapping dispatch.
type Plan struct {
	grid  tessera.TileGrid
	bands []string
	order Order
}

// NewPlan builds a work plan over the given grid and target bands.
func NewPlan(grid tessera.TileGrid, bands []string, order Order) (*Plan, error) {
	if grid.NumTiles() == 0 {
		return nil, tessera.NewConfigError("empty tile grid")
	}
	if len(bands) == 0 {
		return nil, tessera.NewConfigError("work plan needs at least one target band")
	}
	if order > Banded {
		return nil, tessera.NewConfigError("unknown scheduling order (%d)", uint8(order))
	}
	return &Plan{grid: grid, bands: append([]string(nil), bands...), order: order}, nil
}

// NumItems returns the total number of work items the plan dispatches.
func (p *Plan) NumItems() int {
	if p.order == Banded {
		return p.grid.NumTiles() * len(p.bands)
	}
	return p.grid.NumTiles()
}

// TilesPerBand returns how many tiles the plan schedules for each band, the
// count destinations use to recognize their final tile.
func (p *Plan) TilesPerBand() int {
	return p.grid.NumTiles()
}

// Bands returns the plan's target bands.
func (p *Plan) Bands() []string {
	return append([]string(nil), p.bands...)
}

// Grid returns the plan's tile grid.
func (p *Plan) Grid() tessera.TileGrid {
	return p.grid
}

// Order returns the plan's iteration order.
func (p *Plan) Order() Order {
	return p.order
}

// Iter returns a fresh lazy iterator over the plan's work items.
func (p *Plan) Iter() *PlanIter {
	return &PlanIter{plan: p}
}

// PlanIter produces work items one at a time in the plan's declared order.
type PlanIter struct {
	plan *Plan
	next int
}

// Next returns the next work item, or ok=false when the plan is exhausted.
func (it *PlanIter) Next() (item WorkItem, ok bool) {
	p := it.plan
	if it.next >= p.NumItems() {
		return WorkItem{}, false
	}
	i := it.next
	it.next++

	numTiles := p.grid.NumTiles()
	cols := int(p.grid.Cols)
	rows := int(p.grid.Rows)

	var coord tessera.TileCoord
	var bands []string
	switch p.order {
	case RowMajor:
		coord = tessera.TileCoord{Row: int32(i / cols), Col: int32(i % cols)}
		bands = p.bands
	case ColumnMajor:
		coord = tessera.TileCoord{Row: int32(i % rows), Col: int32(i / rows)}
		bands = p.bands
	case Banded:
		band := p.bands[i/numTiles]
		j := i % numTiles
		coord = tessera.TileCoord{Row: int32(j / cols), Col: int32(j % cols)}
		bands = []string{band}
	}
	rect, err := p.grid.TileRect(coord)
	if err != nil {
		// The index arithmetic keeps coordinates in-grid.
		panic(fmt.Sprintf("work item %d maps outside grid: %v", i, err))
	}
	return WorkItem{Index: i, Coord: coord, Rect: rect, Bands: bands}, true
}
