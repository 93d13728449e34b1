package tessera

import "fmt"

// Rect is a rectangular window into a raster in pixel coordinates.
type Rect struct {
	X, Y, W, H int32
}

func (r Rect) String() string {
	return fmt.Sprintf("{%d,%d,%d,%d}", r.X, r.Y, r.W, r.H)
}

// Empty returns true if the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// NumPixels returns the number of pixels covered by the rectangle.
func (r Rect) NumPixels() int64 {
	if r.Empty() {
		return 0
	}
	return int64(r.W) * int64(r.H)
}

// Contains returns true if (x,y) lies within the rectangle.
func (r Rect) Contains(x, y int32) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Intersect returns the overlap of two rectangles, which may be empty.
func (r Rect) Intersect(r2 Rect) Rect {
	x0 := max32(r.X, r2.X)
	y0 := max32(r.Y, r2.Y)
	x1 := min32(r.X+r.W, r2.X+r2.W)
	y1 := min32(r.Y+r.H, r2.Y+r2.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{x0, y0, x1 - x0, y1 - y0}
}

// TileCoord identifies one tile within a tile grid.
type TileCoord struct {
	Row, Col int32
}

func (c TileCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// TileGrid describes how a raster of given extents is partitioned into
// tiles.  The last row and column of tiles may be partial.
type TileGrid struct {
	Width, Height int32 // raster extents in pixels
	TileW, TileH  int32 // full tile extents in pixels
	Rows, Cols    int32
}

// GridFor returns the tile grid covering a raster of the given extents with
// the given tile size.  All arguments must be positive.
func GridFor(width, height, tileW, tileH int32) (TileGrid, error) {
	if width <= 0 || height <= 0 {
		return TileGrid{}, NewConfigError("raster extents must be positive: %d x %d", width, height)
	}
	if tileW <= 0 || tileH <= 0 {
		return TileGrid{}, NewConfigError("tile size must be positive: %d x %d", tileW, tileH)
	}
	return TileGrid{
		Width:  width,
		Height: height,
		TileW:  tileW,
		TileH:  tileH,
		Rows:   (height + tileH - 1) / tileH,
		Cols:   (width + tileW - 1) / tileW,
	}, nil
}

// NumTiles returns the total number of tiles in the grid.
func (g TileGrid) NumTiles() int {
	return int(g.Rows) * int(g.Cols)
}

// Valid returns true if the coordinate lies within the grid.
func (g TileGrid) Valid(c TileCoord) bool {
	return c.Row >= 0 && c.Row < g.Rows && c.Col >= 0 && c.Col < g.Cols
}

// TileRect returns the pixel rectangle of the tile at the given coordinate,
// clamped to the raster extents for edge tiles.
func (g TileGrid) TileRect(c TileCoord) (Rect, error) {
	if !g.Valid(c) {
		return Rect{}, fmt.Errorf("tile %s outside of %dx%d tile grid", c, g.Rows, g.Cols)
	}
	x := c.Col * g.TileW
	y := c.Row * g.TileH
	w := min32(g.TileW, g.Width-x)
	h := min32(g.TileH, g.Height-y)
	return Rect{x, y, w, h}, nil
}

// DownsampledExtent returns the extent of a raster dimension at the given
// pyramid level, halving with round-up per level so no pixel is dropped.
func DownsampledExtent(extent int32, level int) int32 {
	for i := 0; i < level; i++ {
		extent = (extent + 1) / 2
	}
	if extent < 1 {
		extent = 1
	}
	return extent
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
