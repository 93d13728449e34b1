package raster

import (
	"github.com/tessera-io/tessera/tessera"
)

// ReadWindow assembles an arbitrary rectangular window of samples from a
// node at the given pyramid level, pulling every tile the window intersects.
// The rectangle must lie within the level's extents.  The returned tile is
// owned by the caller.
func ReadWindow(n Node, level int, rect tessera.Rect) (*Tile, error) {
	desc := n.Descriptor().AtLevel(level)
	grid, err := desc.Grid()
	if err != nil {
		return nil, err
	}
	if rect.Intersect(desc.Bounds()) != rect {
		return nil, tessera.NewConfigError("window %s exceeds raster %q level %d extents (%d x %d)",
			rect, n.Name(), level, desc.Width, desc.Height)
	}

	row0 := rect.Y / grid.TileH
	row1 := (rect.Y + rect.H - 1) / grid.TileH
	col0 := rect.X / grid.TileW
	col1 := (rect.X + rect.W - 1) / grid.TileW

	// Exact tile match: hand out a copy so the caller owns it exclusively.
	if row0 == row1 && col0 == col1 {
		tr, err := grid.TileRect(tessera.TileCoord{Row: row0, Col: col0})
		if err != nil {
			return nil, err
		}
		if tr == rect {
			t, err := n.GetTile(level, row0, col0)
			if err != nil {
				return nil, err
			}
			return t.Clone(), nil
		}
	}

	out := NewTile(rect, desc.DataType)
	elem := int(desc.DataType.ByteSize())
	for row := row0; row <= row1; row++ {
		for col := col0; col <= col1; col++ {
			t, err := n.GetTile(level, row, col)
			if err != nil {
				return nil, err
			}
			overlap := rect.Intersect(t.Rect)
			if overlap.Empty() {
				continue
			}
			for y := overlap.Y; y < overlap.Y+overlap.H; y++ {
				srcOff := (int(y-t.Rect.Y)*int(t.Rect.W) + int(overlap.X-t.Rect.X)) * elem
				dstOff := (int(y-rect.Y)*int(rect.W) + int(overlap.X-rect.X)) * elem
				copy(out.Data[dstOff:dstOff+int(overlap.W)*elem], t.Data[srcOff:srcOff+int(overlap.W)*elem])
			}
		}
	}
	return out, nil
}
