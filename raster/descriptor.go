package raster

import (
	"fmt"

	"github.com/tessera-io/tessera/tessera"
)

// Descriptor describes the extents, sample type, and tiling of a raster.
type Descriptor struct {
	Name       string
	Width      int32
	Height     int32
	DataType   tessera.DataType
	TileWidth  int32
	TileHeight int32
}

// Validate checks descriptor invariants.
func (d Descriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return tessera.NewConfigError("raster %q extents must be positive: %d x %d", d.Name, d.Width, d.Height)
	}
	if d.TileWidth <= 0 || d.TileHeight <= 0 {
		return tessera.NewConfigError("raster %q tile size must be positive: %d x %d", d.Name, d.TileWidth, d.TileHeight)
	}
	if !d.DataType.Known() {
		return tessera.NewConfigError("raster %q has unknown data type (%d)", d.Name, uint8(d.DataType))
	}
	return nil
}

// Grid returns the tile grid covering this raster.
func (d Descriptor) Grid() (tessera.TileGrid, error) {
	return tessera.GridFor(d.Width, d.Height, d.TileWidth, d.TileHeight)
}

// Bounds returns the full raster rectangle.
func (d Descriptor) Bounds() tessera.Rect {
	return tessera.Rect{X: 0, Y: 0, W: d.Width, H: d.Height}
}

// AtLevel returns the descriptor of this raster at the given pyramid level.
// Extents halve (rounded up) per level; tile size is unchanged.
func (d Descriptor) AtLevel(level int) Descriptor {
	d2 := d
	d2.Width = tessera.DownsampledExtent(d.Width, level)
	d2.Height = tessera.DownsampledExtent(d.Height, level)
	return d2
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%d x %d, %s, %dx%d tiles)",
		d.Name, d.Width, d.Height, d.DataType, d.TileWidth, d.TileHeight)
}
