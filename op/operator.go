package op

import (
	"github.com/tessera-io/tessera/raster"
	"github.com/tessera-io/tessera/tessera"
)

// Operator is a named transform producing one or more output bands tile by
// tile.  An instance is constructed once per execution and disposed after
// the write pass completes or fails.
type Operator interface {
	Name() string

	// Initialize validates sources and configuration and declares targets.
	// It runs before any tile work; failures abort the invocation.
	Initialize() error

	// TargetGrid returns the tile grid of the output raster.
	TargetGrid() (tessera.TileGrid, error)

	// TargetBands returns the output band names in declaration order.
	TargetBands() []string

	// ComputeTile computes the tile of one output band at the given
	// rectangle.  It must be a pure function of its inputs and current
	// configuration: identical arguments under unchanged configuration
	// yield bit-identical output.
	ComputeTile(band string, rect tessera.Rect) (*raster.Tile, error)

	// Dispose releases resources.  The executor calls it exactly once, on
	// both the success and failure paths.
	Dispose()
}

// AllBandsRequired is implemented by operators whose output bands are
// mutually dependent, making a single tile failure fatal to the whole
// invocation.  The default, without this interface, is per-band/tile
// failure isolation.
type AllBandsRequired interface {
	AllBandsRequired() bool
}

// Router receives computed tiles and fans them out to destinations.  Begin
// is called once with the declared work plan before any tile is routed;
// Close is called exactly once after the last RouteTile, on both success
// and failure paths.
type Router interface {
	Begin(plan *Plan) error
	RouteTile(band string, tile *raster.Tile) error
	Close(failed bool) error
}

// GetSourceTile pulls a window of samples from a source raster at full
// resolution, the common way operators read their inputs.
func GetSourceTile(n raster.Node, rect tessera.Rect) (*raster.Tile, error) {
	return raster.ReadWindow(n, 0, rect)
}
