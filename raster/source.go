package raster

import (
	"fmt"

	"github.com/tessera-io/tessera/tessera"
)

// MultiLevelSource computes tiles on demand for each resolution level of a
// pyramid.  Level 0 is full resolution.  Implementations must be pure:
// calling ComputeTile twice with the same arguments and unchanged
// configuration must yield bit-identical output, since results are cached.
type MultiLevelSource interface {
	ComputeTile(level int, rect tessera.Rect) (*Tile, error)
}

// SourceFunc adapts a function to the MultiLevelSource interface.
type SourceFunc func(level int, rect tessera.Rect) (*Tile, error)

func (f SourceFunc) ComputeTile(level int, rect tessera.Rect) (*Tile, error) {
	return f(level, rect)
}

// Downsampled wraps a source that only knows how to compute full-resolution
// tiles, deriving level L tiles by box-averaging 2^L x 2^L blocks of level-0
// samples.  The descriptor gives the full-resolution extents used for edge
// clamping.
func Downsampled(base MultiLevelSource, desc Descriptor) MultiLevelSource {
	return &downsampled{base: base, desc: desc}
}

type downsampled struct {
	base MultiLevelSource
	desc Descriptor
}

func (d *downsampled) ComputeTile(level int, rect tessera.Rect) (*Tile, error) {
	if level == 0 {
		return d.base.ComputeTile(0, rect)
	}
	if level < 0 {
		return nil, fmt.Errorf("negative pyramid level %d", level)
	}
	factor := int32(1) << uint(level)

	// The level-0 window feeding this tile, clamped to the raster extents.
	src := tessera.Rect{
		X: rect.X * factor,
		Y: rect.Y * factor,
		W: rect.W * factor,
		H: rect.H * factor,
	}
	src = src.Intersect(d.desc.Bounds())
	if src.Empty() {
		return nil, fmt.Errorf("level %d tile %s maps outside raster %s", level, rect, d.desc.Name)
	}
	full, err := d.base.ComputeTile(0, src)
	if err != nil {
		return nil, err
	}

	out := NewTile(rect, full.DataType)
	for y := int32(0); y < rect.H; y++ {
		for x := int32(0); x < rect.W; x++ {
			// Average the block of source samples under this output pixel.
			bx0 := (rect.X+x)*factor - src.X
			by0 := (rect.Y+y)*factor - src.Y
			bx1 := min32(bx0+factor, src.W)
			by1 := min32(by0+factor, src.H)
			var sum float64
			var n int
			for by := by0; by < by1; by++ {
				for bx := bx0; bx < bx1; bx++ {
					sum += full.SampleAt(int(by)*int(src.W) + int(bx))
					n++
				}
			}
			if n > 0 {
				out.SetSampleAt(int(y)*int(rect.W)+int(x), sum/float64(n))
			}
		}
	}
	return out, nil
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
