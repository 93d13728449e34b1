package raster

import (
	"bytes"
	"testing"

	"github.com/tessera-io/tessera/tessera"
)

func cacheTile(rect tessera.Rect, fill byte) *Tile {
	t := NewTile(rect, tessera.Uint8)
	for i := range t.Data {
		t.Data[i] = fill
	}
	return t
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(2)
	rect := tessera.Rect{X: 0, Y: 0, W: 4, H: 4}
	c.Add(tessera.TileCoord{Row: 0, Col: 0}, cacheTile(rect, 1))
	c.Add(tessera.TileCoord{Row: 0, Col: 1}, cacheTile(rect, 2))
	c.Add(tessera.TileCoord{Row: 0, Col: 2}, cacheTile(rect, 3))

	if _, ok := c.Get(tessera.TileCoord{Row: 0, Col: 0}); ok {
		t.Errorf("oldest tile should be evicted at capacity 2")
	}
	got, ok := c.Get(tessera.TileCoord{Row: 0, Col: 2})
	if !ok {
		t.Fatalf("newest tile should survive")
	}
	if got.Data[0] != 3 {
		t.Errorf("wrong tile returned: fill %d", got.Data[0])
	}

	c.Clear()
	if _, ok := c.Get(tessera.TileCoord{Row: 0, Col: 2}); ok {
		t.Errorf("clear should drop all tiles")
	}
}

func TestSharedCacheView(t *testing.T) {
	shared := NewSharedCache(1)
	a := shared.View("band-a@0")
	b := shared.View("band-b@0")

	rect := tessera.Rect{X: 0, Y: 0, W: 8, H: 8}
	coord := tessera.TileCoord{Row: 0, Col: 0}
	a.Add(coord, cacheTile(rect, 7))

	got, ok := a.Get(coord)
	if !ok {
		t.Fatalf("tile should round trip through the shared arena")
	}
	if got.Rect != rect || !bytes.Equal(got.Data, cacheTile(rect, 7).Data) {
		t.Errorf("tile corrupted by encode/decode round trip")
	}
	if _, ok := b.Get(coord); ok {
		t.Errorf("views must not see each other's tiles")
	}

	a.Clear()
	if _, ok := a.Get(coord); ok {
		t.Errorf("cleared view should miss on old entries")
	}
	// The other view is untouched by a's generation bump.
	b.Add(coord, cacheTile(rect, 9))
	if _, ok := b.Get(coord); !ok {
		t.Errorf("other views should keep working after a clear")
	}
}

func TestTileBinaryRoundTrip(t *testing.T) {
	rect := tessera.Rect{X: 256, Y: 512, W: 100, H: 50}
	in := NewTile(rect, tessera.Float32)
	in.SetSample(300, 540, 42.5)

	b, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("unable to marshal tile: %v", err)
	}
	var out Tile
	if err := out.UnmarshalBinary(b); err != nil {
		t.Fatalf("unable to unmarshal tile: %v", err)
	}
	if out.Rect != rect || out.DataType != tessera.Float32 {
		t.Errorf("tile header mismatch: %s %s", out.Rect, out.DataType)
	}
	if got := out.Sample(300, 540); got != 42.5 {
		t.Errorf("bad sample after round trip: %v", got)
	}

	if err := out.UnmarshalBinary(b[:10]); err == nil {
		t.Errorf("expected error for truncated encoding")
	}
}
