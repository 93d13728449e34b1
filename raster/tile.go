package raster

import (
	"encoding/binary"
	"fmt"

	"github.com/tessera-io/tessera/tessera"
)

// Tile is a rectangular window of raster samples, the unit of computation
// and I/O.  A tile is exclusively owned by whichever component currently
// holds it; tiles handed out by a cache must be treated as read-only.
type Tile struct {
	Rect     tessera.Rect
	DataType tessera.DataType
	Data     []byte
}

// NewTile allocates a zeroed tile for the given rectangle and sample type.
func NewTile(rect tessera.Rect, dtype tessera.DataType) *Tile {
	return &Tile{
		Rect:     rect,
		DataType: dtype,
		Data:     make([]byte, rect.NumPixels()*int64(dtype.ByteSize())),
	}
}

// NumSamples returns the number of samples held by the tile.
func (t *Tile) NumSamples() int {
	return int(t.Rect.NumPixels())
}

// SampleAt returns the i-th sample (row-major within the tile) as float64.
func (t *Tile) SampleAt(i int) float64 {
	return t.DataType.SampleAt(t.Data, i)
}

// SetSampleAt sets the i-th sample (row-major within the tile).
func (t *Tile) SetSampleAt(i int, v float64) {
	t.DataType.SetSample(t.Data, i, v)
}

// Sample returns the sample at absolute raster position (x,y), which must
// lie within the tile's rectangle.
func (t *Tile) Sample(x, y int32) float64 {
	i := int(y-t.Rect.Y)*int(t.Rect.W) + int(x-t.Rect.X)
	return t.DataType.SampleAt(t.Data, i)
}

// SetSample sets the sample at absolute raster position (x,y).
func (t *Tile) SetSample(x, y int32, v float64) {
	i := int(y-t.Rect.Y)*int(t.Rect.W) + int(x-t.Rect.X)
	t.DataType.SetSample(t.Data, i, v)
}

// Clone returns a deep copy of the tile.
func (t *Tile) Clone() *Tile {
	data := make([]byte, len(t.Data))
	copy(data, t.Data)
	return &Tile{Rect: t.Rect, DataType: t.DataType, Data: data}
}

// CheckFits verifies the data buffer matches the rectangle and sample type.
func (t *Tile) CheckFits() error {
	want := t.Rect.NumPixels() * int64(t.DataType.ByteSize())
	if int64(len(t.Data)) != want {
		return fmt.Errorf("tile %s (%s) has %d bytes of data, expected %d",
			t.Rect, t.DataType, len(t.Data), want)
	}
	return nil
}

const tileHeaderSize = 4*4 + 1

// MarshalBinary encodes the tile as a fixed header plus raw samples.
func (t *Tile) MarshalBinary() ([]byte, error) {
	b := make([]byte, tileHeaderSize+len(t.Data))
	binary.LittleEndian.PutUint32(b[0:], uint32(t.Rect.X))
	binary.LittleEndian.PutUint32(b[4:], uint32(t.Rect.Y))
	binary.LittleEndian.PutUint32(b[8:], uint32(t.Rect.W))
	binary.LittleEndian.PutUint32(b[12:], uint32(t.Rect.H))
	b[16] = byte(t.DataType)
	copy(b[tileHeaderSize:], t.Data)
	return b, nil
}

// UnmarshalBinary decodes a tile encoded by MarshalBinary.
func (t *Tile) UnmarshalBinary(b []byte) error {
	if len(b) < tileHeaderSize {
		return fmt.Errorf("encoded tile too short: %d bytes", len(b))
	}
	t.Rect = tessera.Rect{
		X: int32(binary.LittleEndian.Uint32(b[0:])),
		Y: int32(binary.LittleEndian.Uint32(b[4:])),
		W: int32(binary.LittleEndian.Uint32(b[8:])),
		H: int32(binary.LittleEndian.Uint32(b[12:])),
	}
	t.DataType = tessera.DataType(b[16])
	t.Data = make([]byte, len(b)-tileHeaderSize)
	copy(t.Data, b[tileHeaderSize:])
	return t.CheckFits()
}
