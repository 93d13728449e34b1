package tessera

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DataType is the sample data type of a raster buffer.  Multi-byte samples
// are stored little-endian.
type DataType uint8

const (
	Uint8 DataType = iota
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

func (t DataType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("unknown data type (%d)", uint8(t))
	}
}

// ByteSize returns the number of bytes per sample.
func (t DataType) ByteSize() int32 {
	switch t {
	case Uint8:
		return 1
	case Uint16:
		return 2
	case Uint32, Float32:
		return 4
	case Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// Known returns true for a defined data type.
func (t DataType) Known() bool {
	return t <= Float64
}

// SampleAt reads the i-th sample of a raw buffer as float64.  Integer types
// widen without loss up to the float64 mantissa.
func (t DataType) SampleAt(buf []byte, i int) float64 {
	switch t {
	case Uint8:
		return float64(buf[i])
	case Uint16:
		return float64(binary.LittleEndian.Uint16(buf[i*2:]))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(buf[i*4:]))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(buf[i*8:]))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	default:
		return 0
	}
}

// SetSample writes the i-th sample of a raw buffer from a float64 value.
// Integer types truncate toward zero.
func (t DataType) SetSample(buf []byte, i int, v float64) {
	switch t {
	case Uint8:
		buf[i] = uint8(v)
	case Uint16:
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	case Uint32:
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	case Uint64:
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	case Float32:
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
}
