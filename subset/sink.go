package subset

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/tessera-io/tessera/tessera"
)

// BandInfo describes one band of a subset header.
type BandInfo struct {
	Name     string
	DataType tessera.DataType
	Virtual  bool
}

// Header is the structural metadata written once per subset, before its
// first tile.
type Header struct {
	Name       string
	Width      int32
	Height     int32
	TileWidth  int32
	TileHeight int32
	Bands      []BandInfo
}

// Sink is the write side of one subset destination.
type Sink interface {
	// Path identifies the destination for error reporting.
	Path() string

	// Create opens/creates the destination.  It runs before any tile work.
	Create() error

	// WriteHeader writes the structural metadata.  Called at most once,
	// before the first WriteTile.
	WriteHeader(hdr Header) error

	// WriteTile appends one band's tile samples.  Calls are serialized by
	// the router per destination.
	WriteTile(band string, rect tessera.Rect, samples []byte) error

	// Close finalizes the destination.  Called exactly once.
	Close() error
}

// fileMagic starts every subset file.
var fileMagic = []byte("TSSB")

// tileRecord is the gob payload of one stored tile.
type tileRecord struct {
	Band    string
	Rect    tessera.Rect
	Samples []byte
}

// FileSink writes a subset as a single file: magic, then length-prefixed
// records, the first holding the gob header, the rest one tile each.  All
// records are snappy-compressed with CRC32 checksums.
type FileSink struct {
	path string
	f    *os.File
}

// NewFileSink returns a sink writing to the given path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Create() error {
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	if _, err := f.Write(fileMagic); err != nil {
		f.Close()
		return err
	}
	s.f = f
	return nil
}

func (s *FileSink) writeRecord(payload []byte) error {
	var lenbuf [4]byte
	binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(payload)))
	if _, err := s.f.Write(lenbuf[:]); err != nil {
		return err
	}
	_, err := s.f.Write(payload)
	return err
}

func (s *FileSink) WriteHeader(hdr Header) error {
	payload, err := tessera.Serialize(hdr, tessera.Snappy, tessera.CRC32)
	if err != nil {
		return err
	}
	return s.writeRecord(payload)
}

func (s *FileSink) WriteTile(band string, rect tessera.Rect, samples []byte) error {
	payload, err := tessera.Serialize(tileRecord{Band: band, Rect: rect, Samples: samples}, tessera.Snappy, tessera.CRC32)
	if err != nil {
		return err
	}
	return s.writeRecord(payload)
}

func (s *FileSink) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// StoredTile is one tile read back from a subset file.
type StoredTile struct {
	Band    string
	Rect    tessera.Rect
	Samples []byte
}

// ReadFileSubset reads back a subset file written by FileSink.
func ReadFileSubset(path string) (Header, []StoredTile, error) {
	var hdr Header
	f, err := os.Open(path)
	if err != nil {
		return hdr, nil, err
	}
	defer f.Close()

	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return hdr, nil, err
	}
	if string(magic) != string(fileMagic) {
		return hdr, nil, fmt.Errorf("%s is not a subset file (bad magic %q)", path, magic)
	}

	readRecord := func() ([]byte, error) {
		var lenbuf [4]byte
		if _, err := io.ReadFull(f, lenbuf[:]); err != nil {
			return nil, err
		}
		payload := make([]byte, binary.LittleEndian.Uint32(lenbuf[:]))
		if _, err := io.ReadFull(f, payload); err != nil {
			return nil, err
		}
		return payload, nil
	}

	payload, err := readRecord()
	if err != nil {
		return hdr, nil, fmt.Errorf("could not read header of %s: %v", path, err)
	}
	if err := tessera.Deserialize(payload, &hdr); err != nil {
		return hdr, nil, err
	}

	var tiles []StoredTile
	for {
		payload, err := readRecord()
		if err == io.EOF {
			return hdr, tiles, nil
		}
		if err != nil {
			return hdr, tiles, err
		}
		var rec tileRecord
		if err := tessera.Deserialize(payload, &rec); err != nil {
			return hdr, tiles, err
		}
		tiles = append(tiles, StoredTile(rec))
	}
}
