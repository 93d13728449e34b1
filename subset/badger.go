package subset

import (
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/tessera-io/tessera/tessera"
)

const badgerHeaderKey = "header"

// BadgerSink writes a subset into a BadgerDB store: the header under a
// fixed key and each tile as one keyed record.  Useful when downstream
// consumers want random tile access instead of a sequential file.
type BadgerSink struct {
	path string
	db   *badger.DB
}

// NewBadgerSink returns a sink writing to a Badger store at the given
// directory.
func NewBadgerSink(path string) *BadgerSink {
	return &BadgerSink{path: path}
}

func (s *BadgerSink) Path() string { return s.path }

func (s *BadgerSink) Create() error {
	opts := badger.DefaultOptions(s.path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *BadgerSink) WriteHeader(hdr Header) error {
	value, err := tessera.Serialize(hdr, tessera.Snappy, tessera.CRC32)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerHeaderKey), value)
	})
}

func badgerTileKey(band string, rect tessera.Rect) []byte {
	return []byte(fmt.Sprintf("tile/%s/%d,%d", band, rect.Y, rect.X))
}

func (s *BadgerSink) WriteTile(band string, rect tessera.Rect, samples []byte) error {
	value, err := tessera.Serialize(tileRecord{Band: band, Rect: rect, Samples: samples}, tessera.Snappy, tessera.CRC32)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerTileKey(band, rect), value)
	})
}

func (s *BadgerSink) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// ReadBadgerSubset opens a finished Badger subset and returns its header
// and stored tiles.
func ReadBadgerSubset(path string) (Header, []StoredTile, error) {
	var hdr Header
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return hdr, nil, err
	}
	defer db.Close()

	var tiles []StoredTile
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerHeaderKey))
		if err != nil {
			return fmt.Errorf("subset at %s has no header: %v", path, err)
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := tessera.Deserialize(value, &hdr); err != nil {
			return err
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("tile/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec tileRecord
			if err := tessera.Deserialize(value, &rec); err != nil {
				return err
			}
			tiles = append(tiles, StoredTile(rec))
		}
		return nil
	})
	return hdr, tiles, err
}
