package raster

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/tessera-io/tessera/tessera"
)

// Options tunes pyramid construction.
type Options struct {
	// Levels is the number of resolution levels, minimum 1 (full resolution
	// only).
	Levels int

	// TilesPerLevel caps each level's decoded tile cache.  Ignored when
	// Shared is set.
	TilesPerLevel int

	// Shared, if non-nil, backs the level caches with a shared encoded
	// tile arena instead of per-level LRUs.
	Shared *SharedCache
}

type pyramidLevel struct {
	desc  Descriptor
	grid  tessera.TileGrid
	cache TileCache
}

// Pyramid is a lazy multi-level image: an ordered set of progressively
// lower-resolution representations of one raster, each independently
// tile-cached.  Tiles are computed on first request via the source; N
// concurrent requests for the same uncomputed tile share one computation.
// All methods are safe for concurrent use.
type Pyramid struct {
	desc   Descriptor
	src    MultiLevelSource
	levels []pyramidLevel

	flight   singleflight.Group
	computes int64

	// gen is bumped by Reset; tiles computed under an older generation
	// never enter the caches.
	gen uint64
}

// NewPyramid builds a pyramid over the given source.  No tiles are computed
// eagerly.
func NewPyramid(desc Descriptor, src MultiLevelSource, opt Options) (*Pyramid, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("pyramid for %q needs a tile source", desc.Name)
	}
	numLevels := opt.Levels
	if numLevels < 1 {
		numLevels = 1
	}
	tilesPerLevel := opt.TilesPerLevel
	if tilesPerLevel <= 0 {
		tilesPerLevel = tessera.DefaultTilesPerLevel
	}
	p := &Pyramid{desc: desc, src: src, levels: make([]pyramidLevel, numLevels)}
	for l := 0; l < numLevels; l++ {
		ldesc := desc.AtLevel(l)
		grid, err := ldesc.Grid()
		if err != nil {
			return nil, err
		}
		var cache TileCache
		if opt.Shared != nil {
			cache = opt.Shared.View(fmt.Sprintf("%s@%d", desc.Name, l))
		} else {
			cache = NewLRUCache(tilesPerLevel)
		}
		p.levels[l] = pyramidLevel{desc: ldesc, grid: grid, cache: cache}
	}
	return p, nil
}

// NumLevels returns the number of resolution levels, full resolution first.
func (p *Pyramid) NumLevels() int {
	return len(p.levels)
}

// LevelDescriptor returns the descriptor of the raster at the given level.
func (p *Pyramid) LevelDescriptor(level int) (Descriptor, error) {
	if level < 0 || level >= len(p.levels) {
		return Descriptor{}, fmt.Errorf("pyramid %q has no level %d (%d levels)", p.desc.Name, level, len(p.levels))
	}
	return p.levels[level].desc, nil
}

// TileRect returns the pixel rectangle of the tile at the given level and
// coordinate.
func (p *Pyramid) TileRect(level int, c tessera.TileCoord) (tessera.Rect, error) {
	if level < 0 || level >= len(p.levels) {
		return tessera.Rect{}, fmt.Errorf("pyramid %q has no level %d (%d levels)", p.desc.Name, level, len(p.levels))
	}
	return p.levels[level].grid.TileRect(c)
}

// GetTile returns the tile at (level, row, col), computing it via the
// source if absent from the level cache.  Failed computations are not
// cached; a subsequent call retries.  The returned tile may be shared with
// other readers and must not be mutated.
func (p *Pyramid) GetTile(level int, row, col int32) (*Tile, error) {
	if level < 0 || level >= len(p.levels) {
		return nil, fmt.Errorf("pyramid %q has no level %d (%d levels)", p.desc.Name, level, len(p.levels))
	}
	lv := &p.levels[level]
	coord := tessera.TileCoord{Row: row, Col: col}
	if t, ok := lv.cache.Get(coord); ok {
		return t, nil
	}
	rect, err := lv.grid.TileRect(coord)
	if err != nil {
		return nil, err
	}

	gen := atomic.LoadUint64(&p.gen)
	key := fmt.Sprintf("%d/%d/%d,%d", gen, level, row, col)
	v, err, _ := p.flight.Do(key, func() (interface{}, error) {
		// A concurrent computation may have landed while we waited.
		if t, ok := lv.cache.Get(coord); ok {
			return t, nil
		}
		atomic.AddInt64(&p.computes, 1)
		t, err := p.src.ComputeTile(level, rect)
		if err != nil {
			return nil, err
		}
		if t.Rect != rect {
			return nil, fmt.Errorf("source for %q computed tile %s, wanted %s", p.desc.Name, t.Rect, rect)
		}
		if err := t.CheckFits(); err != nil {
			return nil, err
		}
		// A reset may have raced this computation; its tile belongs to the
		// old generation and must not land in the cache.
		if atomic.LoadUint64(&p.gen) == gen {
			lv.cache.Add(coord, t)
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tile), nil
}

// Reset discards all cached tiles at all levels.  Nothing is recomputed
// eagerly; recomputation is deferred to the next GetTile call.  The pyramid
// itself stays usable.
func (p *Pyramid) Reset() {
	// The generation bump precedes the clears so an in-flight compute that
	// finishes in between still sees a stale generation and skips caching.
	atomic.AddUint64(&p.gen, 1)
	for l := range p.levels {
		p.levels[l].cache.Clear()
	}
}

// ComputeCount returns the number of source compute calls made so far.
func (p *Pyramid) ComputeCount() int64 {
	return atomic.LoadInt64(&p.computes)
}

// LogCacheStats writes utilization lines for each level's cache.
func (p *Pyramid) LogCacheStats() {
	for l := range p.levels {
		LogStats(fmt.Sprintf("%s@%d", p.desc.Name, l), p.levels[l].cache)
	}
}
