/*
	This file holds per-level tile caches.  Two implementations are provided:
	a decoded-tile LRU used by default, and a view onto a shared freecache
	arena that holds serialized tiles under a strict memory bound.
*/

package raster

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/DmitriyVTitov/size"
	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"
	"github.com/golang/groupcache/lru"

	"github.com/tessera-io/tessera/tessera"
)

// TileCache caches computed tiles for one pyramid level.  Implementations
// must be safe for concurrent use.  Cached tiles are shared across readers
// and must be treated as immutable.
type TileCache interface {
	Get(c tessera.TileCoord) (*Tile, bool)
	Add(c tessera.TileCoord, t *Tile)
	Clear()
}

// NewLRUCache returns a TileCache evicting least-recently-used tiles beyond
// maxTiles entries.
func NewLRUCache(maxTiles int) TileCache {
	c := &lruTileCache{}
	c.cache = lru.New(maxTiles)
	c.cache.OnEvicted = func(key lru.Key, value interface{}) {
		if t, ok := value.(*Tile); ok {
			atomic.AddInt64(&c.bytes, -int64(size.Of(t)))
		}
	}
	return c
}

// lruTileCache wraps groupcache's lru, which is not goroutine-safe.
type lruTileCache struct {
	mu    sync.Mutex
	cache *lru.Cache
	bytes int64
	hits  int64
	gets  int64
}

func (c *lruTileCache) Get(coord tessera.TileCoord) (*Tile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	atomic.AddInt64(&c.gets, 1)
	v, ok := c.cache.Get(coord)
	if !ok {
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return v.(*Tile), true
}

func (c *lruTileCache) Add(coord tessera.TileCoord, t *Tile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	atomic.AddInt64(&c.bytes, int64(size.Of(t)))
	c.cache.Add(coord, t)
}

func (c *lruTileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Clear()
}

// Stats returns cached tile count, approximate bytes held, and hit counts.
func (c *lruTileCache) Stats() (entries int, bytes int64, hits, gets int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len(), atomic.LoadInt64(&c.bytes), atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.gets)
}

// LogStats writes a cache utilization line for caches that track stats.
func LogStats(name string, cache TileCache) {
	if sc, ok := cache.(*lruTileCache); ok {
		entries, bytes, hits, gets := sc.Stats()
		tessera.Infof("tile cache %q: %d tiles, ~%s, %d/%d hits\n",
			name, entries, humanize.Bytes(uint64(bytes)), hits, gets)
	}
}

// SharedCache is a memory-bounded arena for serialized tiles, shared across
// pyramids.  Each pyramid level takes a namespaced View of the arena.
type SharedCache struct {
	fc *freecache.Cache
}

// NewSharedCache allocates a shared tile cache of the given size in megabytes.
func NewSharedCache(mb int) *SharedCache {
	return &SharedCache{fc: freecache.NewCache(mb * 1024 * 1024)}
}

// View returns a TileCache backed by this arena under the given namespace.
// Clear bumps the view's generation instead of purging the arena, so
// invalidation stays O(1) per level; stale entries age out under eviction.
func (s *SharedCache) View(namespace string) TileCache {
	return &encodedCache{shared: s, ns: namespace}
}

type encodedCache struct {
	shared *SharedCache
	ns     string
	gen    uint64
}

func (c *encodedCache) key(coord tessera.TileCoord) []byte {
	gen := atomic.LoadUint64(&c.gen)
	return []byte(fmt.Sprintf("%s/%d/%d,%d", c.ns, gen, coord.Row, coord.Col))
}

func (c *encodedCache) Get(coord tessera.TileCoord) (*Tile, bool) {
	v, err := c.shared.fc.Get(c.key(coord))
	if err != nil {
		return nil, false
	}
	data, _, err := tessera.DeserializeData(v)
	if err != nil {
		tessera.Errorf("could not deserialize cached tile %s in %q: %v\n", coord, c.ns, err)
		return nil, false
	}
	var t Tile
	if err := t.UnmarshalBinary(data); err != nil {
		tessera.Errorf("bad cached tile %s in %q: %v\n", coord, c.ns, err)
		return nil, false
	}
	return &t, true
}

func (c *encodedCache) Add(coord tessera.TileCoord, t *Tile) {
	b, err := t.MarshalBinary()
	if err != nil {
		return
	}
	s, err := tessera.SerializeData(b, tessera.Snappy, tessera.CRC32)
	if err != nil {
		return
	}
	// Oversized or rejected entries are simply not cached.
	if err := c.shared.fc.Set(c.key(coord), s, 0); err != nil {
		tessera.Debugf("tile %s not cached in %q: %v\n", coord, c.ns, err)
	}
}

func (c *encodedCache) Clear() {
	atomic.AddUint64(&c.gen, 1)
}
