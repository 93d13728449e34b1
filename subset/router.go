package subset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tessera-io/tessera/op"
	"github.com/tessera-io/tessera/raster"
	"github.com/tessera-io/tessera/tessera"
)

// SinkFactory builds the sink for one subset destination.
type SinkFactory func(dir, name string) Sink

// FileSinks is the default factory, one file per subset under dir.
func FileSinks(dir, name string) Sink {
	return NewFileSink(filepath.Join(dir, name+".tsr"))
}

// BadgerSinks writes each subset into its own Badger store under dir.
func BadgerSinks(dir, name string) Sink {
	return NewBadgerSink(filepath.Join(dir, name))
}

// Router maps each output band to its subset destination and enforces the
// exactly-once write guarantees: one header per subset before its first
// tile, serialized tile writes per destination, and one finalize per subset
// when the declared work plan for it completes.
type Router struct {
	group *raster.Group
	dir   string
	descs []*Descriptor

	// byBand holds only routable (non-virtual) bands; immutable after
	// construction.
	byBand map[string]*Descriptor

	mu     sync.Mutex
	begun  bool
	closed bool
}

// NewRouter builds a router over the group's bands for the given subset
// specs.  Every spec needs at least one non-derived band, its
// representative.
func NewRouter(g *raster.Group, dir string, specs []Spec, factory SinkFactory) (*Router, error) {
	if dir == "" {
		return nil, tessera.NewConfigError("subset router needs a target folder")
	}
	if len(specs) == 0 {
		return nil, tessera.NewConfigError("subset router needs at least one subset")
	}
	if factory == nil {
		factory = FileSinks
	}

	r := &Router{group: g, dir: dir, byBand: make(map[string]*Descriptor)}
	for _, spec := range specs {
		if spec.Name == "" || len(spec.Bands) == 0 {
			return nil, tessera.NewConfigError("subset needs a name and at least one band")
		}
		d := &Descriptor{Name: spec.Name}
		for _, band := range spec.Bands {
			n, found := g.Get(band)
			if !found {
				return nil, tessera.NewConfigError("subset %q references unknown band %q", spec.Name, band)
			}
			nd := n.Descriptor()
			virtual := false
			if v, ok := n.(raster.VirtualNode); ok {
				virtual = v.Virtual()
			}
			d.Bands = append(d.Bands, BandInfo{Name: band, DataType: nd.DataType, Virtual: virtual})
			if !virtual {
				if d.Representative == "" {
					d.Representative = band
					d.Region = nd.Bounds()
					d.tileWidth = nd.TileWidth
					d.tileHeight = nd.TileHeight
				}
				if prev, taken := r.byBand[band]; taken {
					return nil, tessera.NewConfigError("band %q mapped to both subset %q and %q", band, prev.Name, spec.Name)
				}
				r.byBand[band] = d
			}
		}
		if d.Representative == "" {
			return nil, tessera.NewConfigError("subset %q has only derived bands; one non-derived band must represent it", spec.Name)
		}
		d.sink = factory(dir, spec.Name)
		r.descs = append(r.descs, d)
	}
	return r, nil
}

// Descriptors returns the router's subset descriptors.
func (r *Router) Descriptors() []*Descriptor {
	return r.descs
}

// Begin opens every destination and derives each subset's expected tile
// count from the declared plan.  Any failure here aborts the invocation
// before tile work starts.
func (r *Router) Begin(plan *op.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.begun {
		return fmt.Errorf("router already begun")
	}
	r.begun = true

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return tessera.SinkError{Path: r.dir, Op: "create", Err: err}
	}

	planned := make(map[string]bool)
	for _, band := range plan.Bands() {
		planned[band] = true
	}
	for _, d := range r.descs {
		if err := d.sink.Create(); err != nil {
			return tessera.SinkError{Path: d.sink.Path(), Op: "open", Err: err}
		}
		d.opened = true
		routable := 0
		for _, b := range d.Bands {
			if !b.Virtual && planned[b.Name] {
				routable++
			}
		}
		d.mu.Lock()
		d.remaining = routable * plan.TilesPerBand()
		d.mu.Unlock()
	}
	return nil
}

// RouteTile writes one band's computed tile to its subset destination.
// Tiles for virtual or unmapped bands are dropped.  The subset lock is held
// only around the write itself, never during tile computation, so compute
// for other destinations proceeds concurrently.
func (r *Router) RouteTile(band string, tile *raster.Tile) error {
	d := r.byBand[band]
	if d == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finalized {
		return fmt.Errorf("tile %s for band %q delivered after subset %q was finalized", tile.Rect, band, d.Name)
	}
	if !d.headerWritten {
		if err := d.sink.WriteHeader(d.header()); err != nil {
			return tessera.SinkError{Path: d.sink.Path(), Op: "write header", Err: err}
		}
		d.headerWritten = true
	}
	if err := d.sink.WriteTile(band, tile.Rect, tile.Data); err != nil {
		return tessera.SinkError{Path: d.sink.Path(), Op: "write", Err: err}
	}
	d.remaining--
	if d.remaining == 0 {
		// Last planned delivery for this subset; close exactly once.
		if err := d.sink.Close(); err != nil {
			return tessera.SinkError{Path: d.sink.Path(), Op: "close", Err: err}
		}
		d.finalized = true
		tessera.Infof("Finished writing subset %q to %s\n", d.Name, d.sink.Path())
	}
	return nil
}

// Close releases any destination not yet finalized.  It runs exactly once
// per invocation, on both the success and failure paths.  Partially written
// destinations are left on disk for the caller to inspect or discard.
func (r *Router) Close(failed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	for _, d := range r.descs {
		d.mu.Lock()
		if d.opened && !d.finalized {
			if err := d.sink.Close(); err != nil && firstErr == nil {
				firstErr = tessera.SinkError{Path: d.sink.Path(), Op: "close", Err: err}
			}
			if failed {
				tessera.Warningf("Subset %q at %s is incomplete (%d tile writes outstanding); treat it as unreliable\n",
					d.Name, d.sink.Path(), d.remaining)
			}
		}
		d.mu.Unlock()
	}
	return firstErr
}
