package subset

import (
	"sync"

	"github.com/tessera-io/tessera/tessera"
)

// Spec is the caller-declared partition of target bands into one output
// subset.  Bands backed by data are routed; virtual (derived) bands appear
// in the subset's header but carry no tiles.
type Spec struct {
	Name  string
	Bands []string
}

// Descriptor tracks one subset destination during a write pass.  The
// header-written and finalized transitions each happen at most once, under
// the descriptor's lock, because multiple bands sharing the subset may race
// on them.
type Descriptor struct {
	Name   string
	Region tessera.Rect
	Bands  []BandInfo

	// Representative is the first non-derived band of the subset, the
	// designated trigger for subset-level bookkeeping.
	Representative string

	sink       Sink
	opened     bool
	tileWidth  int32
	tileHeight int32

	mu            sync.Mutex
	headerWritten bool
	finalized     bool
	remaining     int
}

// Path identifies the destination.
func (d *Descriptor) Path() string {
	return d.sink.Path()
}

// HeaderWritten returns true once the structural header went out.
func (d *Descriptor) HeaderWritten() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.headerWritten
}

// Finalized returns true once the subset is fully written and closed.
func (d *Descriptor) Finalized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finalized
}

// Remaining returns the number of planned tile deliveries still outstanding.
func (d *Descriptor) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remaining
}

func (d *Descriptor) header() Header {
	return Header{
		Name:       d.Name,
		Width:      d.Region.W,
		Height:     d.Region.H,
		TileWidth:  d.tileWidth,
		TileHeight: d.tileHeight,
		Bands:      d.Bands,
	}
}
