package subset

import (
	"context"
	"sync"
	"time"

	"github.com/tessera-io/tessera/op"
	"github.com/tessera-io/tessera/raster"
	"github.com/tessera-io/tessera/tessera"
)

// GroupWriter is the operator that drains a raster group into per-subset
// destinations.  Its targets are the routable bands of the given specs; the
// executor computes their tiles and a Router fans them out.
type GroupWriter struct {
	group *raster.Group
	dir   string
	specs []Spec

	bands []string
	grid  tessera.TileGrid

	start   time.Time
	dispose sync.Once
}

// NewGroupWriter returns a writer for the named bands of the group's
// subsets, destined for the given folder.
func NewGroupWriter(g *raster.Group, dir string, specs []Spec) *GroupWriter {
	return &GroupWriter{group: g, dir: dir, specs: specs}
}

func (w *GroupWriter) Name() string {
	return "group-write to " + w.dir
}

// Initialize checks the destination folder, resolves every band of every
// spec against the group, and requires all routable bands to be collocated
// on one tile grid.
func (w *GroupWriter) Initialize() error {
	if w.dir == "" {
		return tessera.NewConfigError("group writer needs a target folder")
	}
	if len(w.specs) == 0 {
		return tessera.NewConfigError("group writer needs at least one subset")
	}

	w.bands = w.bands[:0]
	var gridSet bool
	for _, spec := range w.specs {
		for _, band := range spec.Bands {
			n, found := w.group.Get(band)
			if !found {
				return tessera.NewConfigError("subset %q references unknown band %q", spec.Name, band)
			}
			if v, ok := n.(raster.VirtualNode); ok && v.Virtual() {
				continue
			}
			grid, err := n.Descriptor().Grid()
			if err != nil {
				return err
			}
			if !gridSet {
				w.grid = grid
				gridSet = true
			} else if grid != w.grid {
				return tessera.NewConfigError("band %q tile grid %dx%d does not match the group's %dx%d",
					band, grid.Rows, grid.Cols, w.grid.Rows, w.grid.Cols)
			}
			w.bands = append(w.bands, band)
		}
	}
	if !gridSet {
		return tessera.NewConfigError("group writer has no non-derived bands to write")
	}
	w.start = time.Now()
	return nil
}

func (w *GroupWriter) TargetGrid() (tessera.TileGrid, error) {
	if w.grid.Rows == 0 {
		return w.grid, tessera.NewConfigError("group writer not initialized")
	}
	return w.grid, nil
}

func (w *GroupWriter) TargetBands() []string {
	return w.bands
}

// ComputeTile pulls the band's samples at full resolution.  Tiles come from
// each band's pyramid, so repeated reads of the same region are cached.
func (w *GroupWriter) ComputeTile(band string, rect tessera.Rect) (*raster.Tile, error) {
	n, found := w.group.Get(band)
	if !found {
		return nil, tessera.NewConfigError("band %q disappeared from the group mid-write", band)
	}
	return op.GetSourceTile(n, rect)
}

func (w *GroupWriter) Dispose() {
	w.dispose.Do(func() {
		if w.start.IsZero() {
			return
		}
		elapsed := time.Since(w.start).Seconds()
		height := float64(w.grid.Height)
		pixels := float64(w.grid.Width) * height * float64(len(w.bands))
		if height > 0 && pixels > 0 {
			tessera.Infof("Time: %6.3f s total, %6.3f ms per line, %3.6f ms per pixel\n",
				elapsed, elapsed*1e3/height, elapsed*1e3/pixels)
		}
	})
}

// Write runs the full pass: it builds a file-backed router over the specs
// and executes the writer against it.
func (w *GroupWriter) Write(ctx context.Context, cfg op.ExecConfig) (op.Result, error) {
	return w.WriteTo(ctx, cfg, nil)
}

// WriteTo is Write with a caller-chosen sink factory.
func (w *GroupWriter) WriteTo(ctx context.Context, cfg op.ExecConfig, factory SinkFactory) (op.Result, error) {
	router, err := NewRouter(w.group, w.dir, w.specs, factory)
	if err != nil {
		return op.Result{}, err
	}
	return op.Execute(ctx, w, router, cfg)
}
