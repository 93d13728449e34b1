package computed

import (
	"sync"

	"github.com/tessera-io/tessera/raster"
	"github.com/tessera-io/tessera/tessera"
)

// Raster is a raster data node whose pixel source is derived from an
// expression or parameters over other rasters in a group.  It owns one
// pyramid and resets only that pyramid on configuration changes; dependents
// are informed through listeners, never by transitive invalidation.
type Raster struct {
	mu    sync.RWMutex
	name  string
	desc  raster.Descriptor
	itype ImageType
	cfg   Config
	group *raster.Group
	src   raster.MultiLevelSource

	pyr       *raster.Pyramid
	listeners []func(name string)
}

// New builds a computed raster with a validated initial configuration.  The
// descriptor's data type is forced to uint8 (mask samples).  The caller adds
// the raster to the group.
func New(desc raster.Descriptor, itype ImageType, g *raster.Group, cfg Config, opt raster.Options) (*Raster, error) {
	desc.DataType = tessera.Uint8
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if err := itype.Validate(g, desc.Name, cfg); err != nil {
		return nil, err
	}
	r := &Raster{
		name:  desc.Name,
		desc:  desc,
		itype: itype,
		cfg:   cfg,
		group: g,
	}
	r.src = itype.NewSource(g, cfg)

	// The pyramid reads the source through an indirection so configuration
	// swaps take effect without rebuilding the pyramid.
	forward := raster.SourceFunc(func(level int, rect tessera.Rect) (*raster.Tile, error) {
		r.mu.RLock()
		src := r.src
		r.mu.RUnlock()
		return src.ComputeTile(level, rect)
	})
	pyr, err := raster.NewPyramid(desc, forward, opt)
	if err != nil {
		return nil, err
	}
	r.pyr = pyr
	return r, nil
}

// SetConfig validates the new configuration, then atomically swaps it in,
// resets the owned pyramid, and notifies listeners that pixel data changed.
// On validation failure nothing is mutated and a ConfigurationError is
// returned.
func (r *Raster) SetConfig(cfg Config) error {
	r.mu.RLock()
	itype, name := r.itype, r.name
	r.mu.RUnlock()

	if err := itype.Validate(r.group, name, cfg); err != nil {
		if !tessera.IsConfigurationError(err) {
			err = tessera.NewConfigError("invalid configuration for %q: %v", name, err)
		}
		return err
	}

	r.mu.Lock()
	r.cfg = cfg
	r.src = itype.NewSource(r.group, cfg)
	r.mu.Unlock()

	r.pyr.Reset()
	r.notifyDataChanged()
	return nil
}

// Config returns the current configuration.
func (r *Raster) Config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// ImageType returns the raster's image type.
func (r *Raster) ImageType() ImageType {
	return r.itype
}

// OnDataChanged registers a listener invoked after any change that can
// alter this raster's pixels.
func (r *Raster) OnDataChanged(f func(name string)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, f)
	r.mu.Unlock()
}

func (r *Raster) notifyDataChanged() {
	r.mu.RLock()
	name := r.name
	listeners := make([]func(name string), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()
	for _, f := range listeners {
		f(name)
	}
}

// NotifyInputChanged is the explicit staleness hook: a caller that mutated
// one of this raster's inputs invokes it to invalidate cached pixels here.
func (r *Raster) NotifyInputChanged() {
	r.pyr.Reset()
	r.notifyDataChanged()
}

// References returns the raster names the current configuration refers to.
func (r *Raster) References() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.itype.References(r.cfg)
}

// --- raster.Node interface ---

func (r *Raster) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

func (r *Raster) Descriptor() raster.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.desc
}

func (r *Raster) NumLevels() int { return r.pyr.NumLevels() }

func (r *Raster) GetTile(level int, row, col int32) (*raster.Tile, error) {
	return r.pyr.GetTile(level, row, col)
}

// Reset discards this raster's cached tiles.  Rasters depending on this one
// are not reset; notify them explicitly.
func (r *Raster) Reset() { r.pyr.Reset() }

// Virtual marks computed rasters as carrying no data of their own in write
// passes.
func (r *Raster) Virtual() bool { return true }

// Pyramid exposes the owned pyramid.
func (r *Raster) Pyramid() *raster.Pyramid { return r.pyr }

// --- raster.ReferenceUpdater interface ---

// UpdateReference rewrites the configuration after a referenced raster was
// renamed, invalidating cached pixels when anything changed.
func (r *Raster) UpdateReference(oldName, newName string) error {
	r.mu.Lock()
	newCfg := r.itype.HandleRename(r.cfg, oldName, newName)
	if newCfg == r.cfg {
		r.mu.Unlock()
		return nil
	}
	r.cfg = newCfg
	r.src = r.itype.NewSource(r.group, newCfg)
	r.mu.Unlock()

	r.pyr.Reset()
	r.notifyDataChanged()
	return nil
}

// SetNodeName lets the group rename this raster.
func (r *Raster) SetNodeName(name string) {
	r.mu.Lock()
	r.name = name
	r.desc.Name = name
	r.mu.Unlock()
}
