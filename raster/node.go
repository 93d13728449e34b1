package raster

import (
	"fmt"
	"sync"
)

// Node is a named raster data node with a lazy pyramid behind it.
type Node interface {
	Name() string
	Descriptor() Descriptor
	NumLevels() int
	GetTile(level int, row, col int32) (*Tile, error)
	Reset()
}

// VirtualNode marks nodes whose pixels are derived from other rasters and
// therefore carry no data of their own in write passes.
type VirtualNode interface {
	Virtual() bool
}

// ReferenceUpdater is implemented by nodes whose configuration references
// other rasters by name and must follow renames.
type ReferenceUpdater interface {
	UpdateReference(oldName, newName string) error
}

// SourceNode is a plain raster node over a tile source, e.g. one backed by
// persisted data through a tile reader.
type SourceNode struct {
	name string
	desc Descriptor
	pyr  *Pyramid
}

// NewSourceNode builds a node whose pixels come from the given source.
func NewSourceNode(desc Descriptor, src MultiLevelSource, opt Options) (*SourceNode, error) {
	pyr, err := NewPyramid(desc, src, opt)
	if err != nil {
		return nil, err
	}
	return &SourceNode{name: desc.Name, desc: desc, pyr: pyr}, nil
}

func (n *SourceNode) Name() string           { return n.name }
func (n *SourceNode) Descriptor() Descriptor { return n.desc }
func (n *SourceNode) NumLevels() int         { return n.pyr.NumLevels() }
func (n *SourceNode) Reset()                 { n.pyr.Reset() }

func (n *SourceNode) GetTile(level int, row, col int32) (*Tile, error) {
	return n.pyr.GetTile(level, row, col)
}

// Pyramid exposes the owned pyramid.
func (n *SourceNode) Pyramid() *Pyramid { return n.pyr }

// Renamable is implemented by nodes whose own name must follow a group
// rename.  Group.Rename is the only sanctioned caller; renaming a node
// directly desynchronizes it from its group.
type Renamable interface {
	SetNodeName(name string)
}

func (n *SourceNode) SetNodeName(name string) {
	n.name = name
	n.desc.Name = name
}

// Group is an ordered registry of raster nodes keyed by name.  Derived
// rasters resolve their references against a group.  All methods are safe
// for concurrent use.
type Group struct {
	mu    sync.RWMutex
	order []string
	nodes map[string]Node
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{nodes: make(map[string]Node)}
}

// Add registers a node.  Adding the identical node again is a no-op, so
// notification-driven insertions don't re-enter; a different node under an
// existing name is an error.
func (g *Group) Add(n Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, found := g.nodes[n.Name()]; found {
		if prev == n {
			return nil
		}
		return fmt.Errorf("group already contains a raster named %q", n.Name())
	}
	g.nodes[n.Name()] = n
	g.order = append(g.order, n.Name())
	return nil
}

// Get returns the node with the given name.
func (g *Group) Get(name string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, found := g.nodes[name]
	return n, found
}

// Contains returns true if a node with the given name is registered.
func (g *Group) Contains(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, found := g.nodes[name]
	return found
}

// Names returns node names in registration order.
func (g *Group) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, len(g.order))
	copy(names, g.order)
	return names
}

// Remove unregisters a node by name.
func (g *Group) Remove(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, found := g.nodes[name]; !found {
		return
	}
	delete(g.nodes, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Rename changes a node's name and notifies every node that references
// other rasters so expressions can follow the rename.
func (g *Group) Rename(oldName, newName string) error {
	g.mu.Lock()
	n, found := g.nodes[oldName]
	if !found {
		g.mu.Unlock()
		return fmt.Errorf("group has no raster named %q", oldName)
	}
	if _, taken := g.nodes[newName]; taken {
		g.mu.Unlock()
		return fmt.Errorf("group already contains a raster named %q", newName)
	}
	delete(g.nodes, oldName)
	g.nodes[newName] = n
	for i, name := range g.order {
		if name == oldName {
			g.order[i] = newName
			break
		}
	}
	if r, ok := n.(Renamable); ok {
		r.SetNodeName(newName)
	}
	// Snapshot before releasing the lock; updaters may call back into the group.
	updaters := make([]ReferenceUpdater, 0, len(g.order))
	for _, name := range g.order {
		if u, ok := g.nodes[name].(ReferenceUpdater); ok {
			updaters = append(updaters, u)
		}
	}
	g.mu.Unlock()

	for _, u := range updaters {
		if err := u.UpdateReference(oldName, newName); err != nil {
			return err
		}
	}
	return nil
}
